// Package testutil は複数パッケージのテストで共有するヘルパ。
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
)

// RepoFactory はテストごとにまっさらな Repository を返す。
type RepoFactory func(t *testing.T) domain_todo.Repository

// RunRepositoryContract は memory / rdb 共通の振る舞いを検証する。
func RunRepositoryContract(t *testing.T, newRepo RepoFactory) {
	t.Helper()

	t.Run("InsertAssignsUniqueIDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		seen := map[int64]bool{}
		var prev int64
		for i := 0; i < 5; i++ {
			td, err := repo.Insert(ctx, "task")
			if err != nil {
				t.Fatalf("Insert returned error: %v", err)
			}
			if seen[td.ID] {
				t.Fatalf("duplicate id %d", td.ID)
			}
			if td.ID <= prev {
				t.Errorf("expected increasing ids, got %d after %d", td.ID, prev)
			}
			if td.Completed {
				t.Errorf("expected completed=false on insert")
			}
			seen[td.ID] = true
			prev = td.ID
		}
	})

	t.Run("FindMissingIsNotAnError", func(t *testing.T) {
		repo := newRepo(t)

		got, ok, err := repo.Find(context.Background(), 42)
		if err != nil {
			t.Fatalf("Find returned error: %v", err)
		}
		if ok || got != nil {
			t.Errorf("expected absent, got %#v", got)
		}
	})

	t.Run("UpdateOverwritesCompletedOnly", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Insert(ctx, "buy milk")
		if err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}

		upd := &domain_todo.Todo{ID: created.ID, Title: "ignored", Completed: true}
		got, err := repo.Update(ctx, upd)
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if !got.Completed || got.Title != "buy milk" {
			t.Errorf("unexpected updated todo: %#v", got)
		}

		found, ok, err := repo.Find(ctx, created.ID)
		if err != nil || !ok {
			t.Fatalf("Find after update: ok=%v err=%v", ok, err)
		}
		if !found.Completed {
			t.Errorf("expected persisted completed=true")
		}
	})

	t.Run("UpdateMissingIsNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Update(context.Background(), &domain_todo.Todo{ID: 7, Completed: true})
		if !errors.Is(err, domain_todo.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RemoveThenFindIsAbsent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Insert(ctx, "walk dog")
		if err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}

		ok, err := repo.Remove(ctx, created.ID)
		if err != nil || !ok {
			t.Fatalf("Remove: ok=%v err=%v", ok, err)
		}

		if _, found, _ := repo.Find(ctx, created.ID); found {
			t.Errorf("expected todo %d to be gone", created.ID)
		}

		ok, err = repo.Remove(ctx, created.ID)
		if err != nil {
			t.Fatalf("second Remove returned error: %v", err)
		}
		if ok {
			t.Errorf("expected second Remove to report false")
		}
	})

	t.Run("IDsAreNotReused", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a, _ := repo.Insert(ctx, "a")
		b, _ := repo.Insert(ctx, "b")
		if _, err := repo.Remove(ctx, b.ID); err != nil {
			t.Fatalf("Remove returned error: %v", err)
		}
		c, err := repo.Insert(ctx, "c")
		if err != nil {
			t.Fatalf("Insert returned error: %v", err)
		}
		if c.ID == a.ID || c.ID == b.ID {
			t.Errorf("id %d was reissued", c.ID)
		}
	})

	t.Run("AllKeepsCreationOrder", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		titles := []string{"one", "two", "three"}
		for _, title := range titles {
			if _, err := repo.Insert(ctx, title); err != nil {
				t.Fatalf("Insert returned error: %v", err)
			}
		}

		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("All returned error: %v", err)
		}
		if len(all) != len(titles) {
			t.Fatalf("expected %d todos, got %d", len(titles), len(all))
		}
		for i, td := range all {
			if td.Title != titles[i] {
				t.Errorf("index %d: expected %q, got %q", i, titles[i], td.Title)
			}
		}
	})

	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, _ := repo.Insert(ctx, "copy")
		created.Completed = true

		found, _, err := repo.Find(ctx, created.ID)
		if err != nil {
			t.Fatalf("Find returned error: %v", err)
		}
		if found.Completed {
			t.Errorf("caller mutation leaked into the store")
		}
	})

	t.Run("ConcurrentInserts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = map[int64]bool{}
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				td, err := repo.Insert(ctx, "parallel")
				if err != nil {
					t.Errorf("Insert returned error: %v", err)
					return
				}
				mu.Lock()
				ids[td.ID] = true
				mu.Unlock()
			}()
		}
		wg.Wait()

		if len(ids) != n {
			t.Errorf("expected %d distinct ids, got %d", n, len(ids))
		}
		all, err := repo.All(ctx)
		if err != nil {
			t.Fatalf("All returned error: %v", err)
		}
		if len(all) != n {
			t.Errorf("expected %d stored todos, got %d", n, len(all))
		}
	})
}

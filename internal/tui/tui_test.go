package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/infrastructure/memory"

	tea "github.com/charmbracelet/bubbletea"
)

// fakeAPI は memory リポジトリの上に API を載せたもの
type fakeAPI struct {
	repo *memory.TodoRepository

	mu         sync.Mutex
	dropped    [][]int64
	failDelete error
}

func newFakeAPI(titles ...string) *fakeAPI {
	f := &fakeAPI{repo: memory.NewTodoRepository()}
	for _, title := range titles {
		_, _ = f.repo.Insert(context.Background(), title)
	}
	return f
}

func (f *fakeAPI) List(ctx context.Context) ([]*domain_todo.Todo, error) {
	return f.repo.All(ctx)
}

func (f *fakeAPI) Create(ctx context.Context, title string) (*domain_todo.Todo, error) {
	return f.repo.Insert(ctx, title)
}

func (f *fakeAPI) Toggle(ctx context.Context, id int64) (*domain_todo.Todo, error) {
	t, ok, err := f.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain_todo.ErrNotFound
	}
	t.Toggle()
	return f.repo.Update(ctx, t)
}

func (f *fakeAPI) Delete(ctx context.Context, id int64) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	ok, err := f.repo.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain_todo.ErrNotFound
	}
	return nil
}

func (f *fakeAPI) DeleteMany(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	f.dropped = append(f.dropped, ids)
	f.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := f.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// send は msg を Update に渡し、返ってきた cmd を同期的に実行し尽くす。
// tea.Quit / Blink などの UI 系 cmd は結果を捨てる。
func send(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	m, cmd := m.Update(msg)
	for i := 0; cmd != nil && i < 10; i++ {
		out := cmd()
		switch out.(type) {
		case loadedMsg, doneMsg:
			m, cmd = m.Update(out)
		default:
			cmd = nil
		}
	}
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func start(t *testing.T, api API) tea.Model {
	t.Helper()
	var m tea.Model = New(api)
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	return send(t, m, New(api).load()())
}

func todosOf(m tea.Model) []domain_todo.Todo {
	var out []domain_todo.Todo
	for _, it := range m.(Model).list.Items() {
		out = append(out, it.(listItem).todo)
	}
	return out
}

func TestModel_LoadsTodos(t *testing.T) {
	m := start(t, newFakeAPI("buy milk", "walk dog"))

	got := todosOf(m)
	if len(got) != 2 || got[0].Title != "buy milk" || got[1].Title != "walk dog" {
		t.Fatalf("unexpected items %#v", got)
	}
	if !strings.Contains(m.View(), "buy milk") {
		t.Errorf("view should render titles:\n%s", m.View())
	}
}

func TestModel_AddTodo(t *testing.T) {
	api := newFakeAPI()
	m := start(t, api)

	m = send(t, m, keyRunes("a"))
	if !m.(Model).adding {
		t.Fatal("expected add mode")
	}
	m = send(t, m, keyRunes("buy milk"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	got := todosOf(m)
	if len(got) != 1 || got[0] != (domain_todo.Todo{ID: 1, Title: "buy milk"}) {
		t.Fatalf("unexpected items after add %#v", got)
	}
	if m.(Model).adding {
		t.Error("add mode should be closed after enter")
	}
	if m.(Model).status != "added #1" {
		t.Errorf("unexpected status %q", m.(Model).status)
	}
}

func TestModel_AddCanceledWithEsc(t *testing.T) {
	api := newFakeAPI()
	m := start(t, api)

	m = send(t, m, keyRunes("a"))
	m = send(t, m, keyRunes("nope"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.(Model).adding {
		t.Error("esc should leave add mode")
	}
	if all, _ := api.List(context.Background()); len(all) != 0 {
		t.Errorf("nothing should be created, got %#v", all)
	}
}

func TestModel_ToggleAndDelete(t *testing.T) {
	api := newFakeAPI("buy milk", "walk dog")
	m := start(t, api)

	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if got := todosOf(m); !got[0].Completed {
		t.Fatalf("expected first todo completed, got %#v", got)
	}

	m = send(t, m, keyRunes("d"))
	got := todosOf(m)
	if len(got) != 1 || got[0].Title != "walk dog" {
		t.Fatalf("unexpected items after delete %#v", got)
	}
}

func TestModel_DropSelected(t *testing.T) {
	api := newFakeAPI("a", "b", "c")
	m := start(t, api)

	// 1 件目と 3 件目を選択
	m = send(t, m, keyRunes("x"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, keyRunes("x"))
	m = send(t, m, keyRunes("D"))

	got := todosOf(m)
	if len(got) != 1 || got[0].Title != "b" {
		t.Fatalf("unexpected items after drop %#v", got)
	}
	if len(api.dropped) != 1 || len(api.dropped[0]) != 2 || api.dropped[0][0] != 1 || api.dropped[0][1] != 3 {
		t.Errorf("unexpected DeleteMany calls %v", api.dropped)
	}
	if len(m.(Model).marked) != 0 {
		t.Errorf("selection should be cleared for deleted todos, got %v", m.(Model).marked)
	}
	if m.(Model).status != "dropped 2 todos" {
		t.Errorf("unexpected status %q", m.(Model).status)
	}
}

func TestModel_DropWithoutSelection(t *testing.T) {
	api := newFakeAPI("a")
	m := start(t, api)

	m = send(t, m, keyRunes("D"))

	if len(api.dropped) != 0 {
		t.Errorf("DeleteMany should not be called, got %v", api.dropped)
	}
	if m.(Model).status != "nothing selected" {
		t.Errorf("unexpected status %q", m.(Model).status)
	}
}

func TestModel_ShowsAPIError(t *testing.T) {
	api := newFakeAPI("a")
	api.failDelete = errors.New("server unavailable")
	m := start(t, api)

	m = send(t, m, keyRunes("d"))

	if m.(Model).err == nil {
		t.Fatal("expected error to be kept on the model")
	}
	if !strings.Contains(m.View(), "server unavailable") {
		t.Errorf("view should show the error:\n%s", m.View())
	}
	if len(todosOf(m)) != 1 {
		t.Errorf("list should be unchanged, got %#v", todosOf(m))
	}
}

func TestModel_Quit(t *testing.T) {
	m := start(t, newFakeAPI())

	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_AddKeepsTitleAsTyped(t *testing.T) {
	api := newFakeAPI()
	m := start(t, api)

	m = send(t, m, keyRunes("a"))
	m = send(t, m, keyRunes("  spaced  "))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	got := todosOf(m)
	if len(got) != 1 || got[0].Title != "  spaced  " {
		t.Fatalf("expected title to be stored verbatim, got %#v", got)
	}
}

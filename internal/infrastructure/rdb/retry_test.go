package rdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	base := 50 * time.Millisecond
	max := 300 * time.Millisecond

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, c := range cases {
		if got := backoff(base, max, c.attempt); got != c.want {
			t.Errorf("attempt %d: expected %v, got %v", c.attempt, c.want, got)
		}
	}
}

func TestIsRetryableDBErr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"bad conn", driver.ErrBadConn, true},
		{"wrapped bad conn", fmt.Errorf("query: %w", driver.ErrBadConn), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout"}, true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064, Message: "syntax"}, false},
		{"sqlite locked text", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"other", errors.New("no such table: todos"), false},
	}
	for _, c := range cases {
		if got := isRetryableDBErr(c.err); got != c.want {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, got)
		}
	}
}

func TestDoWithRetry_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	err := doWithRetry(context.Background(), RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return driver.ErrBadConn
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoWithRetry_StopsOnPermanentError(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	calls := 0
	err := doWithRetry(context.Background(), DefaultReadRetry, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoWithRetry_RespectsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := doWithRetry(ctx, DefaultReadRetry, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls, got %d", calls)
	}
}

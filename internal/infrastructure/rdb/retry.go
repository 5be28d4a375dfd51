package rdb

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// RetryPolicy は「何回・どのくらい待つか」をまとめた設定。
type RetryPolicy struct {
	MaxAttempts int           // 例: 3（合計3回試す）
	BaseBackoff time.Duration // 例: 50ms
	MaxBackoff  time.Duration // 例: 500ms
}

// DefaultReadRetry は「読み取り（All / Find）」向けのデフォルト。
// 書き込みはリトライしない。
var DefaultReadRetry = RetryPolicy{
	MaxAttempts: 3,
	BaseBackoff: 50 * time.Millisecond,
	MaxBackoff:  500 * time.Millisecond,
}

// doWithRetry は、retryable なエラーのみをバックオフ付きで再実行する。
// ctx の deadline/cancel を尊重して即中断する。
func doWithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = 10 * time.Millisecond
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = 200 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableDBErr(err) || attempt == policy.MaxAttempts {
			return err
		}

		if err := sleepWithContext(ctx, backoff(policy.BaseBackoff, policy.MaxBackoff, attempt)); err != nil {
			return err
		}
	}

	return lastErr
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff は指数バックオフ（ジッタ無し）
// attempt: 1,2,3...
func backoff(base, max time.Duration, attempt int) time.Duration {
	b := base
	for i := 1; i < attempt; i++ {
		b *= 2
		if b >= max {
			return max
		}
	}
	if b > max {
		return max
	}
	return b
}

// MySQL のエラー番号
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// isRetryableDBErr は “一時的に起きがちな” DB/ネットワーク系だけ true。
func isRetryableDBErr(err error) bool {
	// ctx 系は retry しない（上位に返す）
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// 拡張コードの下位 8bit がプライマリコード
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	// ドライバが素の文字列で返してくるケースの保険
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"):
		return true
	case strings.Contains(msg, "connection reset"):
		return true
	case strings.Contains(msg, "broken pipe"):
		return true
	default:
		return false
	}
}

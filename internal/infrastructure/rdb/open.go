package rdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// Open は DB を開き、疎通確認（リトライ付き）とスキーマ作成まで済ませる。
func Open(ctx context.Context, d Dialect, dsn string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.MaxOpenConns)
	}

	if err := pingWithRetry(ctx, db, logger, 20, 3*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := EnsureSchema(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database ready", zap.String("dialect", d.Name))
	return db, nil
}

// OpenSQLite はファイルのディレクトリが無ければ作ってから Open する。
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return Open(ctx, SQLite, SQLiteDSN(path), logger)
}

// EnsureSchema は CREATE TABLE IF NOT EXISTS を流すだけ。マイグレーションは無い。
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, d.Schema); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, logger *zap.Logger, maxAttempts int, interval time.Duration) error {
	for i := 1; i <= maxAttempts; i++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		logger.Warn("failed to ping db",
			zap.Int("attempt", i),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err),
		)
		if i == maxAttempts {
			break
		}
		if err := sleepWithContext(ctx, interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed to ping db after %d attempts", maxAttempts)
}

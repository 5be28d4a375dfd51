package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hijjiri/todo-api/internal/config"
	domain_todo "github.com/hijjiri/todo-api/internal/domain/todo"
	"github.com/hijjiri/todo-api/internal/infrastructure/memory"
	"github.com/hijjiri/todo-api/internal/infrastructure/rdb"

	"go.uber.org/zap"
)

// Store は usecase に渡すリポジトリとトランザクション境界の組。
type Store interface {
	domain_todo.Repository
	domain_todo.Transactor
}

// OpenStore は STORE_DRIVER に応じてストアを開く。
// 返り値の close は DB 接続を閉じる（memory では何もしない）。
func OpenStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Info("using in-memory store")
		return memory.NewTodoRepository(), func() error { return nil }, nil

	case config.DriverSQLite:
		db, err := rdb.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to SQLite", zap.String("path", cfg.SQLitePath))
		return newRDBStore(db, rdb.SQLite, logger), db.Close, nil

	case config.DriverMySQL:
		dsn := rdb.MySQLDSN(rdb.MySQLConfig{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			Name:     cfg.DB.Name,
		})
		db, err := rdb.Open(ctx, rdb.MySQL, dsn, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to MySQL",
			zap.String("host", cfg.DB.Host),
			zap.String("port", cfg.DB.Port),
			zap.String("db", cfg.DB.Name),
		)
		return newRDBStore(db, rdb.MySQL, logger), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newRDBStore(db *sql.DB, d rdb.Dialect, logger *zap.Logger) *rdb.TodoRepository {
	return rdb.NewTodoRepository(rdb.NewTxManager(db, logger), logger, rdb.WithDialect(d))
}

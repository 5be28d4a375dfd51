// Package config は環境変数から起動設定を読み込む。
package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Off を *_ADDR に入れるとそのリスナは起動しない。
const Off = "off"

// ストアの種類
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Config struct {
	Env         string
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StoreDriver string
	SQLitePath  string
	DB          DBConfig

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// "off" / "stdout"
	OTELTraces string
}

// 共通: getenv ヘルパ
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load は env から Config を読み込む。
// duration のパース失敗は起動失敗にせず、warn してデフォルトに落とす。
// STORE_DRIVER だけは typo で別ストアに黙って切り替わると困るのでエラーにする。
func Load(logger *zap.Logger) (Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Config{
		Env:         getenv("APP_ENV", "prod"),
		HTTPAddr:    getenv("HTTP_ADDR", "127.0.0.1:8000"),
		GRPCAddr:    getenv("GRPC_ADDR", ":50051"),
		MetricsAddr: getenv("METRICS_ADDR", ":9464"),
		StoreDriver: getenv("STORE_DRIVER", DriverSQLite),
		SQLitePath:  getenv("SQLITE_PATH", "./todos.db"),
		DB: DBConfig{
			Host:     getenv("DB_HOST", "127.0.0.1"),
			Port:     getenv("DB_PORT", "3306"),
			User:     getenv("DB_USER", "root"),
			Password: getenv("DB_PASSWORD", "root"),
			Name:     getenv("DB_NAME", "tododb"),
		},
		RequestTimeout:  durationEnv(logger, "REQUEST_TIMEOUT", 3*time.Second),
		ShutdownTimeout: durationEnv(logger, "SHUTDOWN_TIMEOUT", 10*time.Second),
		OTELTraces:      getenv("OTEL_TRACES", Off),
	}

	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite, DriverMySQL:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q (want memory, sqlite or mysql)", cfg.StoreDriver)
	}

	return cfg, nil
}

func durationEnv(logger *zap.Logger, key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logger.Warn("invalid duration, fallback to default",
			zap.String("key", key),
			zap.String("raw", raw),
			zap.Duration("default", def),
			zap.Error(err),
		)
		return def
	}
	return d
}

// Enabled は addr が "off" でないかを返す。
func Enabled(addr string) bool {
	return addr != "" && addr != Off
}

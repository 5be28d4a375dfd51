// Package observability はログ・トレース・メトリクスの初期化をまとめる。
package observability

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger は APP_ENV に応じて zap のロガーを作る。
// dev なら人が読みやすい Development、それ以外は JSON の Production。
func NewLogger(env string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	switch env {
	case "dev", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

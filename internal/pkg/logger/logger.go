package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"comerge/internal/pkg/config"
)

// Init 初始化全局 zerolog 日志器。
// 所有包通过 rs/zerolog/log 或 logger.Ctx 使用同一个实例。
func Init(cfg config.LoggingConfig, serviceName string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(os.Stdout)
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	log.Logger = logger.With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个带链路信息的日志器。
// 如果 ctx 中存在有效的 trace span，会附加 trace_id 字段方便与 Jaeger 关联。
func Ctx(ctx context.Context) *zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if sc := span.SpanContext(); sc.IsValid() {
		l := log.With().Str("trace_id", sc.TraceID().String()).Logger()
		return &l
	}
	return &log.Logger
}

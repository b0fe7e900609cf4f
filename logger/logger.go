package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L глобальный логгер; до Init пишет в никуда, чтобы пакеты и тесты не падали на nil
var L = zap.NewNop()

// Init настраивает логгер. level: debug, info, warn, error.
// production включает JSON-формат, иначе консольный цветной вывод.
func Init(level string, production bool) error {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
		fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using info: %v\n", level, err)
	}

	var conf zap.Config
	if production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	conf.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := conf.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	L = l
	L.Info("Logger initialized", zap.String("level", zapLevel.String()), zap.Bool("production", production))
	return nil
}

// Sync сбрасывает буферы, вызывать перед выходом
func Sync() {
	_ = L.Sync()
}

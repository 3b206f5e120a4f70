// File: internal/observability/logger.go
package observability

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/xkilldash9x/webgym/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorBlack   = "\x1b[30m"
	colorReset   = "\x1b[0m"
)

var namedColors = map[string]string{
	"black":   colorBlack,
	"red":     colorRed,
	"green":   colorGreen,
	"yellow":  colorYellow,
	"blue":    colorBlue,
	"magenta": colorMagenta,
	"cyan":    colorCyan,
	"white":   colorWhite,
}

// Initialize builds the process logger once. Later calls are ignored until
// ResetForTest. Console output goes to consoleWriter; a configured LogFile adds
// a rotated JSON sink at the same level.
func Initialize(cfg config.LoggerConfig, consoleWriter zapcore.WriteSyncer) {
	once.Do(func() {
		level := zap.NewAtomicLevelAt(zap.InfoLevel)
		if cfg.Level != "" {
			if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
				level.SetLevel(zap.InfoLevel)
			}
		}

		cores := []zapcore.Core{zapcore.NewCore(encoderFor(cfg), consoleWriter, level)}
		if cfg.LogFile != "" {
			cores = append(cores, fileCore(cfg, level))
		}

		opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
		if cfg.AddSource {
			opts = append(opts, zap.AddCaller())
		}
		logger := zap.New(zapcore.NewTee(cores...), opts...)
		if cfg.ServiceName != "" {
			logger = logger.Named(cfg.ServiceName)
		}

		globalLogger.Store(logger)
		zap.ReplaceGlobals(logger)
		zap.RedirectStdLog(logger)
	})
}

// InitializeLogger initializes the logger with console output on stdout.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stdout))
}

// ResetForTest forgets the process logger. Tests only.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

func fileCore(cfg config.LoggerConfig, level zapcore.LevelEnabler) zapcore.Core {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
	return zapcore.NewCore(jsonEncoder(), sink, level)
}

// encoderFor picks the console encoder for "console" and JSON otherwise.
func encoderFor(cfg config.LoggerConfig) zapcore.Encoder {
	if cfg.Format != "console" {
		return jsonEncoder()
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	encCfg.EncodeLevel = levelPainter(palette(cfg.Colors))
	// Component names print as "webgym.mind2web." so the message stands apart.
	encCfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(name + ".")
	}
	return zapcore.NewConsoleEncoder(encCfg)
}

func jsonEncoder() zapcore.Encoder {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return zapcore.NewJSONEncoder(encCfg)
}

// palette maps each level to the ANSI code of its configured color name.
// Unknown or empty names leave the level uncolored.
func palette(colors config.ColorConfig) map[zapcore.Level]string {
	byLevel := map[zapcore.Level]string{
		zapcore.DebugLevel:  colors.Debug,
		zapcore.InfoLevel:   colors.Info,
		zapcore.WarnLevel:   colors.Warn,
		zapcore.ErrorLevel:  colors.Error,
		zapcore.DPanicLevel: colors.DPanic,
		zapcore.PanicLevel:  colors.Panic,
		zapcore.FatalLevel:  colors.Fatal,
	}
	out := make(map[zapcore.Level]string, len(byLevel))
	for level, name := range byLevel {
		if code, ok := namedColors[strings.ToLower(name)]; ok {
			out[level] = code
		}
	}
	return out
}

func levelPainter(codes map[zapcore.Level]string) zapcore.LevelEncoder {
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		text := level.CapitalString()
		if code, ok := codes[level]; ok {
			text = code + text + colorReset
		}
		enc.AppendString(text)
	}
}

// GetLogger returns the process logger, or a development logger named
// "fallback" when Initialize has not run.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	l.Warn("Global logger requested before initialization; using fallback.")
	return l.Named("fallback")
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil && !unsyncable(err) {
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}

// unsyncable reports errors from syncing terminals and pipes, which cannot be
// fsynced on most platforms.
func unsyncable(err error) bool {
	return errors.Is(err, syscall.EINVAL) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.ENOTTY) ||
		strings.Contains(err.Error(), "sync /dev/stdout")
}

// Component returns logger named for one component of the harness. A nil
// logger falls back to the global one.
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.Named(name)
}

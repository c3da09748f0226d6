// Package log provides the package-level zap logger used by the scanner.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Init.
type Options struct {
	Debug bool
	// File, when set, also writes JSON log lines to a rotating file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu       sync.RWMutex
	log      = zap.NewNop().Sugar()
	fileSink *lumberjack.Logger
)

// Init replaces the package logger. Until it is called, logging is a no-op.
func Init(opts Options) error {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	var sink *lumberjack.Logger
	if opts.File != "" {
		sink = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 7),
			LocalTime:  true,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(sink),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	defer mu.Unlock()
	if fileSink != nil {
		fileSink.Close()
	}
	log = logger.Sugar()
	fileSink = sink
	return nil
}

// SetLogger installs an existing zap logger, mainly for tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
}

// Sync flushes any buffered log entries and closes the file sink.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = log.Sync()
	if fileSink != nil {
		fileSink.Close()
		fileSink = nil
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debugf(template string, args ...interface{}) {
	current().Debugf(template, args...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	current().Debugw(msg, keysAndValues...)
}

func Infof(template string, args ...interface{}) {
	current().Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	current().Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	current().Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	current().Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	current().Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	current().Errorw(msg, keysAndValues...)
}

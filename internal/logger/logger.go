// Package logger provides the process-wide structured logger, a
// log/slog instance with a runtime-adjustable level.
package logger

import (
	"flag"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

const envLogLevel = "NDNRTC_LOG_LEVEL"

var flagLevel = flag.String("log.level", "", "log level: debug, info, warn, error")

type dynamicLevel struct {
	v atomic.Int64
}

func (d *dynamicLevel) Level() slog.Level { return slog.Level(d.v.Load()) }
func (d *dynamicLevel) Set(l slog.Level)  { d.v.Store(int64(l)) }

var (
	level     dynamicLevel
	global    *slog.Logger
	initOnce  sync.Once
)

// Init builds the global logger. Safe to call multiple times; only the
// first call takes effect.
func Init() {
	initOnce.Do(func() {
		level.Set(detectLevel())
		handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})
		global = slog.New(handler)
	})
}

func detectLevel() slog.Level {
	if *flagLevel != "" {
		if l, ok := parseLevel(*flagLevel); ok {
			return l
		}
	}
	if v := os.Getenv(envLogLevel); v != "" {
		if l, ok := parseLevel(v); ok {
			return l
		}
	}
	return slog.LevelInfo
}

func parseLevel(s string) (slog.Level, bool) {
	switch s {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		if n, err := strconv.Atoi(s); err == nil {
			return slog.Level(n), true
		}
		return 0, false
	}
}

// SetLevel adjusts the global level at runtime, e.g. from an admin endpoint.
func SetLevel(l slog.Level) { level.Set(l) }

// L returns the global logger, initializing it with defaults if Init
// was never called.
func L() *slog.Logger {
	Init()
	return global
}

// Package logutil configures the process-wide structured logger used by
// every package in this module. It plays the same role as the teacher's
// util.InitSlog, but targets the PingCAP ecosystem's own logging library
// instead of log/slog, since that library (and its zap core) is already
// part of this module's dependency chain.
package logutil

import (
	"os"
	"strings"
	"sync"

	"github.com/pingcap/log"
	"go.uber.org/zap/zapcore"
)

var initOnce sync.Once

// Init configures the global pingcap/log logger from the COPR_LOG_LEVEL
// environment variable. Supported levels: debug, info, warn, error.
// Unset or unrecognized values default to info. Safe to call more than
// once; only the first call takes effect.
func Init() {
	initOnce.Do(func() {
		level := "info"
		if v, ok := os.LookupEnv("COPR_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
			level = strings.ToLower(strings.TrimSpace(v))
		}
		cfg := &log.Config{Level: level}
		logger, props, err := log.InitLogger(cfg)
		if err != nil {
			// Fall back to the library's default rather than aborting the
			// process: a bad level string should degrade, not crash a
			// request-scoped query core.
			logger, props, _ = log.InitLogger(&log.Config{Level: "info"})
		}
		log.ReplaceGlobals(logger, props)
	})
}

// SetLevel adjusts the global logger's level at runtime, used by tests
// that want to silence or unmute Debug-level per-row tracing.
func SetLevel(level zapcore.Level) {
	log.SetLevel(level)
}

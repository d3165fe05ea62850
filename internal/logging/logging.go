// Package logging builds the session logger: JSON lines to the per-run log
// file and, when the terminal is free, a console stream on stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

type Options struct {
	Level   string // debug, info, warn, error; unknown values mean info
	File    string // JSON log path; empty disables the file
	Console io.Writer
}

// ParseLevel maps a level name to its zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zapcore.InfoLevel
}

// New returns the logger and a function that syncs and closes the log file.
func New(o Options) (*zap.Logger, func() error, error) {
	level := ParseLevel(o.Level)
	var (
		cores  []zapcore.Core
		closer = func() error { return nil }
	)

	if o.File != "" {
		f, err := os.OpenFile(o.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		enc.EncodeDuration = zapcore.StringDurationEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), level))
		closer = func() error {
			_ = f.Sync()
			return f.Close()
		}
	}

	if o.Console != nil {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(t.Format("15:04:05"))
		}
		enc.EncodeCaller = nil
		enc.ConsoleSeparator = " "
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(o.Console), level))
	}

	if len(cores) == 0 {
		return zap.NewNop(), closer, nil
	}
	return zap.New(zapcore.NewTee(cores...)), closer, nil
}

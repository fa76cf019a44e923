// Package logging configures the structured loggers used across stash.
//
// The watch daemon runs unattended and long-lived, so it gets a
// production JSON logger writing to stderr; stdout stays reserved for
// piped list/decode output. Short-lived CLI commands get a terser
// console logger so a failed "stash list" doesn't spray JSON at a
// terminal.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors the -v/-q counting the CLI does on the global flag set.
type Level int

const (
	// LevelWarn is the default: warnings and errors only.
	LevelWarn Level = iota
	LevelInfo
	LevelDebug
)

// FromVerbosity maps the (-v count, -q count) pair from the CLI into a
// single level. Each -q drops a level, each -v raises one, floor/ceiling
// clamped.
func FromVerbosity(verbose, quiet int) Level {
	level := int(LevelWarn) + verbose - quiet
	if level < -1 {
		level = -1 // errors only, handled by zapLevel clamping below
	}

	if level > int(LevelDebug) {
		level = int(LevelDebug)
	}

	return Level(level)
}

func (l Level) zapLevel() zapcore.Level {
	switch {
	case l <= -1:
		return zapcore.ErrorLevel
	case l == LevelWarn:
		return zapcore.WarnLevel
	case l == LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// NewDaemon builds the structured logger used by the watch loop: JSON
// encoded, ISO8601 timestamps, written to w (normally os.Stderr).
func NewDaemon(w io.Writer, level Level) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		level.zapLevel(),
	)

	return zap.New(core)
}

// NewCLI builds the logger used by short-lived foreground commands:
// human-readable console output, written to w (normally os.Stderr).
func NewCLI(w io.Writer, level Level) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		level.zapLevel(),
	)

	return zap.New(core)
}

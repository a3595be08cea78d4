package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/bool64/ctxd"
)

// levelImportant sits between info and warn.
const levelImportant = slog.LevelInfo + 2

// logger adapts slog text handler to ctxd.Logger.
type logger struct {
	l *slog.Logger
}

var _ ctxd.Logger = logger{}

func newLogger(w io.Writer, level slog.Level) logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}

			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == levelImportant {
					a.Value = slog.StringValue("IMPORTANT")
				}
			}

			return a
		},
	})

	return logger{l: slog.New(h)}
}

func (l logger) log(ctx context.Context, level slog.Level, msg string, keysAndValues []interface{}) {
	fields := ctxd.Fields(ctx)
	args := make([]interface{}, 0, len(keysAndValues)+len(fields))
	args = append(args, keysAndValues...)
	args = append(args, fields...)

	l.l.Log(ctx, level, msg, args...)
}

// Debug implements ctxd.Logger.
func (l logger) Debug(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelDebug, msg, keysAndValues)
}

// Info implements ctxd.Logger.
func (l logger) Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelInfo, msg, keysAndValues)
}

// Important implements ctxd.Logger.
func (l logger) Important(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, levelImportant, msg, keysAndValues)
}

// Warn implements ctxd.Logger.
func (l logger) Warn(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelWarn, msg, keysAndValues)
}

// Error implements ctxd.Logger.
func (l logger) Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.log(ctx, slog.LevelError, msg, keysAndValues)
}

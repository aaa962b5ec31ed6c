package logs

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// core mirrors zap log lines into a Buffer. Fields are rendered inline as
// key=value so the dashboard can show them without a structured viewer.
type core struct {
	zapcore.LevelEnabler
	buf    *Buffer
	fields []zapcore.Field
}

const levelKey = "dashboard_level"

// Level overrides the dashboard level of a log line, e.g. to show an accepted
// command as SUCCESS. Other cores render it as an ordinary string field.
func Level(level string) zap.Field {
	return zap.String(levelKey, level)
}

// NewCore returns a zapcore.Core that writes entries at or above level into buf.
func NewCore(buf *Buffer, level zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: level, buf: buf}
}

// Tee wraps logger so every enabled entry is also written to buf.
func Tee(logger *zap.Logger, buf *Buffer, level zapcore.LevelEnabler) *zap.Logger {
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, NewCore(buf, level))
	}))
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &core{LevelEnabler: c.LevelEnabler, buf: c.buf, fields: merged}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range all {
		f.AddTo(enc)
	}

	level := levelName(ent.Level)
	var sb strings.Builder
	sb.WriteString(ent.Message)
	for _, f := range all {
		if f.Key == levelKey {
			level = f.String
			continue
		}
		v, ok := enc.Fields[f.Key]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, " %s=%v", f.Key, v)
	}

	c.buf.Append(Entry{
		Timestamp: ent.Time,
		Level:     level,
		Message:   sb.String(),
	})
	return nil
}

func (c *core) Sync() error { return nil }

func levelName(l zapcore.Level) string {
	switch {
	case l >= zapcore.ErrorLevel:
		return LevelError
	case l == zapcore.WarnLevel:
		return LevelWarn
	default:
		return LevelInfo
	}
}

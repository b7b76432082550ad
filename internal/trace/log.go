package trace

import (
	"errors"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogTracer forwards events to a zap logger.
// Span boundaries and points log at debug level, heartbeats at info.
type LogTracer struct {
	logger *zap.Logger
	level  Level
}

// NewLogTracer creates a LogTracer. A nil logger is replaced by zap.NewNop.
func NewLogTracer(logger *zap.Logger, level Level) *LogTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTracer{logger: logger, level: level}
}

// Emit logs the event with its fields.
func (t *LogTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	ev.Seq = NextSeq()

	fields := make([]zapcore.Field, 0, 8+len(ev.Attrs))
	fields = append(fields,
		zap.String("kind", ev.Kind.String()),
		zap.String("scope", ev.Scope.String()),
		zap.Uint64("seq", ev.Seq),
		zap.Uint64("span", ev.SpanID),
		zap.Uint64("gid", ev.GID),
	)
	if ev.ParentID != 0 {
		fields = append(fields, zap.Uint64("parent", ev.ParentID))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	if ev.Kind == KindSpanEnd {
		fields = append(fields, zap.Duration("elapsed", ev.Elapsed))
	}
	for _, a := range ev.Attrs {
		fields = append(fields, zap.String(a.Key, a.Value))
	}

	if ev.Kind == KindHeartbeat {
		t.logger.Info(ev.Name, fields...)
		return
	}
	t.logger.Debug(ev.Name, fields...)
}

// Flush syncs the underlying logger. EINVAL and ENOTTY, returned when
// the sink is a terminal or pipe that cannot be synced, are ignored.
func (t *LogTracer) Flush() error {
	err := t.logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}

// Close flushes the logger.
func (t *LogTracer) Close() error {
	return t.Flush()
}

// Level returns the current tracing level.
func (t *LogTracer) Level() Level {
	return t.level
}

// Enabled returns true if tracing is active.
func (t *LogTracer) Enabled() bool {
	return t.level > LevelOff
}

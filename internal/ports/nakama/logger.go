package nakama

import (
	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// runtimeCore is a zapcore.Core that writes into Nakama's logger, so the app layer's structured
// logs land next to the handler's own.
type runtimeCore struct {
	zapcore.LevelEnabler
	logger runtime.Logger
	fields []zapcore.Field
}

// NewZapLogger bridges a Nakama runtime logger into zap.
func NewZapLogger(logger runtime.Logger, level zapcore.Level) *zap.Logger {
	return zap.New(&runtimeCore{LevelEnabler: level, logger: logger})
}

func (c *runtimeCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *runtimeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *runtimeCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	l := c.logger
	if len(enc.Fields) > 0 {
		l = l.WithFields(enc.Fields)
	}

	switch {
	case ent.Level >= zapcore.ErrorLevel:
		l.Error("%s", ent.Message)
	case ent.Level == zapcore.WarnLevel:
		l.Warn("%s", ent.Message)
	case ent.Level == zapcore.InfoLevel:
		l.Info("%s", ent.Message)
	default:
		l.Debug("%s", ent.Message)
	}
	return nil
}

func (c *runtimeCore) Sync() error { return nil }

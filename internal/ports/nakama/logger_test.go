package nakama

import (
	"fmt"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logLine struct {
	level  string
	msg    string
	fields map[string]interface{}
}

// recordingLogger implements runtime.Logger and keeps every line.
type recordingLogger struct {
	lines  *[]logLine
	fields map[string]interface{}
}

func newRecordingLogger() recordingLogger {
	return recordingLogger{lines: &[]logLine{}}
}

func (l recordingLogger) add(level, format string, v ...interface{}) {
	*l.lines = append(*l.lines, logLine{level: level, msg: fmt.Sprintf(format, v...), fields: l.fields})
}

func (l recordingLogger) Debug(format string, v ...interface{}) { l.add("debug", format, v...) }
func (l recordingLogger) Info(format string, v ...interface{})  { l.add("info", format, v...) }
func (l recordingLogger) Warn(format string, v ...interface{})  { l.add("warn", format, v...) }
func (l recordingLogger) Error(format string, v ...interface{}) { l.add("error", format, v...) }
func (l recordingLogger) WithField(key string, v interface{}) runtime.Logger {
	return l.WithFields(map[string]interface{}{key: v})
}
func (l recordingLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return recordingLogger{lines: l.lines, fields: merged}
}
func (l recordingLogger) Fields() map[string]interface{} { return l.fields }

func TestZapBridge(t *testing.T) {
	rec := newRecordingLogger()
	log := NewZapLogger(rec, zapcore.InfoLevel).With(zap.String("game_id", "g1"))

	log.Debug("hidden")
	log.Info("round started", zap.String("round", "auction"))
	log.Error("failed", zap.Int("seq", 3))

	lines := *rec.lines
	assert.Equal(t, 2, len(lines))
	check.Equal(t, "info", lines[0].level)
	check.Equal(t, "round started", lines[0].msg)
	check.Equal(t, "g1", lines[0].fields["game_id"])
	check.Equal(t, "auction", lines[0].fields["round"])
	check.Equal(t, "error", lines[1].level)
	check.Equal(t, int64(3), lines[1].fields["seq"])
}

package planeio

import (
	"fmt"
	"strings"
	"testing"
)

type recordingLogger struct {
	messages []string
}

func (r *recordingLogger) record(prefix, format string, args ...interface{}) {
	r.messages = append(r.messages, prefix+" "+fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Debugf(format string, args ...interface{}) {
	r.record("DEBUG", format, args...)
}

func (r *recordingLogger) Infof(format string, args ...interface{}) {
	r.record("INFO", format, args...)
}

func (r *recordingLogger) Warningf(format string, args ...interface{}) {
	r.record("WARNING", format, args...)
}

func (r *recordingLogger) Errorf(format string, args ...interface{}) {
	r.record("ERROR", format, args...)
}

func (r *recordingLogger) Criticalf(format string, args ...interface{}) {
	r.record("CRITICAL", format, args...)
}

func (r *recordingLogger) Shutdown() {}

func withRecorder(t *testing.T, m ModeFlag) *recordingLogger {
	savedLogger, savedMode := logger, mode
	t.Cleanup(func() {
		logger, mode = savedLogger, savedMode
	})
	r := &recordingLogger{}
	SetCustomLogger(r)
	SetLogMode(m)
	return r
}

func TestLogModeGating(t *testing.T) {
	r := withRecorder(t, WarningMode)
	Debugf("plane %d", 1)
	Infof("plane %d", 2)
	Warningf("plane %d", 3)
	Errorf("plane %d", 4)
	Criticalf("plane %d", 5)
	expected := []string{"WARNING plane 3", "ERROR plane 4", "CRITICAL plane 5"}
	if strings.Join(r.messages, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %v, got %v", expected, r.messages)
	}

	r.messages = nil
	SetLogMode(SilentMode)
	Criticalf("dropped")
	if len(r.messages) != 0 {
		t.Errorf("silent mode printed %v", r.messages)
	}
}

func TestTimeLog(t *testing.T) {
	r := withRecorder(t, InfoMode)
	tlog := NewTimeLog()
	tlog.Debugf("hidden")
	tlog.Infof("decoded %d planes", 4)
	if len(r.messages) != 1 || !strings.HasPrefix(r.messages[0], "INFO decoded 4 planes: ") {
		t.Errorf("unexpected timed messages %v", r.messages)
	}
}

func TestModeString(t *testing.T) {
	if WarningMode.String() != "warning" {
		t.Errorf("expected warning, got %s", WarningMode)
	}
	if m, err := ParseLogMode(CriticalMode.String()); err != nil || m != CriticalMode {
		t.Errorf("mode name does not parse back: %v %v", m, err)
	}
}

package planeio

import (
	"fmt"
	"strings"
	"time"
)

// ModeFlag is a log severity.  Messages below the current mode are dropped.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var modeNames = [...]string{
	DebugMode:    "debug",
	InfoMode:     "info",
	WarningMode:  "warning",
	ErrorMode:    "error",
	CriticalMode: "critical",
	SilentMode:   "silent",
}

func (m ModeFlag) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", uint(m))
}

// mode is the minimum severity printed.
var mode = InfoMode

// Logger receives the messages of every package in planeio.  Each method formats its
// arguments like fmt.Printf.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Criticalf(format string, args ...interface{})

	// Shutdown flushes and closes any log file.
	Shutdown()
}

// SetLogMode sets the minimum severity of printed messages.  SetLogMode(SilentMode) turns
// logging off.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

// LogMode returns the current minimum severity.
func LogMode() ModeFlag {
	return mode
}

// ParseLogMode returns the mode named by s, e.g., "debug" or "warning".
func ParseLogMode(s string) (ModeFlag, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return ModeFlag(m), nil
		}
	}
	return mode, fmt.Errorf("unknown log level %q", s)
}

// logf sends a message to the severity's method of l if the current mode admits it.
func logf(l Logger, severity ModeFlag, format string, args ...interface{}) {
	if severity < mode {
		return
	}
	switch severity {
	case DebugMode:
		l.Debugf(format, args...)
	case InfoMode:
		l.Infof(format, args...)
	case WarningMode:
		l.Warningf(format, args...)
	case ErrorMode:
		l.Errorf(format, args...)
	default:
		l.Criticalf(format, args...)
	}
}

func Debugf(format string, args ...interface{}) {
	logf(logger, DebugMode, format, args...)
}

func Infof(format string, args ...interface{}) {
	logf(logger, InfoMode, format, args...)
}

func Warningf(format string, args ...interface{}) {
	logf(logger, WarningMode, format, args...)
}

func Errorf(format string, args ...interface{}) {
	logf(logger, ErrorMode, format, args...)
}

func Criticalf(format string, args ...interface{}) {
	logf(logger, CriticalMode, format, args...)
}

// Shutdown closes any log file.
func Shutdown() {
	logger.Shutdown()
}

// TimeLog appends the time elapsed since its creation to each message:
//
//	tlog := NewTimeLog()
//	...
//	tlog.Infof("decoded %d planes", n) // decoded 4 planes: 1.2ms
type TimeLog struct {
	logger Logger
	start  time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{logger, time.Now()}
}

func (t TimeLog) timed(severity ModeFlag, format string, args []interface{}) {
	logf(t.logger, severity, format+": %s\n", append(args, time.Since(t.start))...)
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	t.timed(DebugMode, format, args)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	t.timed(InfoMode, format, args)
}

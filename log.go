package whatfile

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogLevel describes whatfile's logs. These are a subset of the syslog log levels.
type LogLevel byte

// Log levels
const (
	LogLevelEmergency LogLevel = iota
	LogLevelAlert
	LogLevelCritical
	LogLevelError // Error - can't be suppressed
	LogLevelWarning
	LogLevelNotice // Normal logging, -q suppresses
	LogLevelInfo   // Per file results, needs -v
	LogLevelDebug  // Detector faults, needs -vv
)

var logLevelToString = []string{
	LogLevelEmergency: "EMERGENCY",
	LogLevelAlert:     "ALERT",
	LogLevelCritical:  "CRITICAL",
	LogLevelError:     "ERROR",
	LogLevelWarning:   "WARNING",
	LogLevelNotice:    "NOTICE",
	LogLevelInfo:      "INFO",
	LogLevelDebug:     "DEBUG",
}

// String turns a LogLevel into a string
func (l LogLevel) String() string {
	if l >= LogLevel(len(logLevelToString)) {
		return fmt.Sprintf("LogLevel(%d)", l)
	}
	return logLevelToString[l]
}

// Set a LogLevel
func (l *LogLevel) Set(s string) error {
	for n, name := range logLevelToString {
		if s != "" && name == s {
			*l = LogLevel(n)
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", s)
}

// Type of the value
func (l *LogLevel) Type() string {
	return "string"
}

// LogValueItem describes keyed item for a JSON log entry
type LogValueItem struct {
	key    string
	value  any
	render bool
}

// LogValue should be used as an argument to any logging calls to
// augment the JSON output with more structured information.
//
// key is the dictionary parameter used to store value.
func LogValue(key string, value any) LogValueItem {
	return LogValueItem{key: key, value: value, render: true}
}

// LogValueHide is like LogValue but the item doesn't show in text logs
func LogValueHide(key string, value any) LogValueItem {
	return LogValueItem{key: key, value: value, render: false}
}

// String returns the representation of value. If render is false this
// is an empty string so LogValueItem entries won't show in the
// textual representation of logs.
func (j LogValueItem) String() string {
	if !j.render {
		return ""
	}
	if do, ok := j.value.(fmt.Stringer); ok {
		return do.String()
	}
	return fmt.Sprint(j.value)
}

// Logger writes leveled logs through logrus
type Logger struct {
	Level LogLevel
	JSON  bool
	out   *logrus.Logger
}

// NewLogger creates a logger writing to w
func NewLogger(w io.Writer, level LogLevel, json bool) *Logger {
	out := logrus.New()
	out.SetOutput(w)
	out.SetLevel(logrus.DebugLevel)
	if json {
		out.SetFormatter(&logrus.JSONFormatter{})
	} else {
		out.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableQuote: true})
	}
	return &Logger{Level: level, JSON: json, out: out}
}

// NewLoggerFromConfig creates a stderr logger from the config log settings
func NewLoggerFromConfig(cfg *Config) (*Logger, error) {
	level := LogLevelNotice
	if cfg.LogLevel != "" {
		if err := level.Set(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return NewLogger(os.Stderr, level, cfg.JSONLog), nil
}

// discardLogger drops everything
func discardLogger() *Logger {
	return NewLogger(io.Discard, LogLevelEmergency, false)
}

// printf produces a log entry from the arguments passed in
func (l *Logger) printf(level LogLevel, o any, text string, args ...any) {
	if l == nil || l.Level < level {
		return
	}
	out := fmt.Sprintf(text, args...)

	fields := logrus.Fields{}
	if l.JSON {
		if o != nil {
			fields["object"] = fmt.Sprintf("%+v", o)
			fields["objectType"] = fmt.Sprintf("%T", o)
		}
		for _, arg := range args {
			if item, ok := arg.(LogValueItem); ok {
				fields[item.key] = item.value
			}
		}
	} else if o != nil {
		out = fmt.Sprintf("%v: %s", o, out)
	}

	entry := l.out.WithFields(fields)
	switch level {
	case LogLevelDebug:
		entry.Debug(out)
	case LogLevelInfo:
		entry.Info(out)
	case LogLevelNotice, LogLevelWarning:
		entry.Warn(out)
	default:
		entry.Error(out)
	}
}

// Errorf writes error log output. It should always be seen by the user.
func (l *Logger) Errorf(o any, text string, args ...any) {
	l.printf(LogLevelError, o, text, args...)
}

// Logf writes log output at Notice level, the default. Use this only for
// important things the user should see.
func (l *Logger) Logf(o any, text string, args ...any) {
	l.printf(LogLevelNotice, o, text, args...)
}

// Infof writes per file results, shown with -v
func (l *Logger) Infof(o any, text string, args ...any) {
	l.printf(LogLevelInfo, o, text, args...)
}

// Debugf writes debugging output, shown with -vv
func (l *Logger) Debugf(o any, text string, args ...any) {
	l.printf(LogLevelDebug, o, text, args...)
}

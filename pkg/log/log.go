package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Level names, in increasing order of severity.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var severities = map[string]int32{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger is a named logger. Derived loggers created with With share the
// underlying writer with their parent.
type Logger struct {
	name   string
	std    *log.Logger
	fields string
}

// writerHolder keeps atomic.Value storing a single concrete type.
type writerHolder struct {
	w io.Writer
}

var (
	threshold    atomic.Int32
	serviceDebug sync.Map // map[string]*atomic.Bool
	loggers      sync.Map // map[string]*Logger
	outputWriter atomic.Value
)

func init() {
	outputWriter.Store(writerHolder{w: os.Stderr})
	threshold.Store(severities[LevelInfo])
}

// ForService returns the memoized logger for name.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	current := outputWriter.Load().(writerHolder).w
	logger := &Logger{name: name, std: log.New(current, "", log.LstdFlags|log.Lmicroseconds)}
	actual, _ := loggers.LoadOrStore(name, logger)
	return actual.(*Logger)
}

// SetLevel sets the global threshold. Unknown names are rejected and leave
// the current threshold in place.
func SetLevel(level string) error {
	sev, ok := severities[strings.ToUpper(strings.TrimSpace(level))]
	if !ok {
		return fmt.Errorf("unknown log level %q", level)
	}
	threshold.Store(sev)
	return nil
}

// Level returns the name of the current global threshold.
func Level() string {
	cur := threshold.Load()
	for name, sev := range severities {
		if sev == cur {
			return name
		}
	}
	return LevelInfo
}

// SetGlobalDebug is shorthand for SetLevel(DEBUG) or SetLevel(INFO).
func SetGlobalDebug(enabled bool) {
	if enabled {
		threshold.Store(severities[LevelDebug])
		return
	}
	threshold.Store(severities[LevelInfo])
}

// EnableDebugFor enables debug output for one service regardless of the
// global threshold.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	val, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	val.(*atomic.Bool).Store(true)
}

// DisableDebugFor reverts EnableDebugFor.
func DisableDebugFor(name string) {
	if val, ok := serviceDebug.Load(name); ok {
		val.(*atomic.Bool).Store(false)
	}
}

// SetOutput redirects every logger, existing ones included.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outputWriter.Store(writerHolder{w: w})
	loggers.Range(func(_, v any) bool {
		v.(*Logger).std.SetOutput(w)
		return true
	})
}

// With returns a logger that appends key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{
		name:   l.name,
		std:    l.std,
		fields: l.fields + " " + key + "=" + fmt.Sprint(value),
	}
}

func (l *Logger) enabled(level string) bool {
	if level == LevelDebug {
		if val, ok := serviceDebug.Load(l.name); ok && val.(*atomic.Bool).Load() {
			return true
		}
	}
	return severities[level] >= threshold.Load()
}

func (l *Logger) output(level, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.std.Println(level + " [" + l.name + ">] " + fmt.Sprintf(format, args...) + l.fields)
}

func (l *Logger) Debugf(format string, args ...any) { l.output(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.output(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.output(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.output(LevelError, format, args...) }

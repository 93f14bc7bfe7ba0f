package common

import (
	"fmt"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Loggers lists the package loggers of the application
var Loggers = []string{"pool", "cache", "transport", "server", "client", "cmd"}

const logTimeLayout = "2006-01-02 15:04:05.000000"

var levelNames = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// logSink is shared by all package loggers. Debug and info lines go to out, everything
// more severe to errOut.
type logSink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

var sink = &logSink{out: os.Stdout, errOut: os.Stderr}

func (s *logSink) write(level logger.LogLevel, name, msg string) {
	line := fmt.Sprintf("%s %-5s [%s] %s\n", time.Now().Format(logTimeLayout), levelNames[level], name, msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.out
	if level <= logger.WARNING {
		w = s.errOut
	}
	_, _ = io.WriteString(w, line)
}

// SetLogOutput redirects all loggers and returns a function that restores the previous
// writers
func SetLogOutput(out, errOut io.Writer) (restore func()) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	prevOut, prevErr := sink.out, sink.errOut
	sink.out, sink.errOut = out, errOut
	return func() {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		sink.out, sink.errOut = prevOut, prevErr
	}
}

// --------------------------------------------------------------------------
// Package logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

type climastroLogger struct {
	name  string
	level atomic.Int32
}

func (l *climastroLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *climastroLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if logger.LogLevel(l.level.Load()) < level {
		return
	}
	sink.write(level, l.name, fmt.Sprintf(format, args...))
}

func (l *climastroLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *climastroLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *climastroLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *climastroLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

func (l *climastroLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	sink.write(logger.CRITICAL, l.name, msg)
	panic(msg)
}

var (
	registry    = xsync.NewMapOf[string, *climastroLogger]()
	levels      atomic.Pointer[LogLevels]
	factoryOnce sync.Once
)

// CreateLogger implements dragonboats logger.Factory. Loggers created after InitLoggers
// start at their configured level.
func CreateLogger(pkgName string) logger.ILogger {
	l, _ := registry.LoadOrCompute(pkgName, func() *climastroLogger {
		l := &climastroLogger{name: pkgName}
		level := logger.INFO
		if lv := levels.Load(); lv != nil {
			level = lv.For(pkgName)
		}
		l.SetLevel(level)
		return l
	})
	return l
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// LogLevels is a default level with per logger overrides
type LogLevels struct {
	Default   logger.LogLevel
	Overrides map[string]logger.LogLevel
}

// For returns the level of the named logger
func (lv LogLevels) For(name string) logger.LogLevel {
	if level, ok := lv.Overrides[name]; ok {
		return level
	}
	return lv.Default
}

// ParseLogLevels parses a comma separated list of a default level and name=level
// overrides, e.g. "warn,transport=debug". Override names must be one of Loggers.
func ParseLogLevels(spec string) (LogLevels, error) {
	lv := LogLevels{Default: logger.INFO, Overrides: map[string]logger.LogLevel{}}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, value, isOverride := strings.Cut(part, "=")
		if !isOverride {
			level, err := ParseLogLevel(part)
			if err != nil {
				return LogLevels{}, err
			}
			lv.Default = level
			continue
		}

		name = strings.TrimSpace(name)
		if !slices.Contains(Loggers, name) {
			return LogLevels{}, fmt.Errorf("unknown logger %q in %q (known: %s)", name, spec, strings.Join(Loggers, ", "))
		}
		level, err := ParseLogLevel(value)
		if err != nil {
			return LogLevels{}, err
		}
		lv.Overrides[name] = level
	}

	return lv, nil
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the logger factory (once per process) and applies spec, see
// ParseLogLevels. It may be called again to change the levels.
func InitLoggers(spec string) error {
	lv, err := ParseLogLevels(spec)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() {
		logger.SetLoggerFactory(CreateLogger)
	})
	levels.Store(&lv)

	registry.Range(func(name string, l *climastroLogger) bool {
		l.SetLevel(lv.For(name))
		return true
	})
	for _, name := range Loggers {
		logger.GetLogger(name).SetLevel(lv.For(name))
	}
	return nil
}

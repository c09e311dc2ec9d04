// Package logging is pagemgr's structured logger, built on bolt. Logs always go to stderr unless a
// writer is given, so stdout carries only command output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
)

// EnvLevel sets the log level when --log-level is not given.
const EnvLevel = "PAGEMGR_LOG_LEVEL"

const defaultLevel = "warn"

var levels = map[string]bolt.Level{
	"trace": bolt.TRACE,
	"debug": bolt.DEBUG,
	"info":  bolt.INFO,
	"warn":  bolt.WARN,
	"error": bolt.ERROR,
}

var (
	mu      sync.Mutex
	current *bolt.Logger
)

type Config struct {
	// Level is one of trace, debug, info, warn, error. Empty means warn.
	Level string
	// Format is console (default) or json.
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// ResolveLevel returns the first level set by the flag, $PAGEMGR_LOG_LEVEL or the global config.
func ResolveLevel(flag, configured string) string {
	for _, v := range []string{flag, os.Getenv(EnvLevel), configured} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return defaultLevel
}

func (c Config) level() (bolt.Level, error) {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == "" {
		name = defaultLevel
	}
	l, ok := levels[name]
	if !ok {
		return 0, fmt.Errorf("invalid log level %q (expected trace|debug|info|warn|error)", c.Level)
	}
	return l, nil
}

func (c Config) output() io.Writer {
	if c.Output == nil {
		return os.Stderr
	}
	return c.Output
}

func (c Config) handler() (bolt.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "", "console":
		return bolt.NewConsoleHandler(c.output()), nil
	case "json":
		return bolt.NewJSONHandler(c.output()), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected console|json)", c.Format)
	}
}

// Init validates c and makes it the process logger. On error the previous logger stays.
func Init(c Config) error {
	lvl, err := c.level()
	if err != nil {
		return err
	}
	h, err := c.handler()
	if err != nil {
		return err
	}
	l := bolt.New(h).SetLevel(lvl)
	mu.Lock()
	current = l
	mu.Unlock()
	return nil
}

func get() *bolt.Logger {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		current = bolt.New(bolt.NewConsoleHandler(os.Stderr)).SetLevel(levels[defaultLevel])
	}
	return current
}

// LogEvent chains Fields onto a bolt event.
type LogEvent struct {
	event *bolt.Event
}

func (l *LogEvent) Add(f Field) *LogEvent {
	l.event = f(l.event)
	return l
}

func (l *LogEvent) Msg(msg string) {
	l.event.Msg(msg)
}

func Debug() *LogEvent { return &LogEvent{event: get().Debug()} }
func Info() *LogEvent  { return &LogEvent{event: get().Info()} }
func Warn() *LogEvent  { return &LogEvent{event: get().Warn()} }
func Error() *LogEvent { return &LogEvent{event: get().Error()} }

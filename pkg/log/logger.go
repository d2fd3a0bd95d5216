package log

import (
	"bytes"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// "goroutine 123 [running]:" fits comfortably.
	stackBufSize = 32
	unknownGoID  = "unknown"
	timeFormat   = "15:04:05"
)

var (
	Logger    zerolog.Logger
	stackPool = sync.Pool{New: func() any { return make([]byte, stackBufSize) }}
	goPrefix  = []byte("goroutine ")
)

// goroutineID returns the id of the calling goroutine, or "unknown".
func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return unknownGoID
	}
	defer stackPool.Put(buf) //nolint:staticcheck // slice header reuse is intended

	header := bytes.TrimPrefix(buf[:runtime.Stack(buf, false)], goPrefix)
	end := bytes.IndexByte(header, ' ')
	if end <= 0 {
		return unknownGoID
	}
	for _, c := range header[:end] {
		if c < '0' || c > '9' {
			return unknownGoID
		}
	}
	return string(header[:end])
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

func init() {
	// stdout belongs to the rendered dashboard, logs go to stderr.
	Logger = newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: timeFormat}, zerolog.InfoLevel)
	log.Logger = Logger
}

// SetOutput replaces the log destination, keeping the current level.
func SetOutput(out io.Writer) {
	Logger = newLogger(out, Logger.GetLevel())
	log.Logger = Logger
}

// SetLevel parses a level name such as "debug" or "warn".
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	Logger = Logger.Level(level)
	log.Logger = Logger
	return nil
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

func Info() *zerolog.Event {
	return Logger.Info()
}

func Error() *zerolog.Event {
	return Logger.Error()
}

func Warn() *zerolog.Event {
	return Logger.Warn()
}

func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs and exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

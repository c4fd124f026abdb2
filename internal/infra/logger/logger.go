// Package logger sets up the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr", or file path
	Level  string // "debug", "info", "warn", "error"
	File   string // log file path (used when Output is not stdout/stderr)
	JSON   bool   // force JSON output on stdout/stderr
}

var (
	fileMu  sync.Mutex
	logFile *os.File
)

// Init initializes the global zerolog logger with the given configuration.
// A previously opened log file is closed.
func Init(cfg Config) error {
	level := parseLevel(cfg.Level)

	out, console, err := openOutput(cfg)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.CallerMarshalFunc = shortCaller

	var w io.Writer = out
	if console && !cfg.JSON {
		cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
		if level == zerolog.DebugLevel {
			cw.PartsOrder = []string{"time", "level", "message", "caller"}
			cw.FormatCaller = func(i interface{}) string {
				return "(" + i.(string) + ")"
			}
		}
		w = cw
	}

	ctx := zerolog.New(w).With().Timestamp()
	// caller only at DEBUG
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()
	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger

	return nil
}

// openOutput resolves the output writer and reports whether it is a terminal
// stream. An opened file replaces the previous one.
func openOutput(cfg Config) (io.Writer, bool, error) {
	switch strings.ToLower(cfg.Output) {
	case "stdout", "":
		return os.Stdout, true, closeFile(nil)
	case "stderr":
		return os.Stderr, true, closeFile(nil)
	}
	path := cfg.File
	if path == "" {
		path = cfg.Output
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to open log file %s", path)
	}
	return f, false, closeFile(f)
}

func closeFile(next *os.File) error {
	fileMu.Lock()
	defer fileMu.Unlock()
	prev := logFile
	logFile = next
	if prev == nil {
		return nil
	}
	return errors.Wrap(prev.Close(), "failed to close previous log file")
}

// Close closes the log file, if any. Logging falls back to stderr.
func Close() error {
	zlog.Logger = zlog.Output(os.Stderr)
	return closeFile(nil)
}

// shortCaller renders a caller as "dir/file.go:line".
func shortCaller(pc uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Session returns a logger tagged with a session id.
func Session(id snowflake.ID) zerolog.Logger {
	return zlog.With().Str("session", id.String()).Logger()
}

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Format selects the slog handler; text is the default, json suits log shippers.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

var (
	levelVar slog.LevelVar

	mu     sync.RWMutex
	out    io.Writer = os.Stdout
	format           = FormatText
	base             = build(os.Stdout, FormatText)
)

func build(w io.Writer, f Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: &levelVar}
	if f == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetOutput swaps the sink of every logger returned from now on.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	mu.Lock()
	out = w
	base = build(out, format)
	mu.Unlock()
}

func SetFormat(raw string) {
	f := FormatText
	if strings.EqualFold(strings.TrimSpace(raw), string(FormatJSON)) {
		f = FormatJSON
	}
	mu.Lock()
	format = f
	base = build(out, format)
	mu.Unlock()
}

func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a structured logger carrying the given key/value pairs,
// e.g. logger.With("component", "resolver", "symbol", sym).
func With(args ...any) *slog.Logger {
	return current().With(args...)
}

func Debugf(format string, v ...any) { current().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { current().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { current().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { current().Error(fmt.Sprintf(format, v...)) }

// InfoBlock logs a multi-line block one line at a time so each keeps the handler prefix.
func InfoBlock(block string) {
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if strings.TrimSpace(line) != "" {
			Infof("%s", line)
		}
	}
}

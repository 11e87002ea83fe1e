// Package logger is the leveled logger shared by all ghmark packages.
// Output goes to stderr so command output stays clean for piping; a log
// file can be attached for long-running use.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a string to a Level.
// Accepts: debug, info, warn, error (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: valid levels are debug, info, warn, error", s)
	}
}

var std = struct {
	mu     sync.Mutex
	level  Level
	output io.Writer
	file   *os.File
}{
	level:  LevelInfo,
	output: os.Stderr,
}

// SetLevel sets the minimum severity that gets written.
func SetLevel(level Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.level = level
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.output = w
}

// SetLogFile attaches a file that receives a copy of every written
// line. A previously attached file is closed first.
func SetLogFile(path string) error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	std.file = f
	return nil
}

// Close detaches and closes the log file, if any.
func Close() {
	std.mu.Lock()
	defer std.mu.Unlock()

	if std.file != nil {
		std.file.Close()
		std.file = nil
	}
}

func write(level Level, format string, args ...interface{}) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if level < std.level {
		return
	}

	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	line := ts + " " + level.String() + " " + fmt.Sprintf(format, args...) + "\n"

	io.WriteString(std.output, line)
	if std.file != nil {
		io.WriteString(std.file, line)
	}
}

func Debug(format string, args ...interface{}) { write(LevelDebug, format, args...) }
func Info(format string, args ...interface{})  { write(LevelInfo, format, args...) }
func Warn(format string, args ...interface{})  { write(LevelWarn, format, args...) }
func Error(format string, args ...interface{}) { write(LevelError, format, args...) }

// Package svlog is seriesvault's leveled logger: a small level-gated
// interface with a plain file-backed implementation and a colorized
// implementation for interactive terminals.
package svlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Level is one of the four severities a Logger gates on.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel parses a level string (case-insensitive; WARNING is accepted
// as an alias for WARN), defaulting to LevelInfo for anything unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the interface every seriesvault component logs through.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StandardLogger logs plain "[LEVEL] msg" lines via the standard log
// package. It has no terminal-detection logic, which makes it the right
// choice for output that always goes to a file or pipe.
type StandardLogger struct {
	level  Level
	logger *log.Logger
}

// NewStandardLogger returns a StandardLogger gated at levelStr, writing
// timestamped lines to out.
func NewStandardLogger(levelStr string, out io.Writer) Logger {
	return &StandardLogger{level: ParseLevel(levelStr), logger: log.New(out, "", log.LstdFlags)}
}

func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.log("DEBUG", msg, args...)
	}
}

func (l *StandardLogger) Info(msg string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.log("INFO", msg, args...)
	}
}

func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.log("WARN", msg, args...)
	}
}

func (l *StandardLogger) Error(msg string, args ...interface{}) {
	if l.level <= LevelError {
		l.log("ERROR", msg, args...)
	}
}

func (l *StandardLogger) log(level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.Printf("[%s] %s", level, msg)
}

// ConsoleLogger colorizes the level prefix when out is a terminal, and
// writes plain "[LEVEL] msg" lines (without StandardLogger's timestamp)
// otherwise.
type ConsoleLogger struct {
	level Level
	out   io.Writer
	color bool
}

// NewConsoleLogger returns a ConsoleLogger gated at levelStr, writing to
// out. Color is enabled only when out is attached to a terminal (including
// a Cygwin terminal).
func NewConsoleLogger(levelStr string, out *os.File) Logger {
	return &ConsoleLogger{
		level: ParseLevel(levelStr),
		out:   out,
		color: isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()),
	}
}

var (
	debugColor = color.New(color.FgCyan)
	infoColor  = color.New(color.FgWhite)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if l.level <= LevelDebug {
		l.log(debugColor, "DEBUG", msg, args...)
	}
}

func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	if l.level <= LevelInfo {
		l.log(infoColor, "INFO", msg, args...)
	}
}

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	if l.level <= LevelWarn {
		l.log(warnColor, "WARN", msg, args...)
	}
}

func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	if l.level <= LevelError {
		l.log(errorColor, "ERROR", msg, args...)
	}
}

func (l *ConsoleLogger) log(c *color.Color, level, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if !l.color {
		fmt.Fprintf(l.out, "[%s] %s\n", level, msg)
		return
	}
	fmt.Fprintf(l.out, "[%s] %s\n", c.Sprint(level), msg)
}

// Package logger provides leveled diagnostics for the analyzer, the resolver and the CLI.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level represents the logging level
type Level int

const (
	// LevelOff disables all logging
	LevelOff Level = iota
	// LevelInfo shows basic progress information
	LevelInfo
	// LevelDebug shows detailed debugging information
	LevelDebug
)

var (
	currentLevel = LevelOff
	startTime    = time.Now()
)

// SetLevel sets the global logging level
func SetLevel(level Level) {
	currentLevel = level
	startTime = time.Now()
}

// Info logs an informational message (shown with --verbose)
func Info(format string, args ...interface{}) {
	if currentLevel >= LevelInfo {
		elapsed := time.Since(startTime).Round(time.Millisecond)
		prefix := fmt.Sprintf("[%s] ", elapsed)
		fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
	}
}

// Debug logs a debug message (shown with --debug)
func Debug(format string, args ...interface{}) {
	if currentLevel >= LevelDebug {
		elapsed := time.Since(startTime).Round(time.Millisecond)
		prefix := fmt.Sprintf("[%s] [DEBUG] ", elapsed)
		fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
	}
}

// Sink receives diagnostics. Warn is for recoverable conditions and is always
// reported; Write and Ok carry progress and are shown only in verbose mode.
type Sink interface {
	Warn(msg string)
	Write(msg string)
	Ok(msg string)
}

const (
	colorNeutral = "\x1B[39m"
	colorRed     = "\x1B[31m"
	colorGreen   = "\x1B[32m"
)

// Console writes diagnostics to an io.Writer with a ">>" marker.
type Console struct {
	out     io.Writer
	verbose bool
	color   bool
	mu      sync.Mutex
}

// NewConsole returns a sink writing to out. Colors are used only when out is a
// terminal and NO_COLOR is unset.
func NewConsole(out io.Writer, verbose bool) *Console {
	return &Console{out: out, verbose: verbose, color: useColor(out)}
}

// Warn prints msg regardless of verbosity.
func (c *Console) Warn(msg string) {
	c.println(colorRed, msg)
}

// Write prints msg in verbose mode.
func (c *Console) Write(msg string) {
	if !c.verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, msg)
}

// Ok prints a success marker and msg in verbose mode.
func (c *Console) Ok(msg string) {
	if !c.verbose {
		return
	}
	c.println(colorGreen, msg)
}

func (c *Console) println(color, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.color {
		fmt.Fprintf(c.out, "%s>> %s%s\n", color, colorNeutral, msg)
		return
	}
	fmt.Fprintf(c.out, ">> %s\n", msg)
}

func useColor(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Discard drops every diagnostic.
var Discard Sink = discard{}

type discard struct{}

func (discard) Warn(string)  {}
func (discard) Write(string) {}
func (discard) Ok(string)    {}

// Recorder keeps every diagnostic in memory.
type Recorder struct {
	mu       sync.Mutex
	Warnings []string
	Messages []string
}

// Warn records a warning.
func (r *Recorder) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
}

// Write records a progress message.
func (r *Recorder) Write(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
}

// Ok records a progress message.
func (r *Recorder) Ok(msg string) {
	r.Write(msg)
}

// WarningCount returns the number of warnings seen so far.
func (r *Recorder) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Warnings)
}

// Tee forwards every diagnostic to each sink.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Warn(msg string) {
	for _, s := range t {
		s.Warn(msg)
	}
}

func (t tee) Write(msg string) {
	for _, s := range t {
		s.Write(msg)
	}
}

func (t tee) Ok(msg string) {
	for _, s := range t {
		s.Ok(msg)
	}
}

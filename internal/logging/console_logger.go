package logging

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// ConsoleLogger writes log messages to a writer, stderr for the CLI.
// Safe for concurrent use by multiple goroutines.
type ConsoleLogger struct {
	out     io.Writer
	verbose bool
	tag     string
	mu      *sync.Mutex
}

// NewWriterLogger creates a ConsoleLogger writing to out.
// If verbose is false, Verbose() calls are no-ops.
func NewWriterLogger(out io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: out, verbose: verbose, mu: &sync.Mutex{}}
}

// WithRun returns a logger sharing l's output whose verbose and error lines
// carry the first block of the run ID, so interleaved runs can be told apart.
func (l *ConsoleLogger) WithRun(id uuid.UUID) *ConsoleLogger {
	c := *l
	c.tag = "[" + id.String()[:8] + "] "
	return &c
}

// Verbose logs detailed diagnostic information if verbose mode is enabled.
func (l *ConsoleLogger) Verbose(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	l.write("[VERBOSE] "+l.tag, format, args)
}

// Info logs informational messages about normal operations.
func (l *ConsoleLogger) Info(format string, args ...interface{}) {
	l.write("", format, args)
}

// Error logs error messages.
func (l *ConsoleLogger) Error(format string, args ...interface{}) {
	l.write("[ERROR] "+l.tag, format, args)
}

func (l *ConsoleLogger) write(prefix, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(args) > 0 {
		fmt.Fprintf(l.out, prefix+format+"\n", args...)
	} else {
		fmt.Fprint(l.out, prefix+format+"\n")
	}
}

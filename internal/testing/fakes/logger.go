package fakes

import (
	"fmt"
	"strings"
	"sync"
)

// Logger records formatted messages per level.
type Logger struct {
	mu      sync.Mutex
	verbose []string
	info    []string
	errors  []string
}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) Verbose(format string, args ...interface{}) {
	l.add(&l.verbose, format, args)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.add(&l.info, format, args)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.add(&l.errors, format, args)
}

func (l *Logger) add(dst *[]string, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

// InfoLines returns the Info messages so far.
func (l *Logger) InfoLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.info...)
}

// ErrorLines returns the Error messages so far.
func (l *Logger) ErrorLines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errors...)
}

// Contains reports whether any message at any level contains substr.
func (l *Logger) Contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, group := range [][]string{l.verbose, l.info, l.errors} {
		for _, m := range group {
			if strings.Contains(m, substr) {
				return true
			}
		}
	}
	return false
}

package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/aster-analytics/olistload/internal/cli"
	"github.com/aster-analytics/olistload/pkg/olist"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(olist.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(olist.ExitCodeForError(err))
	}
}

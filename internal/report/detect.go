package report

import (
	"os"

	"golang.org/x/term"
)

// ShouldStyle reports whether output to f may use colors and box drawing.
//
// Returns false if:
//   - OLISTLOAD_PLAIN=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//   - f is not a terminal
func ShouldStyle(f *os.File) bool {
	if os.Getenv("OLISTLOAD_PLAIN") == "1" {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

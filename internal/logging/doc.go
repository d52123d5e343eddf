// Package logging provides concrete implementations of the olist.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted messages to stderr, optionally tagged with a run ID
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging

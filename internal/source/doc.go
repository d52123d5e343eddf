// Package source provides access to the CSV files of a dataset.
//
// Key interface:
//   - Provider: opens a named file as a stream and reports where it lives
//
// Implementations:
//   - DirProvider: files in a directory on the OS filesystem
//   - MemoryProvider: in-memory files for tests
//
// Missing files are reported with olist.ErrSourceNotFound.
package source

package olist

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds a load can end with.
// Callers distinguish them with errors.Is().
//
// Example usage:
//
//	report, err := loader.Load(ctx, cfg)
//	if errors.Is(err, olist.ErrSourceNotFound) {
//	    // a CSV file is missing from the data directory
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the store could not be reached or authenticated against.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSourceNotFound indicates an expected input file is missing.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrMalformedRow indicates the bulk load rejected the input (parse, type or header mismatch).
	ErrMalformedRow = errors.New("malformed row")

	// ErrDuplicateKey indicates the post-load uniqueness check failed.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrOrphanRows indicates rows reference parent keys that do not exist.
	ErrOrphanRows = errors.New("orphan row violation")

	// ErrStructural indicates a schema-definition command failed.
	ErrStructural = errors.New("structural error")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// DuplicateKeyError reports a table whose row count differs from its distinct key count.
type DuplicateKeyError struct {
	Table    string
	Key      []string
	Total    int64
	Distinct int64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicates in %s by (%s): total=%d, distinct=%d",
		e.Table, strings.Join(e.Key, ", "), e.Total, e.Distinct)
}

// Is makes errors.Is(err, ErrDuplicateKey) match.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// OrphanRowError reports rows in Table whose Column has no match in Parent.
type OrphanRowError struct {
	Table  string
	Column string
	Parent string
	Count  int64
}

func (e *OrphanRowError) Error() string {
	return fmt.Sprintf("%d row(s) in %s reference a %s missing from %s",
		e.Count, e.Table, e.Column, e.Parent)
}

// Is makes errors.Is(err, ErrOrphanRows) match.
func (e *OrphanRowError) Is(target error) bool {
	return target == ErrOrphanRows
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrSourceNotFound):
		return ExitSourceNotFound
	case errors.Is(err, ErrMalformedRow):
		return ExitMalformedRow
	case errors.Is(err, ErrDuplicateKey):
		return ExitDuplicateKey
	case errors.Is(err, ErrStructural):
		return ExitStructuralError
	case errors.Is(err, ErrOrphanRows):
		return ExitOrphanRows
	}

	// cobra reports usage problems as plain errors
	errStr := err.Error()
	for _, prefix := range []string{"unknown flag", "unknown shorthand flag", "unknown command", "required flag", "invalid argument", "accepts "} {
		if strings.HasPrefix(errStr, prefix) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

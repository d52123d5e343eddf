package pgerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// PostgreSQL SQLSTATE classes the loader distinguishes.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	classConnectionException  = "08"
	classDataException        = "22"
	classIntegrity            = "23"
	classOperatorIntervention = "57"

	codeUniqueViolation    = "23505"
	codeFKViolation        = "23503"
	codeTooManyConnections = "53300"
	codeQueryCanceled      = "57014"
)

// IsConnectionError reports whether err means the server could not be
// reached or the session was lost.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectionPgError(pgErr)
	}

	if isNetworkError(err) {
		return true
	}

	return hasConnectionMessage(err)
}

// IsCanceled reports whether err was caused by context cancellation or a
// server-side statement cancel.
func IsCanceled(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeQueryCanceled
}

// IsDataError reports whether err is a data exception or integrity violation,
// the failures a bad input row produces during COPY.
func IsDataError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return strings.HasPrefix(pgErr.Code, classDataException) || strings.HasPrefix(pgErr.Code, classIntegrity)
}

// IsUniqueViolation reports a 23505 unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// IsForeignKeyViolation reports a 23503 foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeFKViolation
}

// Wrap annotates err with an error kind. Connection failures always become
// olist.ErrConnectionFailed; other errors get kind. Errors that already carry
// a loader kind, and context cancellations, are wrapped without a new kind.
func Wrap(kind error, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)

	switch {
	case hasKind(err):
		return fmt.Errorf("%s: %w", msg, err)
	case IsCanceled(err):
		return fmt.Errorf("%s: %w", msg, err)
	case IsConnectionError(err):
		return fmt.Errorf("%s: %w: %w", msg, olist.ErrConnectionFailed, err)
	default:
		return fmt.Errorf("%s: %w: %w", msg, kind, err)
	}
}

// Describe renders a PgError with its detail and position hints for logs.
func Describe(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	if pgErr.Detail != "" {
		fmt.Fprintf(&b, "; detail: %s", pgErr.Detail)
	}
	if pgErr.Where != "" {
		fmt.Fprintf(&b, "; where: %s", pgErr.Where)
	}
	if pgErr.TableName != "" {
		fmt.Fprintf(&b, "; table: %s", pgErr.TableName)
	}
	if pgErr.ConstraintName != "" {
		fmt.Fprintf(&b, "; constraint: %s", pgErr.ConstraintName)
	}
	return b.String()
}

func hasKind(err error) bool {
	for _, k := range []error{
		olist.ErrConnectionFailed,
		olist.ErrSourceNotFound,
		olist.ErrMalformedRow,
		olist.ErrDuplicateKey,
		olist.ErrOrphanRows,
		olist.ErrStructural,
		olist.ErrInvalidConfig,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

func isConnectionPgError(pgErr *pgconn.PgError) bool {
	code := pgErr.Code

	if strings.HasPrefix(code, classConnectionException) {
		return true
	}

	// admin/crash shutdown and "cannot connect now"; 57014 is a cancel, not a lost session
	if strings.HasPrefix(code, classOperatorIntervention) && code != codeQueryCanceled {
		return true
	}

	return code == codeTooManyConnections
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	for _, errno := range []syscall.Errno{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.ENETUNREACH,
		syscall.EHOSTUNREACH,
		syscall.EPIPE,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}

	return false
}

func hasConnectionMessage(err error) bool {
	errMsg := strings.ToLower(err.Error())

	patterns := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"connection failure",
		"failed to connect",
		"no such host",
		"network is unreachable",
		"broken pipe",
		"too many connections",
		"server closed the connection",
		"conn closed",
		"unexpected eof",
	}

	for _, pattern := range patterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

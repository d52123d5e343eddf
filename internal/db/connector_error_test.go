package db

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/pkg/olist"
)

func fatal(code, msg string) *pgconn.PgError {
	return &pgconn.PgError{Severity: "FATAL", Code: code, Message: msg}
}

func TestWrapConnectionError_TargetDatabaseMissing(t *testing.T) {
	cause := fatal("3D000", `database "olist_raw" does not exist`)

	err := wrapConnectionError(cause, "db.internal", 5432, "olist_raw")

	assert.Contains(t, err.Error(), `database "olist_raw" does not exist`)
	assert.Contains(t, err.Error(), "olistload setup --dbname olist_raw", "points at the command that creates it")
	assert.ErrorIs(t, err, olist.ErrConnectionFailed)
	assert.Equal(t, olist.ExitConnectionError, olist.ExitCodeForError(err))

	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	assert.Equal(t, "3D000", pgErr.Code)
}

func TestWrapConnectionError_AuthFailureNamesTarget(t *testing.T) {
	tests := []struct {
		name  string
		cause error
	}{
		{"password", fatal("28P01", `password authentication failed for user "loader"`)},
		{"expired IAM token", errors.New(`failed to connect to host=olist.rds.amazonaws.com user=loader database=olist_raw: FATAL: PAM authentication failed for user "loader"; password authentication failed for user "loader"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapConnectionError(tt.cause, "olist.rds.amazonaws.com", 5432, "olist_raw")

			assert.Contains(t, err.Error(), `password authentication failed for database "olist_raw"`)
			assert.Contains(t, err.Error(), "$PGPASSWORD")
			assert.NotContains(t, err.Error(), "olistload setup", "the database exists; setup would not help")
			assert.ErrorIs(t, err, tt.cause)
			assert.Equal(t, olist.ExitConnectionError, olist.ExitCodeForError(err))
		})
	}
}

func TestWrapConnectionError_ServerUnreachable(t *testing.T) {
	tests := []struct {
		name         string
		cause        string
		host         string
		port         int
		wantContains []string
	}{
		{
			name:         "server down on custom port",
			cause:        "dial tcp 127.0.0.1:6543: connect: connection refused",
			host:         "127.0.0.1",
			port:         6543,
			wantContains: []string{"connection refused to 127.0.0.1:6543", "pg_isready -h 127.0.0.1 -p 6543"},
		},
		{
			name:         "refused on Windows",
			cause:        "dial tcp 127.0.0.1:5432: connectex: No connection could be made because the target machine actively refused it",
			host:         "127.0.0.1",
			port:         5432,
			wantContains: []string{"connection refused to 127.0.0.1:5432"},
		},
		{
			name:         "misspelled host",
			cause:        "dial tcp: lookup olist-db.intenal: no such host",
			host:         "olist-db.intenal",
			port:         5432,
			wantContains: []string{`cannot resolve host "olist-db.intenal"`, "misspelled"},
		},
		{
			name:         "dropped packets",
			cause:        "dial tcp 10.0.0.7:5432: i/o timeout",
			host:         "10.0.0.7",
			port:         5432,
			wantContains: []string{"connection timed out to 10.0.0.7:5432"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := errors.New(tt.cause)
			err := wrapConnectionError(cause, tt.host, tt.port, "olist_analytics")

			for _, want := range tt.wantContains {
				assert.Contains(t, err.Error(), want)
			}
			assert.ErrorIs(t, err, cause)
			assert.ErrorIs(t, err, olist.ErrConnectionFailed)
		})
	}
}

func TestWrapConnectionError_ServerRefusesSession(t *testing.T) {
	t.Run("connection slots exhausted", func(t *testing.T) {
		err := wrapConnectionError(fatal("53300", "sorry, too many clients already; too many connections for role \"loader\""),
			"localhost", 5432, "olist_analytics")
		assert.Contains(t, err.Error(), `too many connections to database "olist_analytics"`)
		assert.Equal(t, olist.ExitConnectionError, olist.ExitCodeForError(err))
	})

	t.Run("TLS required by server", func(t *testing.T) {
		err := wrapConnectionError(errors.New("server refused TLS connection"), "localhost", 5432, "olist_analytics")
		assert.Contains(t, err.Error(), "SSL/TLS connection error")
		assert.Contains(t, err.Error(), "--sslmode")
	})

	t.Run("anything else keeps the cause", func(t *testing.T) {
		cause := fatal("57P03", "the database system is starting up")
		err := wrapConnectionError(cause, "localhost", 5432, "olist_analytics")
		assert.Contains(t, err.Error(), "failed to connect to database")
		assert.Contains(t, err.Error(), "starting up")
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, olist.ErrConnectionFailed)
	})
}

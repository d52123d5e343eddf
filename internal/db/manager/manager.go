package manager

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/pkg/olist"
)

const (
	queryDatabaseExists = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	queryListSchemas    = `
		SELECT coalesce(array_agg(nspname ORDER BY nspname), '{}')
		FROM pg_namespace
		WHERE nspname <> 'information_schema' AND nspname NOT LIKE 'pg\_%'
	`
)

// Manager implements database lifecycle operations using the DBConnection abstraction.
// Stateless and safe for concurrent use; thread safety depends on the injected DBConnection.
type Manager struct{}

// New creates a new DatabaseManager instance.
func New() olist.DatabaseManager {
	return &Manager{}
}

// Exists checks if a database exists.
func (m *Manager) Exists(ctx context.Context, conn olist.DBConnection, dbName string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, queryDatabaseExists, dbName).Scan(&exists)
	if err != nil {
		return false, pgerr.Wrap(olist.ErrStructural, err, "failed to check database existence")
	}
	return exists, nil
}

// Create creates a new database. CREATE DATABASE cannot run inside a
// transaction block, so conn must be in autocommit mode.
func (m *Manager) Create(ctx context.Context, conn olist.DBConnection, dbName string) error {
	query := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{dbName}.Sanitize())
	if _, err := conn.Exec(ctx, query); err != nil {
		return pgerr.Wrap(olist.ErrStructural, err, "failed to create database %q", dbName)
	}
	return nil
}

// ListSchemas returns user schemas sorted by name.
func (m *Manager) ListSchemas(ctx context.Context, conn olist.DBConnection) ([]string, error) {
	var schemas []string
	if err := conn.QueryRow(ctx, queryListSchemas).Scan(&schemas); err != nil {
		return nil, pgerr.Wrap(olist.ErrStructural, err, "failed to list schemas")
	}
	return schemas, nil
}

// Verify Manager implements the DatabaseManager interface at compile time
var _ olist.DatabaseManager = (*Manager)(nil)

package services

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aster-analytics/olistload/internal/testing/fakes"
	"github.com/aster-analytics/olistload/pkg/olist"
)

type mockConnector struct {
	pool *pgxpool.Pool
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return m.pool, m.err
}

// closableConnector is a connector owning resources, like the cloud ones.
type closableConnector struct {
	mockConnector
	closed int
}

func (c *closableConnector) Close() error {
	c.closed++
	return nil
}

type mockDatabaseManager struct {
	existsResult bool
	existsErr    error
	createErr    error
	schemas      []string
	listErr      error

	created []string
}

func (m *mockDatabaseManager) Exists(_ context.Context, _ olist.DBConnection, _ string) (bool, error) {
	return m.existsResult, m.existsErr
}

func (m *mockDatabaseManager) Create(_ context.Context, _ olist.DBConnection, name string) error {
	if m.createErr == nil {
		m.created = append(m.created, name)
	}
	return m.createErr
}

func (m *mockDatabaseManager) ListSchemas(_ context.Context, _ olist.DBConnection) ([]string, error) {
	return m.schemas, m.listErr
}

// sessionOpener hands out one fake session and remembers the config used.
type sessionOpener struct {
	session *fakes.Session
	err     error
	config  *olist.ConnectionConfig
	calls   int
}

func (o *sessionOpener) open(_ context.Context, cfg *olist.ConnectionConfig) (olist.TxSession, error) {
	o.calls++
	c := *cfg
	o.config = &c
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

func mockConnectorFactory(c olist.Connector, err error) func(*olist.ConnectionConfig, olist.Logger) (olist.Connector, error) {
	return func(*olist.ConnectionConfig, olist.Logger) (olist.Connector, error) {
		return c, err
	}
}

type nopDBConnection struct{}

func (nopDBConnection) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (nopDBConnection) QueryRow(context.Context, string, ...any) olist.Row {
	return fakes.ValuesRow()
}

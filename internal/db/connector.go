package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aster-analytics/olistload/pkg/olist"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is small: a load holds one dedicated connection and the
	// pool only exists to own its lifecycle.
	DefaultMaxConns = 2

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the connection alive across long COPY phases.
	DefaultMaxConnIdleTime = 30 * time.Minute

	// tokenExpiryWarning is the remaining lifetime below which a token warning is logged.
	tokenExpiryWarning = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger olist.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("server %s: %s", strings.ToLower(notice.Severity), notice.Message)
	}
}

// StandardConnector implements the Connector interface for standard
// username/password authentication. A failed attempt is final.
type StandardConnector struct {
	config *olist.ConnectionConfig
	logger olist.Logger
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
func NewStandardConnector(config *olist.ConnectionConfig, logger olist.Logger) *StandardConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &StandardConnector{config: config, logger: logger}
}

// Connect establishes a connection pool and pings the server once.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return openPool(ctx, c.config, BuildConnectionString(c.config), c.logger)
}

func openPool(ctx context.Context, config *olist.ConnectionConfig, connStr string, logger olist.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w: %w", olist.ErrInvalidConfig, err)
	}

	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	logger.Verbose("Connected to %s:%d/%s as %s", config.Host, config.Port, config.Database, config.Username)
	return pool, nil
}

// ConnectorFactory builds a Connector for a resolved configuration.
type ConnectorFactory func(config *olist.ConnectionConfig, logger olist.Logger) (olist.Connector, error)

// NewConnector is a factory function that creates the appropriate Connector
// based on the ConnectionConfig's AuthMethod.
func NewConnector(config *olist.ConnectionConfig, logger olist.Logger) (olist.Connector, error) {
	switch config.AuthMethod {
	case olist.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case olist.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case olist.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case olist.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, olist.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// Every result matches olist.ErrConnectionFailed.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s: %w

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, olist.ErrConnectionFailed, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s": %w

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, host, olist.ErrConnectionFailed, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s": %w

Possible causes:
  - Wrong password (check --password or $PGPASSWORD)
  - Wrong username
  - User does not have access to the database

Original error: %w`, database, olist.ErrConnectionFailed, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist: %w

To create it:
  olistload setup --dbname %s

Original error: %w`, database, olist.ErrConnectionFailed, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s: %w

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, olist.ErrConnectionFailed, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error: %w

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, olist.ErrConnectionFailed, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s": %w

max_connections is exhausted on the server.

Original error: %w`, database, olist.ErrConnectionFailed, err)

	default:
		return fmt.Errorf("failed to connect to database: %w: %w", olist.ErrConnectionFailed, err)
	}
}

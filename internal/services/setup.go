package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aster-analytics/olistload/internal/db"
	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/pkg/olist"
)

type managementDBConnFunc func(ctx context.Context, connConfig *olist.ConnectionConfig, dbName string) (olist.DBConnection, func(), error)

// SetupResult describes what Setup found and changed.
type SetupResult struct {
	Database  string
	Created   bool
	Namespace string
	Schemas   []string
}

// SetupService implements the setup command.
type SetupService struct {
	connectorFactory db.ConnectorFactory
	dbManager        olist.DatabaseManager
	openSession      SessionOpener
	logger           olist.Logger
	mgmtConnector    managementDBConnFunc
}

// NewSetupService creates a SetupService.
//
// Panics if any dependency is nil (programmer error).
func NewSetupService(
	connectorFactory db.ConnectorFactory,
	dbManager olist.DatabaseManager,
	openSession SessionOpener,
	logger olist.Logger,
) *SetupService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if dbManager == nil {
		panic("dbManager cannot be nil")
	}
	if openSession == nil {
		panic("openSession cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	svc := &SetupService{
		connectorFactory: connectorFactory,
		dbManager:        dbManager,
		openSession:      openSession,
		logger:           logger,
	}
	svc.mgmtConnector = svc.defaultMgmtConnector
	return svc
}

func (s *SetupService) defaultMgmtConnector(ctx context.Context, connConfig *olist.ConnectionConfig, dbName string) (olist.DBConnection, func(), error) {
	mgmtConfig := *connConfig
	mgmtConfig.Database = dbName

	connector, err := s.connectorFactory(&mgmtConfig, s.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		db.CloseConnector(connector)
		return nil, nil, fmt.Errorf("failed to connect to management database: %w", err)
	}

	dbConn := db.NewPoolAdapter(pool)
	cleanup := func() {
		pool.Close()
		db.CloseConnector(connector)
	}
	return dbConn, cleanup, nil
}

// Setup creates connConfig.Database through the management database when it
// is missing, then creates namespace in it if absent and lists its schemas.
// Existing data is never touched.
func (s *SetupService) Setup(ctx context.Context, connConfig *olist.ConnectionConfig, namespace string) (*SetupResult, error) {
	if err := olist.ValidateNamespace(namespace); err != nil {
		return nil, err
	}
	if err := connConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if connConfig.Database == olist.DefaultManagementDB {
		return nil, fmt.Errorf("target database %q is the management database; choose another with --dbname: %w",
			connConfig.Database, olist.ErrInvalidConfig)
	}

	res := &SetupResult{Database: connConfig.Database, Namespace: namespace}

	created, err := s.ensureDatabaseExists(ctx, connConfig)
	if err != nil {
		return nil, err
	}
	res.Created = created

	session, err := s.openSession(ctx, connConfig)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{namespace}.Sanitize())
	if _, err := session.Exec(ctx, stmt); err != nil {
		return nil, pgerr.Wrap(olist.ErrStructural, err, "failed to create schema %s", namespace)
	}

	res.Schemas, err = s.dbManager.ListSchemas(ctx, session)
	if err != nil {
		return nil, err
	}

	s.logger.Info("✓ Database '%s' ready with schema '%s'", res.Database, namespace)
	return res, nil
}

// ensureDatabaseExists creates the target database when missing and reports
// whether it did.
func (s *SetupService) ensureDatabaseExists(ctx context.Context, connConfig *olist.ConnectionConfig) (bool, error) {
	s.logger.Verbose("Connecting to management database '%s' to check if target database exists", olist.DefaultManagementDB)

	dbConn, cleanup, err := s.mgmtConnector(ctx, connConfig, olist.DefaultManagementDB)
	if err != nil {
		return false, err
	}
	defer cleanup()

	exists, err := s.dbManager.Exists(ctx, dbConn, connConfig.Database)
	if err != nil {
		return false, fmt.Errorf("failed to check if database exists: %w", err)
	}
	if exists {
		s.logger.Verbose("Database '%s' already exists", connConfig.Database)
		return false, nil
	}

	s.logger.Info("Database '%s' does not exist. Creating...", connConfig.Database)
	if err := s.dbManager.Create(ctx, dbConn, connConfig.Database); err != nil {
		return false, fmt.Errorf("failed to create database: %w", err)
	}
	return true, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aster-analytics/olistload/internal/db"
	"github.com/aster-analytics/olistload/internal/dedup"
	"github.com/aster-analytics/olistload/internal/index"
	"github.com/aster-analytics/olistload/internal/ingest"
	"github.com/aster-analytics/olistload/internal/pgerr"
	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/internal/source"
	"github.com/aster-analytics/olistload/internal/validate"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// rollbackTimeout bounds a rollback issued after the run's context ended.
const rollbackTimeout = 30 * time.Second

// SessionOpener opens a transactional session to the configured database.
type SessionOpener func(ctx context.Context, config *olist.ConnectionConfig) (olist.TxSession, error)

// ProviderFactory returns the source files of a data directory.
type ProviderFactory func(dataDir string) source.Provider

// OpenDatabaseSession returns a SessionOpener that picks a connector for the
// configured auth method and pins one connection.
func OpenDatabaseSession(logger olist.Logger) SessionOpener {
	return func(ctx context.Context, config *olist.ConnectionConfig) (olist.TxSession, error) {
		connector, err := db.NewConnector(config, logger)
		if err != nil {
			return nil, err
		}
		return db.Open(ctx, connector)
	}
}

// LoadService implements the load command.
// Thread-Safety: NOT safe for concurrent Load() calls on the same instance.
type LoadService struct {
	catalog     *schema.Catalog
	openSession SessionOpener
	providerFor ProviderFactory
	logger      olist.Logger
}

// NewLoadService creates a LoadService reading files from the OS filesystem.
//
// Panics if any dependency is nil (programmer error).
func NewLoadService(catalog *schema.Catalog, openSession SessionOpener, logger olist.Logger) *LoadService {
	if catalog == nil {
		panic("catalog cannot be nil")
	}
	if openSession == nil {
		panic("openSession cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &LoadService{
		catalog:     catalog,
		openSession: openSession,
		providerFor: func(dir string) source.Provider { return source.NewDirProvider(dir) },
		logger:      logger,
	}
}

// WithProviderFactory replaces how data directories are read.
func (s *LoadService) WithProviderFactory(f ProviderFactory) *LoadService {
	if f == nil {
		panic("provider factory cannot be nil")
	}
	s.providerFor = f
	return s
}

// Load rebuilds cfg.Namespace from the CSV files in cfg.DataDir.
//
// The returned report is never nil. Its State tells how far the run got:
// schema-only after a failed load phase, loaded after a failed index phase.
func (s *LoadService) Load(ctx context.Context, cfg olist.LoadConfig) (*olist.LoadReport, error) {
	started := time.Now()
	runID := cfg.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	report := &olist.LoadReport{RunID: runID, Namespace: cfg.Namespace, State: olist.StateAbsent}
	defer func() { report.Duration = time.Since(started) }()

	if err := cfg.Validate(); err != nil {
		return report, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	tables, err := s.catalog.Order()
	if err != nil {
		return report, err
	}

	// A missing file still resets the namespace so no stale data survives
	// the failed run; nothing is loaded.
	provider := s.providerFor(cfg.DataDir)
	missing := source.CheckAll(provider, sourceNames(tables))
	if missing != nil {
		s.logger.Error("%v; resetting %s without loading", missing, cfg.Namespace)
	}

	s.logger.Verbose("Run %s: loading %s into %s.%s", report.RunID, cfg.DataDir, cfg.Connection.Database, cfg.Namespace)

	connConfig := cfg.Connection
	connConfig.AppName = fmt.Sprintf("%s-%s", olist.AppName, report.RunID.String()[:8])
	session, err := s.openSession(ctx, &connConfig)
	if err != nil {
		return report, err
	}
	defer session.Close()

	bootstrapper := schema.NewBootstrapper(s.catalog, s.logger)
	err = s.runPhase(ctx, session, "schema", func(ctx context.Context) error {
		if err := bootstrapper.Reset(ctx, session, cfg.Namespace); err != nil {
			return err
		}
		return bootstrapper.CreateTables(ctx, session, cfg.Namespace)
	})
	if err != nil {
		return report, err
	}
	report.State = olist.StateSchemaOnly
	s.logger.Info("✓ Schema %s created (%d tables)", cfg.Namespace, len(tables))
	if missing != nil {
		return report, missing
	}

	ingestor := ingest.NewIngestor(provider, s.logger)
	deduplicator := dedup.New(ingestor, s.logger)
	validator := validate.New(s.catalog, s.logger)
	var loaded []olist.TableReport
	err = s.runPhase(ctx, session, "load", func(ctx context.Context) error {
		loaded = loaded[:0]
		for _, t := range tables {
			tr, err := s.loadTable(ctx, session, ingestor, deduplicator, cfg.Namespace, t)
			if err != nil {
				return err
			}
			loaded = append(loaded, tr)
		}
		return validator.ValidateAll(ctx, session, cfg.Namespace)
	})
	if err != nil {
		return report, err
	}
	report.Tables = loaded
	report.State = olist.StateLoaded
	s.logger.Info("✓ Loaded %d rows into %d tables", report.TotalRows(), len(loaded))

	builder := index.NewBuilder(s.catalog, cfg.IndexPolicy, s.logger)
	var built index.Result
	err = s.runPhase(ctx, session, "index", func(ctx context.Context) error {
		var err error
		built, err = builder.EnsureIndexes(ctx, session, cfg.Namespace)
		return err
	})
	if err != nil {
		return report, err
	}
	report.Indexes = built.Created
	report.Skipped = built.Skipped
	report.State = olist.StateIndexed
	s.logger.Info("✓ Created %d indexes", len(built.Created))

	return report, nil
}

func (s *LoadService) loadTable(
	ctx context.Context,
	session olist.Session,
	ingestor *ingest.Ingestor,
	deduplicator *dedup.Deduplicator,
	namespace string,
	t schema.Table,
) (olist.TableReport, error) {
	tr := olist.TableReport{Table: t.Name, Source: t.Source, Staged: t.Mode == schema.LoadStaged}

	if t.Mode == schema.LoadStaged {
		res, err := deduplicator.Reconcile(ctx, session, namespace, t)
		if err != nil {
			return tr, err
		}
		tr.SourceRows = res.Staged
		tr.LoadedRows = res.Inserted
		tr.Duplicates = res.Duplicates()
		tr.Orphans = res.OrphanKeys()
		if tr.Duplicates > 0 || tr.Orphans > 0 {
			s.logger.Info("  %s: dropped %d duplicate row(s) and %d orphaned key(s)", t.Name, tr.Duplicates, tr.Orphans)
		}
	} else {
		rows, err := ingestor.Ingest(ctx, session, t.Source, t.Destination(namespace))
		if err != nil {
			return tr, err
		}
		tr.SourceRows = rows
		tr.LoadedRows = rows
	}

	s.logger.Verbose("%s (%s load): %d rows", t.Name, t.Mode, tr.LoadedRows)
	return tr, nil
}

// runPhase runs fn in its own transaction and commits it. Any failure rolls
// the transaction back, on a context that outlives cancellation of ctx.
func (s *LoadService) runPhase(ctx context.Context, session olist.TxSession, name string, fn func(context.Context) error) error {
	s.logger.Verbose("Phase %s: begin", name)
	if err := session.Begin(ctx); err != nil {
		return pgerr.Wrap(olist.ErrConnectionFailed, err, "%s phase: failed to begin transaction", name)
	}

	if err := fn(ctx); err != nil {
		s.rollback(ctx, session, name)
		return fmt.Errorf("%s phase: %w", name, withDeadline(ctx, err))
	}

	if err := session.Commit(ctx); err != nil {
		s.rollback(ctx, session, name)
		return pgerr.Wrap(olist.ErrStructural, withDeadline(ctx, err), "%s phase: commit failed", name)
	}
	s.logger.Verbose("Phase %s: committed", name)
	return nil
}

func (s *LoadService) rollback(ctx context.Context, session olist.TxSession, name string) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := session.Rollback(rbCtx); err != nil {
		s.logger.Error("Rollback of %s phase failed: %v", name, err)
		return
	}
	s.logger.Verbose("Phase %s: rolled back", name)
}

// withDeadline names the run's deadline when it caused err.
func withDeadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w (run deadline exceeded: %w)", err, context.DeadlineExceeded)
	}
	return err
}

func sourceNames(tables []schema.Table) []string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Source)
	}
	return names
}

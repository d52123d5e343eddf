package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aster-analytics/olistload/internal/config"
	"github.com/aster-analytics/olistload/internal/db"
	"github.com/aster-analytics/olistload/internal/logging"
	"github.com/aster-analytics/olistload/internal/report"
	"github.com/aster-analytics/olistload/internal/schema"
	"github.com/aster-analytics/olistload/internal/services"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// openSession opens the database session of load and setup runs.
var openSession = services.OpenDatabaseSession

type loadFlagValues struct {
	conn        connectionFlags
	dataDir     string
	schema      string
	indexPolicy string
	timeout     time.Duration
}

func newLoadCmd() *cobra.Command {
	var flags loadFlagValues

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Rebuild the Olist schema from CSV files",
		Long: `Load rebuilds the target schema from the Olist CSV files in --data-dir.

The load command:
1. Checks that all nine source files exist; if one is missing the schema
   is still emptied and nothing is loaded
2. Drops the schema (and same-named leftovers in public) and recreates every table
3. Copies independent tables directly and stages the order tables
4. Keeps the first row per key and drops rows whose parents are missing
5. Validates keys and references, then commits
6. Builds secondary indexes

Examples:
  # Local database with defaults
  olistload load --data-dir ./data

  # Remote database, separate schema
  olistload load --data-dir ./data --host db.internal -U loader -W --schema olist_raw

  # Keep going when an index cannot be built
  olistload load --data-dir ./data --index-policy best-effort`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, &flags)
		},
	}

	addConnectionFlags(cmd, &flags.conn)
	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "",
		"Directory holding the Olist CSV files (required, or load.data_dir in olistload.yaml)")
	cmd.Flags().StringVar(&flags.schema, "schema", olist.DefaultNamespace,
		"Schema the tables are created in; it is dropped and rebuilt on every run")
	cmd.Flags().StringVar(&flags.indexPolicy, "index-policy", string(olist.IndexPolicyStrict),
		"What an index failure does: strict aborts the run, best-effort skips the index")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", olist.DefaultTimeout,
		"Upper bound for the whole run; exceeding it rolls back the current phase\n"+
			"Examples: 30s, 5m, 1h30m (0 disables)")

	return cmd
}

// buildLoadConfig builds a LoadConfig from CLI flags, environment and the
// config file.
func buildLoadConfig(cmd *cobra.Command, flags *loadFlagValues, projectCfg *config.ProjectConfig, env *db.EnvVars) (olist.LoadConfig, error) {
	settings := loadSettings(projectCfg)

	dataDir := resolveSetting(cmd, "data-dir", flags.dataDir, settings.DataDir)
	if dataDir == "" {
		return olist.LoadConfig{}, fmt.Errorf("required flag \"data-dir\" not set (or load.data_dir in %s)", config.ConfigFileName)
	}

	connConfig, err := resolveConnectionFromFlags(cmd, &flags.conn, projectCfg, env)
	if err != nil {
		return olist.LoadConfig{}, err
	}

	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, flags.timeout)
	if err != nil {
		return olist.LoadConfig{}, err
	}

	cfg := olist.LoadConfig{
		DataDir:     dataDir,
		Namespace:   resolveSetting(cmd, "schema", flags.schema, settings.Schema),
		Connection:  *connConfig,
		Timeout:     timeout,
		IndexPolicy: olist.IndexPolicy(resolveSetting(cmd, "index-policy", flags.indexPolicy, settings.IndexPolicy)),
		Verbose:     getVerboseFlag(cmd),
		RunID:       uuid.New(),
	}
	if err := cfg.Validate(); err != nil {
		return olist.LoadConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runLoad(cmd *cobra.Command, flags *loadFlagValues) error {
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	cfg, err := buildLoadConfig(cmd, flags, projectCfg, db.LoadFromEnvironment())
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	if cfg.Verbose {
		logConnectionVerbose(stderr, &cfg.Connection)
	}
	logger := logging.NewWriterLogger(stderr, cfg.Verbose).WithRun(cfg.RunID)

	loader := services.NewLoadService(schema.Olist(), openSession(logger), logger)

	ctx, stop := signalContext(cmd, stderr)
	defer stop()

	rep, err := loader.Load(ctx, cfg)
	if err != nil {
		logger.Error("Run %s ended with schema %s in state %s", rep.RunID, cfg.Namespace, rep.State)
		return fmt.Errorf("load failed: %w", err)
	}

	logger.Info("✓ Load of %s.%s committed", cfg.Connection.Database, cfg.Namespace)
	return rendererFor(cmd.OutOrStdout()).Load(cmd.OutOrStdout(), rep)
}

// signalContext cancels on Ctrl+C or SIGTERM so the current phase rolls back.
func signalContext(cmd *cobra.Command, stderr io.Writer) (context.Context, func()) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(stderr, "\n[INTERRUPT] Received interrupt signal, rolling back...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func rendererFor(w io.Writer) *report.Renderer {
	f, ok := w.(*os.File)
	return report.NewRenderer(ok && report.ShouldStyle(f))
}

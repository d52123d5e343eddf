package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aster-analytics/olistload/internal/db"
	"github.com/aster-analytics/olistload/internal/db/manager"
	"github.com/aster-analytics/olistload/internal/logging"
	"github.com/aster-analytics/olistload/internal/services"
	"github.com/aster-analytics/olistload/pkg/olist"
)

type setupFlagValues struct {
	conn   connectionFlags
	schema string
}

func newSetupCmd() *cobra.Command {
	var flags setupFlagValues

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the target database and an empty schema",
		Long: `Setup prepares a server for its first load.

It creates the target database when missing (connecting to the postgres
database to do so), creates the schema if it does not exist, and lists the
schemas of the target database. Existing data is never touched.

Examples:
  olistload setup
  olistload setup --dbname olist_analytics --schema olist_raw`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, &flags)
		},
	}

	addConnectionFlags(cmd, &flags.conn)
	cmd.Flags().StringVar(&flags.schema, "schema", olist.DefaultNamespace, "Schema to create")
	return cmd
}

func runSetup(cmd *cobra.Command, flags *setupFlagValues) error {
	projectCfg, err := loadProjectConfig(cmd)
	if err != nil {
		return err
	}

	connConfig, err := resolveConnectionFromFlags(cmd, &flags.conn, projectCfg, db.LoadFromEnvironment())
	if err != nil {
		return err
	}
	namespace := resolveSetting(cmd, "schema", flags.schema, loadSettings(projectCfg).Schema)

	verbose := getVerboseFlag(cmd)
	stderr := cmd.ErrOrStderr()
	if verbose {
		logConnectionVerbose(stderr, connConfig)
	}
	logger := logging.NewWriterLogger(stderr, verbose)

	svc := services.NewSetupService(db.NewConnector, manager.New(), openSession(logger), logger)

	ctx, stop := signalContext(cmd, stderr)
	defer stop()

	result, err := svc.Setup(ctx, connConfig, namespace)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	return rendererFor(cmd.OutOrStdout()).Schemas(cmd.OutOrStdout(), result.Database, result.Created, result.Schemas)
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aster-analytics/olistload/internal/config"
	"github.com/aster-analytics/olistload/internal/db"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection     string
	host           string
	port           int
	dbname         string
	user           string
	password       string
	passwordPrompt bool
	sslMode        string
	auth           string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string
}

func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	fs := cmd.Flags()

	fs.StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or keyword/value format)\n"+
			"Mutually exclusive with --host, --port, --user, --password and --sslmode\n"+
			"Alternative: DATABASE_URL environment variable\n"+
			"Example: postgresql://postgres@localhost:5432/olist_analytics")

	// Precedence: flag > environment variable > olistload.yaml > default
	fs.StringVarP(&f.host, "host", "h", "",
		"PostgreSQL server host\n"+
			"Precedence: --host > $PGHOST > olistload.yaml > localhost")
	fs.IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port\n"+
			"Precedence: --port > $PGPORT > olistload.yaml > 5432")
	fs.StringVarP(&f.dbname, "dbname", "d", "",
		"Target database (default: $PGDATABASE or olist_analytics)\n"+
			"Overrides the database of --connection")
	fs.StringVarP(&f.user, "user", "U", "",
		"PostgreSQL user (default: $PGUSER or postgres)")
	fs.StringVar(&f.password, "password", "",
		"PostgreSQL password (default: $PGPASSWORD or postgres)\n"+
			"Visible in shell history; prefer $PGPASSWORD or --password-prompt")
	fs.BoolVarP(&f.passwordPrompt, "password-prompt", "W", false,
		"Read the password from the terminal without echo")
	fs.StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n"+
			"(default: prefer, or $PGSSLMODE)")

	fs.StringVar(&f.auth, "auth", "",
		"Authentication method: standard|aws|azure|google (default: standard)")
	fs.StringVar(&f.awsRegion, "aws-region", "",
		"AWS region for RDS IAM tokens (overrides $AWS_REGION)")
	fs.StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
	fs.StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	fs.StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
}

// toConnFlags copies only the flags given on the command line, so an unset
// flag never shadows the environment or the config file.
func (f *connectionFlags) toConnFlags(cmd *cobra.Command) *db.ConnFlags {
	set := cmd.Flags().Changed
	out := &db.ConnFlags{}
	if set("connection") {
		out.ConnectionString = f.connection
	}
	if set("host") {
		out.Host = f.host
	}
	if set("port") {
		out.Port = f.port
	}
	if set("dbname") {
		out.Database = f.dbname
	}
	if set("user") {
		out.Username = f.user
	}
	if set("password") {
		out.Password = f.password
	}
	if set("sslmode") {
		out.SSLMode = f.sslMode
	}
	if set("auth") {
		out.AuthMethod = f.auth
	}
	if set("aws-region") {
		out.AWSRegion = f.awsRegion
	}
	if set("google-instance") {
		out.GoogleInstance = f.googleInstance
	}
	if set("azure-tenant-id") {
		out.AzureTenantID = f.azureTenantID
	}
	if set("azure-client-id") {
		out.AzureClientID = f.azureClientID
	}
	return out
}

// resolveConnectionFromFlags merges flags, environment and project config
// into a connection configuration.
func resolveConnectionFromFlags(
	cmd *cobra.Command,
	f *connectionFlags,
	projectCfg *config.ProjectConfig,
	env *db.EnvVars,
) (*olist.ConnectionConfig, error) {
	flags := f.toConnFlags(cmd)

	if f.passwordPrompt {
		if flags.Password != "" {
			return nil, fmt.Errorf("cannot combine --password with --password-prompt: %w", olist.ErrInvalidConfig)
		}
		pw, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		flags.Password = pw
	}

	return db.ResolveConnection(flags, env, projectCfg)
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(w io.Writer, connConfig *olist.ConnectionConfig) {
	fmt.Fprintf(w, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(w, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(w, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(w, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(w, "  Target Database: %s\n", connConfig.Database)
	fmt.Fprintf(w, "  SSL Mode: %s\n", connConfig.SSLMode)
	fmt.Fprintf(w, "  Auth Method: %s\n", connConfig.AuthMethod)
}

package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/aster-analytics/olistload/internal/config"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// ConnFlags holds connection values given explicitly on the command line.
// A zero value means the flag was not set; defaults are applied by the resolver.
type ConnFlags struct {
	ConnectionString string
	Host             string
	Port             int
	Database         string
	Username         string
	Password         string
	SSLMode          string
	AuthMethod       string
	AWSRegion        string
	GoogleInstance   string
	AzureTenantID    string
	AzureClientID    string
}

// hasGranular reports whether any flag that a connection string would also
// carry was set. Database is excluded: it may override the string's database.
func (f *ConnFlags) hasGranular() bool {
	return f.Host != "" || f.Port != 0 || f.Username != "" || f.Password != "" || f.SSLMode != ""
}

// EnvVars represents PostgreSQL standard environment variables.
// See: https://www.postgresql.org/docs/current/libpq-envars.html
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads the variables EnvVars knows about.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnection merges connection parameters with the precedence
// flag > environment > olistload.yaml > built-in defaults.
//
// A connection string comes from --connection, or from DATABASE_URL when no
// granular flag is set. Parameters it leaves out fall back to the same chain.
// Combining --connection with --host, --port, --user, --password or --sslmode
// is rejected as ambiguous.
func ResolveConnection(flags *ConnFlags, env *EnvVars, project *config.ProjectConfig) (*olist.ConnectionConfig, error) {
	if flags == nil {
		flags = &ConnFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if project != nil {
		pc = project.Connection
	}

	if flags.ConnectionString != "" && flags.hasGranular() {
		return nil, fmt.Errorf(
			"cannot specify both --connection and --host/--port/--user/--password/--sslmode\n"+
				"Choose one approach:\n"+
				"  1. Connection string: --connection \"postgresql://postgres@localhost:5432/olist_analytics\"\n"+
				"  2. Granular flags: --host localhost --port 5432 --user postgres --dbname olist_analytics: %w",
			olist.ErrInvalidConfig)
	}

	cfg := &olist.ConnectionConfig{}

	connStr := flags.ConnectionString
	if connStr == "" && !flags.hasGranular() {
		connStr = env.DATABASE_URL
	}
	if connStr != "" {
		parsed, err := ParseConnectionString(connStr)
		if err != nil {
			return nil, fmt.Errorf("invalid connection string: %w: %w", olist.ErrInvalidConfig, err)
		}
		cfg = parsed
	} else {
		cfg.Host = firstNonEmpty(flags.Host, env.PGHOST, pc.Host, olist.DefaultHost)

		switch {
		case flags.Port != 0:
			cfg.Port = flags.Port
		case env.PGPORT != "":
			port, err := strconv.Atoi(env.PGPORT)
			if err != nil {
				return nil, fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, olist.ErrInvalidConfig)
			}
			cfg.Port = port
		case pc.Port != 0:
			cfg.Port = pc.Port
		default:
			cfg.Port = olist.DefaultPort
		}
	}

	if flags.Database != "" {
		cfg.Database = flags.Database
	}
	cfg.Database = firstNonEmpty(cfg.Database, env.PGDATABASE, pc.Database, olist.DefaultDatabase)
	cfg.Username = firstNonEmpty(flags.Username, cfg.Username, env.PGUSER, pc.Username, olist.DefaultUser)
	cfg.Password = firstNonEmpty(flags.Password, cfg.Password, env.PGPASSWORD)
	cfg.SSLMode = firstNonEmpty(flags.SSLMode, cfg.SSLMode, env.PGSSLMODE, pc.SSLMode, olist.DefaultSSLMode)
	cfg.AppName = firstNonEmpty(cfg.AppName, olist.AppName)

	method, err := olist.ParseAuthMethod(firstNonEmpty(flags.AuthMethod, pc.AuthMethod))
	if err != nil {
		return nil, err
	}
	cfg.AuthMethod = method

	// Token-based methods use the token as the password.
	if cfg.Password == "" && method == olist.AuthMethodStandard {
		cfg.Password = olist.DefaultPassword
	}

	cfg.AWSRegion = firstNonEmpty(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	cfg.GoogleInstance = firstNonEmpty(flags.GoogleInstance, pc.GoogleInstance)
	cfg.AzureTenantID = firstNonEmpty(flags.AzureTenantID, env.AZURE_TENANT_ID, pc.AzureTenantID)
	cfg.AzureClientID = firstNonEmpty(flags.AzureClientID, env.AZURE_CLIENT_ID, pc.AzureClientID)
	cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

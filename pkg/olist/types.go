package olist

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoadConfig contains everything one load run needs. It is built once by the
// CLI and passed explicitly to the load service.
type LoadConfig struct {
	// DataDir is the directory holding the Olist CSV files.
	DataDir string

	// Namespace is the schema the tables are created in (default "olist").
	Namespace string

	// Connection holds the resolved connection parameters.
	Connection ConnectionConfig

	// Timeout bounds the whole run. Zero disables the deadline.
	Timeout time.Duration

	// IndexPolicy selects whether index failures abort the run.
	IndexPolicy IndexPolicy

	// Verbose enables detailed logging
	Verbose bool

	// RunID identifies the run in logs and application_name. A nil UUID
	// gets a fresh one.
	RunID uuid.UUID
}

// Validate checks if the LoadConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("DataDir is required: %w", ErrInvalidConfig))
	}

	if err := ValidateNamespace(c.Namespace); err != nil {
		errs = append(errs, err)
	}

	if err := c.Connection.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	if !c.IndexPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("unknown index policy %q: %w", c.IndexPolicy, ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ValidateNamespace rejects empty names and PostgreSQL's reserved schemas.
func ValidateNamespace(ns string) error {
	if strings.TrimSpace(ns) == "" {
		return fmt.Errorf("namespace is required: %w", ErrInvalidConfig)
	}
	lower := strings.ToLower(ns)
	if lower == "information_schema" || strings.HasPrefix(lower, "pg_") {
		return fmt.Errorf("namespace %q is reserved by PostgreSQL: %w", ns, ErrInvalidConfig)
	}
	return nil
}

// ConnectionConfig represents resolved connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	AppName        string
	ConnectTimeout time.Duration

	// AWSRegion is used with AuthMethodAWSIAM.
	AWSRegion string

	// GoogleInstance is the Cloud SQL instance (project:region:instance).
	GoogleInstance string

	// Azure Entra ID parameters. With all three set, Service Principal auth is
	// used; otherwise the DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// Validate checks the fields a connector needs.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if c.AuthMethod != AuthMethodGoogleIAM && c.Host == "" {
		errs = append(errs, fmt.Errorf("host is required: %w", ErrInvalidConfig))
	}
	if c.AuthMethod != AuthMethodGoogleIAM && (c.Port <= 0 || c.Port > 65535) {
		errs = append(errs, fmt.Errorf("port %d out of range: %w", c.Port, ErrInvalidConfig))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database name is required: %w", ErrInvalidConfig))
	}
	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}

	return errors.Join(errs...)
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}

// ParseAuthMethod maps the --auth flag values to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "gcp", "google-iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "entra":
		return AuthMethodAzureEntraID, nil
	default:
		return 0, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}

// IndexPolicy controls how index creation failures are treated.
type IndexPolicy string

const (
	// IndexPolicyStrict aborts the run on any index failure.
	IndexPolicyStrict IndexPolicy = "strict"

	// IndexPolicyBestEffort logs and skips indexes that fail to build.
	IndexPolicyBestEffort IndexPolicy = "best-effort"
)

// IsValid reports whether p is a known policy.
func (p IndexPolicy) IsValid() bool {
	return p == IndexPolicyStrict || p == IndexPolicyBestEffort
}

// State is the committed condition of the namespace.
type State int

const (
	// StateAbsent means nothing from this run has been committed.
	StateAbsent State = iota

	// StateSchemaOnly means empty tables exist in a fresh namespace.
	StateSchemaOnly

	// StateLoaded means every table is populated and validated.
	StateLoaded

	// StateIndexed means StateLoaded plus the secondary indexes.
	StateIndexed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateSchemaOnly:
		return "schema-only"
	case StateLoaded:
		return "loaded"
	case StateIndexed:
		return "indexed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TableReport summarizes how one dataset was loaded.
type TableReport struct {
	Table  string
	Source string

	// SourceRows is the number of data rows copied from the file.
	SourceRows int64

	// LoadedRows is the number of rows in the final table.
	LoadedRows int64

	// Duplicates counts staged rows discarded because an earlier row had the same key.
	Duplicates int64

	// Orphans counts keys discarded because no row referenced existing parents.
	Orphans int64

	// Staged is set when the table went through the deduplication path.
	Staged bool
}

// IndexFailure records an index skipped under IndexPolicyBestEffort.
type IndexFailure struct {
	Name string
	Err  error
}

// LoadReport is returned by a load run, successful or not.
type LoadReport struct {
	RunID     uuid.UUID
	Namespace string
	State     State
	Tables    []TableReport
	Indexes   []string
	Skipped   []IndexFailure
	Duration  time.Duration
}

// TotalRows returns the sum of LoadedRows across tables.
func (r *LoadReport) TotalRows() int64 {
	var total int64
	for _, t := range r.Tables {
		total += t.LoadedRows
	}
	return total
}

package olist

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Load committed and validated
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration
	ExitConnectionError = 11 // Failed to connect to database
	ExitSourceNotFound  = 20 // Expected CSV file missing
	ExitMalformedRow    = 21 // Bulk load rejected input
	ExitDuplicateKey    = 22 // Uniqueness validation failed
	ExitStructuralError = 23 // DDL failed
	ExitOrphanRows      = 24 // Referential validation failed
)

// Documented connection and run defaults.
const (
	DefaultHost      = "localhost"
	DefaultPort      = 5432
	DefaultDatabase  = "olist_analytics"
	DefaultUser      = "postgres"
	DefaultPassword  = "postgres"
	DefaultSSLMode   = "prefer"
	DefaultNamespace = "olist"

	// DefaultManagementDB is the database connected to for CREATE DATABASE.
	DefaultManagementDB = "postgres"

	// DefaultTimeout bounds a whole run; exceeding it rolls back the current phase.
	DefaultTimeout = 30 * time.Minute

	// LegacySchema holds same-named tables left behind by older import scripts.
	LegacySchema = "public"

	// AppName is reported to the server as application_name.
	AppName = "olistload"
)

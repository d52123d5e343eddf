package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aster-analytics/olistload/internal/config"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "olistload",
		Short: "Load the Olist e-commerce dataset into PostgreSQL",
		Long: `olistload rebuilds a PostgreSQL schema from the nine Olist CSV extracts.

Every run drops and recreates the target schema, bulk loads each file with
COPY, removes duplicate keys and rows without parents from the order tables,
validates keys and references, then builds secondary indexes. A run either
commits a fully validated schema or leaves no data behind.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  20 - Source file not found
  21 - Malformed row rejected by COPY
  22 - Duplicate key after load
  23 - Schema (DDL) failure
  24 - Orphan rows after load`,
		SilenceUsage: true,
	}

	// -h is --host, as in psql
	cmd.PersistentFlags().Bool("help", false, "Help for olistload")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	cmd.PersistentFlags().String("config", config.ConfigFileName,
		"Path to the optional YAML config file\n"+
			"Values in it rank below flags and environment variables")

	cmd.AddCommand(newLoadCmd(), newSetupCmd(), newVersionCmd())
	return cmd
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return rootCmd.Execute()
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

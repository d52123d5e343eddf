package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aster-analytics/olistload/internal/config"
	"github.com/aster-analytics/olistload/pkg/olist"
)

// loadProjectConfig loads .env and the YAML config file.
// Returns nil config if the default file does not exist (not an error);
// a file named with --config must exist.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	_ = godotenv.Load()

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path = config.ConfigFileName
	}

	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !cmd.Flags().Changed("config") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w: %w", path, olist.ErrInvalidConfig, err)
	}
	return projectCfg, nil
}

// resolveEffectiveTimeout returns the effective timeout, preferring the
// config file if the flag wasn't set.
func resolveEffectiveTimeout(
	cmd *cobra.Command,
	projectCfg *config.ProjectConfig,
	flagTimeout time.Duration,
) (time.Duration, error) {
	if projectCfg != nil && projectCfg.Load.Timeout != "" && !cmd.Flags().Changed("timeout") {
		d, err := projectCfg.TimeoutDuration()
		if err != nil {
			return 0, fmt.Errorf("%w: %w", olist.ErrInvalidConfig, err)
		}
		return d, nil
	}
	return flagTimeout, nil
}

// resolveSetting returns the flag value when it was given, then the config
// file value, then the flag's default.
func resolveSetting(cmd *cobra.Command, flag, flagValue, fileValue string) string {
	if cmd.Flags().Changed(flag) || fileValue == "" {
		return flagValue
	}
	return fileValue
}

func loadSettings(projectCfg *config.ProjectConfig) config.LoadSettings {
	if projectCfg == nil {
		return config.LoadSettings{}
	}
	return projectCfg.Load
}

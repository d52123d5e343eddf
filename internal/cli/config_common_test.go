package cli

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aster-analytics/olistload/internal/config"
)

func timeoutCmd(t *testing.T, args ...string) (*cobra.Command, *time.Duration) {
	t.Helper()
	var d time.Duration
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().DurationVar(&d, "timeout", 30*time.Minute, "")
	cmd.Flags().String("schema", "olist", "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &d
}

func TestResolveEffectiveTimeout(t *testing.T) {
	project := &config.ProjectConfig{Load: config.LoadSettings{Timeout: "5m"}}

	cmd, d := timeoutCmd(t)
	got, err := resolveEffectiveTimeout(cmd, project, *d)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, got, "file beats default")

	cmd, d = timeoutCmd(t, "--timeout", "90s")
	got, err = resolveEffectiveTimeout(cmd, project, *d)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, got, "flag beats file")

	cmd, d = timeoutCmd(t)
	got, err = resolveEffectiveTimeout(cmd, nil, *d)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, got)
}

func TestResolveSetting(t *testing.T) {
	cmd, _ := timeoutCmd(t)
	assert.Equal(t, "from_file", resolveSetting(cmd, "schema", "olist", "from_file"))
	assert.Equal(t, "olist", resolveSetting(cmd, "schema", "olist", ""))

	cmd, _ = timeoutCmd(t, "--schema", "olist")
	assert.Equal(t, "olist", resolveSetting(cmd, "schema", "olist", "from_file"), "explicit default still wins")
}

func TestLoadProjectConfig_DefaultMissingIsFine(t *testing.T) {
	isolate(t)
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := loadProjectConfig(cmd)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

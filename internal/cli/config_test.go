package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SISCTL_BASE_URL", "https://sis.example.com/api")
	t.Setenv("SISCTL_TENANT", "springfield")
	t.Setenv("SISCTL_EMAIL", "admin@springfield.edu")
	t.Setenv("SISCTL_PASSWORD", "secure-password")
	t.Setenv("SISCTL_TIMEOUT", "45s")

	cfg, err := LoadConfig("", pflag.NewFlagSet("test", pflag.ContinueOnError))
	require.NoError(t, err)

	require.Equal(t, "https://sis.example.com/api", cfg.BaseURL)
	require.Equal(t, "springfield", cfg.TenantSlug)
	require.Equal(t, "admin@springfield.edu", cfg.Email)
	require.Equal(t, 45*time.Second, cfg.Timeout)
	require.NoError(t, cfg.requireTarget())

	target := cfg.Target()
	require.Equal(t, cfg.BaseURL, target.BaseURL)
	require.Equal(t, cfg.Password, target.Password)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base-url: https://sis.school.test/api
tenant: shelbyville
log-level: debug
output: json
`), 0o600))

	cfg, err := LoadConfig(path, pflag.NewFlagSet("test", pflag.ContinueOnError))
	require.NoError(t, err)

	require.Equal(t, "https://sis.school.test/api", cfg.BaseURL)
	require.Equal(t, "shelbyville", cfg.TenantSlug)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.Output)

	// Credentials were never configured.
	require.Error(t, cfg.requireTarget())
}

func TestLoadConfigFlagPrecedence(t *testing.T) {
	t.Setenv("SISCTL_TENANT", "springfield")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("tenant", "", "")
	require.NoError(t, flags.Set("tenant", "ogdenville"))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	require.Equal(t, "ogdenville", cfg.TenantSlug)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), pflag.NewFlagSet("test", pflag.ContinueOnError))
	require.Error(t, err)
}

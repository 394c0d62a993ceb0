package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// Config is the resolved CLI configuration. Precedence: flags > SISCTL_*
// environment variables > ~/.sisctl/config.yaml > defaults.
type Config struct {
	BaseURL    string
	TenantSlug string
	Email      string
	Password   string
	APIKey     string
	Timeout    time.Duration

	// Database is the path of the local SQLite run store.
	Database string

	LogLevel  string
	LogFormat string
	Output    string // text or json, for command results
}

// LoadConfig resolves configuration from every source, with flags bound so
// explicit flags win.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("base-url", "")
	v.SetDefault("tenant", "")
	v.SetDefault("timeout", "30s")
	v.SetDefault("database", defaultDatabasePath())
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("output", "text")

	v.SetEnvPrefix("SISCTL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sisctl"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseURL:    v.GetString("base-url"),
		TenantSlug: v.GetString("tenant"),
		Email:      v.GetString("email"),
		Password:   v.GetString("password"),
		APIKey:     v.GetString("api-key"),
		Timeout:    v.GetDuration("timeout"),
		Database:   v.GetString("database"),
		LogLevel:   v.GetString("log-level"),
		LogFormat:  v.GetString("log-format"),
		Output:     v.GetString("output"),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return cfg, nil
}

// Target renders the config as an SDK client configuration.
func (c *Config) Target() sissdk.Config {
	return sissdk.Config{
		BaseURL:    c.BaseURL,
		TenantSlug: c.TenantSlug,
		Email:      c.Email,
		Password:   c.Password,
		APIKey:     c.APIKey,
		Timeout:    c.Timeout,
	}
}

func (c *Config) requireTarget() error {
	if c.BaseURL == "" {
		return fmt.Errorf("no API base URL configured; set --base-url, SISCTL_BASE_URL or base-url in the config file")
	}
	if c.Email == "" || c.Password == "" {
		return fmt.Errorf("no credentials configured; set --email/--password or the SISCTL_EMAIL/SISCTL_PASSWORD variables")
	}
	return nil
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sisctl-runs.db"
	}
	return filepath.Join(home, ".sisctl", "runs.db")
}

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/catalogsync/internal/qdc"
	"github.com/leapstack-labs/catalogsync/internal/warehouse"
	"github.com/leapstack-labs/catalogsync/pkg/payload"
)

// Context keys for values shared with subcommands.
type (
	loggerKey struct{}
	configKey struct{}
)

const envPrefix = "CATALOGSYNC_"

var configFileUsed string

// findConfigFile returns the config file to use, or "" when there is none.
// Priority: explicit path > catalogsync.yaml > catalogsync.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{DefaultConfigFile, "catalogsync.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func defaults() map[string]any {
	return map[string]any{
		"log_level":            DefaultLogLevel,
		"log_format":           DefaultLogFormat,
		"output":               DefaultOutput,
		"state_path":           DefaultStateFile,
		"catalog.max_attempts": qdc.DefaultMaxAttempts,
		"catalog.backoff_base": qdc.DefaultBackoffBase.String(),
		"catalog.backoff_cap":  qdc.DefaultBackoffCap.String(),
		"catalog.timeout":      qdc.DefaultTimeout.String(),
		"profiler.parallelism": 1,
		"profiler.stats":       payload.ColumnStatsItems(),
	}
}

// envKey maps an environment variable to a config key. Unknown variables
// map to "" and are ignored.
func envKey(name string) string {
	if key, ok := envKeys[name]; ok {
		return key
	}
	if rest, ok := strings.CutPrefix(name, envPrefix); ok && rest != "" {
		return strings.ToLower(strings.ReplaceAll(rest, "__", "."))
	}
	return ""
}

// FlagKey maps a global flag name to the config key it overrides. The
// --config flag has no key.
func FlagKey(name string) string {
	switch name {
	case "config":
		return ""
	case "state":
		return "state_path"
	case "tenant":
		return "tenant_id"
	}
	return strings.ReplaceAll(name, "-", "_")
}

// LoadConfig loads configuration from defaults, the config file,
// environment variables and flags, in increasing precedence.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags the user set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			return FlagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Catalog.ClientSecret = expandEnvVars(cfg.Catalog.ClientSecret)
	cfg.Snowflake.Password = expandEnvVars(cfg.Snowflake.Password)
	cfg.Redshift.Password = expandEnvVars(cfg.Redshift.Password)
	cfg.Databricks.Token = expandEnvVars(cfg.Databricks.Token)
	cfg.BigQuery.Credentials = expandEnvVars(cfg.BigQuery.Credentials)
	cfg.Databricks.Host = warehouse.TrimScheme(cfg.Databricks.Host)
	for _, list := range [][]string{cfg.Profiler.Stats, cfg.BigQuery.Regions, cfg.BigQuery.StatsTables} {
		for i, s := range list {
			list[i] = strings.TrimSpace(s)
		}
	}

	return &cfg, nil
}

// GetConfigFileUsed returns the path of the config file read by the last
// LoadConfig call, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() any {
	return loggerKey{}
}

// WithConfig returns a copy of ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context. Without one,
// it returns the built-in defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Output:    DefaultOutput,
		StatePath: DefaultStateFile,
		Profiler:  ProfilerConfig{Parallelism: 1},
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys.
const EnvPrefix = "XBL_"

// DefaultFile is the YAML file Load reads from the working directory.
const DefaultFile = "config.yaml"

// Load loads configuration from multiple sources with priority:
// 1. Environment variables prefixed with XBL_ (highest priority)
// 2. config.yaml and config.<env>.yaml in the working directory
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadFile(DefaultFile)
}

// LoadFile behaves like Load but reads the given YAML file. A missing file is
// not an error; a malformed one is.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadOptionalFile(k, path); err != nil {
		return nil, err
	}

	// Environment-specific overlay, e.g. config.staging.yaml
	if appEnv := k.String("app.env"); appEnv != "" && path != "" {
		if err := loadOptionalFile(k, envFileName(path, appEnv)); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return build(k)
}

// LoadFromBytes loads YAML content on top of the defaults. Environment
// variables are not consulted, which keeps it deterministic for tests and
// embedded configurations.
func LoadFromBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return build(k)
}

func build(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadEnv(k *koanf.Koanf) error {
	provider := env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// XBL_HTTP_TIMEOUTWINDOW -> http.timeoutwindow
			key = strings.TrimPrefix(key, EnvPrefix)
			return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func envFileName(path, appEnv string) string {
	ext := ".yaml"
	base := strings.TrimSuffix(path, ext)
	if base == path {
		ext = ".yml"
		base = strings.TrimSuffix(path, ext)
	}
	return fmt.Sprintf("%s.%s%s", base, appEnv, ext)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "xbl-client",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,

		"http.timeoutwindow":          "20s",
		"http.retrydelaybase":         "2s",
		"http.attempttimeout":         "30s",
		"http.disablethrottleasserts": false,
		"http.sandbox":                SandboxRetail,
		"http.locale":                 "en-US",
		"http.authheaderformat":       AuthHeaderFormatXBL3,

		"observability.enabled":        false,
		"observability.endpoint":       "stdout",
		"observability.protocol":       "http",
		"observability.insecure":       true,
		"observability.samplerate":     1.0,
		"observability.exportinterval": "10s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

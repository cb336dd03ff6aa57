package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the logtmpl configuration shared by the batch and server binaries.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Batch     BatchConfig     `yaml:"batch"`
	Stream    StreamConfig    `yaml:"stream"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds admin API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty disables auth
}

// HTTPConfig holds admin HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// TokenizerConfig controls how records are cut into tokens. Both modes must
// use the same values for their templates to be comparable.
type TokenizerConfig struct {
	HeaderLen *int   `yaml:"header_len"` // leading tokens dropped (timestamp, host...)
	Separator string `yaml:"separator"`
}

// BatchConfig holds batch mining settings.
type BatchConfig struct {
	SplitThreshold float64 `yaml:"split_threshold"`
	MergeThreshold float64 `yaml:"merge_threshold"`
	Workers        int     `yaml:"workers"`
	MaxLineBytes   int     `yaml:"max_line_bytes"`
}

// StreamConfig holds streaming server settings.
type StreamConfig struct {
	ListenAddr             string  `yaml:"listen_addr"`
	MergeThreshold         float64 `yaml:"merge_threshold"`
	MaxLineBytes           int     `yaml:"max_line_bytes"`
	MaxMessagesPerTemplate int     `yaml:"max_messages_per_template"` // 0 = unlimited
}

const (
	defaultHeaderLen = 4
	defaultSeparator = `[\s]+`
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if present, is loaded into the
// process environment first.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and
// validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 9100
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "logtmpl:"
	}
	if c.Tokenizer.HeaderLen == nil {
		n := defaultHeaderLen
		c.Tokenizer.HeaderLen = &n
	}
	if c.Tokenizer.Separator == "" {
		c.Tokenizer.Separator = defaultSeparator
	}
	if c.Batch.SplitThreshold == 0 {
		c.Batch.SplitThreshold = 0.4
	}
	if c.Batch.MergeThreshold == 0 {
		c.Batch.MergeThreshold = 0.8
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = runtime.NumCPU()
	}
	if c.Batch.MaxLineBytes <= 0 {
		c.Batch.MaxLineBytes = 1 << 20
	}
	if c.Stream.ListenAddr == "" {
		c.Stream.ListenAddr = ":5140"
	}
	if c.Stream.MergeThreshold == 0 {
		c.Stream.MergeThreshold = 0.4
	}
	if c.Stream.MaxLineBytes <= 0 {
		c.Stream.MaxLineBytes = 64 * 1024
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.Driver != "redis" {
		return fmt.Errorf("database.driver must be \"redis\", got %q", c.Database.Driver)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Tokenizer.HeaderLen != nil && *c.Tokenizer.HeaderLen < 0 {
		return fmt.Errorf("tokenizer.header_len must not be negative, got %d", *c.Tokenizer.HeaderLen)
	}
	if _, err := regexp.Compile(c.Tokenizer.Separator); err != nil {
		return fmt.Errorf("tokenizer.separator: %w", err)
	}
	if err := checkThreshold("batch.split_threshold", c.Batch.SplitThreshold); err != nil {
		return err
	}
	if err := checkThreshold("batch.merge_threshold", c.Batch.MergeThreshold); err != nil {
		return err
	}
	if err := checkThreshold("stream.merge_threshold", c.Stream.MergeThreshold); err != nil {
		return err
	}
	if c.Stream.MaxMessagesPerTemplate < 0 {
		return fmt.Errorf("stream.max_messages_per_template must not be negative, got %d",
			c.Stream.MaxMessagesPerTemplate)
	}
	return nil
}

// HeaderLenOrDefault returns the configured header length, or the default when unset.
func (t TokenizerConfig) HeaderLenOrDefault() int {
	if t.HeaderLen == nil {
		return defaultHeaderLen
	}
	return *t.HeaderLen
}

func checkThreshold(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix scopes the environment variables read into configuration.
const DefaultEnvPrefix = "MARATHON"

// envNestingSeparator separates nested keys in environment variable names:
// MARATHON_APP__SERVICES__REDIS__URL sets app.services.redis.url.
const envNestingSeparator = "__"

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // explicit config file; must exist when set
	EnvFile    string // explicit .env file; must exist when set
	EnvPrefix  string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// Source is the loaded configuration tree.
type Source struct {
	v          *viper.Viper
	configFile string
}

// Load reads the YAML config file, the .env file and prefixed environment
// variables, in that order of increasing precedence.
func Load(serviceName string, opts ...LoaderOption) (*Source, error) {
	lc := LoaderConfig{EnvPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	configFile, err := resolveFile(lc.FileSystem, lc.ConfigFile, configSearchPaths(serviceName))
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	envFile, err := resolveFile(lc.FileSystem, lc.EnvFile, envSearchPaths(serviceName))
	if err != nil {
		return nil, fmt.Errorf("env file: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if envFile != "" {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	bindPrefixedEnv(v, lc.EnvPrefix, os.Environ())

	return &Source{v: v, configFile: configFile}, nil
}

// LoadConfig loads configuration for a service into cfg.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	src, err := Load(serviceName, opts...)
	if err != nil {
		return err
	}
	if err := src.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// Get returns the value at a dotted path such as "app.services.redis".
// Nested sections are returned as map[string]interface{} with file and
// environment values merged. Missing paths return nil.
func (s *Source) Get(path string) interface{} {
	var cur interface{} = s.v.AllSettings()
	for _, seg := range strings.Split(strings.ToLower(path), ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		if cur, ok = m[seg]; !ok {
			return nil
		}
	}
	return cur
}

// GetInt returns the value at path converted to an int.
func (s *Source) GetInt(path string) int {
	return s.v.GetInt(path)
}

// GetString returns the value at path converted to a string.
func (s *Source) GetString(path string) string {
	return s.v.GetString(path)
}

// IsSet reports whether path has a value from any source.
func (s *Source) IsSet(path string) bool {
	return s.Get(path) != nil
}

// Unmarshal decodes the whole tree into cfg using mapstructure tags.
func (s *Source) Unmarshal(cfg interface{}) error {
	return s.v.Unmarshal(cfg)
}

// ConfigFileUsed returns the config file that was read, if any.
func (s *Source) ConfigFileUsed() string {
	return s.configFile
}

func resolveFile(fs FileSystem, explicit string, candidates []string) (string, error) {
	if explicit != "" {
		if !fs.Exists(explicit) {
			return "", fmt.Errorf("%s does not exist", explicit)
		}
		return explicit, nil
	}
	for _, path := range candidates {
		if fs.Exists(path) {
			return path, nil
		}
	}
	return "", nil
}

func configSearchPaths(serviceName string) []string {
	return []string{
		"./config.yml",
		"./config.yaml",
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
	}
}

func envSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./.env.%s", serviceName),
		"./.env",
		fmt.Sprintf("./cmd/%s/.env", serviceName),
	}
}

// bindPrefixedEnv copies PREFIX_A__B__C=value into viper as a.b.c.
func bindPrefixedEnv(v *viper.Viper, prefix string, environ []string) {
	if prefix == "" {
		return
	}
	marker := strings.ToUpper(prefix) + "_"
	for _, env := range environ {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, marker) {
			continue
		}
		key := EnvKey(strings.TrimPrefix(name, marker))
		if key != "" {
			v.Set(key, value)
		}
	}
}

// EnvKey converts an unprefixed environment variable name into a config path.
//
//	APP__PORT                 -> app.port
//	APP__CONNECT_TIMEOUT      -> app.connect_timeout
func EnvKey(name string) string {
	parts := strings.Split(strings.ToLower(name), envNestingSeparator)
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return strings.Join(parts, ".")
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jobtrack/cli/internal/utils"
)

const (
	configName = ".jobtrack"
	envPrefix  = "JOBTRACK"
)

// Config represents the application configuration
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Auth   AuthConfig   `yaml:"auth" mapstructure:"auth"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Format FormatConfig `yaml:"format" mapstructure:"format"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig contains server connection settings
type ServerConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Timeout string `yaml:"timeout" mapstructure:"timeout"`
}

// AuthConfig contains the persisted session credential.
// User holds the JSON-serialized user record; both fields are written and
// cleared together.
type AuthConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
	User  string `yaml:"user" mapstructure:"user"`
}

// StoreConfig selects where session credentials are kept
type StoreConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig contains settings for the redis credential backend
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// FormatConfig contains output formatting settings
type FormatConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
	Colors  bool   `yaml:"colors" mapstructure:"colors"`
}

// LogConfig contains diagnostic logging settings
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Store backends
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var (
	mu           sync.RWMutex
	v            = viper.New()
	globalConfig *Config
	configPath   string
	debug        bool
	outputFormat string
)

// Initialize loads the configuration from file, creating a default one when
// it does not exist yet
func Initialize(configFile string) error {
	mu.Lock()
	defer mu.Unlock()

	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get home directory: %w", err)
		}
		path = filepath.Join(home, configName+".yaml")
	}

	v = viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefaultConfig(path); err != nil {
			return fmt.Errorf("could not create default config: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("could not unmarshal config: %w", err)
	}

	globalConfig = cfg
	configPath = path
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:3000/api")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("auth.token", "")
	v.SetDefault("auth.user", "")
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "jobtrack")
	v.SetDefault("format.default", "table")
	v.SetDefault("format.colors", true)
	v.SetDefault("log.level", "warn")
}

// Default returns the configuration written on first run
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:     "http://localhost:3000/api",
			Timeout: "30s",
		},
		Auth: AuthConfig{},
		Store: StoreConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "jobtrack",
			},
		},
		Format: FormatConfig{
			Default: "table",
			Colors:  true,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// createDefaultConfig creates a default configuration file
func createDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Get returns the global configuration
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig == nil {
		cfg := Default()
		globalConfig = &cfg
	}
	return globalConfig
}

// Path returns the file the configuration was loaded from
func Path() string {
	mu.RLock()
	defer mu.RUnlock()
	return configPath
}

// Timeout returns the per-operation timeout, falling back to 30s when the
// configured value cannot be parsed
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SetDebug sets the debug mode
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = enabled
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debug
}

// SetOutputFormat sets the output format
func SetOutputFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	outputFormat = format
}

// GetOutputFormat returns the current output format
func GetOutputFormat() string {
	mu.RLock()
	defer mu.RUnlock()
	if outputFormat != "" {
		return outputFormat
	}
	if globalConfig != nil && globalConfig.Format.Default != "" {
		return globalConfig.Format.Default
	}
	return "table"
}

// settable maps the keys `config set` may change to their parsers
var settable = map[string]func(string) (interface{}, error){
	"server.url":           parseWith(utils.ValidateURL),
	"server.timeout":       parseWith(func(s string) error { return utils.ValidateDuration(s, "server.timeout") }),
	"store.backend":        parseOneOf(BackendFile, BackendRedis, BackendMemory),
	"store.redis.addr":     parseWith(func(s string) error { return utils.ValidateRequired(s, "store.redis.addr") }),
	"store.redis.password": parseWith(nil),
	"store.redis.db":       parseInt,
	"store.redis.prefix":   parseWith(func(s string) error { return utils.ValidateRequired(s, "store.redis.prefix") }),
	"format.default":       parseOneOf("table", "json", "yaml", "text"),
	"format.colors":        parseBool,
	"log.level":            parseOneOf("debug", "info", "warn", "error"),
}

func parseWith(validate func(string) error) func(string) (interface{}, error) {
	return func(s string) (interface{}, error) {
		if validate != nil {
			if err := validate(s); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}

func parseOneOf(allowed ...string) func(string) (interface{}, error) {
	return func(s string) (interface{}, error) {
		for _, a := range allowed {
			if s == a {
				return s, nil
			}
		}
		return nil, fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
	}
}

func parseInt(s string) (interface{}, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func parseBool(s string) (interface{}, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("must be true or false")
	}
	return b, nil
}

// Keys returns the user-settable configuration keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(settable))
	for k := range settable {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetValue returns the effective value of a configuration key
func GetValue(key string) (interface{}, error) {
	mu.RLock()
	defer mu.RUnlock()
	if _, ok := settable[key]; !ok {
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
	return v.Get(key), nil
}

// SetValue validates and updates a user-settable key, then writes the
// config file
func SetValue(key, raw string) error {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}
	parse, ok := settable[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	value, err := parse(raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	v.Set(key, value)
	if err := v.Unmarshal(globalConfig); err != nil {
		return fmt.Errorf("could not apply %s: %w", key, err)
	}
	return v.WriteConfig()
}

// LoadAuth returns the persisted token and serialized user
func LoadAuth() (token, user string, err error) {
	mu.RLock()
	defer mu.RUnlock()
	if globalConfig == nil {
		return "", "", fmt.Errorf("configuration not initialized")
	}
	return v.GetString("auth.token"), v.GetString("auth.user"), nil
}

// UpdateAuth persists the session token and serialized user with a single
// write of the config file
func UpdateAuth(token, user string) error {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	v.Set("auth.token", token)
	v.Set("auth.user", user)

	globalConfig.Auth.Token = token
	globalConfig.Auth.User = user

	return v.WriteConfig()
}

// ClearAuth clears the persisted session credential
func ClearAuth() error {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	v.Set("auth.token", "")
	v.Set("auth.user", "")

	globalConfig.Auth.Token = ""
	globalConfig.Auth.User = ""

	return v.WriteConfig()
}

package config

import (
	"encoding/json"
	stderrors "errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/rstore/internal/errors"
	"github.com/vango-dev/rstore/pkg/persist"
	"github.com/vango-dev/rstore/pkg/storage"
	"github.com/vango-dev/rstore/pkg/store"
)

const (
	// ConfigFileName is the JSON configuration file.
	ConfigFileName = "rstore.json"

	// YAMLConfigFileName is the YAML configuration file, used when no
	// rstore.json exists.
	YAMLConfigFileName = "rstore.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RSTORE_"

	// DefaultAddr is the default inspector listen address.
	DefaultAddr = "localhost:7070"

	// DefaultBadgerPath is the default directory of the local badger backend,
	// relative to the config file.
	DefaultBadgerPath = ".rstore"

	// DefaultFlushTimeout bounds the teardown flush.
	DefaultFlushTimeout = "2s"
)

// Config represents rstore.json.
type Config struct {
	// Persist is the persistence mode: none, local or session.
	Persist string `json:"persist,omitempty" yaml:"persist,omitempty" env:"PERSIST"`

	// Data holds the initial slot values. It stays untyped so that shape
	// errors are reported by the store rather than the decoder.
	Data any `json:"data" yaml:"data"`

	// Key is the storage key the snapshot is written under.
	Key string `json:"key,omitempty" yaml:"key,omitempty" env:"KEY"`

	// StrictNames rejects writes to slots that are not in Data or the
	// restored snapshot.
	StrictNames bool `json:"strictNames,omitempty" yaml:"strictNames,omitempty" env:"STRICT_NAMES"`

	// FlushTimeout bounds the teardown flush (e.g., "2s").
	FlushTimeout string `json:"flushTimeout,omitempty" yaml:"flushTimeout,omitempty" env:"FLUSH_TIMEOUT"`

	// Storage configures the backends behind the local and session modes.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`

	// Inspector configures the HTTP inspector started by 'rstore serve'.
	Inspector InspectorConfig `json:"inspector,omitempty" yaml:"inspector,omitempty" envPrefix:"INSPECTOR_"`

	// Log configures the CLI logger.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty" envPrefix:"LOG_"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// StorageConfig configures one backend per persistence mode.
type StorageConfig struct {
	Local   storage.Config `json:"local,omitempty" yaml:"local,omitempty" envPrefix:"LOCAL_"`
	Session storage.Config `json:"session,omitempty" yaml:"session,omitempty" envPrefix:"SESSION_"`
}

// InspectorConfig contains inspector server settings.
type InspectorConfig struct {
	// Addr is the host:port to listen on.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty" env:"ADDR"`

	// Metrics exposes GET /metrics.
	Metrics *bool `json:"metrics,omitempty" yaml:"metrics,omitempty" env:"METRICS"`

	// AllowedOrigins lists websocket origins accepted besides same-host.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level,omitempty" yaml:"level,omitempty" env:"LEVEL"`

	// Format is text or json.
	Format string `json:"format,omitempty" yaml:"format,omitempty" env:"FORMAT"`
}

// New creates a configuration with default values.
func New() *Config {
	cfg := &Config{Data: map[string]any{}}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory. It looks for
// rstore.json, then rstore.yaml.
func Load(dir string) (*Config, error) {
	path, ok := find(dir)
	if !ok {
		return nil, errors.New("E140").
			WithDetail("No " + ConfigFileName + " or " + YAMLConfigFileName + " found in " + dir).
			WithSuggestion("Run 'rstore init' to create one")
	}
	return LoadFile(path)
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension. Environment overrides are applied after the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E140").
				WithDetail("No config file at " + path).
				WithSuggestion("Run 'rstore init' to create one")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid YAML")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, jsonError(path, data, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

func jsonError(path string, data []byte, err error) error {
	e := errors.New("E120").
		WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
		WithSuggestion("Check that the file is valid JSON")

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		e.WithOffset(path, data, syntaxErr.Offset)
	case stderrors.As(err, &typeErr):
		e.WithOffset(path, data, typeErr.Offset)
	}
	return e
}

// ApplyEnv overrides fields from RSTORE_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.New("E120").
			WithDetail("Failed to parse environment overrides").
			Wrap(err)
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path, as YAML when the
// extension says so and JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Persist == "" {
		c.Persist = persist.None.String()
	}
	if c.Key == "" {
		c.Key = persist.DefaultKey
	}
	if c.FlushTimeout == "" {
		c.FlushTimeout = DefaultFlushTimeout
	}

	// Local defaults to badger on disk; session lives as long as the process.
	if c.Storage.Local.Driver == "" {
		c.Storage.Local.Driver = storage.DriverBadger
	}
	if c.Storage.Local.Driver == storage.DriverBadger && c.Storage.Local.Path == "" {
		c.Storage.Local.Path = DefaultBadgerPath
	}
	if c.Storage.Session.Driver == "" {
		c.Storage.Session.Driver = storage.DriverMemory
	}

	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultAddr
	}
	if c.Inspector.Metrics == nil {
		enabled := true
		c.Inspector.Metrics = &enabled
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks the settings that do not depend on the bootstrap data.
// Data is checked by Bootstrap.
func (c *Config) Validate() error {
	if _, err := persist.ParseMode(c.Persist); err != nil {
		return errors.FromError(err, "E202").
			WithSuggestion(`Set "persist" to "none", "local" or "session"`)
	}

	backends := []struct {
		mode string
		sc   storage.Config
	}{
		{"local", c.Storage.Local},
		{"session", c.Storage.Session},
	}
	for _, b := range backends {
		mode, sc := b.mode, b.sc
		switch sc.Driver {
		case storage.DriverMemory, storage.DriverBadger, storage.DriverSQLite, storage.DriverS3:
		default:
			return errors.New("E123").
				WithDetail("storage." + mode + ".driver is " + strconv.Quote(sc.Driver))
		}
		if sc.Driver == storage.DriverS3 && sc.Bucket == "" {
			return errors.New("E121").
				WithDetail("storage." + mode + ".bucket is required for the s3 driver")
		}
		if sc.Driver == storage.DriverSQLite && sc.Path == "" {
			return errors.New("E121").
				WithDetail("storage." + mode + ".path is required for the sqlite driver")
		}
	}

	if _, port, err := net.SplitHostPort(c.Inspector.Addr); err != nil {
		return errors.New("E122").Wrap(err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return errors.New("E122").
			WithDetail("Port must be between 1 and 65535, got " + strconv.Quote(port))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E124").WithDetail("log.level is " + strconv.Quote(c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("E124").WithDetail("log.format is " + strconv.Quote(c.Log.Format))
	}

	if _, err := time.ParseDuration(c.FlushTimeout); err != nil {
		return errors.New("E120").
			WithDetail("flushTimeout is not a duration").
			Wrap(err)
	}
	return nil
}

// Bootstrap converts Persist and Data into the store's bootstrap config.
// Shape errors come back as the store's typed errors.
func (c *Config) Bootstrap() (*store.Config, error) {
	doc := map[string]any{"data": c.Data}
	if c.Persist != "" {
		doc["persist"] = c.Persist
	}
	return store.ConfigFromMap(doc)
}

// Mode returns the parsed persistence mode.
func (c *Config) Mode() (persist.Mode, error) {
	return persist.ParseMode(c.Persist)
}

// FlushTimeoutDuration returns FlushTimeout parsed, or the default when it
// does not parse.
func (c *Config) FlushTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FlushTimeout)
	if err != nil {
		return persist.DefaultFlushTimeout
	}
	return d
}

// MetricsEnabled reports whether the inspector serves /metrics.
func (c *Config) MetricsEnabled() bool {
	return c.Inspector.Metrics == nil || *c.Inspector.Metrics
}

// StorageFor returns the backend config of mode with relative paths
// resolved against the config directory.
func (c *Config) StorageFor(mode persist.Mode) storage.Config {
	var sc storage.Config
	switch mode {
	case persist.Local:
		sc = c.Storage.Local
	case persist.Session:
		sc = c.Storage.Session
	default:
		return storage.Config{Driver: storage.DriverMemory}
	}
	if sc.Path != "" && !filepath.IsAbs(sc.Path) && c.Dir() != "" {
		sc.Path = filepath.Join(c.Dir(), sc.Path)
	}
	return sc
}

// find returns the config file in dir, preferring JSON.
func find(dir string) (string, bool) {
	for _, name := range []string{ConfigFileName, YAMLConfigFileName, "rstore.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, ok := find(dir)
	return ok
}

// FindProjectRoot walks up directories to find the one holding a config file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E140").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'rstore init' to create one")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

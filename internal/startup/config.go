package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sdc-indexer/internal/database"
	"sdc-indexer/internal/logging"
)

// ConfigFileEnv names the YAML configuration file.
const ConfigFileEnv = "SDC_CONFIG"

// Config holds all indexer configuration. Values come from defaults, then
// the YAML file named by SDC_CONFIG, then the environment, then flags.
type Config struct {
	Roots          []string      `yaml:"roots"`
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	QuietPeriod    time.Duration `yaml:"quiet_period"`
	Exclude        []string      `yaml:"exclude"`
	LockDir        string        `yaml:"lock_dir"`
	Flavor         string        `yaml:"flavor"`
	OrbitFile      string        `yaml:"orbit_file"`
	ListingCommand []string      `yaml:"listing_command"`
	MetricsAddr    string        `yaml:"metrics_addr"`
	UniqueID       string        `yaml:"unique_id"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Driver:      database.DriverSQLite,
		DSN:         "/var/lib/sdc-indexer/catalog.db",
		QueueSize:   10000,
		QuietPeriod: 2 * time.Second,
		Exclude:     []string{".*", "*.tmp", "*.part"},
		LockDir:     os.TempDir(),
		Flavor:      "default",
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML
// file and the environment.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	config.loadEnv()
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.Roots = getEnvList("SDC_ROOTS", c.Roots)
	c.Driver = getEnv("SDC_DB_DRIVER", c.Driver)
	c.DSN = getEnv("SDC_DSN", c.DSN)
	c.QueueSize = getEnvInt("SDC_QUEUE_SIZE", c.QueueSize)
	c.QuietPeriod = getEnvDuration("SDC_QUIET_PERIOD", c.QuietPeriod)
	c.Exclude = getEnvList("SDC_EXCLUDE", c.Exclude)
	c.LockDir = getEnv("SDC_LOCK_DIR", c.LockDir)
	c.Flavor = getEnv("SDC_FLAVOR", c.Flavor)
	c.OrbitFile = getEnv("SDC_ORBIT_FILE", c.OrbitFile)
	if cmd := os.Getenv("SDC_LISTING_COMMAND"); cmd != "" {
		c.ListingCommand = strings.Fields(cmd)
	}
	c.MetricsAddr = getEnv("SDC_METRICS_ADDR", c.MetricsAddr)
	c.UniqueID = getEnv("SDC_UNIQUE_ID", c.UniqueID)
}

// Validate checks the configuration and resolves relative paths.
func (c *Config) Validate(needRoots bool) error {
	if needRoots && len(c.Roots) == 0 {
		return errors.New("no root directories configured")
	}
	for i, root := range c.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return fmt.Errorf("failed to resolve root %s: %w", root, err)
		}
		c.Roots[i] = abs
	}
	switch c.Driver {
	case database.DriverSQLite:
		if c.DSN == "" {
			return errors.New("no catalog path configured")
		}
	case database.DriverPostgres:
		if c.DSN == "" {
			return errors.New("no postgres DSN configured")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.QuietPeriod <= 0 {
		return fmt.Errorf("quiet period must be positive, got %v", c.QuietPeriod)
	}
	return nil
}

// Log prints the configuration banner.
func (c *Config) Log() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	for _, root := range c.Roots {
		logging.Info("  ROOT:              %s", root)
	}
	logging.Info("  DB_DRIVER:         %s", c.Driver)
	dsn := c.DSN
	if c.Driver == database.DriverPostgres {
		dsn = database.RedactDSN(dsn)
	}
	logging.Info("  DSN:               %s", dsn)
	logging.Info("  WORKERS:           %s", workersString(c.Workers))
	logging.Info("  QUEUE_SIZE:        %d", c.QueueSize)
	logging.Info("  QUIET_PERIOD:      %v", c.QuietPeriod)
	logging.Info("  EXCLUDE:           %s", strings.Join(c.Exclude, ","))
	logging.Info("  LOCK_DIR:          %s", c.LockDir)
	logging.Info("  FLAVOR:            %s", c.Flavor)
	logging.Info("  ORBIT_FILE:        %s", orNone(c.OrbitFile))
	logging.Info("  LISTING_COMMAND:   %s", orNone(strings.Join(c.ListingCommand, " ")))
	logging.Info("  METRICS_ADDR:      %s", orNone(c.MetricsAddr))
	logging.Info("  UNIQUE_ID:         %s", orNone(c.UniqueID))
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())
	logging.Info("")
}

// EnsureCatalogDir creates the directory of a sqlite catalog and checks
// that it is writable.
func (c *Config) EnsureCatalogDir() error {
	if c.Driver != database.DriverSQLite {
		return nil
	}
	if err := ensureWritableDir(filepath.Dir(c.DSN)); err != nil {
		return fmt.Errorf("catalog directory: %w", err)
	}
	logging.Info("  [OK] Catalog directory is writable")
	return nil
}

func workersString(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvList splits a comma-separated value.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"coworking/internal/models"
	"coworking/internal/pricing"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	Backup     BackupConfig      `yaml:"backup"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	Logging    LoggingConfig     `yaml:"logging"`
	API        APIConfig         `yaml:"api"`
	Booking    BookingConfig     `yaml:"booking"`
	Spaces     []models.Space    `yaml:"spaces"`
	Rates      pricing.RateTable `yaml:"rates"`
	RatesFile  string            `yaml:"rates_file"`
	Exports    ExportConfig      `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled bool         `yaml:"enabled"`
	Port    int          `yaml:"port"`
	TLS     APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type BookingConfig struct {
	Timezone       string `yaml:"timezone"`
	MaxBookingDays int    `yaml:"max_booking_days"`
	DraftTTL       string `yaml:"draft_ttl"`
	CalendarDays   int    `yaml:"calendar_days"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
	// Scheduled writes a workbook of the upcoming RangeDays on every Interval.
	Scheduled  bool   `yaml:"scheduled"`
	Interval   string `yaml:"interval"`
	RangeDays  int    `yaml:"range_days"`
	MaxRetries int    `yaml:"max_retries"`
}

// Load reads an optional .env file, then the YAML config with ${VAR}
// expansion, then the standalone rates file if one is configured.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if config.RatesFile != "" {
		rates, err := pricing.LoadRateTable(config.RatesFile)
		if err != nil {
			return nil, err
		}
		config.Rates = rates
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.DraftTTL(); err != nil {
		return err
	}
	if _, err := c.BackupInterval(); err != nil {
		return err
	}
	if _, err := c.ExportInterval(); err != nil {
		return err
	}
	if err := c.Rates.Validate(); err != nil {
		return err
	}

	return ValidateSpaces(c.Spaces)
}

func ValidateSpaces(spaces []models.Space) error {
	if len(spaces) == 0 {
		return errors.New("at least one space is required")
	}
	ids := make(map[string]bool, len(spaces))
	for _, s := range spaces {
		if s.ID == "" {
			return fmt.Errorf("space '%s' has empty ID", s.Name)
		}
		if ids[s.ID] {
			return fmt.Errorf("duplicate space ID found: %s", s.ID)
		}
		if s.Category == "" {
			return fmt.Errorf("space '%s' has no category", s.ID)
		}
		ids[s.ID] = true
	}
	return nil
}

// Location is the zone that decides which calendar day "today" is.
func (c *Config) Location() (*time.Location, error) {
	if c.Booking.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Booking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}
	return loc, nil
}

func (c *Config) DraftTTL() (time.Duration, error) {
	if c.Booking.DraftTTL == "" {
		return models.DefaultDraftTTL, nil
	}
	d, err := time.ParseDuration(c.Booking.DraftTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid draft_ttl: %w", err)
	}
	return d, nil
}

func (c *Config) BackupInterval() (time.Duration, error) {
	if c.Backup.Interval == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Backup.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid backup interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("backup interval must be positive")
	}
	return d, nil
}

func (c *Config) ExportInterval() (time.Duration, error) {
	if c.Exports.Interval == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Exports.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid export interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("export interval must be positive")
	}
	return d, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "coworking"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Exports.RangeDays == 0 {
		c.Exports.RangeDays = models.DefaultExportRangeDays
	}
	if c.Exports.MaxRetries == 0 {
		c.Exports.MaxRetries = 3
	}

	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.CalendarDays == 0 {
		c.Booking.CalendarDays = models.DefaultCalendarDays
	}
	if c.Rates.IsEmpty() {
		c.Rates = pricing.DefaultRateTable()
	}
}

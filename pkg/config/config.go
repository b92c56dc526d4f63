package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Placement policies for plain "add" records.
const (
	PlacementHome = "home" // always the id's home sector, evicting when full
	PlacementBest = "best" // first sector with a free slot, probing from home
)

// Config represents the main configuration structure
type Config struct {
	Warehouse WarehouseConfig `yaml:"warehouse"`
	HTTP      HTTPConfig      `yaml:"http"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// WarehouseConfig fixes the warehouse layout for the lifetime of a run
type WarehouseConfig struct {
	Sectors        int    `yaml:"sectors"`
	SectorCapacity int    `yaml:"sector_capacity"`
	Popularity     string `yaml:"popularity"` // demand, recency
	Placement      string `yaml:"placement"`  // home, best
}

// HTTPConfig controls the read-only inspection server
type HTTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BindAddr string `yaml:"bind_addr"`
	Port     int    `yaml:"port"`
}

// Address returns host:port for the inspection server
func (h HTTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", h.BindAddr, h.Port)
}

// MetricsConfig controls the Prometheus collector
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level         string `yaml:"level"`          // debug, info, warn, error, fatal
	EnableConsole bool   `yaml:"enable_console"` // JSON lines on stderr
	EnableFile    bool   `yaml:"enable_file"`
	LogFile       string `yaml:"log_file"`
	BufferSize    int    `yaml:"buffer_size"` // async log buffer size
	LogDir        string `yaml:"log_dir"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Warehouse: WarehouseConfig{
			Sectors:        10,
			SectorCapacity: 5,
			Popularity:     "recency",
			Placement:      PlacementHome,
		},
		HTTP: HTTPConfig{
			Enabled:  false,
			BindAddr: "127.0.0.1",
			Port:     8088,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "warehouse",
		},
		Logging: LoggingConfig{
			Level:         "info",
			EnableConsole: false,
			EnableFile:    false,
			BufferSize:    1000,
			LogDir:        "logs",
		},
	}
}

// Load reads and parses the configuration file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Warehouse.Sectors < 1 {
		return fmt.Errorf("warehouse.sectors must be >= 1")
	}
	if c.Warehouse.SectorCapacity < 1 {
		return fmt.Errorf("warehouse.sector_capacity must be >= 1")
	}
	if !isValidPopularity(c.Warehouse.Popularity) {
		return fmt.Errorf("invalid warehouse.popularity: %s", c.Warehouse.Popularity)
	}
	if !isValidPlacement(c.Warehouse.Placement) {
		return fmt.Errorf("invalid warehouse.placement: %s", c.Warehouse.Placement)
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http.port must be between 1 and 65535")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace cannot be empty when metrics are enabled")
	}
	if c.Logging.BufferSize < 0 {
		return fmt.Errorf("logging.buffer_size cannot be negative")
	}
	return nil
}

func isValidPopularity(name string) bool {
	validOrders := map[string]bool{
		"demand":  true, // demand only
		"recency": true, // demand plus last purchase day
	}
	return validOrders[strings.ToLower(name)]
}

func isValidPlacement(policy string) bool {
	validPolicies := map[string]bool{
		PlacementHome: true,
		PlacementBest: true,
	}
	return validPolicies[policy]
}

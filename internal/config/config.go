// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/airscope/coverage-cli/internal/geo"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Index   IndexConfig   `yaml:"index" mapstructure:"index"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the results store backend.
type StoreConfig struct {
	Driver         string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL    string `yaml:"database_url" mapstructure:"database_url"`
	ResultTTLHours int    `yaml:"result_ttl_hours" mapstructure:"result_ttl_hours"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// IndexConfig configures the spatial indexes: the CSV sources they load and
// the planar projection anchor. The default anchor and bounding box cover
// the Melbourne CBD deployment area.
type IndexConfig struct {
	InputCSV   string   `yaml:"input_csv" mapstructure:"input_csv"`
	ResultsCSV string   `yaml:"results_csv" mapstructure:"results_csv"`
	AnchorLat  float64  `yaml:"anchor_lat" mapstructure:"anchor_lat"`
	AnchorLon  float64  `yaml:"anchor_lon" mapstructure:"anchor_lon"`
	BBox       geo.BBox `yaml:"bbox" mapstructure:"bbox"`
}

// GeocodeConfig configures the external geocoding collaborators. With
// Enabled false the application runs with an inert stub and address-based
// queries require explicit coordinates.
type GeocodeConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	NominatimURL   string   `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	OverpassURL    string   `yaml:"overpass_url" mapstructure:"overpass_url"`
	UserAgent      string   `yaml:"user_agent" mapstructure:"user_agent"`
	CountryCodes   string   `yaml:"country_codes" mapstructure:"country_codes"`
	Region         string   `yaml:"region" mapstructure:"region"`
	RegionSuffixes []string `yaml:"region_suffixes" mapstructure:"region_suffixes"`
	CacheTTLHours  int      `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	MinIntervalMS  int      `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and COVERAGE_* environment
// variables, applying defaults for anything unset.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COVERAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "coverage.db")
	v.SetDefault("store.result_ttl_hours", 168) // one week
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("index.input_csv", "input.csv")
	v.SetDefault("index.results_csv", "results.csv")
	v.SetDefault("index.anchor_lat", -37.8136)
	v.SetDefault("index.anchor_lon", 144.9631)
	v.SetDefault("index.bbox.south", -37.8265)
	v.SetDefault("index.bbox.west", 144.9475)
	v.SetDefault("index.bbox.north", -37.8060)
	v.SetDefault("index.bbox.east", 144.9835)
	v.SetDefault("geocode.enabled", true)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("geocode.user_agent", "coverage-cli/1.0")
	v.SetDefault("geocode.country_codes", "au")
	v.SetDefault("geocode.region", "VIC")
	v.SetDefault("geocode.region_suffixes", []string{
		"VIC", "Melbourne, VIC", "Victoria, Australia", "Australia",
	})
	v.SetDefault("geocode.cache_ttl_hours", 720)
	v.SetDefault("geocode.min_interval_ms", 1200) // Nominatim etiquette: ~1 req/sec
}

// WriteStarter writes a starter config file with all defaults to path.
// It refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}

	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return eris.Wrap(err, "config: unmarshal defaults")
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal starter")
	}
	return eris.Wrap(os.WriteFile(path, data, 0o644), "config: write starter")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

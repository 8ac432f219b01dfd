// Package config loads the application configuration from the environment
// and an optional .env file, with defaults taken from struct tags.
package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/rainfall-dashboard/internal/database"
	"github.com/i474232898/rainfall-dashboard/internal/logger"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      logger.Config   `mapstructure:"log"`
	Database database.Config `mapstructure:"database"`
	AEMET    AEMETConfig     `mapstructure:"aemet"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Store    StoreConfig     `mapstructure:"store"`
	Harvest  HarvestConfig   `mapstructure:"harvest"`
	Geocoder GeocoderConfig  `mapstructure:"geocoder"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Port            string        `mapstructure:"port" default:"8080" validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" default:"10s" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"10s" validate:"gt=0"`
}

// AEMETConfig configures the AEMET OpenData client.
type AEMETConfig struct {
	APIKey  string `mapstructure:"api_key" default:""`
	BaseURL string `mapstructure:"base_url" default:"https://opendata.aemet.es/opendata/api/" validate:"required,url"`
	// InsecureSkipVerify disables TLS verification; the AEMET certificate
	// chain is not always complete.
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" default:"false"`
	Timeout            time.Duration `mapstructure:"timeout" default:"30s" validate:"gt=0"`
}

// CacheConfig holds the lifetimes of the query caches.
type CacheConfig struct {
	DBTTL         time.Duration `mapstructure:"db_ttl" default:"6h" validate:"gt=0"`
	RecentTTL     time.Duration `mapstructure:"recent_ttl" default:"1h" validate:"gt=0"`
	HistoricalTTL time.Duration `mapstructure:"historical_ttl" default:"1h" validate:"gt=0"`
	StationsTTL   time.Duration `mapstructure:"stations_ttl" default:"24h" validate:"gt=0"`
}

// StoreConfig is the retention of the in-memory store (database.driver=memory).
type StoreConfig struct {
	MaxHistory int           `mapstructure:"max_history" default:"0" validate:"gte=0"`
	MaxAge     time.Duration `mapstructure:"max_age" default:"0s" validate:"gte=0"`
}

// HarvestConfig schedules the import of the recent feed into the store.
type HarvestConfig struct {
	Enabled  bool          `mapstructure:"enabled" default:"true"`
	Cron     string        `mapstructure:"cron" default:"0 0,12 * * *" validate:"required"`
	Timezone string        `mapstructure:"timezone" default:"Europe/Madrid" validate:"required"`
	Pause    time.Duration `mapstructure:"pause" default:"2500ms" validate:"gte=0"`
	Timeout  time.Duration `mapstructure:"timeout" default:"2h" validate:"gt=0"`
}

// GeocoderConfig enables place lookups. An empty key disables them.
type GeocoderConfig struct {
	APIKey string `mapstructure:"api_key" default:""`
}

var validate = validator.New()

// LoadConfig loads configuration from environment variables and the .env
// file in dir, if any. Environment variables win over .env values, which win
// over defaults (e.g. SERVER_PORT -> server.port).
func LoadConfig(dir string) (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}

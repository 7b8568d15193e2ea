package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	TileServer TileServerConfig `yaml:"tileserver" mapstructure:"tileserver"`
	Elastic    ElasticConfig    `yaml:"elastic" mapstructure:"elastic"`
	Explore    ExploreConfig    `yaml:"explore" mapstructure:"explore"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// TileServerConfig configures the upstream vector tile provider.
type TileServerConfig struct {
	URLTemplate       string  `yaml:"url_template" mapstructure:"url_template"`
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	ProviderName      string  `yaml:"provider_name" mapstructure:"provider_name"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ElasticConfig configures the document index connection.
type ElasticConfig struct {
	URLs        []string `yaml:"urls" mapstructure:"urls"`
	Username    string   `yaml:"username" mapstructure:"username"`
	Password    string   `yaml:"password" mapstructure:"password"`
	Sniff       bool     `yaml:"sniff" mapstructure:"sniff"`
	PlacesIndex string   `yaml:"places_index" mapstructure:"places_index"`
	TilesIndex  string   `yaml:"tiles_index" mapstructure:"tiles_index"`
}

// ExploreConfig configures the cache orchestrator.
type ExploreConfig struct {
	Zoom             int     `yaml:"zoom" mapstructure:"zoom"`
	BatchSize        int     `yaml:"batch_size" mapstructure:"batch_size"`
	RefreshTimeoutMS int     `yaml:"refresh_timeout_ms" mapstructure:"refresh_timeout_ms"`
	DefaultRadius    float64 `yaml:"default_radius" mapstructure:"default_radius"`
	DefaultLimit     int     `yaml:"default_limit" mapstructure:"default_limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int `yaml:"port" mapstructure:"port"`
	RequestTimeoutMS int `yaml:"request_timeout_ms" mapstructure:"request_timeout_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OSMTILES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_ms", 15000)
	v.SetDefault("tileserver.url_template", "https://tile.nextzen.org/tilezen/vector/v1/all/%d/%d/%d.json")
	v.SetDefault("tileserver.provider_name", "osm")
	v.SetDefault("tileserver.requests_per_second", 0)
	v.SetDefault("elastic.urls", []string{"http://localhost:9200"})
	v.SetDefault("elastic.sniff", false)
	v.SetDefault("elastic.places_index", "osm")
	v.SetDefault("elastic.tiles_index", "tilecache")
	v.SetDefault("explore.zoom", 16)
	v.SetDefault("explore.batch_size", 40)
	v.SetDefault("explore.refresh_timeout_ms", 500000)
	v.SetDefault("explore.default_radius", 500)
	v.SetDefault("explore.default_limit", 100)

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

// Validate checks the settings a given mode depends on. Modes map to the
// subcommands: "serve" needs the full stack, "explore" and "warm" need the
// index and the tile provider, "setup" and "tiles" only the index.
func (c *Config) Validate(mode string) error {
	var problems []string

	needIndex := func() {
		if len(c.Elastic.URLs) == 0 {
			problems = append(problems, "elastic.urls is required")
		}
		if c.Elastic.PlacesIndex == "" {
			problems = append(problems, "elastic.places_index is required")
		}
		if c.Elastic.TilesIndex == "" {
			problems = append(problems, "elastic.tiles_index is required")
		}
	}
	needTiles := func() {
		if strings.Count(c.TileServer.URLTemplate, "%d") != 3 {
			problems = append(problems, "tileserver.url_template must contain zoom/x/y placeholders")
		}
		if c.Explore.Zoom <= 0 || c.Explore.Zoom > 23 {
			problems = append(problems, "explore.zoom must be between 1 and 23")
		}
		if c.Explore.BatchSize < 1 || c.Explore.BatchSize > 500 {
			problems = append(problems, "explore.batch_size must be between 1 and 500")
		}
	}

	switch mode {
	case "serve":
		needIndex()
		needTiles()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RequestTimeoutMS <= 0 {
			problems = append(problems, "server.request_timeout_ms must be > 0")
		}
	case "explore", "warm":
		needIndex()
		needTiles()
	case "setup", "tiles":
		needIndex()
	default:
		return eris.New(fmt.Sprintf("config: unknown mode %q", mode))
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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

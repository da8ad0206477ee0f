package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Map    MapConfig    `yaml:"map" mapstructure:"map"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the crime CSV and the department boundaries.
type DataConfig struct {
	CSVPath            string `yaml:"csv_path" mapstructure:"csv_path"`
	Delimiter          string `yaml:"delimiter" mapstructure:"delimiter"`
	Charset            string `yaml:"charset" mapstructure:"charset"`
	GeoJSONPath        string `yaml:"geojson_path" mapstructure:"geojson_path"`
	ShapefilePath      string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	ShapefileCodeField string `yaml:"shapefile_code_field" mapstructure:"shapefile_code_field"`
	ShapefileNameField string `yaml:"shapefile_name_field" mapstructure:"shapefile_name_field"`
	ShapefileCRS       string `yaml:"shapefile_crs" mapstructure:"shapefile_crs"`
	StrictReferences   bool   `yaml:"strict_references" mapstructure:"strict_references"`
}

// DelimiterRune returns the CSV delimiter as a rune (',' when unset).
func (d DataConfig) DelimiterRune() rune {
	if d.Delimiter == "" {
		return ','
	}
	if d.Delimiter == `\t` {
		return '\t'
	}
	r, _ := utf8.DecodeRuneInString(d.Delimiter)
	return r
}

// MapConfig configures the base map, markers and choropleth.
type MapConfig struct {
	ZoomStart             int    `yaml:"zoom_start" mapstructure:"zoom_start"`
	ZoomControl           bool   `yaml:"zoom_control" mapstructure:"zoom_control"`
	TileURL               string `yaml:"tile_url" mapstructure:"tile_url"`
	Attribution           string `yaml:"attribution" mapstructure:"attribution"`
	MarkerRadius          int    `yaml:"marker_radius" mapstructure:"marker_radius"`
	ChoroplethAggregation string `yaml:"choropleth_aggregation" mapstructure:"choropleth_aggregation"`
	ChoroplethBins        int    `yaml:"choropleth_bins" mapstructure:"choropleth_bins"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	ReadTimeoutSecs     int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs    int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
	RateLimitRPS        float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst      int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	CORSOrigins         []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	PageCacheSize       int      `yaml:"page_cache_size" mapstructure:"page_cache_size"`
	PageCacheTTLSecs    int      `yaml:"page_cache_ttl_secs" mapstructure:"page_cache_ttl_secs"`
}

// FetchConfig configures downloading the inputs.
type FetchConfig struct {
	CSVURL      string `yaml:"csv_url" mapstructure:"csv_url"`
	GeoJSONURL  string `yaml:"geojson_url" mapstructure:"geojson_url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
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
	v.SetEnvPrefix("CRIMEMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.csv_path", "./dataset/updated_data.csv")
	v.SetDefault("data.delimiter", ",")
	v.SetDefault("data.charset", "utf-8")
	v.SetDefault("data.geojson_path", "./departements.geojson")
	v.SetDefault("data.shapefile_path", "")
	v.SetDefault("data.shapefile_code_field", "INSEE_DEP")
	v.SetDefault("data.shapefile_name_field", "NOM")
	v.SetDefault("data.shapefile_crs", "wgs84")
	v.SetDefault("data.strict_references", false)
	v.SetDefault("map.zoom_start", 5)
	v.SetDefault("map.zoom_control", false)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", "&copy; OpenStreetMap contributors")
	v.SetDefault("map.marker_radius", 10)
	v.SetDefault("map.choropleth_aggregation", "last")
	v.SetDefault("map.choropleth_bins", 6)
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 30)
	v.SetDefault("server.shutdown_timeout_secs", 10)
	v.SetDefault("server.rate_limit_rps", 20.0)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.page_cache_size", 256)
	v.SetDefault("server.page_cache_ttl_secs", 600)
	v.SetDefault("fetch.csv_url", "")
	v.SetDefault("fetch.geojson_url", "https://raw.githubusercontent.com/gregoiredavid/france-geojson/master/departements.geojson")
	v.SetDefault("fetch.user_agent", "crimemap/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings required by a command. Modes: serve, check,
// export, fetch.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		problems = append(problems, c.validateData()...)
		problems = append(problems, c.validateMap()...)
		problems = append(problems, c.validateServer()...)
	case "check", "export":
		problems = append(problems, c.validateData()...)
		problems = append(problems, c.validateMap()...)
	case "fetch":
		problems = append(problems, c.validateFetch()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateData() []string {
	var problems []string
	if c.Data.CSVPath == "" {
		problems = append(problems, "data.csv_path is required")
	}
	if c.Data.GeoJSONPath == "" && c.Data.ShapefilePath == "" {
		problems = append(problems, "data.geojson_path or data.shapefile_path is required")
	}
	if c.Data.Delimiter != "" && c.Data.Delimiter != `\t` && utf8.RuneCountInString(c.Data.Delimiter) != 1 {
		problems = append(problems, fmt.Sprintf("data.delimiter must be a single character, got %q", c.Data.Delimiter))
	}
	if c.Data.ShapefilePath != "" {
		switch c.Data.ShapefileCRS {
		case "", "wgs84", "lambert93":
		default:
			problems = append(problems, fmt.Sprintf("data.shapefile_crs must be wgs84 or lambert93, got %q", c.Data.ShapefileCRS))
		}
	}
	return problems
}

func (c *Config) validateMap() []string {
	var problems []string
	if c.Map.ZoomStart < 0 || c.Map.ZoomStart > 18 {
		problems = append(problems, "map.zoom_start must be between 0 and 18")
	}
	if c.Map.MarkerRadius < 0 {
		problems = append(problems, "map.marker_radius must be >= 0")
	}
	if c.Map.ChoroplethBins != 0 && (c.Map.ChoroplethBins < 3 || c.Map.ChoroplethBins > 9) {
		problems = append(problems, "map.choropleth_bins must be between 3 and 9")
	}
	switch c.Map.ChoroplethAggregation {
	case "", "last", "mean", "max":
	default:
		problems = append(problems, fmt.Sprintf("map.choropleth_aggregation must be last, mean or max, got %q", c.Map.ChoroplethAggregation))
	}
	return problems
}

func (c *Config) validateServer() []string {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be > 0 and <= 65535")
	}
	if c.Server.RateLimitRPS < 0 {
		problems = append(problems, "server.rate_limit_rps must be >= 0")
	}
	if c.Server.PageCacheSize < 0 {
		problems = append(problems, "server.page_cache_size must be >= 0")
	}
	return problems
}

func (c *Config) validateFetch() []string {
	var problems []string
	if c.Fetch.CSVURL == "" && c.Fetch.GeoJSONURL == "" {
		problems = append(problems, "fetch.csv_url or fetch.geojson_url is required")
	}
	if c.Fetch.MaxRetries < 0 {
		problems = append(problems, "fetch.max_retries must be >= 0")
	}
	return problems
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

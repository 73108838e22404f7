package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/mapcanvas/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Map       MapConfig       `mapstructure:"map"`
	Base      BaseConfig      `mapstructure:"base"`
	Authoring AuthoringConfig `mapstructure:"authoring"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	BodyLimit      int    `mapstructure:"body_limit"`
	AllowOrigins   string `mapstructure:"allow_origins"`
	AssetsDir      string `mapstructure:"assets_dir"`
}

// MapConfig describes the tiled raster and the view constraints.
type MapConfig struct {
	TileWidth   int          `mapstructure:"tile_width"`
	TileHeight  int          `mapstructure:"tile_height"`
	Rows        int          `mapstructure:"rows"`
	Cols        int          `mapstructure:"cols"`
	MinZoom     int          `mapstructure:"min_zoom"`
	MaxZoom     int          `mapstructure:"max_zoom"`
	Zoom        int          `mapstructure:"zoom"`
	CenterX     float64      `mapstructure:"center_x"`
	CenterY     float64      `mapstructure:"center_y"`
	Bounds      BoundsConfig `mapstructure:"bounds"`
	URLTemplate string       `mapstructure:"url_template"`
	Icon        IconConfig   `mapstructure:"icon"`
	DrawIcon    IconConfig   `mapstructure:"draw_icon"`
}

type BoundsConfig struct {
	SouthWestX float64 `mapstructure:"south_west_x"`
	SouthWestY float64 `mapstructure:"south_west_y"`
	NorthEastX float64 `mapstructure:"north_east_x"`
	NorthEastY float64 `mapstructure:"north_east_y"`
}

func (b BoundsConfig) GeoBounds() domain.GeoBounds {
	return domain.GeoBounds{
		SouthWest: domain.Coordinate{X: b.SouthWestX, Y: b.SouthWestY},
		NorthEast: domain.Coordinate{X: b.NorthEastX, Y: b.NorthEastY},
	}
}

type IconConfig struct {
	URL       string `mapstructure:"url"`
	RetinaURL string `mapstructure:"retina_url"`
	ShadowURL string `mapstructure:"shadow_url"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	AnchorX   int    `mapstructure:"anchor_x"`
	AnchorY   int    `mapstructure:"anchor_y"`
}

func (i IconConfig) Options() domain.IconOptions {
	return domain.IconOptions{
		IconURL:       i.URL,
		IconRetinaURL: i.RetinaURL,
		ShadowURL:     i.ShadowURL,
		Size:          [2]int{i.Width, i.Height},
		Anchor:        [2]int{i.AnchorX, i.AnchorY},
	}
}

// BaseConfig selects where the read-only base collection comes from.
type BaseConfig struct {
	Source       string `mapstructure:"source"`
	Path         string `mapstructure:"path"`
	CacheTTL     int    `mapstructure:"cache_ttl"`
	CacheEnabled bool   `mapstructure:"cache_enabled"`
}

// AuthoringConfig carries the edit flag exactly as it was configured.
// Edit keeps its raw type: a YAML boolean stays a bool and never authorizes.
type AuthoringConfig struct {
	Edit any `mapstructure:"edit"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := newViper(service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	return decode(v)
}

// LoadFile reads configuration from an explicit file plus the environment.
// A missing or unreadable file is an error.
func LoadFile(service, path string) (*Config, error) {
	v := newViper(service)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper(service string) *viper.Viper {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 5)
	v.SetDefault("server.body_limit", 4*1024*1024)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("server.assets_dir", "./assets")

	v.SetDefault("map.tile_width", 588)
	v.SetDefault("map.tile_height", 600)
	v.SetDefault("map.rows", 5)
	v.SetDefault("map.cols", 4)
	v.SetDefault("map.min_zoom", 1)
	v.SetDefault("map.max_zoom", 4)
	v.SetDefault("map.zoom", 1)
	v.SetDefault("map.center_x", 223.5)
	v.SetDefault("map.center_y", -298)
	v.SetDefault("map.bounds.south_west_x", 73.6875)
	v.SetDefault("map.bounds.south_west_y", -449.875)
	v.SetDefault("map.bounds.north_east_x", 368)
	v.SetDefault("map.bounds.north_east_y", -69.5)
	v.SetDefault("map.url_template", "/assets/map/row-{row}-col-{col}.png")
	v.SetDefault("map.icon.url", "/assets/icons/quest.png")
	v.SetDefault("map.icon.retina_url", "/assets/icons/quest.png")
	v.SetDefault("map.icon.shadow_url", "")
	v.SetDefault("map.icon.width", 32)
	v.SetDefault("map.icon.height", 32)
	v.SetDefault("map.icon.anchor_x", 16)
	v.SetDefault("map.icon.anchor_y", 24)
	v.SetDefault("map.draw_icon.url", "/assets/icons/quest.png")
	v.SetDefault("map.draw_icon.shadow_url", "")
	v.SetDefault("map.draw_icon.width", 32)
	v.SetDefault("map.draw_icon.height", 32)
	v.SetDefault("map.draw_icon.anchor_x", 16)
	v.SetDefault("map.draw_icon.anchor_y", 16)

	v.SetDefault("base.source", "file")
	v.SetDefault("base.path", "./assets/mapdata.json")
	v.SetDefault("base.cache_ttl", 300)
	v.SetDefault("base.cache_enabled", false)

	v.SetDefault("authoring.edit", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mapcanvas")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "mapcanvas")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")

	// Environment variables: MAPCANVAS_AUTHORING_EDIT → authoring.edit
	v.SetEnvPrefix("MAPCANVAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Unmarshal may coerce; keep whatever type the source produced.
	cfg.Authoring.Edit = v.Get("authoring.edit")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}

	if c.Map.TileWidth <= 0 || c.Map.TileHeight <= 0 {
		errs = append(errs, fmt.Sprintf("map tile size must be positive, got %dx%d", c.Map.TileWidth, c.Map.TileHeight))
	}
	if c.Map.Rows < 1 || c.Map.Cols < 1 {
		errs = append(errs, fmt.Sprintf("map grid must be at least 1x1, got %dx%d", c.Map.Rows, c.Map.Cols))
	}
	if c.Map.MaxZoom < 1 {
		errs = append(errs, fmt.Sprintf("map.max_zoom must be at least 1, got %d", c.Map.MaxZoom))
	}
	if c.Map.MinZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.min_zoom %d exceeds map.max_zoom %d", c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.URLTemplate == "" {
		errs = append(errs, "map.url_template is required")
	}
	if c.Map.Icon.URL == "" {
		errs = append(errs, "map.icon.url is required")
	}

	switch c.Base.Source {
	case "file":
		if c.Base.Path == "" {
			errs = append(errs, "base.path is required for base.source=file")
		}
	case "postgres":
		if !c.Database.Enabled {
			errs = append(errs, "base.source=postgres requires database.enabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("base.source must be file or postgres, got %q", c.Base.Source))
	}
	if c.Base.CacheEnabled && !c.Valkey.Enabled {
		errs = append(errs, "base.cache_enabled requires valkey.enabled")
	}

	if c.Database.Enabled {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

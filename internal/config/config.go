package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Library    LibraryConfig    `mapstructure:"library"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
	Thumbnails ThumbnailsConfig `mapstructure:"thumbnails"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// LibraryConfig holds the media library layout configuration.
type LibraryConfig struct {
	// Root is the library root containing the Shows and Movies subdirectories.
	Root string `mapstructure:"root"`
}

// MetadataConfig holds metadata catalog configuration.
type MetadataConfig struct {
	TMDB TMDBConfig `mapstructure:"tmdb"`
	TVDB TVDBConfig `mapstructure:"tvdb"`
}

// TMDBConfig holds TMDB API configuration.
type TMDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"` // seconds
}

// TVDBConfig holds TVDB API configuration.
type TVDBConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageBaseURL string `mapstructure:"image_base_url"`
	Timeout      int    `mapstructure:"timeout"` // seconds
}

// ThumbnailsConfig holds local thumbnail generation configuration.
type ThumbnailsConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8585,
		},
		Database: DatabaseConfig{
			Path: "./data/reelvault.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metadata: MetadataConfig{
			TMDB: TMDBConfig{
				APIKey:       EmbeddedTMDBKey,
				BaseURL:      "https://api.themoviedb.org/3",
				ImageBaseURL: "https://image.tmdb.org/t/p",
				Timeout:      30,
			},
			TVDB: TVDBConfig{
				APIKey:       EmbeddedTVDBKey,
				BaseURL:      "https://api4.thetvdb.com/v4",
				ImageBaseURL: "https://artworks.thetvdb.com",
				Timeout:      30,
			},
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelvault")
	}

	v.SetEnvPrefix("REELVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8585)

	v.SetDefault("database.path", "./data/reelvault.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("library.root", "")

	v.SetDefault("metadata.tmdb.api_key", EmbeddedTMDBKey)
	v.SetDefault("metadata.tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("metadata.tmdb.image_base_url", "https://image.tmdb.org/t/p")
	v.SetDefault("metadata.tmdb.timeout", 30)

	v.SetDefault("metadata.tvdb.api_key", EmbeddedTVDBKey)
	v.SetDefault("metadata.tvdb.base_url", "https://api4.thetvdb.com/v4")
	v.SetDefault("metadata.tvdb.image_base_url", "https://artworks.thetvdb.com")
	v.SetDefault("metadata.tvdb.timeout", 30)

	v.SetDefault("thumbnails.ffmpeg_path", "")
	v.SetDefault("thumbnails.ffprobe_path", "")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort        = 8080
	defaultServerHost        = "0.0.0.0"
	defaultReadTimeout       = 30 * time.Second
	defaultWriteTimeout      = 0 // streams are open-ended
	defaultLogLevel          = "info"
	defaultLogPretty         = false
	defaultDatabaseEnabled   = true
	defaultDatabasePath      = "./data/epgcast.db"
	defaultMigrationsPath    = "file://./migrations"
	defaultGuideTimeout      = 30 * time.Second
	defaultGuideMaxBytes     = 50 * 1024 * 1024
	defaultSearchIndexer     = "all"
	defaultSearchTimeout     = 30 * time.Second
	defaultSearchRateLimit   = 5.0
	defaultPreferredLanguage = "hun"
	defaultProviderTimeout   = 30 * time.Second
	defaultBreakerThreshold  = 5
	defaultBreakerReset      = time.Minute
	defaultFFmpegPath        = "ffmpeg"
	defaultChunkSize         = 4096
	defaultFillerWidth       = 1280
	defaultFillerHeight      = 720
	defaultFillerFrameRate   = 25
	defaultFillerSampleRate  = 44100
	defaultFillerLayout      = "stereo"
	defaultFillerPreset      = "ultrafast"
	defaultFillerVideoCodec  = "libx264"
	defaultFillerAudioCodec  = "aac"
	defaultMetricsEnabled    = true
	defaultMetricsPath       = "/metrics"
	envPrefix                = "EPGCAST"
)

// ErrMissingSetting is returned by ValidateForServe when a collaborator endpoint is not configured
var ErrMissingSetting = errors.New("missing required setting")

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Guide     GuideConfig
	Search    SearchConfig
	Provider  ProviderConfig
	Breaker   BreakerConfig
	Streaming StreamingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// DatabaseConfig holds session history database configuration
type DatabaseConfig struct {
	Enabled        bool
	Path           string
	MigrationsPath string
}

// GuideConfig describes where the XMLTV guide is fetched from
type GuideConfig struct {
	URL      string
	Timeout  time.Duration
	DumpPath string
	MaxBytes int64
}

// SearchConfig configures the Torznab search index (Jackett)
type SearchConfig struct {
	Host              string
	APIKey            string
	Indexer           string
	Timeout           time.Duration
	RateLimit         float64
	PreferredLanguage string
}

// ProviderConfig configures the content-access service that lists files for a reference
type ProviderConfig struct {
	URL             string
	Timeout         time.Duration
	MediaExtensions []string
	ExcludeTokens   []string
}

// BreakerConfig configures the circuit breakers in front of the search index
// and the provider. A zero threshold disables them.
type BreakerConfig struct {
	Threshold    int
	ResetTimeout time.Duration
}

// StreamingConfig configures the ffmpeg invocations
type StreamingConfig struct {
	FFmpegPath string
	ChunkSize  int
	Filler     FillerConfig
}

// FillerConfig describes the synthetic gap filler
type FillerConfig struct {
	Width         int
	Height        int
	FrameRate     int
	SampleRate    int
	ChannelLayout string
	Preset        string
	VideoCodec    string
	AudioCodec    string
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file when path is not empty
func LoadFile(path string) (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/epgcast")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	v.SetDefault("database.enabled", defaultDatabaseEnabled)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	v.SetDefault("guide.url", "")
	v.SetDefault("guide.timeout", defaultGuideTimeout)
	v.SetDefault("guide.dumppath", "")
	v.SetDefault("guide.maxbytes", defaultGuideMaxBytes)

	v.SetDefault("search.host", "")
	v.SetDefault("search.apikey", "")
	v.SetDefault("search.indexer", defaultSearchIndexer)
	v.SetDefault("search.timeout", defaultSearchTimeout)
	v.SetDefault("search.ratelimit", defaultSearchRateLimit)
	v.SetDefault("search.preferredlanguage", defaultPreferredLanguage)

	v.SetDefault("provider.url", "")
	v.SetDefault("provider.timeout", defaultProviderTimeout)
	v.SetDefault("provider.mediaextensions", []string{".mp4", ".mkv", ".avi"})
	v.SetDefault("provider.excludetokens", []string{"sample", "trailer"})

	v.SetDefault("breaker.threshold", defaultBreakerThreshold)
	v.SetDefault("breaker.resettimeout", defaultBreakerReset)

	v.SetDefault("streaming.ffmpegpath", defaultFFmpegPath)
	v.SetDefault("streaming.chunksize", defaultChunkSize)
	v.SetDefault("streaming.filler.width", defaultFillerWidth)
	v.SetDefault("streaming.filler.height", defaultFillerHeight)
	v.SetDefault("streaming.filler.framerate", defaultFillerFrameRate)
	v.SetDefault("streaming.filler.samplerate", defaultFillerSampleRate)
	v.SetDefault("streaming.filler.channellayout", defaultFillerLayout)
	v.SetDefault("streaming.filler.preset", defaultFillerPreset)
	v.SetDefault("streaming.filler.videocodec", defaultFillerVideoCodec)
	v.SetDefault("streaming.filler.audiocodec", defaultFillerAudioCodec)

	v.SetDefault("metrics.enabled", defaultMetricsEnabled)
	v.SetDefault("metrics.path", defaultMetricsPath)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	// Zero disables the write deadline, which long-lived channel streams need
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("invalid write timeout: %v (must be >= 0)", c.Server.WriteTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Guide.Timeout <= 0 || c.Search.Timeout <= 0 || c.Provider.Timeout <= 0 {
		return fmt.Errorf("invalid upstream timeout (guide=%v search=%v provider=%v, all must be > 0)",
			c.Guide.Timeout, c.Search.Timeout, c.Provider.Timeout)
	}
	if c.Guide.MaxBytes <= 0 {
		return fmt.Errorf("invalid guide max bytes: %d (must be > 0)", c.Guide.MaxBytes)
	}
	if c.Search.RateLimit < 0 {
		return fmt.Errorf("invalid search rate limit: %v (must be >= 0)", c.Search.RateLimit)
	}

	if c.Breaker.Threshold < 0 {
		return fmt.Errorf("invalid breaker threshold: %d (must be >= 0)", c.Breaker.Threshold)
	}
	if c.Breaker.Threshold > 0 && c.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("invalid breaker reset timeout: %v (must be > 0)", c.Breaker.ResetTimeout)
	}

	if c.Streaming.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d (must be > 0)", c.Streaming.ChunkSize)
	}
	f := c.Streaming.Filler
	if f.Width <= 0 || f.Height <= 0 || f.FrameRate <= 0 || f.SampleRate <= 0 {
		return fmt.Errorf("invalid filler settings: %dx%d@%d, %dHz (all must be > 0)",
			f.Width, f.Height, f.FrameRate, f.SampleRate)
	}

	return nil
}

// ValidateForServe checks the settings that only the HTTP service needs:
// the guide, search index and provider endpoints.
func (c *Config) ValidateForServe() error {
	required := map[string]string{
		"guide.url":    c.Guide.URL,
		"search.host":  c.Search.Host,
		"provider.url": c.Provider.URL,
	}
	for _, key := range []string{"guide.url", "search.host", "provider.url"} {
		if strings.TrimSpace(required[key]) == "" {
			return fmt.Errorf("%w: %s is required", ErrMissingSetting, key)
		}
	}
	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

package config

import (
	"github.com/stwalsh4118/epgcast/internal/guide"
	"github.com/stwalsh4118/epgcast/internal/resolver"
	"github.com/stwalsh4118/epgcast/internal/streaming"
)

// FetcherConfig returns the guide fetcher settings
func (c *Config) FetcherConfig() guide.FetcherConfig {
	return guide.FetcherConfig{
		URL:      c.Guide.URL,
		Timeout:  c.Guide.Timeout,
		DumpPath: c.Guide.DumpPath,
		MaxBytes: c.Guide.MaxBytes,
	}
}

// SearchConfig returns the search stage settings
func (c *Config) SearchConfig() resolver.SearchConfig {
	return resolver.SearchConfig{
		Host:      c.Search.Host,
		APIKey:    c.Search.APIKey,
		Indexer:   c.Search.Indexer,
		Timeout:   c.Search.Timeout,
		RateLimit: c.Search.RateLimit,
	}
}

// ProviderConfig returns the materialize stage settings
func (c *Config) ProviderConfig() resolver.ProviderConfig {
	return resolver.ProviderConfig{
		URL:     c.Provider.URL,
		Timeout: c.Provider.Timeout,
	}
}

// ResolverConfig returns the candidate and file selection policy
func (c *Config) ResolverConfig() resolver.Config {
	return resolver.Config{
		PreferredLanguage: c.Search.PreferredLanguage,
		MediaExtensions:   append([]string(nil), c.Provider.MediaExtensions...),
		ExcludeTokens:     append([]string(nil), c.Provider.ExcludeTokens...),
	}
}

// BreakerConfig returns the upstream circuit breaker settings
func (c *Config) BreakerConfig() resolver.BreakerConfig {
	return resolver.BreakerConfig{
		Threshold:    c.Breaker.Threshold,
		ResetTimeout: c.Breaker.ResetTimeout,
	}
}

// UpstreamChain builds the resolver chain against the configured search index and provider
func (c *Config) UpstreamChain() *resolver.Chain {
	return resolver.NewUpstreamChain(c.ResolverConfig(), c.SearchConfig(), c.ProviderConfig(), c.BreakerConfig())
}

// StreamingConfig returns the process and filler settings
func (c *Config) StreamingConfig() streaming.Config {
	f := c.Streaming.Filler
	return streaming.Config{
		FFmpegPath: c.Streaming.FFmpegPath,
		ChunkSize:  c.Streaming.ChunkSize,
		Filler: streaming.FillerConfig{
			Width:         f.Width,
			Height:        f.Height,
			FrameRate:     f.FrameRate,
			SampleRate:    f.SampleRate,
			ChannelLayout: f.ChannelLayout,
			Preset:        f.Preset,
			VideoCodec:    f.VideoCodec,
			AudioCodec:    f.AudioCodec,
		},
	}
}

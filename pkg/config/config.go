// Package config loads application configuration from file and environment
// through viper, plus world scenario definitions from a YAML file.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Generation configuration
	Generation GenerationConfig `mapstructure:"generation"`

	// NLP configuration
	NLP NLPConfig `mapstructure:"nlp"`

	// Output configuration
	Output OutputConfig `mapstructure:"output"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache"`

	// Neo4j export configuration
	Neo4j Neo4jConfig `mapstructure:"neo4j"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// GenerationConfig holds the knobs for one generation run
type GenerationConfig struct {
	// People and Entities are stub counts per graph.
	People   int `mapstructure:"people"`
	Entities int `mapstructure:"entities"`
	// FocalNodes is the number of person nodes processed per graph.
	FocalNodes int `mapstructure:"focal_nodes"`
	// QueriesPerHop requests this many queries per hop distance.
	QueriesPerHop int `mapstructure:"queries_per_hop"`
	// UpdatesPerNode is the number of update scenarios per focal node.
	UpdatesPerNode int `mapstructure:"updates_per_node"`
	// Radius is the neighborhood radius for rendering.
	Radius int `mapstructure:"radius"`
	// Seed makes sampling reproducible; 0 derives one from the clock.
	Seed int64 `mapstructure:"seed"`
	// Workers bounds the focal-node worker pool.
	Workers int `mapstructure:"workers"`
	// Phrase enables natural-language phrasing through the nlp client.
	Phrase bool `mapstructure:"phrase"`
	// FocalTimeoutSeconds bounds the pass over one focal node; 0 disables.
	FocalTimeoutSeconds int `mapstructure:"focal_timeout_seconds"`
}

// NLPConfig holds text generation client configuration
type NLPConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, none
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	MaxRetries  int     `mapstructure:"max_retries"`
	// TokenUsageDir enables parquet token usage tracking when set.
	TokenUsageDir string `mapstructure:"token_usage_dir"`
}

// OutputConfig holds output layout configuration
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// CacheConfig holds generation cache configuration
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	// TTLHours expires cached generations; 0 keeps them forever.
	TTLHours int `mapstructure:"ttl_hours"`
}

// Neo4jConfig holds the optional graph export target
type Neo4jConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("generation.people", 5)
	viper.SetDefault("generation.entities", 5)
	viper.SetDefault("generation.focal_nodes", 3)
	viper.SetDefault("generation.queries_per_hop", 10)
	viper.SetDefault("generation.updates_per_node", 3)
	viper.SetDefault("generation.radius", 2)
	viper.SetDefault("generation.workers", 4)
	viper.SetDefault("generation.phrase", true)

	viper.SetDefault("nlp.provider", "openai")
	viper.SetDefault("nlp.model", "gpt-4o")
	viper.SetDefault("nlp.temperature", 1.0)
	viper.SetDefault("nlp.max_tokens", 1500)
	viper.SetDefault("nlp.max_retries", 3)

	viper.SetDefault("output.base_dir", "instances")

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.dir", ".synthmem-cache")

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.NLP.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.NLP.BaseURL = baseURL
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Neo4j.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Neo4j.Password = pass
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if dir := os.Getenv("SYNTHMEM_OUTPUT_DIR"); dir != "" {
		config.Output.BaseDir = dir
	}
	if dir := os.Getenv("SYNTHMEM_CACHE_DIR"); dir != "" {
		config.Cache.Dir = dir
	}
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the configuration settings for the prediction client.
// It includes the environment, server port, the estimation service endpoint,
// rate limiting, the reverse geocoder selection, and the identity provider.
//
// Fields:
// - Env: The current environment (e.g., local, dev, prod).
// - Port: The port for the client's HTTP facade and monitoring server.
// - ServiceURL: The base URL of the external estimation service.
// - RequestTimeout: The network-layer timeout for estimation requests.
// - RateLimit: The request rate cap towards the estimation service.
// - ResolverType: Which reverse geocoder labels selected points (google, nominatim).
// - ResolverKey: The API key for the reverse geocoder (required for Google).
// - Supabase: Identity provider settings; submission auth is off when URL is empty.
type Config struct {
	Env            string         `yaml:"env"`             // Env is the current environment: local, dev, prod.
	Port           int            `yaml:"port"`            // Port is the HTTP facade and monitoring port.
	ServiceURL     string         `yaml:"service_url"`     // Base URL of the estimation service.
	RequestTimeout time.Duration  `yaml:"request_timeout"` // Timeout applied by the HTTP client.
	RateLimit      int            `yaml:"rate_limit"`      // Estimation service requests per second.
	ResolverType   string         `yaml:"resolver.type"`   // ResolverType specifies which reverse geocoder to use.
	ResolverKey    string         `yaml:"resolver.key"`    // The API key for the reverse geocoder.
	Supabase       SupabaseConfig `yaml:"supabase"`        // Supabase holds the identity provider configuration.
}

// SupabaseConfig struct holds the connection details for the identity provider.
type SupabaseConfig struct {
	URL     string `yaml:"url"`      // URL is the Supabase project base URL.
	AnonKey string `yaml:"anon_key"` // AnonKey is the public anon key.
}

// MustLoad loads the configuration from the environment and returns a Config struct.
func MustLoad() *Config {
	_ = godotenv.Load()

	port, err := strconv.Atoi(setDefaultEnv("HERMES_PORT", "8080"))
	if err != nil {
		panic("failed to parse port from configuration")
	}

	timeout, err := time.ParseDuration(setDefaultEnv("HERMES_REQUEST_TIMEOUT", "30s"))
	if err != nil {
		panic("failed to parse request timeout from configuration")
	}

	rateLimit, err := strconv.Atoi(setDefaultEnv("HERMES_RATE_LIMIT", "5"))
	if err != nil {
		panic("failed to parse rate limit from configuration, must be an integer")
	}

	return &Config{
		Env:            setDefaultEnv("HERMES_ENV", "production"),
		Port:           port,
		ServiceURL:     setDefaultEnv("HERMES_SERVICE_URL", "http://localhost:8000"),
		RequestTimeout: timeout,
		RateLimit:      rateLimit,
		ResolverType:   setDefaultEnv("HERMES_RESOLVER_TYPE", "nominatim"),
		ResolverKey:    os.Getenv("HERMES_RESOLVER_KEY"),
		Supabase: SupabaseConfig{
			URL:     os.Getenv("SUPABASE_URL"),
			AnonKey: os.Getenv("SUPABASE_ANON_KEY"),
		},
	}
}

func setDefaultEnv(key, override string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = override
	}

	return value
}

package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultLimit is the per-client request budget per window for endpoints
// without their own entry.
const DefaultLimit = 600

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from RATE_LIMIT_* environment
// variables. Unparseable values fall back to their defaults.
func LoadConfig() *Config {
	if !envOr("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envOr("RATE_LIMIT_DEFAULT_LIMIT", DefaultLimit, strconv.Atoi),
		DefaultWindow:   envOr("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envOr("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		IdleTimeout:     envOr("RATE_LIMIT_IDLE_TIMEOUT", time.Hour, time.ParseDuration),
		Whitelist:       clientSet(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       clientSet(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: withQueryLimit(DefaultEndpointConfigs(), envOr("RATE_LIMIT_QUERY_LIMIT", 0, strconv.Atoi)),
	}
}

// withQueryLimit overrides the /query limit when n is positive.
func withQueryLimit(configs []EndpointConfig, n int) []EndpointConfig {
	if n <= 0 {
		return configs
	}
	for i := range configs {
		if configs[i].Path == "/query" {
			configs[i].Limit = n
			configs[i].Burst = min(configs[i].Burst, n)
		}
	}
	return configs
}

// DefaultEndpointConfigs returns the per-endpoint limits. Interpreting a
// query may call the language model, so /query is the strictest.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/query", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/view", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/compare", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/subjects", Method: "GET", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

func envOr[T any](key string, fallback T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

// clientSet splits a comma-separated list of client ids (IPs or forwarded
// addresses) into a lookup set.
func clientSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

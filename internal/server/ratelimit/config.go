package ratelimit

import (
	"math"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (a trailing "/" matches by prefix)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// FromSettings builds a limiter configuration from the server settings.
// ratePerSecond <= 0 disables limiting; whitelist holds client IPs that are
// never limited.
func FromSettings(ratePerSecond float64, burst int, whitelist []string) *Config {
	if ratePerSecond <= 0 {
		return &Config{Enabled: false}
	}
	perMinute := int(math.Round(ratePerSecond * 60))
	if perMinute < 1 {
		perMinute = 1
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    perMinute,
		DefaultWindow:   time.Minute,
		DefaultBurst:    burst,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       parseIPList(strings.Join(whitelist, ",")),
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits. Calls that reach
// the generation backend or the social API are the strictest.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Backend generation
		{Path: "/api/v1/generate", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/v1/generate/", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/v1/draft/", Method: "POST", Limit: 60, Window: time.Hour, Burst: 5},
		{Path: "/api/v1/audit", Method: "POST", Limit: 120, Window: time.Hour, Burst: 10},

		// Social publishing
		{Path: "/api/v1/publish", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},
		{Path: "/api/v1/publish/", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2},

		// Password login
		{Path: "/api/v1/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}

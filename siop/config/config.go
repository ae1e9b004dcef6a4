package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values
const (
	DefaultResolverURL       = "https://dev.uniresolver.io/1.0/identifiers"
	DefaultResolverTimeout   = 10 * time.Second
	DefaultResolverCacheSize = 128
	DefaultResponseExpiresIn = int64(1000)
	DefaultLogFormat         = "text"
)

// Environment variable names
const (
	EnvResolverURL       = "SIOP_RESOLVER_URL"
	EnvResolverTimeout   = "SIOP_RESOLVER_TIMEOUT"
	EnvResolverCacheSize = "SIOP_RESOLVER_CACHE_SIZE"
	EnvResponseExpiresIn = "SIOP_RESPONSE_EXPIRES_IN"
	EnvLogLevel          = "SIOP_LOG_LEVEL"
	EnvLogFormat         = "SIOP_LOG_FORMAT"
)

// ResolverURL returns the universal resolver base URL from environment variable or default value
func ResolverURL() string {
	if u := os.Getenv(EnvResolverURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	return DefaultResolverURL
}

// ResolverTimeout accepts a Go duration ("5s") or a number of seconds.
func ResolverTimeout() time.Duration {
	if v := os.Getenv(EnvResolverTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return DefaultResolverTimeout
}

// ResolverCacheSize returns the LRU size of the caching resolver.
func ResolverCacheSize() int {
	if v := os.Getenv(EnvResolverCacheSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultResolverCacheSize
}

// ResponseExpiresIn returns the id_token lifetime in seconds.
func ResponseExpiresIn() int64 {
	if v := os.Getenv(EnvResponseExpiresIn); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return DefaultResponseExpiresIn
}

// LogLevel parses SIOP_LOG_LEVEL (debug, info, warn, error). Info by default.
func LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(EnvLogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LogFormat returns "text" or "json".
func LogFormat() string {
	if strings.EqualFold(os.Getenv(EnvLogFormat), "json") {
		return "json"
	}
	return DefaultLogFormat
}

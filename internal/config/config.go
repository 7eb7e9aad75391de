// Package config reads the flat set of TORC_* environment variables every
// binary needs, following gateway_v2.go's getEnv(key, def) idiom rather than
// a struct-tag config library — the teacher never reaches for one, and a
// handful of env vars doesn't justify importing one just for this.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the flat, environment-sourced process configuration.
type Config struct {
	DBPath        string
	ListenAddr    string
	HtpasswdFile  string
	SweepInterval time.Duration
	ClaimWait     time.Duration
	JSONLog       bool
	LogLevel      string
	OTLPEndpoint  string
	NATSURL       string
}

// Load reads Config from the environment, defaulting every unset variable.
func Load() Config {
	return Config{
		DBPath:        getEnv("TORC_DB_PATH", "torc.db"),
		ListenAddr:    getEnv("TORC_LISTEN_ADDR", ":8080"),
		HtpasswdFile:  getEnv("TORC_HTPASSWD_FILE", ""),
		SweepInterval: getDuration("TORC_SWEEP_INTERVAL", 60*time.Second),
		ClaimWait:     getDuration("TORC_CLAIM_WAIT", 10*time.Second),
		JSONLog:       getBool("TORC_JSON_LOG", false),
		LogLevel:      getEnv("TORC_LOG_LEVEL", "info"),
		OTLPEndpoint:  getEnv("TORC_OTLP_ENDPOINT", "localhost:4317"),
		NATSURL:       getEnv("TORC_NATS_URL", ""),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Feed points one source adapter at either an HTTP URL or a local snapshot
// file. Exactly one of the two must be set.
type Feed struct {
	URL  string
	File string
}

func (f Feed) validate(name string) error {
	if f.URL == "" && f.File == "" {
		return fmt.Errorf("%s_URL or %s_FILE is required", name, name)
	}
	if f.URL != "" && f.File != "" {
		return fmt.Errorf("%s_URL and %s_FILE are mutually exclusive", name, name)
	}
	return nil
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	Population Feed
	Boundary   Feed
	Cases      Feed

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	FetchTimeout time.Duration
	FetchRetries int

	// CompositeSumCounts selects whether the derived city region sums its
	// constituents' count series or relies on the feed's aggregate rows.
	CompositeSumCounts bool

	// CacheTTL bounds how long a per-formula evaluation result is reused.
	CacheTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := envDuration("FETCH_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	fetchRetries, err := envInt("FETCH_RETRIES", 0)
	if err != nil {
		return nil, err
	}
	if fetchRetries < 0 {
		return nil, errors.New("FETCH_RETRIES must not be negative")
	}

	cfg := &Config{
		Population: Feed{
			URL:  envOrDefaultWhen(os.Getenv("POPULATION_FILE") == "", "POPULATION_URL", "https://www2.census.gov/programs-surveys/popest/datasets/2010-2019/counties/totals/co-est2019-alldata.csv"),
			File: os.Getenv("POPULATION_FILE"),
		},
		Boundary: Feed{
			URL:  os.Getenv("BOUNDARY_URL"),
			File: os.Getenv("BOUNDARY_FILE"),
		},
		Cases: Feed{
			URL:  envOrDefaultWhen(os.Getenv("CASES_FILE") == "", "CASES_URL", "https://raw.githubusercontent.com/nytimes/covid-19-data/master/us-counties.csv"),
			File: os.Getenv("CASES_FILE"),
		},

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		FetchTimeout:    fetchTimeout,
		FetchRetries:    fetchRetries,

		CompositeSumCounts: envOrDefault("COMPOSITE_SUM_COUNTS", "true") == "true",
		CacheTTL:           cacheTTL,
	}

	if err := cfg.Population.validate("POPULATION"); err != nil {
		return nil, err
	}
	if err := cfg.Boundary.validate("BOUNDARY"); err != nil {
		return nil, err
	}
	if err := cfg.Cases.validate("CASES"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrDefaultWhen applies the fallback only while cond holds, so a FILE
// setting suppresses the default URL for the same feed.
func envOrDefaultWhen(cond bool, key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if !cond {
		return ""
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

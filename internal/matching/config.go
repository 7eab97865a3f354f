package matching

import (
	"os"
	"strconv"
	"time"
)

// Config holds the matching tunables. Defaults match production behavior;
// all values can be overridden from the environment.
type Config struct {
	// DiscoveryRadiusKm is how far from the pickup point we consider drivers.
	DiscoveryRadiusKm float64
	// FreshnessWindow is the maximum age of a location sample that still
	// counts as evidence of current availability.
	FreshnessWindow time.Duration
	// StalenessCutoff is the sample age beyond which the flat staleness
	// penalty applies during scoring.
	StalenessCutoff time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DiscoveryRadiusKm: 10,
		FreshnessWindow:   10 * time.Minute,
		StalenessCutoff:   5 * time.Minute,
	}
}

// LoadConfig reads the matching tunables from the environment, falling back
// to defaults for anything unset or unparsable.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("MATCHING_RADIUS_KM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.DiscoveryRadiusKm = f
		}
	}
	if v := os.Getenv("MATCHING_FRESHNESS_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FreshnessWindow = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("MATCHING_STALENESS_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.StalenessCutoff = time.Duration(n) * time.Minute
		}
	}

	return cfg
}

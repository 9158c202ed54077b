package audit

import (
	"os"
	"strconv"
	"time"
)

// Config controls audit retention behavior.
type Config struct {
	// HistoryRetentionMonths is how many months of order history to keep.
	HistoryRetentionMonths int
	// ActivityRetention is how long activity log rows are kept.
	ActivityRetention time.Duration
	// Interval is the pause between retention worker cycles.
	Interval time.Duration
	// Enabled controls whether the retention worker runs at all.
	Enabled bool
}

// DefaultConfig returns the default audit configuration: 3 months of history,
// 90 days of activity logs, one cleanup cycle per day.
func DefaultConfig() *Config {
	return &Config{
		HistoryRetentionMonths: DefaultHistoryRetentionMonths,
		ActivityRetention:      DefaultActivityRetention,
		Interval:               24 * time.Hour,
		Enabled:                true,
	}
}

// ConfigFromEnv loads config from environment variables:
// ORDERCORE_AUDIT_HISTORY_MONTHS, ORDERCORE_AUDIT_ACTIVITY_DAYS,
// ORDERCORE_AUDIT_ENABLED.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ORDERCORE_AUDIT_HISTORY_MONTHS"); v != "" {
		if months, err := strconv.Atoi(v); err == nil && months > 0 {
			cfg.HistoryRetentionMonths = months
		}
	}

	if v := os.Getenv("ORDERCORE_AUDIT_ACTIVITY_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.ActivityRetention = time.Duration(days) * 24 * time.Hour
		}
	}

	if v := os.Getenv("ORDERCORE_AUDIT_ENABLED"); v != "" {
		cfg.Enabled, _ = strconv.ParseBool(v)
	}

	return cfg
}

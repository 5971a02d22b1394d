package config

import (
	"os"
	"strings"
	"time"
)

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DedupWindow is the sliding window used by duplicate detection.
//
// Set via env:
// - DEDUP_WINDOW_MINUTES=60
func DedupWindow() time.Duration {
	m := IntFromEnv("DEDUP_WINDOW_MINUTES", 60)
	if m <= 0 {
		m = 60
	}
	return time.Duration(m) * time.Minute
}

// DedupMinLocationLength guards the loose location match; 0 disables the guard.
func DedupMinLocationLength() int {
	n := IntFromEnv("DEDUP_MIN_LOCATION_LENGTH", 3)
	if n < 0 {
		return 0
	}
	return n
}

// DedupLockEnabled serializes check-then-create per (category, severity) with a Redis lock.
//
// Set via env:
// - DEDUP_LOCK_ENABLED=true
func DedupLockEnabled() bool {
	return boolFromEnv("DEDUP_LOCK_ENABLED")
}

// ReportEventsEnabled writes report lifecycle events to the outbox for Pub/Sub delivery.
func ReportEventsEnabled() bool {
	return boolFromEnv("REPORT_EVENTS_ENABLED")
}

func RateLimitEnabled() bool {
	return boolFromEnv("RATE_LIMIT_ENABLED")
}

func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

func OutboxRetention() time.Duration {
	days := IntFromEnv("OUTBOX_RETENTION_DAYS", 7)
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func MaintenanceSchedule() string {
	if v := strings.TrimSpace(os.Getenv("MAINTENANCE_CRON")); v != "" {
		return v
	}
	return "@hourly"
}

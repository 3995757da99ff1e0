// Package models defines the report produced by one collection cycle.
// The structures are serialized to JSON for transmission to the hub.
package models

import "time"

// Database health states.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Report is a single point-in-time snapshot of the host. Every top-level
// block is always present; failed sub-metrics carry their degraded defaults.
type Report struct {
	Identity    string            `json:"identity"`
	System      System            `json:"system"`
	Workload    Workload          `json:"workload"`
	Database    Database          `json:"database"`
	Cache       Cache             `json:"cache"`
	Performance Performance       `json:"performance"`
	Security    Security          `json:"security"`
	Logs        map[string]int64  `json:"logs"`
	Sessions    Sessions          `json:"sessions"`
	Runtime     map[string]string `json:"runtime"`
	Meta        Meta              `json:"meta"`
}

// System holds host resource usage.
type System struct {
	Disk    float64   `json:"disk"`
	RAM     float64   `json:"ram"`
	CPU     float64   `json:"cpu"`
	Network NetworkIO `json:"network"`
	DiskIO  DiskIO    `json:"disk_io"`
	Uptime  uint64    `json:"uptime"`
}

// NetworkIO holds cumulative interface byte counters.
type NetworkIO struct {
	Rx uint64 `json:"rx"`
	Tx uint64 `json:"tx"`
}

// DiskIO holds instantaneous block device rates.
type DiskIO struct {
	Reads  float64 `json:"reads"`
	Writes float64 `json:"writes"`
}

// Workload holds background job counters.
type Workload struct {
	FailedJobs     int64 `json:"failed_jobs"`
	PendingJobs    int64 `json:"pending_jobs"`
	ProcessedToday int64 `json:"processed_today"`
}

// Database holds the round-trip health of the default connection.
// LockCount is nil when lock contention could not be determined.
type Database struct {
	Status    string  `json:"status"`
	LatencyMS float64 `json:"latency_ms"`
	LockCount *int64  `json:"lock_count"`
	Error     string  `json:"error,omitempty"`
}

// Cache holds statistics of the active cache backend.
type Cache struct {
	Driver string `json:"driver"`
	Size   int64  `json:"size"`
	Hits   int64  `json:"hits"`
	Misses int64  `json:"misses"`
}

// Performance holds request timing.
type Performance struct {
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`
}

// Security holds certificate lifetime and filesystem permission audit results.
// SSLExpirySeconds is nil when the certificate could not be inspected.
type Security struct {
	SSLExpirySeconds *int64               `json:"ssl_expiry_seconds"`
	Permissions      map[string]PathAccess `json:"permissions"`
}

// PathAccess describes what the probe process may do with a critical path.
type PathAccess struct {
	Exists   bool `json:"exists"`
	Readable bool `json:"readable"`
	Writable bool `json:"writable"`
}

// Sessions holds the active session estimate.
type Sessions struct {
	Active int64 `json:"active"`
}

// Meta identifies the collection cycle that produced the report.
type Meta struct {
	CollectionID string    `json:"collection_id"`
	CollectedAt  time.Time `json:"collected_at"`
	DurationMS   int64     `json:"duration_ms"`
}

// NewReport returns a report with every block set to its degraded default.
func NewReport(identity string) *Report {
	return &Report{
		Identity: identity,
		Database: Database{Status: StatusUnhealthy},
		Security: Security{Permissions: map[string]PathAccess{}},
		Logs:     map[string]int64{},
		Runtime:  map[string]string{},
	}
}

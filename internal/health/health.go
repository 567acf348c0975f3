// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the agent.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full agent health report.
type Report struct {
	Status       SystemStatus `json:"status"`
	Online       bool         `json:"online"`
	Quality      string       `json:"quality"`
	Session      string       `json:"session"`
	QueueDepth   int64        `json:"queue_depth"`
	LastSyncAge  float64      `json:"last_sync_age_seconds"`
	CasesInMirr  int          `json:"cases_mirrored"`
	DocsInMirror int          `json:"documents_mirrored"`
}

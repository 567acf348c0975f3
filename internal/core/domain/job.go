package domain

import "time"

// SummaryJob is a queued request to summarize one document. Jobs live in the
// Redis queue only; they are never persisted to the mirror.
type SummaryJob struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	CaseID     string    `json:"case_id"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

package domain

import "time"

// SummaryStatus tracks the AI summarization state of a document.
type SummaryStatus string

const (
	SummaryStatusNone      SummaryStatus = "none"
	SummaryStatusPending   SummaryStatus = "pending"
	SummaryStatusCompleted SummaryStatus = "completed"
	SummaryStatusFailed    SummaryStatus = "failed"
)

// Document is an uploaded case file as stored in the backend "documents" table.
type Document struct {
	ID            string        `json:"id"             db:"id"`
	CaseID        string        `json:"case_id"        db:"case_id"`
	Name          string        `json:"name"           db:"name"`
	StoragePath   string        `json:"storage_path"   db:"storage_path"`
	MimeType      string        `json:"mime_type"      db:"mime_type"`
	SizeBytes     int64         `json:"size_bytes"     db:"size_bytes"`
	Summary       string        `json:"summary"        db:"summary"`
	SummaryStatus SummaryStatus `json:"summary_status" db:"summary_status"`
	UploadedBy    string        `json:"uploaded_by"    db:"uploaded_by"`
	CreatedAt     time.Time     `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"     db:"updated_at"`
}

// NeedsSummary reports whether the document should be queued for
// summarization.
func (d *Document) NeedsSummary() bool {
	return d.SummaryStatus == SummaryStatusNone || d.SummaryStatus == SummaryStatusPending
}

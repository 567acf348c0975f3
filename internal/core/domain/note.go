package domain

import "time"

// Note is a rich-text note attached to a case. Body holds the serialized
// editor document as produced by the web client; the agent treats it as
// opaque.
type Note struct {
	ID        string    `json:"id"         db:"id"`
	CaseID    string    `json:"case_id"    db:"case_id"`
	AuthorID  string    `json:"author_id"  db:"author_id"`
	Title     string    `json:"title"      db:"title"`
	Body      string    `json:"body"       db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

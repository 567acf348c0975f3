// Package domain defines the core entities mirrored from the case backend.
package domain

import "time"

// CaseStatus represents the lifecycle state of a legal case.
type CaseStatus string

const (
	CaseStatusOpen     CaseStatus = "open"
	CaseStatusArchived CaseStatus = "archived"
	CaseStatusClosed   CaseStatus = "closed"
)

// Case is a legal case as stored in the backend "cases" table.
type Case struct {
	ID          string     `json:"id"          db:"id"`
	Title       string     `json:"title"       db:"title"`
	ClientName  string     `json:"client_name" db:"client_name"`
	Status      CaseStatus `json:"status"      db:"status"`
	Description string     `json:"description" db:"description"`
	OwnerID     string     `json:"owner_id"    db:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"  db:"updated_at"`
}

package models

import "time"

// SoftDeletion is the shared soft-delete state embedded in deletable
// aggregates. A soft-deleted row keeps its data and blobs.
type SoftDeletion struct {
	Deleted   bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty"`
}

package models

import "time"

// TechDocument is the spreadsheet document variant: section-scoped,
// versioned by an integer counter instead of revision labels. The row
// always describes the current version; superseded versions move to
// TechDocumentVersion.
type TechDocument struct {
	ID        string    `json:"id"`
	SectionID string    `json:"section_id"`
	Filename  string    `json:"filename"`
	StorageID string    `json:"storage_id"`
	Extension string    `json:"file_extension"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	Version   int       `json:"version"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	SoftDeletion
}

// TechDocumentVersion archives one superseded tech document version.
type TechDocumentVersion struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Version    int       `json:"version"`
	StorageID  string    `json:"storage_id"`
	Filename   string    `json:"filename"`
	Extension  string    `json:"file_extension"`
	SizeBytes  int64     `json:"size_bytes"`
	SHA256     string    `json:"sha256"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  string    `json:"created_by"`
}

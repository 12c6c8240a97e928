package models

import "time"

// InitialRevisionLabel marks the pre-revision state of a fresh document.
// The first real revision after it is "A".
const InitialRevisionLabel = "-"

// Document groups one logical drawing under an item. It is created
// together with its first revision and never exists without one.
type Document struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Title     string    `json:"title"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SoftDeletion
}

// Revision is one immutable version of a document's content. Rows are
// append-only; only the is_current flag ever changes, atomically with
// the insert of the successor revision.
type Revision struct {
	ID               string    `json:"id"`
	DocumentID       string    `json:"document_id"`
	Label            string    `json:"revision_label"`
	StorageID        string    `json:"file_storage_id"`
	OriginalFilename string    `json:"original_filename"`
	MimeType         string    `json:"mime_type"`
	SizeBytes        int64     `json:"file_size_bytes"`
	SHA256           string    `json:"sha256"`
	IsCurrent        bool      `json:"is_current"`
	ChangeNote       string    `json:"change_note,omitempty"`
	AuthorID         string    `json:"author_id"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

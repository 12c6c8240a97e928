package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"docrev/internal/models"
)

const documentColumns = "id, item_id, title, type, created_at, updated_at, is_deleted, deleted_at, deleted_by"
const revisionColumns = "id, document_id, revision_label, storage_id, original_filename, mime_type, size_bytes, sha256, is_current, change_note, author_id, uploaded_at"

// GetDocument returns one document by id, deleted or not.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments lists documents, optionally filtered by item. Soft
// deleted rows are hidden unless showDeleted is set.
func (s *Store) ListDocuments(ctx context.Context, itemID string, showDeleted bool) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var where []string
	var args []any
	if !showDeleted {
		where = append(where, "is_deleted = 0")
	}
	if itemID != "" {
		where = append(where, "item_id = ?")
		args = append(args, itemID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			documents = append(documents, *doc)
		}
	}
	return documents, rows.Err()
}

// GetCurrentRevision returns the revision flagged current for a document.
func (s *Store) GetCurrentRevision(ctx context.Context, documentID string) (*models.Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM document_revisions WHERE document_id = ? AND is_current = 1`, documentID)
	return scanRevision(row)
}

// GetRevision returns one revision scoped to its document.
func (s *Store) GetRevision(ctx context.Context, documentID, revisionID string) (*models.Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM document_revisions WHERE id = ? AND document_id = ?`, revisionID, documentID)
	return scanRevision(row)
}

// ListRevisions lists all revisions for a document, newest first.
func (s *Store) ListRevisions(ctx context.Context, documentID string) ([]models.Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+revisionColumns+` FROM document_revisions WHERE document_id = ? ORDER BY uploaded_at DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revisions := []models.Revision{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		if rev != nil {
			revisions = append(revisions, *rev)
		}
	}
	return revisions, rows.Err()
}

// CountCurrentRevisions returns how many revisions of a document carry
// the current flag.
func (s *Store) CountCurrentRevisions(ctx context.Context, documentID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM document_revisions WHERE document_id = ? AND is_current = 1", documentID).Scan(&count)
	return count, err
}

// SoftDeleteDocument marks a document deleted. Rows already deleted are
// left untouched, keeping the original timestamp and actor.
func (s *Store) SoftDeleteDocument(ctx context.Context, id, by string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET is_deleted = 1, deleted_at = ?, deleted_by = ? WHERE id = ? AND is_deleted = 0",
		formatTime(at), nullIfEmpty(by), id)
	return err
}

// HardDeleteDocument removes the document row; revisions cascade.
func (s *Store) HardDeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	return err
}

// CreateDocument inserts one document row.
func (t *Tx) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO documents (id, item_id, title, type, created_at, updated_at, is_deleted, deleted_at, deleted_by)
		VALUES (?, ?, ?, ?, ?, ?, 0, NULL, NULL)
	`, doc.ID, doc.ItemID, doc.Title, nullIfEmpty(strings.TrimSpace(doc.Type)), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	return err
}

// CreateRevision inserts one revision row.
func (t *Tx) CreateRevision(ctx context.Context, rev *models.Revision) error {
	if rev == nil {
		return fmt.Errorf("revision is required")
	}
	if rev.UploadedAt.IsZero() {
		rev.UploadedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO document_revisions (
			id, document_id, revision_label, storage_id, original_filename, mime_type,
			size_bytes, sha256, is_current, change_note, author_id, uploaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rev.ID,
		rev.DocumentID,
		rev.Label,
		rev.StorageID,
		rev.OriginalFilename,
		rev.MimeType,
		rev.SizeBytes,
		rev.SHA256,
		boolToInt(rev.IsCurrent),
		nullIfEmpty(strings.TrimSpace(rev.ChangeNote)),
		rev.AuthorID,
		formatTime(rev.UploadedAt),
	)
	return err
}

// CurrentRevision reads the current revision inside the transaction.
func (t *Tx) CurrentRevision(ctx context.Context, documentID string) (*models.Revision, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM document_revisions WHERE document_id = ? AND is_current = 1`, documentID)
	return scanRevision(row)
}

// ClearCurrentFlag flips one revision's current flag off.
func (t *Tx) ClearCurrentFlag(ctx context.Context, revisionID string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE document_revisions SET is_current = 0 WHERE id = ?", revisionID)
	return err
}

func scanDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.Document, error) {
	doc := models.Document{}

	var docType, deletedBy sql.NullString
	var createdAt, updatedAt string
	var isDeleted int
	var deletedAt sql.NullString

	err := scanner.Scan(
		&doc.ID,
		&doc.ItemID,
		&doc.Title,
		&docType,
		&createdAt,
		&updatedAt,
		&isDeleted,
		&deletedAt,
		&deletedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	doc.Type = docType.String
	doc.Deleted = isDeleted != 0
	doc.DeletedBy = deletedBy.String

	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		parsed, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		doc.DeletedAt = &parsed
	}

	return &doc, nil
}

func scanRevision(scanner interface {
	Scan(dest ...any) error
}) (*models.Revision, error) {
	rev := models.Revision{}

	var changeNote sql.NullString
	var isCurrent int
	var uploadedAt string

	err := scanner.Scan(
		&rev.ID,
		&rev.DocumentID,
		&rev.Label,
		&rev.StorageID,
		&rev.OriginalFilename,
		&rev.MimeType,
		&rev.SizeBytes,
		&rev.SHA256,
		&isCurrent,
		&changeNote,
		&rev.AuthorID,
		&uploadedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rev.IsCurrent = isCurrent != 0
	rev.ChangeNote = changeNote.String
	if rev.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, err
	}

	return &rev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

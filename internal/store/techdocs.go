package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docrev/internal/models"
)

const techDocColumns = "id, section_id, filename, storage_id, file_extension, size_bytes, sha256, version, is_current, created_at, created_by, is_deleted, deleted_at, deleted_by"
const techVersionColumns = "id, document_id, version, storage_id, filename, file_extension, size_bytes, sha256, created_at, created_by"

// GetTechDocument returns one tech document by id.
func (s *Store) GetTechDocument(ctx context.Context, id string) (*models.TechDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+techDocColumns+` FROM tech_documents WHERE id = ?`, id)
	return scanTechDocument(row)
}

// ListTechDocuments lists current, non-deleted tech documents for a section.
func (s *Store) ListTechDocuments(ctx context.Context, sectionID string) ([]models.TechDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+techDocColumns+` FROM tech_documents
		 WHERE section_id = ? AND is_deleted = 0 AND is_current = 1
		 ORDER BY created_at ASC`, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTechDocuments(rows)
}

// ListActiveTechDocuments lists all non-deleted tech documents; the
// consistency sweep walks this set.
func (s *Store) ListActiveTechDocuments(ctx context.Context) ([]models.TechDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+techDocColumns+` FROM tech_documents WHERE is_deleted = 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTechDocuments(rows)
}

// ListTechVersions lists archived versions for a tech document, newest first.
func (s *Store) ListTechVersions(ctx context.Context, documentID string) ([]models.TechDocumentVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+techVersionColumns+` FROM tech_document_versions WHERE document_id = ? ORDER BY version DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []models.TechDocumentVersion{}
	for rows.Next() {
		v, err := scanTechVersion(rows)
		if err != nil {
			return nil, err
		}
		if v != nil {
			versions = append(versions, *v)
		}
	}
	return versions, rows.Err()
}

// SoftDeleteTechDocument marks a tech document deleted; already deleted
// rows keep their original timestamp and actor.
func (s *Store) SoftDeleteTechDocument(ctx context.Context, id, by string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tech_documents SET is_deleted = 1, deleted_at = ?, deleted_by = ? WHERE id = ? AND is_deleted = 0",
		formatTime(at), nullIfEmpty(by), id)
	return err
}

// HardDeleteTechDocument removes the row; archived versions cascade.
func (s *Store) HardDeleteTechDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tech_documents WHERE id = ?", id)
	return err
}

// CreateTechDocument inserts one tech document row.
func (t *Tx) CreateTechDocument(ctx context.Context, doc *models.TechDocument) error {
	if doc == nil {
		return fmt.Errorf("tech document is required")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tech_documents (
			id, section_id, filename, storage_id, file_extension, size_bytes, sha256,
			version, is_current, created_at, created_by, is_deleted, deleted_at, deleted_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, NULL)
	`,
		doc.ID,
		doc.SectionID,
		doc.Filename,
		doc.StorageID,
		doc.Extension,
		doc.SizeBytes,
		doc.SHA256,
		doc.Version,
		boolToInt(doc.IsCurrent),
		formatTime(doc.CreatedAt),
		doc.CreatedBy,
	)
	return err
}

// ArchiveTechVersion inserts one archived version row.
func (t *Tx) ArchiveTechVersion(ctx context.Context, v *models.TechDocumentVersion) error {
	if v == nil {
		return fmt.Errorf("tech document version is required")
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tech_document_versions (
			id, document_id, version, storage_id, filename, file_extension, size_bytes, sha256, created_at, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID,
		v.DocumentID,
		v.Version,
		v.StorageID,
		v.Filename,
		v.Extension,
		v.SizeBytes,
		v.SHA256,
		formatTime(v.CreatedAt),
		v.CreatedBy,
	)
	return err
}

// ReplaceTechDocumentContent points the tech document row at a new
// payload and bumps the version counter.
func (t *Tx) ReplaceTechDocumentContent(ctx context.Context, doc *models.TechDocument) error {
	if doc == nil {
		return fmt.Errorf("tech document is required")
	}
	_, err := t.tx.ExecContext(ctx, `
		UPDATE tech_documents
		SET filename = ?, storage_id = ?, file_extension = ?, size_bytes = ?, sha256 = ?, version = ?, is_current = 1
		WHERE id = ?
	`,
		doc.Filename,
		doc.StorageID,
		doc.Extension,
		doc.SizeBytes,
		doc.SHA256,
		doc.Version,
		doc.ID,
	)
	return err
}

func collectTechDocuments(rows *sql.Rows) ([]models.TechDocument, error) {
	documents := []models.TechDocument{}
	for rows.Next() {
		doc, err := scanTechDocument(rows)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			documents = append(documents, *doc)
		}
	}
	return documents, rows.Err()
}

func scanTechDocument(scanner interface {
	Scan(dest ...any) error
}) (*models.TechDocument, error) {
	doc := models.TechDocument{}

	var isCurrent, isDeleted int
	var createdAt string
	var deletedAt, deletedBy sql.NullString

	err := scanner.Scan(
		&doc.ID,
		&doc.SectionID,
		&doc.Filename,
		&doc.StorageID,
		&doc.Extension,
		&doc.SizeBytes,
		&doc.SHA256,
		&doc.Version,
		&isCurrent,
		&createdAt,
		&doc.CreatedBy,
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

	doc.IsCurrent = isCurrent != 0
	doc.Deleted = isDeleted != 0
	doc.DeletedBy = deletedBy.String
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
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

func scanTechVersion(scanner interface {
	Scan(dest ...any) error
}) (*models.TechDocumentVersion, error) {
	v := models.TechDocumentVersion{}
	var createdAt string

	err := scanner.Scan(
		&v.ID,
		&v.DocumentID,
		&v.Version,
		&v.StorageID,
		&v.Filename,
		&v.Extension,
		&v.SizeBytes,
		&v.SHA256,
		&createdAt,
		&v.CreatedBy,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}

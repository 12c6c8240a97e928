package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docrev/internal/models"
)

const projectColumns = "id, name, created_at"
const sectionColumns = "id, project_id, code, created_at"
const itemColumns = "id, project_id, section_id, part_number, name, responsible_id, created_at, updated_at"

// CreateProject inserts one project row.
func (s *Store) CreateProject(ctx context.Context, project *models.Project) error {
	if project == nil {
		return fmt.Errorf("project is required")
	}
	if strings.TrimSpace(project.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)",
		project.ID, project.Name, formatTime(project.CreatedAt))
	return err
}

// GetProject returns one project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// GetProjectByName returns one project by its unique name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	return scanProject(row)
}

// GetSection returns one section by id.
func (s *Store) GetSection(ctx context.Context, id string) (*models.Section, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sectionColumns+` FROM project_sections WHERE id = ?`, id)
	return scanSection(row)
}

// GetSectionByCode returns one section by its (project, code) pair.
func (s *Store) GetSectionByCode(ctx context.Context, projectID, code string) (*models.Section, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sectionColumns+` FROM project_sections WHERE project_id = ? AND code = ?`, projectID, code)
	return scanSection(row)
}

// GetItem returns one item by id.
func (s *Store) GetItem(ctx context.Context, id string) (*models.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	return scanItem(row)
}

// SectionInProject checks that a section belongs to the given project.
func (t *Tx) SectionInProject(ctx context.Context, sectionID, projectID string) (bool, error) {
	var exists int
	err := t.tx.QueryRowContext(ctx,
		"SELECT 1 FROM project_sections WHERE id = ? AND project_id = ? LIMIT 1", sectionID, projectID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PartNumberExists checks for an existing item with this part number,
// including rows staged earlier in the same transaction.
func (t *Tx) PartNumberExists(ctx context.Context, partNumber string) (bool, error) {
	var exists int
	err := t.tx.QueryRowContext(ctx,
		"SELECT 1 FROM items WHERE part_number = ? LIMIT 1", partNumber).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetOrCreateSection resolves a section by (project, code), inserting it
// when absent. The insert uses OR IGNORE and re-selects, so two racing
// transactions both end up with the surviving row instead of one of
// them failing on the unique constraint.
func (t *Tx) GetOrCreateSection(ctx context.Context, projectID, code string) (*models.Section, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("section code is required")
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO project_sections (id, project_id, code, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), projectID, code, formatTime(time.Now().UTC()))
	if err != nil {
		return nil, err
	}

	row := t.tx.QueryRowContext(ctx,
		`SELECT `+sectionColumns+` FROM project_sections WHERE project_id = ? AND code = ?`, projectID, code)
	section, err := scanSection(row)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, fmt.Errorf("section not found after upsert")
	}
	return section, nil
}

// CreateSection inserts one section row outside a batch transaction.
func (s *Store) CreateSection(ctx context.Context, section *models.Section) error {
	if section == nil {
		return fmt.Errorf("section is required")
	}
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.CreatedAt.IsZero() {
		section.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO project_sections (id, project_id, code, created_at) VALUES (?, ?, ?, ?)",
		section.ID, section.ProjectID, section.Code, formatTime(section.CreatedAt))
	return err
}

// CreateItem inserts one item row.
func (t *Tx) CreateItem(ctx context.Context, item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item is required")
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO items (id, project_id, section_id, part_number, name, responsible_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		item.ProjectID,
		nullIfEmpty(item.SectionID),
		item.PartNumber,
		item.Name,
		nullIfEmpty(item.ResponsibleID),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	return err
}

func scanProject(scanner interface {
	Scan(dest ...any) error
}) (*models.Project, error) {
	project := models.Project{}
	var createdAt string

	err := scanner.Scan(&project.ID, &project.Name, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if project.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &project, nil
}

func scanSection(scanner interface {
	Scan(dest ...any) error
}) (*models.Section, error) {
	section := models.Section{}
	var createdAt string

	err := scanner.Scan(&section.ID, &section.ProjectID, &section.Code, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if section.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &section, nil
}

func scanItem(scanner interface {
	Scan(dest ...any) error
}) (*models.Item, error) {
	item := models.Item{}
	var sectionID, responsibleID sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&item.ID,
		&item.ProjectID,
		&sectionID,
		&item.PartNumber,
		&item.Name,
		&responsibleID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	item.SectionID = sectionID.String
	item.ResponsibleID = responsibleID.String
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

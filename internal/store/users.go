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

const userColumns = "id, username, name, role, password_hash, is_active, created_at"

// CreateUser inserts one user row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	if strings.TrimSpace(user.Username) == "" {
		return fmt.Errorf("username is required")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, name, role, password_hash, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Username,
		user.Name,
		user.Role,
		user.PasswordHash,
		boolToInt(user.IsActive),
		formatTime(user.CreatedAt),
	)
	return err
}

// GetUser returns one user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByUsername returns one user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		if user != nil {
			users = append(users, *user)
		}
	}
	return users, rows.Err()
}

// SetUserActive toggles a user's active flag by username.
func (s *Store) SetUserActive(ctx context.Context, username string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_active = ? WHERE username = ?", boolToInt(active), username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s not found", username)
	}
	return nil
}

// ListActiveAdminIDs returns ids of active admin users, for
// notification fan-out.
func (s *Store) ListActiveAdminIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM users WHERE role = ? AND is_active = 1 ORDER BY username ASC", string(models.RoleAdmin))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(scanner interface {
	Scan(dest ...any) error
}) (*models.User, error) {
	user := models.User{}
	var isActive int
	var createdAt string

	err := scanner.Scan(
		&user.ID,
		&user.Username,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&isActive,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	user.IsActive = isActive != 0
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &user, nil
}

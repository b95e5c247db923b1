package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-enrollment-api/internal/models"
)

// LevelRepository persists education levels.
type LevelRepository struct {
	db *sqlx.DB
}

// NewLevelRepository constructs the repository.
func NewLevelRepository(db *sqlx.DB) *LevelRepository {
	return &LevelRepository{db: db}
}

// List returns every level ordered by name.
func (r *LevelRepository) List(ctx context.Context) ([]models.Level, error) {
	const query = `SELECT id, name, created_at, updated_at FROM levels ORDER BY name ASC`
	var levels []models.Level
	if err := r.db.SelectContext(ctx, &levels, query); err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	return levels, nil
}

// FindByID returns a level or sql.ErrNoRows.
func (r *LevelRepository) FindByID(ctx context.Context, id int64) (*models.Level, error) {
	const query = `SELECT id, name, created_at, updated_at FROM levels WHERE id = $1`
	var level models.Level
	if err := r.db.GetContext(ctx, &level, query, id); err != nil {
		return nil, err
	}
	return &level, nil
}

// Create inserts a level and assigns its generated ID.
func (r *LevelRepository) Create(ctx context.Context, level *models.Level) error {
	now := time.Now().UTC()
	level.CreatedAt, level.UpdatedAt = now, now
	const query = `INSERT INTO levels (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, level.Name, level.CreatedAt, level.UpdatedAt).Scan(&level.ID); err != nil {
		return fmt.Errorf("create level: %w", err)
	}
	return nil
}

// Update renames a level.
func (r *LevelRepository) Update(ctx context.Context, level *models.Level) error {
	level.UpdatedAt = time.Now().UTC()
	const query = `UPDATE levels SET name = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, level.ID, level.Name, level.UpdatedAt); err != nil {
		return fmt.Errorf("update level: %w", err)
	}
	return nil
}

// Delete removes a level; grades and sections cascade.
func (r *LevelRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM levels WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete level: %w", err)
	}
	return nil
}

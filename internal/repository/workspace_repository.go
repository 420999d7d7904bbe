package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/crosscast/crosscast/internal/models"
)

type WorkspaceRepository interface {
	Create(ctx context.Context, w *models.Workspace) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Workspace, error)
	GetByEmail(ctx context.Context, email string) (*models.Workspace, bool, error)
}

type workspaceRepository struct {
	db *sql.DB
}

func NewWorkspaceRepository(db *sql.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Create(ctx context.Context, w *models.Workspace) (int64, error) {
	query := `
		INSERT INTO workspaces (google_id, email, name, profile_picture_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, w.GoogleID, w.Email, w.Name, w.ProfilePicture).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *workspaceRepository) GetByID(ctx context.Context, id int64) (*models.Workspace, error) {
	query := `SELECT id, google_id, email, name, profile_picture_url, created_at, updated_at FROM workspaces WHERE id = $1`
	var w models.Workspace
	err := r.db.QueryRowContext(ctx, query, id).Scan(&w.ID, &w.GoogleID, &w.Email, &w.Name, &w.ProfilePicture, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &w, nil
}

func (r *workspaceRepository) GetByEmail(ctx context.Context, email string) (*models.Workspace, bool, error) {
	query := `SELECT id, google_id, email, name, profile_picture_url, created_at, updated_at FROM workspaces WHERE email = $1`
	var w models.Workspace
	err := r.db.QueryRowContext(ctx, query, email).Scan(&w.ID, &w.GoogleID, &w.Email, &w.Name, &w.ProfilePicture, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		slog.Info(err.Error())
		return nil, false, err
	}
	return &w, true, nil
}

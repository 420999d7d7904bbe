package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/crosscast/crosscast/internal/models"
)

type PublicationRepository interface {
	Create(ctx context.Context, p *models.PlatformPublication) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformPublication, error)
	ExistsForPost(ctx context.Context, postID int64) (bool, error)
}

type publicationRepository struct {
	db *sql.DB
}

func NewPublicationRepository(db *sql.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

func (r *publicationRepository) Create(ctx context.Context, p *models.PlatformPublication) (int64, error) {
	query := `
		INSERT INTO platform_publications (post_id, social_account_id, platform, platform_post_id, status, error_message, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query,
		p.PostID, p.SocialAccountID, p.Platform,
		p.PlatformPostID, p.Status, p.ErrorMessage, p.PublishedAt,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *publicationRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformPublication, error) {
	query := `SELECT id, post_id, social_account_id, platform, platform_post_id, status, error_message, published_at
		FROM platform_publications WHERE post_id = $1`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var pubs []*models.PlatformPublication
	for rows.Next() {
		var p models.PlatformPublication
		err := rows.Scan(&p.ID, &p.PostID, &p.SocialAccountID, &p.Platform,
			&p.PlatformPostID, &p.Status, &p.ErrorMessage, &p.PublishedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		pubs = append(pubs, &p)
	}
	return pubs, rows.Err()
}

func (r *publicationRepository) ExistsForPost(ctx context.Context, postID int64) (bool, error) {
	query := "SELECT 1 FROM platform_publications WHERE post_id = $1 LIMIT 1"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

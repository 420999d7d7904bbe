package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"
)

// ErrCodeAlreadyUsed reports that the code hash is already recorded, i.e. a
// second claim of the same authorization code lost the race.
var ErrCodeAlreadyUsed = errors.New("authorization code already used")

type UsedCodeRepository interface {
	Insert(ctx context.Context, codeHash string) error
}

type usedCodeRepository struct {
	db *sql.DB
}

func NewUsedCodeRepository(db *sql.DB) UsedCodeRepository {
	return &usedCodeRepository{db: db}
}

const uniqueViolation = "23505"

// Insert records a code hash. The used_oauth_codes table carries a unique
// constraint on code_hash; the database picks a single winner for concurrent
// inserts, so no application-level locking is needed.
func (r *usedCodeRepository) Insert(ctx context.Context, codeHash string) error {
	query := `INSERT INTO used_oauth_codes (code_hash) VALUES ($1)`
	_, err := r.db.ExecContext(ctx, query, codeHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrCodeAlreadyUsed
		}
		slog.Info(err.Error())
		return err
	}
	return nil
}

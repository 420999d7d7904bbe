package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var socialAccountRows = []string{
	"id", "workspace_id", "platform", "account_id", "account_name",
	"account_type", "access_token", "refresh_token", "token_expires_at",
	"is_active", "created_at", "updated_at",
}

func TestGetActiveByPlatformPrefersPages(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(socialAccountRows).
		AddRow(int64(3), int64(1), "facebook", "page-99", "My Page",
			"page", "enc-token", "", nil, true, now, now)

	// The query itself carries the page-first ordering; the repository
	// must send it.
	mock.ExpectQuery(`ORDER BY \(account_type = 'page'\) DESC, updated_at DESC`).
		WithArgs(int64(1), "facebook").
		WillReturnRows(rows)

	repo := NewSocialAccountRepository(db)
	acc, err := repo.GetActiveByPlatform(context.Background(), 1, "facebook")
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, "page", acc.AccountType)
	require.Equal(t, "page-99", acc.AccountID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveByPlatformNone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM social_accounts`).
		WithArgs(int64(1), "linkedin").
		WillReturnRows(sqlmock.NewRows(socialAccountRows))

	repo := NewSocialAccountRepository(db)
	acc, err := repo.GetActiveByPlatform(context.Background(), 1, "linkedin")
	require.NoError(t, err)
	require.Nil(t, acc)
	require.NoError(t, mock.ExpectationsWereMet())
}

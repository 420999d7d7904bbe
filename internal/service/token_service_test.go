package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	config "github.com/crosscast/crosscast/configs"
	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/pkg/utils"
)

const testCryptoKey = "0123456789abcdef0123456789abcdef"

func encryptOrFail(t *testing.T, plaintext string) string {
	t.Helper()
	out, err := utils.Encrypt([]byte(plaintext), []byte(testCryptoKey))
	require.NoError(t, err)
	return out
}

type refreshAdapter struct {
	fakeAdapter
	refreshed  bool
	refreshErr error
	grant      *platforms.TokenGrant
}

func (a *refreshAdapter) Refresh(ctx context.Context, grant *platforms.TokenGrant) (*platforms.TokenGrant, error) {
	a.refreshed = true
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	return a.grant, nil
}

func testTokenService(adapter platforms.Adapter, sa *fakeAccountRepo) TokenService {
	cfg := config.Config{TokenCryptoKey: testCryptoKey}
	return NewTokenService(cfg, platforms.NewRegistry(adapter), sa)
}

func TestRefreshIfNeededFreshToken(t *testing.T) {
	adapter := &refreshAdapter{fakeAdapter: fakeAdapter{name: "twitter"}}
	ts := testTokenService(adapter, newFakeAccountRepo())

	acc := &models.SocialAccount{
		ID:             10,
		Platform:       "twitter",
		AccessToken:    encryptOrFail(t, "current-token"),
		RefreshToken:   encryptOrFail(t, "refresh-token"),
		TokenExpiresAt: sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
	}

	token, err := ts.RefreshIfNeeded(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "current-token", token)
	require.False(t, adapter.refreshed, "a fresh token must not trigger a refresh")
}

func TestRefreshIfNeededExpiringToken(t *testing.T) {
	adapter := &refreshAdapter{
		fakeAdapter: fakeAdapter{name: "twitter"},
		grant: &platforms.TokenGrant{
			AccessToken:  "new-token",
			RefreshToken: "new-refresh",
			ExpiresAt:    time.Now().Add(2 * time.Hour),
		},
	}
	sa := newFakeAccountRepo()
	ts := testTokenService(adapter, sa)

	// Expiring inside the safety margin counts as expired.
	acc := &models.SocialAccount{
		ID:             10,
		Platform:       "twitter",
		AccessToken:    encryptOrFail(t, "stale-token"),
		RefreshToken:   encryptOrFail(t, "refresh-token"),
		TokenExpiresAt: sql.NullTime{Time: time.Now().Add(time.Minute), Valid: true},
	}

	token, err := ts.RefreshIfNeeded(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "new-token", token)
	require.True(t, adapter.refreshed)

	// The new grant is persisted encrypted, never in plaintext.
	stored := sa.tokens[10]
	require.NotNil(t, stored)
	require.NotEqual(t, "new-token", stored.AccessToken)
	decrypted, err := utils.Decrypt(stored.AccessToken, []byte(testCryptoKey))
	require.NoError(t, err)
	require.Equal(t, "new-token", decrypted)
}

func TestRefreshIfNeededNoExpiryTriggersRefresh(t *testing.T) {
	adapter := &refreshAdapter{
		fakeAdapter: fakeAdapter{name: "twitter"},
		grant:       &platforms.TokenGrant{AccessToken: "new-token"},
	}
	ts := testTokenService(adapter, newFakeAccountRepo())

	acc := &models.SocialAccount{
		ID:           10,
		Platform:     "twitter",
		AccessToken:  encryptOrFail(t, "stale-token"),
		RefreshToken: encryptOrFail(t, "refresh-token"),
	}

	token, err := ts.RefreshIfNeeded(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "new-token", token)
}

func TestRefreshIfNeededUnsupportedKeepsToken(t *testing.T) {
	adapter := &refreshAdapter{
		fakeAdapter: fakeAdapter{name: "facebook"},
		refreshErr:  platforms.ErrRefreshUnsupported,
	}
	ts := testTokenService(adapter, newFakeAccountRepo())

	acc := &models.SocialAccount{
		ID:           10,
		Platform:     "facebook",
		AccessToken:  encryptOrFail(t, "long-lived-token"),
		RefreshToken: encryptOrFail(t, "anything"),
	}

	token, err := ts.RefreshIfNeeded(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "long-lived-token", token)
}

func TestRefreshIfNeededNoRefreshToken(t *testing.T) {
	adapter := &refreshAdapter{fakeAdapter: fakeAdapter{name: "twitter"}}
	ts := testTokenService(adapter, newFakeAccountRepo())

	acc := &models.SocialAccount{
		ID:          10,
		Platform:    "twitter",
		AccessToken: encryptOrFail(t, "only-token"),
	}

	token, err := ts.RefreshIfNeeded(context.Background(), acc)
	require.NoError(t, err)
	require.Equal(t, "only-token", token)
	require.False(t, adapter.refreshed)
}

func TestRefreshIfNeededProviderRejection(t *testing.T) {
	adapter := &refreshAdapter{
		fakeAdapter: fakeAdapter{name: "twitter"},
		refreshErr:  errors.New("invalid_grant"),
	}
	ts := testTokenService(adapter, newFakeAccountRepo())

	acc := &models.SocialAccount{
		ID:           10,
		Platform:     "twitter",
		AccessToken:  encryptOrFail(t, "stale-token"),
		RefreshToken: encryptOrFail(t, "revoked-refresh"),
	}

	_, err := ts.RefreshIfNeeded(context.Background(), acc)
	require.Error(t, err)
}

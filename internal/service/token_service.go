package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/crosscast/crosscast/configs"
	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/pkg/utils"
)

// refreshMargin is the safety window: tokens expiring within it are treated
// as already expired, because a publish cycle may run long after the last
// refresh sweep.
const refreshMargin = 5 * time.Minute

type TokenService interface {
	Exchange(ctx context.Context, platform, code, verifier string) (*platforms.TokenGrant, error)
	// RefreshIfNeeded returns a plaintext access token that is safe to use
	// right now, refreshing and persisting first when the stored one is
	// expired or close to it. It must run immediately before any publish
	// attempt.
	RefreshIfNeeded(ctx context.Context, acc *models.SocialAccount) (string, error)
}

type tokenService struct {
	cfg      config.Config
	registry *platforms.Registry
	sa       repository.SocialAccountRepository
}

func NewTokenService(cfg config.Config, registry *platforms.Registry, sa repository.SocialAccountRepository) TokenService {
	return &tokenService{
		cfg:      cfg,
		registry: registry,
		sa:       sa,
	}
}

func (s *tokenService) Exchange(ctx context.Context, platform, code, verifier string) (*platforms.TokenGrant, error) {
	adapter, ok := s.registry.Get(platform)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	grant, err := adapter.Exchange(ctx, code, verifier)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return grant, nil
}

func (s *tokenService) RefreshIfNeeded(ctx context.Context, acc *models.SocialAccount) (string, error) {
	accessToken, err := utils.Decrypt(acc.AccessToken, []byte(s.cfg.TokenCryptoKey))
	if err != nil {
		return "", fmt.Errorf("unable to decrypt access token: %w", err)
	}

	if acc.TokenExpiresAt.Valid && time.Until(acc.TokenExpiresAt.Time) > refreshMargin {
		return accessToken, nil
	}
	if acc.RefreshToken == "" {
		// Nothing to refresh with; hand back the stored token and let the
		// provider decide.
		return accessToken, nil
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(s.cfg.TokenCryptoKey))
	if err != nil {
		return "", fmt.Errorf("unable to decrypt refresh token: %w", err)
	}

	adapter, ok := s.registry.Get(acc.Platform)
	if !ok {
		return "", fmt.Errorf("unknown platform %q", acc.Platform)
	}

	grant, err := adapter.Refresh(ctx, &platforms.TokenGrant{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		if errors.Is(err, platforms.ErrRefreshUnsupported) {
			return accessToken, nil
		}
		slog.Info(err.Error())
		return "", err
	}

	if err := s.persistGrant(ctx, acc, grant); err != nil {
		return "", err
	}
	return grant.AccessToken, nil
}

func (s *tokenService) persistGrant(ctx context.Context, acc *models.SocialAccount, grant *platforms.TokenGrant) error {
	encryptedAccess, err := utils.Encrypt([]byte(grant.AccessToken), []byte(s.cfg.TokenCryptoKey))
	if err != nil {
		return err
	}

	update := models.SocialAccount{AccessToken: encryptedAccess}
	if grant.RefreshToken != "" {
		encryptedRefresh, err := utils.Encrypt([]byte(grant.RefreshToken), []byte(s.cfg.TokenCryptoKey))
		if err != nil {
			return err
		}
		update.RefreshToken = encryptedRefresh
	}
	if !grant.ExpiresAt.IsZero() {
		update.TokenExpiresAt.Time = grant.ExpiresAt
		update.TokenExpiresAt.Valid = true
	}

	if err := s.sa.SetToken(ctx, acc.ID, &update); err != nil {
		return err
	}

	acc.AccessToken = update.AccessToken
	if update.RefreshToken != "" {
		acc.RefreshToken = update.RefreshToken
	}
	if update.TokenExpiresAt.Valid {
		acc.TokenExpiresAt = update.TokenExpiresAt
	}
	return nil
}

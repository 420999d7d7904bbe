package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	config "github.com/crosscast/crosscast/configs"
	"github.com/crosscast/crosscast/internal/guard"
	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/pkg/utils"
)

// ErrAuthCodeReused is surfaced when a callback arrives with an
// authorization code this system already exchanged. Re-submitting the code
// to the provider would fail anyway, so the caller must restart the
// handshake.
var ErrAuthCodeReused = errors.New("this authorization code was already used; reconnect the account to get a new one")

type AccountService interface {
	AuthURL(ctx context.Context, platform, state, verifier string) (string, error)
	HandleCallback(ctx context.Context, platform, code, verifier string, workspaceID int64) error
	List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error)
	Disconnect(ctx context.Context, workspaceID, accountID int64) error
}

type accountService struct {
	cfg      config.Config
	registry *platforms.Registry
	codes    *guard.CodeGuard
	tokens   TokenService
	sa       repository.SocialAccountRepository
}

func NewAccountService(
	cfg config.Config,
	registry *platforms.Registry,
	codes *guard.CodeGuard,
	tokens TokenService,
	sa repository.SocialAccountRepository) AccountService {
	return &accountService{
		cfg:      cfg,
		registry: registry,
		codes:    codes,
		tokens:   tokens,
		sa:       sa,
	}
}

func (s *accountService) AuthURL(ctx context.Context, platform, state, verifier string) (string, error) {
	adapter, ok := s.registry.Get(platform)
	if !ok {
		return "", fmt.Errorf("unknown platform %q", platform)
	}
	return adapter.AuthURL(state, verifier), nil
}

// HandleCallback finishes a provider handshake: claim the single-use code,
// exchange it, identify the provider-side account, and persist the
// credential.
func (s *accountService) HandleCallback(ctx context.Context, platform, code, verifier string, workspaceID int64) error {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return err
	}
	if workspaceID == 0 {
		err := errors.New("workspace not found")
		slog.Info(err.Error())
		return err
	}

	adapter, ok := s.registry.Get(platform)
	if !ok {
		return fmt.Errorf("unknown platform %q", platform)
	}

	fresh, err := s.codes.Claim(ctx, code)
	if err != nil {
		return err
	}
	if !fresh {
		slog.Info("rejected reused authorization code", "platform", platform)
		return ErrAuthCodeReused
	}

	grant, err := s.tokens.Exchange(ctx, platform, code, verifier)
	if err != nil {
		return err
	}

	profile, err := adapter.Profile(ctx, grant.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	// Some providers hand out a page-scoped token that must be stored in
	// place of the user token.
	storedAccess := grant.AccessToken
	if profile.PageToken != "" {
		storedAccess = profile.PageToken
	}

	encryptedAccess, err := utils.Encrypt([]byte(storedAccess), []byte(s.cfg.TokenCryptoKey))
	if err != nil {
		return err
	}
	var encryptedRefresh string
	if grant.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(grant.RefreshToken), []byte(s.cfg.TokenCryptoKey))
		if err != nil {
			return err
		}
	}

	account := &models.SocialAccount{
		WorkspaceID:  workspaceID,
		Platform:     platform,
		AccountID:    profile.AccountID,
		AccountName:  profile.AccountName,
		AccountType:  profile.AccountType,
		AccessToken:  encryptedAccess,
		RefreshToken: encryptedRefresh,
	}
	if !grant.ExpiresAt.IsZero() {
		account.TokenExpiresAt.Time = grant.ExpiresAt
		account.TokenExpiresAt.Valid = true
	}

	if _, err := s.sa.Upsert(ctx, account); err != nil {
		return err
	}
	return nil
}

func (s *accountService) List(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	accounts, err := s.sa.ListByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing social accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) Disconnect(ctx context.Context, workspaceID, accountID int64) error {
	ok, err := s.sa.CheckByWorkspaceID(ctx, accountID, workspaceID)
	if err != nil {
		return err
	}
	if !ok {
		err = errors.New("account doesn't exist")
		slog.Info(err.Error())
		return err
	}
	return s.sa.Deactivate(ctx, accountID)
}

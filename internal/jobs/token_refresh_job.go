package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/internal/service"
)

type TokenRefreshJob struct {
	sr     repository.SocialAccountRepository
	tokens service.TokenService
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		sr:     sr,
		tokens: tokens,
	}
}

// RefreshTokens sweeps accounts whose tokens expire within the next half
// hour and refreshes them ahead of time, so publish-time refreshes stay the
// exception rather than the rule.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := c.tokens.RefreshIfNeeded(ctx, acc); err != nil {
				slog.Info("unable to refresh token", "platform", acc.Platform, "account_id", acc.ID)
			}
		}(acc)
	}

	wg.Wait()
}

package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/internal/recurrence"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/internal/transfer"
)

// FanoutResult is the aggregate outcome of one post's fan-out. Per-platform
// failures live here and in the publication records, never in the post's
// own status.
type FanoutResult struct {
	PostID          int64
	PlatformPostIDs map[string]string
	Failed          []transfer.PlatformFailure
	Skipped         bool
}

func (r *FanoutResult) fail(platform string, err error) {
	r.Failed = append(r.Failed, transfer.PlatformFailure{Platform: platform, Error: err.Error()})
}

type Publisher interface {
	// PublishPost fans one post out across its selected platforms. A post
	// already handled is skipped: most providers are not idempotent and a
	// re-run would publish duplicates.
	PublishPost(ctx context.Context, post *models.Post) (*FanoutResult, error)
	// ProcessDue runs one sweep over posts whose scheduled time has
	// arrived. Invoked by the external timer, holds no timer of its own.
	ProcessDue(ctx context.Context, now time.Time) (int, error)
	PublishNow(ctx context.Context, workspaceID int64, req *transfer.PublishNow) (*FanoutResult, error)
}

type publisher struct {
	pr       repository.PostRepository
	sa       repository.SocialAccountRepository
	pub      repository.PublicationRepository
	tokens   TokenService
	registry *platforms.Registry
}

func NewPublisher(
	pr repository.PostRepository,
	sa repository.SocialAccountRepository,
	pub repository.PublicationRepository,
	tokens TokenService,
	registry *platforms.Registry) Publisher {
	return &publisher{
		pr:       pr,
		sa:       sa,
		pub:      pub,
		tokens:   tokens,
		registry: registry,
	}
}

func (p *publisher) PublishPost(ctx context.Context, post *models.Post) (*FanoutResult, error) {
	result := &FanoutResult{
		PostID:          post.ID,
		PlatformPostIDs: make(map[string]string),
	}

	if post.Status == models.PostStatusPublished {
		result.Skipped = true
		return result, nil
	}

	// A previous run may have crashed after recording publications but
	// before marking the post. Re-running would duplicate provider posts,
	// so existing records also count as handled.
	if handled, err := p.pub.ExistsForPost(ctx, post.ID); err == nil && handled {
		slog.Info("post already has publication records, skipping", "post_id", post.ID)
		result.Skipped = true
		return result, nil
	}

	publishedAt := time.Now()

	for _, platform := range post.Platforms {
		p.publishToPlatform(ctx, post, platform, publishedAt, result)
	}

	if err := p.pr.MarkPublished(ctx, post.ID, publishedAt); err != nil {
		return result, fmt.Errorf("failed to mark post published: %w", err)
	}
	post.Status = models.PostStatusPublished

	p.spawnSuccessor(ctx, post)

	return result, nil
}

// publishToPlatform is one platform's attempt: resolve the account, refresh
// its token, call the adapter, record the outcome. Failures are converted
// to result entries; nothing escapes to abort the loop over the remaining
// platforms.
func (p *publisher) publishToPlatform(ctx context.Context, post *models.Post, platform string, publishedAt time.Time, result *FanoutResult) {
	adapter, ok := p.registry.Get(platform)
	if !ok {
		result.fail(platform, fmt.Errorf("unknown platform %q", platform))
		return
	}

	account, err := p.sa.GetActiveByPlatform(ctx, post.WorkspaceID, platform)
	if err != nil {
		result.fail(platform, fmt.Errorf("error resolving account: %w", err))
		return
	}
	if account == nil {
		result.fail(platform, fmt.Errorf("no connected %s account", platform))
		return
	}

	record := models.PlatformPublication{
		PostID:          post.ID,
		SocialAccountID: account.ID,
		Platform:        platform,
		PublishedAt:     publishedAt,
	}

	accessToken, err := p.tokens.RefreshIfNeeded(ctx, account)
	if err != nil {
		err = fmt.Errorf("authentication failed: %w", err)
		result.fail(platform, err)
		record.Status = models.PublicationStatusFailed
		record.ErrorMessage = err.Error()
		p.record(ctx, &record)
		return
	}

	pubResult, err := adapter.Publish(ctx, platforms.PublishRequest{
		Content:   post.Content,
		MediaURLs: post.MediaURLs,
		LinkURL:   post.LinkURL,
		Location:  post.Location,
	}, platforms.Credentials{
		AccountID:   account.AccountID,
		AccountType: account.AccountType,
		AccessToken: accessToken,
	})
	if err != nil {
		log.Printf("Error publishing post %d to %s: %v", post.ID, platform, err)
		result.fail(platform, err)
		record.Status = models.PublicationStatusFailed
		record.ErrorMessage = err.Error()
		p.record(ctx, &record)
		return
	}

	result.PlatformPostIDs[platform] = pubResult.PlatformPostID
	record.Status = models.PublicationStatusPublished
	record.PlatformPostID = pubResult.PlatformPostID
	p.record(ctx, &record)
}

func (p *publisher) record(ctx context.Context, record *models.PlatformPublication) {
	if _, err := p.pub.Create(ctx, record); err != nil {
		log.Printf("Error saving publication record for post %d on %s: %v", record.PostID, record.Platform, err)
	}
}

// spawnSuccessor inserts the next occurrence of a recurring post as a fresh
// scheduled row. A rule past its UNTIL date yields nothing.
func (p *publisher) spawnSuccessor(ctx context.Context, post *models.Post) {
	if !post.IsRecurring || !post.RecurrenceRule.Valid || !post.ScheduledFor.Valid {
		return
	}

	rule := recurrence.ParseRule(post.RecurrenceRule.String)
	if rule.UnknownFreq {
		slog.Info("recurrence rule has unrecognized frequency, defaulting to weekly", "post_id", post.ID, "rule", post.RecurrenceRule.String)
	}

	next, ok := recurrence.Next(post.ScheduledFor.Time, rule)
	if !ok {
		return
	}

	successor := models.Post{
		WorkspaceID:    post.WorkspaceID,
		Content:        post.Content,
		Platforms:      post.Platforms,
		MediaURLs:      post.MediaURLs,
		LinkURL:        post.LinkURL,
		Location:       post.Location,
		Status:         models.PostStatusScheduled,
		IsRecurring:    true,
		RecurrenceRule: post.RecurrenceRule,
	}
	successor.ScheduledFor.Time = next
	successor.ScheduledFor.Valid = true

	if _, err := p.pr.Create(ctx, nil, &successor); err != nil {
		log.Printf("Error creating recurring successor for post %d: %v", post.ID, err)
	}
}

func (p *publisher) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	due, err := p.pr.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, post := range due {
		result, err := p.PublishPost(ctx, post)
		if err != nil {
			log.Printf("Error processing due post %d: %v", post.ID, err)
			continue
		}
		if !result.Skipped {
			processed++
		}
	}
	return processed, nil
}

func (p *publisher) PublishNow(ctx context.Context, workspaceID int64, req *transfer.PublishNow) (*FanoutResult, error) {
	var post *models.Post

	if req.PostID != 0 {
		ok, err := p.pr.CheckByWorkspaceID(ctx, req.PostID, workspaceID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("post %d doesn't exist", req.PostID)
		}
		post, err = p.pr.GetByID(ctx, req.PostID)
		if err != nil || post == nil {
			return nil, fmt.Errorf("error loading post %d", req.PostID)
		}
	} else {
		if req.Content == "" {
			return nil, fmt.Errorf("content cannot be empty")
		}
		if len(req.Platforms) == 0 {
			return nil, fmt.Errorf("no platforms selected")
		}
		post = &models.Post{
			WorkspaceID: workspaceID,
			Content:     req.Content,
			Platforms:   req.Platforms,
			MediaURLs:   req.MediaURLs,
			LinkURL:     req.LinkURL,
			Status:      models.PostStatusDraft,
		}
		id, err := p.pr.Create(ctx, nil, post)
		if err != nil {
			return nil, fmt.Errorf("error creating post: %w", err)
		}
		post.ID = id
	}

	return p.PublishPost(ctx, post)
}

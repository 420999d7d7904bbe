package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/internal/transfer"
)

// --- fakes shared by the service tests ---

type fakePostRepo struct {
	posts     map[int64]*models.Post
	due       []*models.Post
	created   []*models.Post
	published []int64
	nextID    int64
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[int64]*models.Post), nextID: 100}
}

func (f *fakePostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (int64, error) {
	f.nextID++
	post.ID = f.nextID
	f.created = append(f.created, post)
	f.posts[post.ID] = post
	return post.ID, nil
}

func (f *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) ListByWorkspaceID(ctx context.Context, workspaceID int64) ([]*models.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	return f.due, nil
}

func (f *fakePostRepo) MarkPublished(ctx context.Context, postID int64, publishedAt time.Time) error {
	f.published = append(f.published, postID)
	return nil
}

func (f *fakePostRepo) UpdateStatus(ctx context.Context, status string, postID int64) error {
	return nil
}

func (f *fakePostRepo) CheckByWorkspaceID(ctx context.Context, postID, workspaceID int64) (bool, error) {
	post, ok := f.posts[postID]
	return ok && post.WorkspaceID == workspaceID, nil
}

func (f *fakePostRepo) Remove(ctx context.Context, id int64) error {
	delete(f.posts, id)
	return nil
}

type fakeAccountRepo struct {
	accounts map[string]*models.SocialAccount // keyed by platform
	tokens   map[int64]*models.SocialAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		accounts: make(map[string]*models.SocialAccount),
		tokens:   make(map[int64]*models.SocialAccount),
	}
}

func (f *fakeAccountRepo) Upsert(ctx context.Context, sa *models.SocialAccount) (int64, error) {
	f.accounts[sa.Platform] = sa
	return 1, nil
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.SocialAccount, error) {
	for _, acc := range f.accounts {
		if acc.ID == id {
			return acc, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) GetActiveByPlatform(ctx context.Context, workspaceID int64, platform string) (*models.SocialAccount, error) {
	return f.accounts[platform], nil
}

func (f *fakeAccountRepo) ListByWorkspaceID(ctx context.Context, workspaceID int64) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) ListExpiring(ctx context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) CheckByWorkspaceID(ctx context.Context, accountID, workspaceID int64) (bool, error) {
	return true, nil
}

func (f *fakeAccountRepo) SetToken(ctx context.Context, accountID int64, sa *models.SocialAccount) error {
	f.tokens[accountID] = sa
	return nil
}

func (f *fakeAccountRepo) Deactivate(ctx context.Context, id int64) error {
	return nil
}

type fakePublicationRepo struct {
	records []*models.PlatformPublication
	exists  bool
}

func (f *fakePublicationRepo) Create(ctx context.Context, p *models.PlatformPublication) (int64, error) {
	f.records = append(f.records, p)
	return int64(len(f.records)), nil
}

func (f *fakePublicationRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PlatformPublication, error) {
	return f.records, nil
}

func (f *fakePublicationRepo) ExistsForPost(ctx context.Context, postID int64) (bool, error) {
	return f.exists, nil
}

type fakeTokenService struct {
	token string
	err   error
}

func (f *fakeTokenService) Exchange(ctx context.Context, platform, code, verifier string) (*platforms.TokenGrant, error) {
	return &platforms.TokenGrant{AccessToken: f.token}, nil
}

func (f *fakeTokenService) RefreshIfNeeded(ctx context.Context, acc *models.SocialAccount) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type fakeAdapter struct {
	name         string
	publishErr   error
	published    []platforms.PublishRequest
	postID       string
	lastVerifier string
}

func (f *fakeAdapter) Platform() string { return f.name }

func (f *fakeAdapter) AuthURL(state, verifier string) string {
	return "https://example.com/auth?state=" + state
}

func (f *fakeAdapter) Exchange(ctx context.Context, code, verifier string) (*platforms.TokenGrant, error) {
	f.lastVerifier = verifier
	return &platforms.TokenGrant{AccessToken: "granted"}, nil
}

func (f *fakeAdapter) Refresh(ctx context.Context, grant *platforms.TokenGrant) (*platforms.TokenGrant, error) {
	return grant, nil
}

func (f *fakeAdapter) Profile(ctx context.Context, accessToken string) (*platforms.AccountProfile, error) {
	return &platforms.AccountProfile{AccountID: f.name + "-acct", AccountType: "profile"}, nil
}

func (f *fakeAdapter) Publish(ctx context.Context, req platforms.PublishRequest, creds platforms.Credentials) (*platforms.PublishResult, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, req)
	return &platforms.PublishResult{PlatformPostID: f.postID}, nil
}

func account(platform string) *models.SocialAccount {
	return &models.SocialAccount{
		ID:          10,
		WorkspaceID: 1,
		Platform:    platform,
		AccountID:   platform + "-acct",
		AccountType: "page",
		IsActive:    true,
	}
}

// --- tests ---

func TestPublishPostPartialFailure(t *testing.T) {
	pr := newFakePostRepo()
	sa := newFakeAccountRepo()
	pub := &fakePublicationRepo{}

	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	linkedin := &fakeAdapter{name: "linkedin", publishErr: &platforms.ProviderError{
		Platform: "linkedin", StatusCode: 401, Message: "token revoked"}}
	registry := platforms.NewRegistry(twitter, linkedin)

	sa.accounts["twitter"] = account("twitter")
	sa.accounts["linkedin"] = account("linkedin")
	// facebook intentionally has no connected account

	post := &models.Post{
		ID:          7,
		WorkspaceID: 1,
		Content:     "hello",
		Platforms:   []string{"twitter", "linkedin", "facebook"},
		Status:      models.PostStatusScheduled,
	}
	pr.posts[post.ID] = post

	p := NewPublisher(pr, sa, pub, &fakeTokenService{token: "tok"}, registry)
	result, err := p.PublishPost(context.Background(), post)
	require.NoError(t, err)
	require.False(t, result.Skipped)

	// One success, two failures, and the post is still marked published.
	require.Equal(t, map[string]string{"twitter": "tw-1"}, result.PlatformPostIDs)
	require.Len(t, result.Failed, 2)
	require.Equal(t, []int64{7}, pr.published)
	require.Equal(t, models.PostStatusPublished, post.Status)

	// Audit records: one published for twitter, one failed for linkedin.
	require.Len(t, pub.records, 2)
	byPlatform := make(map[string]*models.PlatformPublication)
	for _, r := range pub.records {
		byPlatform[r.Platform] = r
	}
	require.Equal(t, models.PublicationStatusPublished, byPlatform["twitter"].Status)
	require.Equal(t, "tw-1", byPlatform["twitter"].PlatformPostID)
	require.Equal(t, models.PublicationStatusFailed, byPlatform["linkedin"].Status)
	require.Contains(t, byPlatform["linkedin"].ErrorMessage, "token revoked")
}

func TestPublishPostSkipsAlreadyPublished(t *testing.T) {
	pr := newFakePostRepo()
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	post := &models.Post{
		ID:        7,
		Content:   "hello",
		Platforms: []string{"twitter"},
		Status:    models.PostStatusPublished,
	}

	p := NewPublisher(pr, sa, &fakePublicationRepo{}, &fakeTokenService{token: "tok"}, platforms.NewRegistry(twitter))
	result, err := p.PublishPost(context.Background(), post)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Empty(t, twitter.published)
	require.Empty(t, pr.published)
}

func TestPublishPostSkipsWhenRecordsExist(t *testing.T) {
	// A crash between recording publications and marking the post leaves
	// status=scheduled with records present; a re-run must not publish again.
	pr := newFakePostRepo()
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	post := &models.Post{
		ID:        7,
		Content:   "hello",
		Platforms: []string{"twitter"},
		Status:    models.PostStatusScheduled,
	}

	p := NewPublisher(pr, sa, &fakePublicationRepo{exists: true}, &fakeTokenService{token: "tok"}, platforms.NewRegistry(twitter))
	result, err := p.PublishPost(context.Background(), post)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Empty(t, twitter.published)
}

func TestPublishPostAuthFailureRecorded(t *testing.T) {
	pr := newFakePostRepo()
	pub := &fakePublicationRepo{}
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	post := &models.Post{
		ID:        7,
		Content:   "hello",
		Platforms: []string{"twitter"},
		Status:    models.PostStatusScheduled,
	}
	pr.posts[post.ID] = post

	p := NewPublisher(pr, sa, pub, &fakeTokenService{err: errors.New("refresh rejected")}, platforms.NewRegistry(twitter))
	result, err := p.PublishPost(context.Background(), post)
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	require.Contains(t, result.Failed[0].Error, "authentication failed")
	require.Empty(t, twitter.published)

	require.Len(t, pub.records, 1)
	require.Equal(t, models.PublicationStatusFailed, pub.records[0].Status)
}

func TestPublishPostSpawnsRecurrenceSuccessor(t *testing.T) {
	pr := newFakePostRepo()
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	scheduled := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	post := &models.Post{
		ID:             7,
		WorkspaceID:    1,
		Content:        "daily tip",
		Platforms:      []string{"twitter"},
		Status:         models.PostStatusScheduled,
		ScheduledFor:   sql.NullTime{Time: scheduled, Valid: true},
		IsRecurring:    true,
		RecurrenceRule: sql.NullString{String: "FREQ=DAILY;UNTIL=2025-03-20", Valid: true},
	}
	pr.posts[post.ID] = post

	p := NewPublisher(pr, sa, &fakePublicationRepo{}, &fakeTokenService{token: "tok"}, platforms.NewRegistry(twitter))
	_, err := p.PublishPost(context.Background(), post)
	require.NoError(t, err)

	require.Len(t, pr.created, 1)
	successor := pr.created[0]
	require.Equal(t, "daily tip", successor.Content)
	require.Equal(t, []string{"twitter"}, successor.Platforms)
	require.Equal(t, models.PostStatusScheduled, successor.Status)
	require.True(t, successor.IsRecurring)
	require.Equal(t, "FREQ=DAILY;UNTIL=2025-03-20", successor.RecurrenceRule.String)
	require.True(t, successor.ScheduledFor.Valid)
	require.True(t, scheduled.AddDate(0, 0, 1).Equal(successor.ScheduledFor.Time))
}

func TestPublishPostNoSuccessorPastUntil(t *testing.T) {
	pr := newFakePostRepo()
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	post := &models.Post{
		ID:             7,
		Content:        "last one",
		Platforms:      []string{"twitter"},
		Status:         models.PostStatusScheduled,
		ScheduledFor:   sql.NullTime{Time: time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC), Valid: true},
		IsRecurring:    true,
		RecurrenceRule: sql.NullString{String: "FREQ=DAILY;UNTIL=2025-03-20", Valid: true},
	}
	pr.posts[post.ID] = post

	p := NewPublisher(pr, sa, &fakePublicationRepo{}, &fakeTokenService{token: "tok"}, platforms.NewRegistry(twitter))
	_, err := p.PublishPost(context.Background(), post)
	require.NoError(t, err)
	require.Empty(t, pr.created)
}

func TestProcessDue(t *testing.T) {
	pr := newFakePostRepo()
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	for i := int64(1); i <= 2; i++ {
		post := &models.Post{
			ID:        i,
			Content:   "due post",
			Platforms: []string{"twitter"},
			Status:    models.PostStatusScheduled,
		}
		pr.posts[i] = post
		pr.due = append(pr.due, post)
	}

	p := NewPublisher(pr, sa, &fakePublicationRepo{}, &fakeTokenService{token: "tok"}, platforms.NewRegistry(twitter))
	processed, err := p.ProcessDue(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.Len(t, twitter.published, 2)
	require.ElementsMatch(t, []int64{1, 2}, pr.published)
}

func TestPublishNowAdHoc(t *testing.T) {
	pr := newFakePostRepo()
	twitter := &fakeAdapter{name: "twitter", postID: "tw-1"}
	sa := newFakeAccountRepo()
	sa.accounts["twitter"] = account("twitter")

	p := NewPublisher(pr, sa, &fakePublicationRepo{}, &fakeTokenService{token: "tok"}, platforms.NewRegistry(twitter))

	result, err := p.PublishNow(context.Background(), 1, &transfer.PublishNow{
		Content:   "quick note",
		Platforms: []string{"twitter"},
	})
	require.NoError(t, err)
	require.Equal(t, "tw-1", result.PlatformPostIDs["twitter"])

	// The ad-hoc post gets a durable row so publication records have a home.
	require.Len(t, pr.created, 1)
	require.Equal(t, []int64{pr.created[0].ID}, pr.published)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/platforms"
	"github.com/crosscast/crosscast/internal/recurrence"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, workspaceID int64, pc *transfer.PostCreation) (int64, time.Duration, error)
	List(ctx context.Context, workspaceID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, workspaceID int64) (*models.Post, error)
	Remove(ctx context.Context, workspaceID, postID int64) error
}

type postService struct {
	pr       repository.PostRepository
	registry *platforms.Registry
	media    MediaService
}

func NewPostService(pr repository.PostRepository, registry *platforms.Registry, media MediaService) PostService {
	return &postService{
		pr:       pr,
		registry: registry,
		media:    media,
	}
}

func (s *postService) CreatePost(ctx context.Context, workspaceID int64, pc *transfer.PostCreation) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, 0, err
	}
	if len(pc.Platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return 0, 0, err
	}
	for _, platform := range pc.Platforms {
		if _, ok := s.registry.Get(platform); !ok {
			err := fmt.Errorf("unknown platform %q", platform)
			slog.Info(err.Error())
			return 0, 0, err
		}
	}

	post := models.Post{
		WorkspaceID: workspaceID,
		Content:     pc.Content,
		Platforms:   pc.Platforms,
		LinkURL:     pc.LinkURL,
		Location:    pc.Location,
		Status:      models.PostStatusDraft,
	}

	var delay time.Duration
	if !pc.Draft {
		scheduledTime, err := time.Parse("2006-01-02T15:04", pc.ScheduledFor)
		if err != nil {
			scheduledTime, err = time.Parse(time.RFC3339, pc.ScheduledFor)
		}
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return 0, 0, err
		}

		// A scheduled post must actually be in the future; a past time would
		// sit in the table as scheduled and fire on the next sweep.
		if !scheduledTime.After(time.Now()) {
			err := errors.New("scheduled time must be in the future")
			slog.Info(err.Error())
			return 0, 0, err
		}

		post.Status = models.PostStatusScheduled
		post.ScheduledFor = sql.NullTime{Time: scheduledTime, Valid: true}

		delay = time.Until(scheduledTime)
	}

	if pc.IsRecurring {
		if !post.ScheduledFor.Valid {
			err := errors.New("recurring posts need a scheduled time")
			slog.Info(err.Error())
			return 0, 0, err
		}
		rule := recurrence.ParseRule(pc.RecurrenceRule)
		if rule.UnknownFreq {
			slog.Info("recurrence rule has unrecognized frequency, treating as weekly", "rule", pc.RecurrenceRule)
		}
		post.IsRecurring = true
		post.RecurrenceRule = sql.NullString{String: rule.String(), Valid: true}
	}

	// Inline media can't be ingested by the URL-driven providers; promote
	// it to stored objects first.
	for _, uri := range pc.MediaURLs {
		public, err := s.media.PromoteDataURI(ctx, uri)
		if err != nil {
			return 0, 0, fmt.Errorf("error processing media: %w", err)
		}
		post.MediaURLs = append(post.MediaURLs, public)
	}

	postID, err := s.pr.Create(ctx, nil, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	return postID, delay, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, workspaceID int64) (*models.Post, error) {
	var err error

	if workspaceID == 0 {
		err = errors.New("workspace is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByWorkspaceID(ctx, postID, workspaceID)
	if err != nil {
		return nil, err
	}

	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, workspaceID int64) ([]*models.Post, error) {
	posts, err := s.pr.ListByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, workspaceID, postID int64) error {
	var err error

	if workspaceID == 0 {
		err = errors.New("workspace is not valid")
		slog.Info(err.Error())
		return err
	}

	if postID == 0 {
		err = errors.New("post_id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByWorkspaceID(ctx, postID, workspaceID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}

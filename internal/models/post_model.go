package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID             int64          `db:"id" json:"id"`
	WorkspaceID    int64          `db:"workspace_id" json:"workspace_id"`
	Content        string         `db:"content" json:"content"`
	Platforms      []string       `db:"platforms" json:"platforms"`
	MediaURLs      []string       `db:"media_urls" json:"media_urls"`
	LinkURL        string         `db:"link_url" json:"link_url"`
	Location       string         `db:"location" json:"location"`
	Status         string         `db:"status" json:"status"` // draft, scheduled, published
	ScheduledFor   sql.NullTime   `db:"scheduled_for" json:"scheduled_for"`
	PublishedAt    sql.NullTime   `db:"published_at" json:"published_at"`
	IsRecurring    bool           `db:"is_recurring" json:"is_recurring"`
	RecurrenceRule sql.NullString `db:"recurrence_rule" json:"recurrence_rule"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusDraft     = "draft"
	PostStatusScheduled = "scheduled"
	PostStatusPublished = "published"
)

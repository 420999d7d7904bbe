package models

import "time"

// PlatformPublication is the audit record of one publish attempt for one
// post on one platform. One row per (post, platform) per publish cycle.
type PlatformPublication struct {
	ID              int64     `db:"id" json:"id"`
	PostID          int64     `db:"post_id" json:"post_id"`
	SocialAccountID int64     `db:"social_account_id" json:"social_account_id"`
	Platform        string    `db:"platform" json:"platform"`
	PlatformPostID  string    `db:"platform_post_id" json:"platform_post_id"`
	Status          string    `db:"status" json:"status"` // published, failed
	ErrorMessage    string    `db:"error_message" json:"error_message"`
	PublishedAt     time.Time `db:"published_at" json:"published_at"`
}

const (
	PublicationStatusPublished = "published"
	PublicationStatusFailed    = "failed"
)

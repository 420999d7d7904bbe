package models

import (
	"database/sql"
	"time"
)

type SocialAccount struct {
	ID             int64        `db:"id" json:"id"`
	WorkspaceID    int64        `db:"workspace_id" json:"workspace_id"`
	Platform       string       `db:"platform" json:"platform"`
	AccountID      string       `db:"account_id" json:"account_id"`
	AccountName    string       `db:"account_name" json:"account_name"`
	AccountType    string       `db:"account_type" json:"account_type"` // page, profile
	AccessToken    string       `db:"access_token" json:"-"`
	RefreshToken   string       `db:"refresh_token" json:"-"`
	TokenExpiresAt sql.NullTime `db:"token_expires_at" json:"token_expires_at"`
	IsActive       bool         `db:"is_active" json:"is_active"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

const (
	AccountTypePage    = "page"
	AccountTypeProfile = "profile"
)

const (
	PlatformFacebook  = "facebook"
	PlatformTwitter   = "twitter"
	PlatformLinkedin  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformYoutube   = "youtube"
)

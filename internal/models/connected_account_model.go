package models

import (
	"time"
)

// ConnectedAccount is written by the OAuth linking flow and read-only to
// the publishing pipeline. AccessToken is stored AES-GCM encrypted.
type ConnectedAccount struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Platform        Platform  `db:"platform" json:"platform"`
	PlatformUserID  string    `db:"platform_user_id" json:"platform_user_id"`
	AccountName     string    `db:"account_name" json:"account_name"`
	AccountUsername string    `db:"account_username" json:"account_username"`
	ProfilePicture  string    `db:"profile_picture_url" json:"profile_picture"`
	AccessToken     string    `db:"access_token" json:"-"`
	TokenExpiresAt  time.Time `db:"token_expires_at" json:"token_expires_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

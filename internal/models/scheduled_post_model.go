package models

import (
	"database/sql"
	"time"
)

// Platform identifies the external network a post is published to.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTiktok    Platform = "tiktok"
	PlatformYoutube   Platform = "youtube"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformInstagram, PlatformTiktok, PlatformYoutube:
		return true
	}
	return false
}

type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeCarousel MediaType = "carousel"
	MediaTypeReels    MediaType = "reels"
)

func (m MediaType) IsVideo() bool {
	return m == MediaTypeVideo || m == MediaTypeReels
}

// PostStatus is the scheduled post lifecycle. A post only ever moves
// scheduled -> publishing -> published|failed; a failed post returns to
// scheduled through an explicit retry, never on its own.
type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

func (s PostStatus) Terminal() bool {
	return s == PostStatusPublished || s == PostStatusFailed
}

func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	switch s {
	case PostStatusScheduled:
		return next == PostStatusPublishing
	case PostStatusPublishing:
		return next == PostStatusPublished || next == PostStatusFailed
	case PostStatusFailed:
		return next == PostStatusScheduled
	}
	return false
}

type RecurrencePattern string

const (
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
)

func (r RecurrencePattern) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Next returns the occurrence one interval after t. Monthly keeps the
// day-of-month and time-of-day of the original.
func (r RecurrencePattern) Next(t time.Time) time.Time {
	switch r {
	case RecurrenceDaily:
		return t.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		return t.AddDate(0, 0, 7)
	case RecurrenceBiweekly:
		return t.AddDate(0, 0, 14)
	case RecurrenceMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}

type ScheduledPost struct {
	ID                int64             `db:"id" json:"id"`
	OwnerID           int64             `db:"owner_id" json:"owner_id"`
	AccountID         int64             `db:"account_id" json:"account_id"`
	ParentPostID      sql.NullInt64     `db:"parent_post_id" json:"parent_post_id"`
	Platform          Platform          `db:"platform" json:"platform"`
	Content           string            `db:"content" json:"content"`
	MediaURLs         []string          `db:"media_urls" json:"media_urls"`
	MediaType         MediaType         `db:"media_type" json:"media_type"`
	ScheduledFor      time.Time         `db:"scheduled_for" json:"scheduled_for"`
	IsRecurring       bool              `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern RecurrencePattern `db:"recurrence_pattern" json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate sql.NullTime      `db:"recurrence_end_date" json:"recurrence_end_date"`
	Status            PostStatus        `db:"status" json:"status"`
	PlatformPostID    string            `db:"platform_post_id" json:"platform_post_id,omitempty"`
	ErrorMessage      string            `db:"error_message" json:"error_message,omitempty"`
	PublishedAt       sql.NullTime      `db:"published_at" json:"published_at"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

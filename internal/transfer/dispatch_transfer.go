package transfer

import "github.com/golang-jwt/jwt/v5"

// PublishOutcome is one post's terminal result within a dispatch run.
type PublishOutcome struct {
	PostID         int64  `json:"postId"`
	Success        bool   `json:"success"`
	PlatformPostID string `json:"platformPostId,omitempty"`
	Error          string `json:"error,omitempty"`
}

type DispatchReport struct {
	Processed int              `json:"processed"`
	Results   []PublishOutcome `json:"results"`
}

type PostCreation struct {
	AccountID         string `json:"account_id"`
	Platform          string `json:"platform"`
	Content           string `json:"content"`
	MediaType         string `json:"media_type"`
	ScheduledFor      string `json:"scheduled_for"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern"`
	RecurrenceEndDate string `json:"recurrence_end_date"`
}

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

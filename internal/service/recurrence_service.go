package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/repository"
)

type RecurrenceService interface {
	ExpandNext(ctx context.Context, post *models.ScheduledPost) (int64, error)
	RescheduleDate(ctx context.Context, ownerID, postID int64, date time.Time) error
}

type recurrenceService struct {
	sp repository.ScheduledPostRepository
}

func NewRecurrenceService(sp repository.ScheduledPostRepository) RecurrenceService {
	return &recurrenceService{sp: sp}
}

// ExpandNext creates the follow-on instance of a recurring post, one
// interval after the original. It returns 0 without error when no further
// instance is due: the post is not recurring, or the next occurrence falls
// past recurrence_end_date.
func (s *recurrenceService) ExpandNext(ctx context.Context, post *models.ScheduledPost) (int64, error) {
	if !post.IsRecurring {
		return 0, nil
	}
	if !post.RecurrencePattern.Valid() {
		return 0, fmt.Errorf("invalid recurrence pattern: %s", post.RecurrencePattern)
	}

	next := post.RecurrencePattern.Next(post.ScheduledFor)
	if post.RecurrenceEndDate.Valid && next.After(post.RecurrenceEndDate.Time) {
		return 0, nil
	}

	instance := &models.ScheduledPost{
		OwnerID:           post.OwnerID,
		AccountID:         post.AccountID,
		ParentPostID:      nullInt64(post.ID),
		Platform:          post.Platform,
		Content:           post.Content,
		MediaURLs:         post.MediaURLs,
		MediaType:         post.MediaType,
		ScheduledFor:      next,
		IsRecurring:       true,
		RecurrencePattern: post.RecurrencePattern,
		RecurrenceEndDate: post.RecurrenceEndDate,
	}

	id, err := s.sp.Create(ctx, nil, instance)
	if err != nil {
		return 0, fmt.Errorf("error creating recurrence instance: %w", err)
	}
	return id, nil
}

// RescheduleDate applies a calendar drag-drop: the post keeps its original
// hour, minute and second and only the date component changes. Posts that
// left the scheduled state cannot be moved.
func (s *recurrenceService) RescheduleDate(ctx context.Context, ownerID, postID int64, date time.Time) error {
	owned, err := s.sp.CheckByOwner(ctx, postID, ownerID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("post not found")
	}

	post, err := s.sp.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errors.New("post not found")
	}
	if post.Status != models.PostStatusScheduled {
		return fmt.Errorf("cannot reschedule a %s post", post.Status)
	}

	moved := MoveToDate(post.ScheduledFor, date)
	if moved.Equal(post.ScheduledFor) {
		return nil
	}

	ok, err := s.sp.Reschedule(ctx, postID, moved)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("post is no longer reschedulable")
	}
	return nil
}

// MoveToDate replaces the calendar date of t while preserving its
// time-of-day and location.
func MoveToDate(t, date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func nullInt64(v int64) (n sql.NullInt64) {
	n.Int64 = v
	n.Valid = true
	return n
}

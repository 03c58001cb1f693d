package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPostStatusTransitions(t *testing.T) {
	require.True(t, PostStatusScheduled.CanTransitionTo(PostStatusPublishing))
	require.True(t, PostStatusPublishing.CanTransitionTo(PostStatusPublished))
	require.True(t, PostStatusPublishing.CanTransitionTo(PostStatusFailed))
	require.True(t, PostStatusFailed.CanTransitionTo(PostStatusScheduled))

	require.False(t, PostStatusScheduled.CanTransitionTo(PostStatusPublished))
	require.False(t, PostStatusPublished.CanTransitionTo(PostStatusScheduled))
	require.False(t, PostStatusPublishing.CanTransitionTo(PostStatusScheduled))

	require.True(t, PostStatusPublished.Terminal())
	require.True(t, PostStatusFailed.Terminal())
	require.False(t, PostStatusPublishing.Terminal())
}

func TestRecurrenceNext(t *testing.T) {
	base := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)

	require.Equal(t, base.AddDate(0, 0, 1), RecurrenceDaily.Next(base))
	require.Equal(t, base.AddDate(0, 0, 7), RecurrenceWeekly.Next(base))
	require.Equal(t, base.AddDate(0, 0, 14), RecurrenceBiweekly.Next(base))
	// Jan 31 plus one month normalizes past February.
	require.Equal(t, time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC), RecurrenceMonthly.Next(base))
}

func TestMediaTypeIsVideo(t *testing.T) {
	require.True(t, MediaTypeVideo.IsVideo())
	require.True(t, MediaTypeReels.IsVideo())
	require.False(t, MediaTypeImage.IsVideo())
	require.False(t, MediaTypeCarousel.IsVideo())
}

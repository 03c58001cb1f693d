package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pulseboard/publisher/internal/models"
)

var postTestColumns = []string{
	"id", "owner_id", "account_id", "parent_post_id", "platform", "content",
	"media_urls", "media_type", "scheduled_for", "is_recurring",
	"recurrence_pattern", "recurrence_end_date", "status",
	"platform_post_id", "error_message", "published_at", "created_at", "updated_at",
}

func scheduledRow(id int64, scheduledFor time.Time) *sqlmock.Rows {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(postTestColumns).AddRow(
		id, int64(1), int64(7), nil, "instagram", "hello world",
		"{https://cdn.example.com/a.jpg}", "image", scheduledFor, false,
		"", nil, "scheduled", "", "", nil, now, now,
	)
}

func TestListDueSelectsOnlyDueScheduledPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)

	// Future and already-claimed rows are excluded by the WHERE clause, so
	// the repository only ever sees rows the database let through.
	mock.ExpectQuery(`(?s)SELECT .+ FROM scheduled_posts WHERE status = \$1 AND scheduled_for <= \$2 ORDER BY scheduled_for`).
		WithArgs("scheduled", now).
		WillReturnRows(scheduledRow(3, due))

	repo := NewScheduledPostRepository(db)
	posts, err := repo.ListDue(context.Background(), "", now)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, int64(3), posts[0].ID)
	require.Equal(t, models.PostStatusScheduled, posts[0].Status)
	require.Equal(t, []string{"https://cdn.example.com/a.jpg"}, posts[0].MediaURLs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDueFiltersByPlatform(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT .+ FROM scheduled_posts WHERE status = \$1 AND scheduled_for <= \$2 AND platform = \$3`).
		WithArgs("scheduled", now, "tiktok").
		WillReturnRows(sqlmock.NewRows(postTestColumns))

	repo := NewScheduledPostRepository(db)
	posts, err := repo.ListDue(context.Background(), models.PlatformTiktok, now)
	require.NoError(t, err)
	require.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimWinsWhenRowStillScheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts`).
		WithArgs("publishing", sqlmock.AnyArg(), int64(3), "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewScheduledPostRepository(db)
	claimed, err := repo.Claim(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimLosesWhenRowAlreadyTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts`).
		WithArgs("publishing", sqlmock.AnyArg(), int64(3), "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewScheduledPostRepository(db)
	claimed, err := repo.Claim(context.Background(), 3)
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkPublishedRecordsOutcome(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	publishedAt := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE scheduled_posts`).
		WithArgs("published", "p1", publishedAt, sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewScheduledPostRepository(db)
	require.NoError(t, repo.MarkPublished(context.Background(), 3, "p1", publishedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedRecordsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts`).
		WithArgs("failed", "video processing timeout", sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewScheduledPostRepository(db)
	require.NoError(t, repo.MarkFailed(context.Background(), 3, "video processing timeout"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryOnlyRequeuesFailedPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts`).
		WithArgs("scheduled", sqlmock.AnyArg(), int64(3), "failed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewScheduledPostRepository(db)
	ok, err := repo.Retry(context.Background(), 3)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDMissingRowIsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM scheduled_posts WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(postTestColumns))

	repo := NewScheduledPostRepository(db)
	post, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	require.Nil(t, post)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/pulseboard/publisher/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, platform models.Platform, now time.Time) ([]*models.ScheduledPost, error)
	Claim(ctx context.Context, id int64) (bool, error)
	MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error
	MarkFailed(ctx context.Context, id int64, errorMessage string) error
	Reschedule(ctx context.Context, id int64, scheduledFor time.Time) (bool, error)
	Retry(ctx context.Context, id int64) (bool, error)
	UpdateContent(ctx context.Context, id int64, content string, mediaURLs []string, mediaType models.MediaType) (bool, error)
	CheckByOwner(ctx context.Context, postID, ownerID int64) (bool, error)
	Remove(ctx context.Context, id int64) error
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const postColumns = `id, owner_id, account_id, parent_post_id, platform, content, media_urls, media_type,
		scheduled_for, is_recurring, recurrence_pattern, recurrence_end_date, status,
		platform_post_id, error_message, published_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	err := row.Scan(
		&post.ID, &post.OwnerID, &post.AccountID, &post.ParentPostID, &post.Platform,
		&post.Content, pq.Array(&post.MediaURLs), &post.MediaType,
		&post.ScheduledFor, &post.IsRecurring, &post.RecurrencePattern, &post.RecurrenceEndDate,
		&post.Status, &post.PlatformPostID, &post.ErrorMessage, &post.PublishedAt,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (owner_id, account_id, parent_post_id, platform, content,
			media_urls, media_type, scheduled_for, is_recurring, recurrence_pattern, recurrence_end_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	args := []interface{}{
		post.OwnerID, post.AccountID, post.ParentPostID, post.Platform, post.Content,
		pq.Array(post.MediaURLs), post.MediaType, post.ScheduledFor,
		post.IsRecurring, post.RecurrencePattern, post.RecurrenceEndDate, models.PostStatusScheduled,
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE owner_id = $1 ORDER BY scheduled_for`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// ListDue returns every scheduled post whose trigger time has passed. An
// empty platform selects across all platforms. Posts already claimed by a
// concurrent dispatch run carry status=publishing and are excluded.
func (r *scheduledPostRepository) ListDue(ctx context.Context, platform models.Platform, now time.Time) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE status = $1 AND scheduled_for <= $2`
	args := []interface{}{models.PostStatusScheduled, now}

	if platform != "" {
		query += ` AND platform = $3`
		args = append(args, platform)
	}
	query += ` ORDER BY scheduled_for`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// Claim moves a post scheduled->publishing as a single conditional update.
// The affected-row count decides the winner when two dispatch runs race on
// the same row; only the caller that gets true may publish.
func (r *scheduledPostRepository) Claim(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusPublishing, time.Now(), id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *scheduledPostRepository) MarkPublished(ctx context.Context, id int64, platformPostID string, publishedAt time.Time) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1, platform_post_id = $2, published_at = $3, error_message = '', updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusPublished, platformPostID, publishedAt, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, models.PostStatusFailed, errorMessage, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *scheduledPostRepository) Reschedule(ctx context.Context, id int64, scheduledFor time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET scheduled_for = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, scheduledFor, time.Now(), id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// Retry returns a failed post to the queue. The condition keeps it from
// resurrecting posts that are publishing or already published.
func (r *scheduledPostRepository) Retry(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, error_message = '', updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, time.Now(), id, models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

// UpdateContent edits payload fields. Only posts still waiting in the queue
// are editable.
func (r *scheduledPostRepository) UpdateContent(ctx context.Context, id int64, content string, mediaURLs []string, mediaType models.MediaType) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET content = $1, media_urls = $2, media_type = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query, content, pq.Array(mediaURLs), mediaType, time.Now(), id, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *scheduledPostRepository) CheckByOwner(ctx context.Context, postID, ownerID int64) (bool, error) {
	query := `SELECT 1 FROM scheduled_posts WHERE id = $1 AND owner_id = $2`

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, ownerID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

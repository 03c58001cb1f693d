package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/repository"
	"github.com/pulseboard/publisher/internal/transfer"
)

const (
	scheduledForLayout = "2006-01-02T15:04"
	dateOnlyLayout     = "2006-01-02"
)

type PostService interface {
	CreatePost(ctx context.Context, ownerID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error)
	List(ctx context.Context, ownerID int64) ([]*models.ScheduledPost, error)
	PostInfo(ctx context.Context, postID, ownerID int64) (*models.ScheduledPost, error)
	Edit(ctx context.Context, ownerID, postID int64, content string, mediaURLs []string, mediaType models.MediaType) error
	Retry(ctx context.Context, ownerID, postID int64) error
	Remove(ctx context.Context, ownerID, postID int64) error
}

type postService struct {
	db    *sql.DB
	sp    repository.ScheduledPostRepository
	ca    repository.ConnectedAccountRepository
	media *MediaService
}

func NewPostService(
	db *sql.DB,
	sp repository.ScheduledPostRepository,
	ca repository.ConnectedAccountRepository,
	media *MediaService) PostService {
	return &postService{
		db:    db,
		sp:    sp,
		ca:    ca,
		media: media,
	}
}

// CreatePost validates the request, uploads media, and persists the job.
// It returns the new post id and the delay until its trigger time so the
// caller can enqueue the delayed publish task.
func (s *postService) CreatePost(ctx context.Context, ownerID int64, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}

	platform := models.Platform(pc.Platform)
	if !platform.Valid() {
		return 0, 0, fmt.Errorf("unknown platform: %s", pc.Platform)
	}

	mediaType, err := resolveMediaType(pc.MediaType, len(files))
	if err != nil {
		slog.Info(err.Error())
		return 0, 0, err
	}

	scheduledFor, err := time.Parse(scheduledForLayout, pc.ScheduledFor)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}

	accountID, err := strconv.ParseInt(pc.AccountID, 10, 64)
	if err != nil || accountID == 0 {
		return 0, 0, errors.New("invalid account id")
	}

	exists, err := s.ca.CheckByUserID(ctx, accountID, ownerID)
	if err != nil {
		return 0, 0, fmt.Errorf("error checking connected account %d: %w", accountID, err)
	}
	if !exists {
		return 0, 0, fmt.Errorf("connected account %d does not exist", accountID)
	}

	var pattern models.RecurrencePattern
	var endDate sql.NullTime
	if pc.IsRecurring {
		pattern = models.RecurrencePattern(pc.RecurrencePattern)
		if !pattern.Valid() {
			return 0, 0, fmt.Errorf("invalid recurrence pattern: %s", pc.RecurrencePattern)
		}
		if pc.RecurrenceEndDate != "" {
			end, err := time.Parse(dateOnlyLayout, pc.RecurrenceEndDate)
			if err != nil {
				return 0, 0, fmt.Errorf("invalid recurrence end date: %w", err)
			}
			endDate = sql.NullTime{Time: end, Valid: true}
		}
	}

	mediaURLs, err := s.uploadFiles(ctx, files)
	if err != nil {
		return 0, 0, fmt.Errorf("error processing files: %w", err)
	}

	post := &models.ScheduledPost{
		OwnerID:           ownerID,
		AccountID:         accountID,
		Platform:          platform,
		Content:           pc.Content,
		MediaURLs:         mediaURLs,
		MediaType:         mediaType,
		ScheduledFor:      scheduledFor,
		IsRecurring:       pc.IsRecurring,
		RecurrencePattern: pattern,
		RecurrenceEndDate: endDate,
	}

	postID, err := s.sp.Create(ctx, nil, post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	delay := time.Until(scheduledFor)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

func resolveMediaType(raw string, fileCount int) (models.MediaType, error) {
	if fileCount == 0 {
		return "", errors.New("no files provided for the post")
	}

	mediaType := models.MediaType(raw)
	switch mediaType {
	case models.MediaTypeCarousel:
		if fileCount < 2 {
			return "", errors.New("carousel posts need at least two media files")
		}
	case models.MediaTypeImage, models.MediaTypeVideo, models.MediaTypeReels:
		if fileCount != 1 {
			return "", fmt.Errorf("%s posts take exactly one media file", mediaType)
		}
	case "":
		mediaType = models.MediaTypeImage
		if fileCount > 1 {
			mediaType = models.MediaTypeCarousel
		}
	default:
		return "", fmt.Errorf("unknown media type: %s", raw)
	}
	return mediaType, nil
}

func (s *postService) uploadFiles(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	allowedTypes := map[string]struct{}{
		"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
	}

	mediaURLs := make([]string, 0, len(files))
	for _, file := range files {
		fileContent, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening file: %w", err)
		}

		fileBytes, err := io.ReadAll(fileContent)
		fileContent.Close()
		if err != nil {
			return nil, fmt.Errorf("error reading file content: %w", err)
		}

		fileType, err := filetype.Match(fileBytes)
		if err != nil || fileType == types.Unknown {
			return nil, fmt.Errorf("unsupported file type: %w", err)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return nil, fmt.Errorf("file type %s is not allowed", fileType.Extension)
		}

		key, err := gonanoid.New()
		if err != nil {
			return nil, err
		}

		mediaURL, err := s.media.Upload(ctx, key, fileBytes, fileType.MIME.Value)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}
		mediaURLs = append(mediaURLs, mediaURL)
	}
	return mediaURLs, nil
}

func (s *postService) List(ctx context.Context, ownerID int64) ([]*models.ScheduledPost, error) {
	if ownerID == 0 {
		return nil, errors.New("user is not valid")
	}
	return s.sp.ListByOwner(ctx, ownerID)
}

func (s *postService) PostInfo(ctx context.Context, postID, ownerID int64) (*models.ScheduledPost, error) {
	if err := s.checkOwnership(ctx, postID, ownerID); err != nil {
		return nil, err
	}

	post, err := s.sp.GetByID(ctx, postID)
	if err != nil {
		return nil, errors.New("error getting post info")
	}
	return post, nil
}

// Edit updates content and media while the post is still waiting in the
// queue. Posts that entered publishing or a terminal state are immutable
// except through Retry.
func (s *postService) Edit(ctx context.Context, ownerID, postID int64, content string, mediaURLs []string, mediaType models.MediaType) error {
	if err := s.checkOwnership(ctx, postID, ownerID); err != nil {
		return err
	}
	if len(mediaURLs) == 0 {
		return errors.New("post must keep at least one media URL")
	}

	ok, err := s.sp.UpdateContent(ctx, postID, content, mediaURLs, mediaType)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("only scheduled posts can be edited")
	}
	return nil
}

// Retry deliberately returns a failed post to the scheduled state. There is
// no automatic retry anywhere in the pipeline.
func (s *postService) Retry(ctx context.Context, ownerID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, ownerID); err != nil {
		return err
	}

	ok, err := s.sp.Retry(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("only failed posts can be retried")
	}
	return nil
}

func (s *postService) Remove(ctx context.Context, ownerID, postID int64) error {
	if err := s.checkOwnership(ctx, postID, ownerID); err != nil {
		return err
	}
	return s.sp.Remove(ctx, postID)
}

func (s *postService) checkOwnership(ctx context.Context, postID, ownerID int64) error {
	if ownerID == 0 || postID == 0 {
		return errors.New("post id is not valid")
	}

	owned, err := s.sp.CheckByOwner(ctx, postID, ownerID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("post doesn't exist")
	}
	return nil
}

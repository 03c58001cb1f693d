package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	config "github.com/pulseboard/publisher/configs"
	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/publisher"
	"github.com/pulseboard/publisher/internal/repository"
	"github.com/pulseboard/publisher/internal/transfer"
	"github.com/pulseboard/publisher/pkg/utils"
)

// defaultJobTimeout bounds one adapter call end to end, so a hung upload
// cannot hold a dispatch slot indefinitely.
const defaultJobTimeout = 10 * time.Minute

const dispatchConcurrency = 10

type DispatchService interface {
	RunDue(ctx context.Context, platform models.Platform) (*transfer.DispatchReport, error)
	PublishNow(ctx context.Context, postID int64) (*transfer.DispatchReport, error)
}

type dispatchService struct {
	cfg        config.Config
	sp         repository.ScheduledPostRepository
	ca         repository.ConnectedAccountRepository
	registry   publisher.Registry
	rc         RecurrenceService
	jobTimeout time.Duration
	now        func() time.Time
}

func NewDispatchService(
	cfg config.Config,
	sp repository.ScheduledPostRepository,
	ca repository.ConnectedAccountRepository,
	registry publisher.Registry,
	rc RecurrenceService) DispatchService {
	return &dispatchService{
		cfg:        cfg,
		sp:         sp,
		ca:         ca,
		registry:   registry,
		rc:         rc,
		jobTimeout: defaultJobTimeout,
		now:        time.Now,
	}
}

// RunDue selects every scheduled post whose trigger time has passed (for one
// platform, or all when platform is empty) and publishes each. One post's
// failure never aborts the rest of the batch.
func (s *dispatchService) RunDue(ctx context.Context, platform models.Platform) (*transfer.DispatchReport, error) {
	if platform != "" && !platform.Valid() {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	due, err := s.sp.ListDue(ctx, platform, s.now())
	if err != nil {
		return nil, fmt.Errorf("error selecting due posts: %w", err)
	}

	report := &transfer.DispatchReport{Results: []transfer.PublishOutcome{}}

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, dispatchConcurrency)

	for _, post := range due {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(post *models.ScheduledPost) {
			defer wg.Done()
			defer func() { <-semaphore }()

			outcome, claimed := s.processOne(ctx, post)
			if !claimed {
				return
			}

			mu.Lock()
			report.Results = append(report.Results, outcome)
			mu.Unlock()
		}(post)
	}
	wg.Wait()

	report.Processed = len(report.Results)
	return report, nil
}

// PublishNow is the manual single-post entry point. It runs the same claim
// and publish path as the batch, ignoring scheduled_for.
func (s *dispatchService) PublishNow(ctx context.Context, postID int64) (*transfer.DispatchReport, error) {
	post, err := s.sp.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error loading post %d: %w", postID, err)
	}
	if post == nil {
		return nil, fmt.Errorf("post %d not found", postID)
	}

	outcome, claimed := s.processOne(ctx, post)
	if !claimed {
		return nil, fmt.Errorf("post %d is not in a publishable state", postID)
	}

	return &transfer.DispatchReport{
		Processed: 1,
		Results:   []transfer.PublishOutcome{outcome},
	}, nil
}

// processOne drives a single post through the lifecycle. The claim write is
// the first action: a concurrent run that loses the conditional update
// observes claimed=false and skips the post. After the claim the post is
// owned by this invocation and always resolves to published or failed.
func (s *dispatchService) processOne(ctx context.Context, post *models.ScheduledPost) (transfer.PublishOutcome, bool) {
	claimed, err := s.sp.Claim(ctx, post.ID)
	if err != nil {
		slog.Error("claim failed", "post_id", post.ID, "error", err)
		return transfer.PublishOutcome{}, false
	}
	if !claimed {
		log.Printf("Post %d already claimed by another dispatch run, skipping", post.ID)
		return transfer.PublishOutcome{}, false
	}

	result, err := s.publish(ctx, post)
	if err != nil {
		if markErr := s.sp.MarkFailed(ctx, post.ID, err.Error()); markErr != nil {
			slog.Error("failed to record publish failure", "post_id", post.ID, "error", markErr)
		}
		return transfer.PublishOutcome{PostID: post.ID, Success: false, Error: err.Error()}, true
	}

	if err := s.sp.MarkPublished(ctx, post.ID, result.PlatformPostID, s.now()); err != nil {
		slog.Error("failed to record publish success", "post_id", post.ID, "error", err)
	}

	// Next occurrence is generated lazily, only after a successful publish.
	if post.IsRecurring {
		if _, err := s.rc.ExpandNext(ctx, post); err != nil {
			slog.Error("recurrence expansion failed", "post_id", post.ID, "error", err)
		}
	}

	return transfer.PublishOutcome{PostID: post.ID, Success: true, PlatformPostID: result.PlatformPostID}, true
}

func (s *dispatchService) publish(ctx context.Context, post *models.ScheduledPost) (*publisher.Result, error) {
	if len(post.MediaURLs) == 0 {
		return nil, fmt.Errorf("post %d has no media attached", post.ID)
	}

	account, err := s.ca.GetByID(ctx, post.AccountID)
	if err != nil {
		return nil, fmt.Errorf("error resolving connected account %d: %w", post.AccountID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("connected account %d not found", post.AccountID)
	}
	if account.AccessToken == "" {
		return nil, fmt.Errorf("connected account %d has no access token", post.AccountID)
	}

	accessToken, err := utils.Decrypt(account.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("error decrypting access token for account %d: %w", post.AccountID, err)
	}

	pub, ok := s.registry.For(post.Platform)
	if !ok {
		return nil, fmt.Errorf("no publisher registered for platform %s", post.Platform)
	}

	cred := publisher.Credential{
		AccessToken:    accessToken,
		PlatformUserID: account.PlatformUserID,
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	return pub.Publish(publishCtx, post, cred)
}

package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/transfer"
)

const instagramGraphURL = "https://graph.instagram.com/v21.0"

const (
	instagramPollInterval = 5 * time.Second
	instagramPollAttempts = 30
)

// InstagramPublisher implements the container-based publish protocol:
// create one or more media containers, wait out video processing, then
// convert the container into a live post.
type InstagramPublisher struct {
	BaseURL      string
	Client       *http.Client
	PollInterval time.Duration
	PollAttempts int
}

func NewInstagramPublisher() *InstagramPublisher {
	return &InstagramPublisher{
		BaseURL:      instagramGraphURL,
		Client:       http.DefaultClient,
		PollInterval: instagramPollInterval,
		PollAttempts: instagramPollAttempts,
	}
}

func (p *InstagramPublisher) Platform() models.Platform {
	return models.PlatformInstagram
}

func (p *InstagramPublisher) Publish(ctx context.Context, post *models.ScheduledPost, cred Credential) (*Result, error) {
	var containerID string
	var err error

	switch post.MediaType {
	case models.MediaTypeCarousel:
		containerID, err = p.createCarouselContainer(ctx, post, cred)
	case models.MediaTypeVideo, models.MediaTypeReels:
		containerID, err = p.createVideoContainer(ctx, post, cred)
	default:
		containerID, err = p.createImageContainer(ctx, post, cred)
	}
	if err != nil {
		return nil, err
	}

	if post.MediaType.IsVideo() {
		if err := p.waitForProcessing(ctx, containerID, cred); err != nil {
			return nil, err
		}
	}

	postID, err := p.publishContainer(ctx, containerID, cred)
	if err != nil {
		return nil, err
	}

	return &Result{PlatformPostID: postID}, nil
}

func (p *InstagramPublisher) createImageContainer(ctx context.Context, post *models.ScheduledPost, cred Credential) (string, error) {
	payload := map[string]interface{}{
		"image_url":    post.MediaURLs[0],
		"caption":      post.Content,
		"access_token": cred.AccessToken,
	}
	return p.createContainer(ctx, cred.PlatformUserID, payload)
}

func (p *InstagramPublisher) createVideoContainer(ctx context.Context, post *models.ScheduledPost, cred Credential) (string, error) {
	mediaType := "VIDEO"
	if post.MediaType == models.MediaTypeReels {
		mediaType = "REELS"
	}
	payload := map[string]interface{}{
		"video_url":    post.MediaURLs[0],
		"caption":      post.Content,
		"media_type":   mediaType,
		"access_token": cred.AccessToken,
	}
	return p.createContainer(ctx, cred.PlatformUserID, payload)
}

// createCarouselContainer creates one child container per media URL in the
// post's order, then a CAROUSEL parent referencing the children. The
// platform requires children to exist before the parent; partially created
// children are not rolled back on failure, Instagram discards abandoned
// containers after a retention window.
func (p *InstagramPublisher) createCarouselContainer(ctx context.Context, post *models.ScheduledPost, cred Credential) (string, error) {
	childIDs := make([]string, 0, len(post.MediaURLs))

	for _, mediaURL := range post.MediaURLs {
		payload := map[string]interface{}{
			"image_url":        mediaURL,
			"is_carousel_item": true,
			"access_token":     cred.AccessToken,
		}
		childID, err := p.createContainer(ctx, cred.PlatformUserID, payload)
		if err != nil {
			return "", fmt.Errorf("carousel item error: %w", err)
		}
		childIDs = append(childIDs, childID)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      post.Content,
		"children":     childIDs,
		"access_token": cred.AccessToken,
	}
	return p.createContainer(ctx, cred.PlatformUserID, payload)
}

func (p *InstagramPublisher) createContainer(ctx context.Context, accountID string, payload map[string]interface{}) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", p.BaseURL, accountID)

	result, err := p.postJSON(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no container ID returned from Instagram")
	}
	return result.ID, nil
}

// waitForProcessing polls the container status at a fixed interval until the
// video reaches FINISHED, errors out, or the attempt budget runs dry. The
// ticker is bound to ctx so the caller can cancel the whole wait.
func (p *InstagramPublisher) waitForProcessing(ctx context.Context, containerID string, cred Credential) error {
	statusURL := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		p.BaseURL, containerID, url.QueryEscape(cred.AccessToken))

	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < p.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := p.containerStatus(ctx, statusURL)
		if err != nil {
			return err
		}

		switch status {
		case "FINISHED":
			return nil
		case "ERROR":
			return errors.New("video processing failed")
		}
	}

	return errors.New("video processing timeout")
}

func (p *InstagramPublisher) containerStatus(ctx context.Context, statusURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	var status transfer.InstagramContainerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("error parsing status response: %w", err)
	}
	return status.StatusCode, nil
}

func (p *InstagramPublisher) publishContainer(ctx context.Context, containerID string, cred Credential) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media_publish", p.BaseURL, cred.PlatformUserID)
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": cred.AccessToken,
	}

	result, err := p.postJSON(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no post ID returned from Instagram")
	}
	return result.ID, nil
}

func (p *InstagramPublisher) postJSON(ctx context.Context, endpoint string, payload map[string]interface{}) (*transfer.InstagramIDResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var result transfer.InstagramIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	return &result, nil
}

// apiError surfaces the platform-reported message verbatim for operator
// diagnosis, falling back to the status code when the body is opaque.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Errorf("Instagram API error: %s", errResp.Error.Message)
	}
	return fmt.Errorf("unexpected status code from Instagram: %d", resp.StatusCode)
}

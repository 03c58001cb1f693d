package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/transfer"
)

const tiktokAPIURL = "https://open.tiktokapis.com"

// TiktokPublisher uses the PULL_FROM_URL upload mode: the platform fetches
// the video itself, and the publish_id from the init call is reported as
// the post id even though the platform-side encode may still be running.
type TiktokPublisher struct {
	BaseURL string
	Client  *http.Client
}

func NewTiktokPublisher() *TiktokPublisher {
	return &TiktokPublisher{
		BaseURL: tiktokAPIURL,
		Client:  http.DefaultClient,
	}
}

func (p *TiktokPublisher) Platform() models.Platform {
	return models.PlatformTiktok
}

func (p *TiktokPublisher) Publish(ctx context.Context, post *models.ScheduledPost, cred Credential) (*Result, error) {
	request := transfer.TiktokVideoInitRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 post.Content,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			DisableDuet:           false,
			DisableComment:        false,
			DisableStitch:         false,
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: post.MediaURLs[0],
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshalling payload: %w", err)
	}

	initURL := p.BaseURL + "/v2/post/publish/video/init/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	var result transfer.TiktokVideoInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error.Message != "" {
			return nil, fmt.Errorf("TikTok API error: %s", result.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status code from TikTok: %d", resp.StatusCode)
	}

	if result.Data.PublishID == "" {
		return nil, errors.New("no publish ID returned from TikTok")
	}

	return &Result{PlatformPostID: result.Data.PublishID}, nil
}

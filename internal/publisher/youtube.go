package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/pulseboard/publisher/internal/models"
	"golang.org/x/oauth2"
	youtube "google.golang.org/api/youtube/v3"
)

const youtubeUploadURL = "https://www.googleapis.com/upload/youtube/v3"

const (
	youtubeTitlePrefix  = "TITLE:"
	youtubeDefaultTitle = "Untitled video"
)

// YoutubePublisher runs the two-phase resumable upload: a session init POST
// carrying the video metadata and declared byte length, then a single binary
// PUT of the full payload to the session URL.
type YoutubePublisher struct {
	UploadURL string
	// Client authenticates against YouTube; when nil an oauth2 client is
	// built per publish from the credential's bearer token.
	Client *http.Client
	// MediaClient fetches the stored media bytes and carries no credentials.
	MediaClient *http.Client
}

func NewYoutubePublisher() *YoutubePublisher {
	return &YoutubePublisher{
		UploadURL:   youtubeUploadURL,
		MediaClient: http.DefaultClient,
	}
}

func (p *YoutubePublisher) Platform() models.Platform {
	return models.PlatformYoutube
}

func (p *YoutubePublisher) Publish(ctx context.Context, post *models.ScheduledPost, cred Credential) (*Result, error) {
	client := p.Client
	if client == nil {
		token := &oauth2.Token{AccessToken: cred.AccessToken}
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	}

	media, contentType, err := p.fetchMedia(ctx, post.MediaURLs[0])
	if err != nil {
		return nil, err
	}

	sessionURL, err := p.initSession(ctx, client, post.Content, contentType, int64(len(media)))
	if err != nil {
		return nil, err
	}

	videoID, err := p.uploadMedia(ctx, client, sessionURL, media, contentType)
	if err != nil {
		return nil, err
	}

	return &Result{PlatformPostID: videoID}, nil
}

func (p *YoutubePublisher) fetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := p.MediaClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("error downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected response status fetching media: %d", resp.StatusCode)
	}

	media, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading media body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return media, contentType, nil
}

// initSession declares the upload's size and metadata; YouTube answers with
// the resumable session URL in the Location header.
func (p *YoutubePublisher) initSession(ctx context.Context, client *http.Client, content, contentType string, size int64) (string, error) {
	title, description := SplitTitle(content)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: description,
			CategoryId:  "22",
			Tags:        []string{"pulseboard"},
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "private",
		},
	}

	body, err := json.Marshal(video)
	if err != nil {
		return "", fmt.Errorf("error marshalling metadata: %w", err)
	}

	initURL := p.UploadURL + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Upload-Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("YouTube session init failed: %s (status code: %d)", respBody, resp.StatusCode)
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return "", errors.New("no upload session URL returned from YouTube")
	}
	return sessionURL, nil
}

func (p *YoutubePublisher) uploadMedia(ctx context.Context, client *http.Client, sessionURL string, media []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, bytes.NewReader(media))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(media))

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("YouTube upload failed: %s (status code: %d)", respBody, resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("error parsing upload response: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("no video ID returned from YouTube")
	}
	return result.ID, nil
}

// SplitTitle extracts the video title from post content. A line starting
// with "TITLE:" names the title and is removed from the description; absent
// that, the whole content is the description under a placeholder title.
func SplitTitle(content string) (title, description string) {
	title = youtubeDefaultTitle

	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	found := false
	for _, line := range lines {
		if !found && strings.HasPrefix(line, youtubeTitlePrefix) {
			title = strings.TrimSpace(strings.TrimPrefix(line, youtubeTitlePrefix))
			found = true
			continue
		}
		kept = append(kept, line)
	}

	description = strings.TrimSpace(strings.Join(kept, "\n"))
	return title, description
}

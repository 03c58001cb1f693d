package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulseboard/publisher/internal/models"
	"github.com/stretchr/testify/require"
	youtube "google.golang.org/api/youtube/v3"
)

func TestYoutubePublishResumableUpload(t *testing.T) {
	videoBytes := []byte("fake mp4 payload")

	var metadata youtube.Video
	var initContentLength, initContentType string
	var uploaded []byte

	mux := http.NewServeMux()
	mux.HandleFunc("/media/v.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(videoBytes)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "resumable", r.URL.Query().Get("uploadType"))
		initContentLength = r.Header.Get("X-Upload-Content-Length")
		initContentType = r.Header.Get("X-Upload-Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&metadata))
		w.Header().Set("Location", srv.URL+"/upload-session")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/upload-session", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "video/mp4", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = body
		json.NewEncoder(w).Encode(map[string]string{"id": "yt42"})
	})

	p := &YoutubePublisher{
		UploadURL:   srv.URL,
		Client:      srv.Client(),
		MediaClient: srv.Client(),
	}

	post := &models.ScheduledPost{
		Content:   "TITLE: Launch recap\nHighlights from the launch.",
		MediaType: models.MediaTypeVideo,
		MediaURLs: []string{srv.URL + "/media/v.mp4"},
	}

	result, err := p.Publish(context.Background(), post, Credential{AccessToken: "token-1"})
	require.NoError(t, err)
	require.Equal(t, "yt42", result.PlatformPostID)

	require.Equal(t, "16", initContentLength)
	require.Equal(t, "video/mp4", initContentType)
	require.Equal(t, videoBytes, uploaded)

	require.Equal(t, "Launch recap", metadata.Snippet.Title)
	require.Equal(t, "Highlights from the launch.", metadata.Snippet.Description)
	require.Equal(t, "private", metadata.Status.PrivacyStatus)
}

func TestYoutubePublishInitFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media/v.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("xx"))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &YoutubePublisher{
		UploadURL:   srv.URL,
		Client:      srv.Client(),
		MediaClient: srv.Client(),
	}

	post := &models.ScheduledPost{
		MediaType: models.MediaTypeVideo,
		MediaURLs: []string{srv.URL + "/media/v.mp4"},
	}

	_, err := p.Publish(context.Background(), post, Credential{AccessToken: "token-1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "YouTube session init failed")
}

func TestSplitTitle(t *testing.T) {
	title, description := SplitTitle("TITLE: My video\nFirst line.\nSecond line.")
	require.Equal(t, "My video", title)
	require.Equal(t, "First line.\nSecond line.", description)

	title, description = SplitTitle("Just a caption with no title line.")
	require.Equal(t, "Untitled video", title)
	require.Equal(t, "Just a caption with no title line.", description)

	title, description = SplitTitle("")
	require.Equal(t, "Untitled video", title)
	require.Equal(t, "", description)
}

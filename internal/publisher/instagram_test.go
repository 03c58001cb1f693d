package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pulseboard/publisher/internal/models"
	"github.com/stretchr/testify/require"
)

func testInstagramPublisher(srv *httptest.Server) *InstagramPublisher {
	return &InstagramPublisher{
		BaseURL:      srv.URL,
		Client:       srv.Client(),
		PollInterval: time.Millisecond,
		PollAttempts: instagramPollAttempts,
	}
}

func instagramCred() Credential {
	return Credential{AccessToken: "token-1", PlatformUserID: "acct1"}
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload
}

func TestInstagramPublishImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		require.Equal(t, "https://cdn.example.com/a.jpg", payload["image_url"])
		require.Equal(t, "hello world", payload["caption"])
		require.Equal(t, "token-1", payload["access_token"])
		json.NewEncoder(w).Encode(map[string]string{"id": "c1"})
	})
	mux.HandleFunc("/acct1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		require.Equal(t, "c1", payload["creation_id"])
		json.NewEncoder(w).Encode(map[string]string{"id": "p1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	post := &models.ScheduledPost{
		Content:   "hello world",
		MediaType: models.MediaTypeImage,
		MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	}

	result, err := testInstagramPublisher(srv).Publish(context.Background(), post, instagramCred())
	require.NoError(t, err)
	require.Equal(t, "p1", result.PlatformPostID)
}

func TestInstagramPublishCarouselPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var childURLs []string
	var parentChildren []interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)

		mu.Lock()
		defer mu.Unlock()
		if payload["media_type"] == "CAROUSEL" {
			parentChildren = payload["children"].([]interface{})
			json.NewEncoder(w).Encode(map[string]string{"id": "parent"})
			return
		}
		require.Equal(t, true, payload["is_carousel_item"])
		childURLs = append(childURLs, payload["image_url"].(string))
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "child-" + payload["image_url"].(string)})
	})
	mux.HandleFunc("/acct1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "p2"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	post := &models.ScheduledPost{
		Content:   "three up",
		MediaType: models.MediaTypeCarousel,
		MediaURLs: []string{"a", "b", "c"},
	}

	result, err := testInstagramPublisher(srv).Publish(context.Background(), post, instagramCred())
	require.NoError(t, err)
	require.Equal(t, "p2", result.PlatformPostID)

	require.Equal(t, []string{"a", "b", "c"}, childURLs)
	require.Equal(t, []interface{}{"child-a", "child-b", "child-c"}, parentChildren)
}

func TestInstagramPublishVideoPollsUntilFinished(t *testing.T) {
	var mu sync.Mutex
	polls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		payload := decodeBody(t, r)
		require.Equal(t, "REELS", payload["media_type"])
		json.NewEncoder(w).Encode(map[string]string{"id": "c9"})
	})
	mux.HandleFunc("/c9", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		status := "IN_PROGRESS"
		if polls >= 3 {
			status = "FINISHED"
		}
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status_code": status})
	})
	mux.HandleFunc("/acct1/media_publish", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "p9"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	post := &models.ScheduledPost{
		Content:   "reel",
		MediaType: models.MediaTypeReels,
		MediaURLs: []string{"https://cdn.example.com/v.mp4"},
	}

	result, err := testInstagramPublisher(srv).Publish(context.Background(), post, instagramCred())
	require.NoError(t, err)
	require.Equal(t, "p9", result.PlatformPostID)
	require.Equal(t, 3, polls)
}

func TestInstagramPublishVideoProcessingError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "c9"})
	})
	mux.HandleFunc("/c9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status_code": "ERROR"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	post := &models.ScheduledPost{
		MediaType: models.MediaTypeVideo,
		MediaURLs: []string{"https://cdn.example.com/v.mp4"},
	}

	_, err := testInstagramPublisher(srv).Publish(context.Background(), post, instagramCred())
	require.EqualError(t, err, "video processing failed")
}

func TestInstagramPublishVideoPollBudget(t *testing.T) {
	var mu sync.Mutex
	polls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "c9"})
	})
	mux.HandleFunc("/c9", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		polls++
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status_code": "IN_PROGRESS"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	post := &models.ScheduledPost{
		MediaType: models.MediaTypeVideo,
		MediaURLs: []string{"https://cdn.example.com/v.mp4"},
	}

	_, err := testInstagramPublisher(srv).Publish(context.Background(), post, instagramCred())
	require.EqualError(t, err, "video processing timeout")
	require.Equal(t, instagramPollAttempts, polls)
}

func TestInstagramPublishSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{"message": "Carousel item error", "code": 100},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	post := &models.ScheduledPost{
		MediaType: models.MediaTypeCarousel,
		MediaURLs: []string{"a", "b"},
	}

	_, err := testInstagramPublisher(srv).Publish(context.Background(), post, instagramCred())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Carousel item error")
}

func TestInstagramPublishCancelDuringPoll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acct1/media", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "c9"})
	})
	mux.HandleFunc("/c9", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status_code": "IN_PROGRESS"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := testInstagramPublisher(srv)
	p.PollInterval = 50 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	post := &models.ScheduledPost{
		MediaType: models.MediaTypeVideo,
		MediaURLs: []string{"https://cdn.example.com/v.mp4"},
	}

	_, err := p.Publish(ctx, post, instagramCred())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseboard/publisher/internal/models"
)

func TestResolveMediaType(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		fileCount int
		want      models.MediaType
		wantErr   string
	}{
		{name: "no files", raw: "image", fileCount: 0, wantErr: "no files"},
		{name: "explicit image", raw: "image", fileCount: 1, want: models.MediaTypeImage},
		{name: "image with two files", raw: "image", fileCount: 2, wantErr: "exactly one"},
		{name: "reels", raw: "reels", fileCount: 1, want: models.MediaTypeReels},
		{name: "carousel", raw: "carousel", fileCount: 3, want: models.MediaTypeCarousel},
		{name: "carousel with one file", raw: "carousel", fileCount: 1, wantErr: "at least two"},
		{name: "default single file", raw: "", fileCount: 1, want: models.MediaTypeImage},
		{name: "default multiple files", raw: "", fileCount: 4, want: models.MediaTypeCarousel},
		{name: "unknown type", raw: "hologram", fileCount: 1, wantErr: "unknown media type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveMediaType(tc.raw, tc.fileCount)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestEditRequiresMedia(t *testing.T) {
	repo := newFakePostRepo()
	post := repo.seed(duePost())
	svc := NewPostService(nil, repo, &fakeAccountRepo{}, nil)

	err := svc.Edit(context.Background(), post.OwnerID, post.ID, "new caption", nil, models.MediaTypeImage)
	require.ErrorContains(t, err, "at least one media URL")
}

func TestEditRejectsPublishingPost(t *testing.T) {
	repo := newFakePostRepo()
	post := duePost()
	post.Status = models.PostStatusPublishing
	repo.seed(post)
	svc := NewPostService(nil, repo, &fakeAccountRepo{}, nil)

	err := svc.Edit(context.Background(), post.OwnerID, post.ID, "new caption",
		[]string{"https://cdn.example.com/b.jpg"}, models.MediaTypeImage)
	require.ErrorContains(t, err, "only scheduled posts")
}

func TestRetryRequiresFailedStatus(t *testing.T) {
	repo := newFakePostRepo()
	scheduled := repo.seed(duePost())
	failed := duePost()
	failed.Status = models.PostStatusFailed
	failed.ErrorMessage = "video processing timeout"
	repo.seed(failed)
	svc := NewPostService(nil, repo, &fakeAccountRepo{}, nil)

	err := svc.Retry(context.Background(), scheduled.OwnerID, scheduled.ID)
	require.ErrorContains(t, err, "only failed posts")

	require.NoError(t, svc.Retry(context.Background(), failed.OwnerID, failed.ID))
	stored := repo.get(failed.ID)
	require.Equal(t, models.PostStatusScheduled, stored.Status)
	require.Empty(t, stored.ErrorMessage)
}

func TestRetryChecksOwnership(t *testing.T) {
	repo := newFakePostRepo()
	post := duePost()
	post.Status = models.PostStatusFailed
	repo.seed(post)
	svc := NewPostService(nil, repo, &fakeAccountRepo{}, nil)

	err := svc.Retry(context.Background(), post.OwnerID+1, post.ID)
	require.ErrorContains(t, err, "post doesn't exist")
}

package publisher

import (
	"context"

	"github.com/pulseboard/publisher/internal/models"
)

// Credential is the decrypted bearer token plus the platform-side user id
// of a connected account.
type Credential struct {
	AccessToken    string
	PlatformUserID string
}

type Result struct {
	PlatformPostID string
}

// Publisher runs one platform's multi-step publish protocol. Implementations
// are pure protocol clients: they never touch the job store, and either
// return a platform post id or an error describing the step that failed.
type Publisher interface {
	Platform() models.Platform
	Publish(ctx context.Context, post *models.ScheduledPost, cred Credential) (*Result, error)
}

type Registry map[models.Platform]Publisher

func NewRegistry(pubs ...Publisher) Registry {
	r := make(Registry, len(pubs))
	for _, p := range pubs {
		r[p.Platform()] = p
	}
	return r
}

func (r Registry) For(platform models.Platform) (Publisher, bool) {
	p, ok := r[platform]
	return p, ok
}

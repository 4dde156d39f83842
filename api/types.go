package api

import (
	"context"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
	"github.com/yu23ki14/Footprint-Jibungoto/page"
)

// Controller is the page logic the handlers drive.
type Controller interface {
	Load(ctx context.Context, category domain.Category) *page.State
	Complete(ctx context.Context, state *page.State, profile *domain.Profile, fallbackID string) page.Result
}

// SessionStore persists the working copy between requests.
type SessionStore interface {
	Load(ctx context.Context, sessionID string, category domain.Category) (*page.State, error)
	Save(ctx context.Context, sessionID string, state *page.State) error
	Discard(ctx context.Context, sessionID string, category domain.Category) error
}

// ProfileReader loads the caller's profile. A nil profile without error
// means the user has none yet.
type ProfileReader interface {
	GetProfile(ctx context.Context, profileID string) (*domain.Profile, error)
}

// InFlightGuard serialises submissions per session.
type InFlightGuard interface {
	// Begin returns true when the caller now owns the submission.
	Begin(ctx context.Context, sessionID string) (bool, error)
	End(ctx context.Context, sessionID string) error
	Active(ctx context.Context, sessionID string) (bool, error)
}

// Authenticator is implemented by types able to identify callers from headers.
type Authenticator interface {
	Identify(string) (Identity, error)
}

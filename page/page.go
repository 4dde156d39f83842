package page

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
)

// ActionSource provides the catalog of actions for every category.
type ActionSource interface {
	FetchActions(ctx context.Context) (domain.Catalog, error)
}

// ProfileWriter replaces a profile on the backend.
type ProfileWriter interface {
	PutProfile(ctx context.Context, profileID string, update domain.ProfileUpdate) error
}

// CompletionNotifier receives an event once a submission succeeded. It must
// not block.
type CompletionNotifier interface {
	Notify(ev domain.CompletionEvent)
}

// Outcome is the result of a completion attempt.
type Outcome int

const (
	// OutcomeDisabled means the completion button was disabled.
	OutcomeDisabled Outcome = iota
	// OutcomeSkipped means the eligibility check failed and nothing was sent.
	OutcomeSkipped
	// OutcomeFailed means the PUT failed; the state is back to idle.
	OutcomeFailed
	// OutcomeNavigate means the profile was updated.
	OutcomeNavigate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// Result carries the outcome and, on success, where to go next.
type Result struct {
	Outcome  Outcome
	Redirect string
	Err      error
}

// Page is the controller behind the category page.
type Page struct {
	actions  ActionSource
	profiles ProfileWriter
	notifier CompletionNotifier
	log      *log.Logger
	now      func() int64
}

// Option customises a Page.
type Option func(*Page)

// WithNotifier publishes completion events after successful submissions.
func WithNotifier(n CompletionNotifier) Option {
	return func(p *Page) { p.notifier = n }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() int64) Option {
	return func(p *Page) { p.now = now }
}

// New creates a Page. The logger must not be nil.
func New(actions ActionSource, profiles ProfileWriter, logger *log.Logger, opts ...Option) *Page {
	if logger == nil {
		panic("page.New: logger is nil")
	}
	p := &Page{actions: actions, profiles: profiles, log: logger, now: defaultClock}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load builds a fresh state for the category. Fetch failures are logged and
// produce an empty list.
func (p *Page) Load(ctx context.Context, category domain.Category) *State {
	state := NewState(category)
	catalog, err := p.actions.FetchActions(ctx)
	if err != nil {
		p.log.WithFields(log.Fields{"category": category, "error": err}).Warn("fetch actions failed")
		return state
	}
	state.Load(catalog)
	return state
}

// Complete submits the working copy. profile may be nil for first-time users,
// in which case fallbackID keys the PUT.
func (p *Page) Complete(ctx context.Context, state *State, profile *domain.Profile, fallbackID string) Result {
	if state.SubmitDisabled() {
		return Result{Outcome: OutcomeDisabled}
	}
	if !state.Eligible(profile) {
		return Result{Outcome: OutcomeSkipped}
	}

	profileID := fallbackID
	if profile != nil && profile.ID != "" {
		profileID = profile.ID
	}
	if strings.TrimSpace(profileID) == "" {
		err := errors.New("no profile id to submit to")
		p.log.WithField("category", state.Category).Error(err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	state.Loading = true
	rates := state.Rates()
	update := domain.NewProfileUpdate(profile, rates)
	if err := p.profiles.PutProfile(ctx, profileID, update); err != nil {
		state.Loading = false
		p.log.WithFields(log.Fields{
			"category":   state.Category,
			"profile_id": profileID,
			"error":      err,
		}).Error("profile update failed")
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	if p.notifier != nil {
		p.notifier.Notify(domain.CompletionEvent{
			ID:        uuid.NewString(),
			Type:      domain.CompletionEventType,
			ProfileID: profileID,
			Category:  state.Category,
			Rates:     rates,
			Checked:   state.CheckedIDs(),
			Timestamp: p.now(),
		})
	}
	return Result{Outcome: OutcomeNavigate, Redirect: state.Category.CompletionPath()}
}

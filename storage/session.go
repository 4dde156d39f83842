package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yu23ki14/Footprint-Jibungoto/domain"
	"github.com/yu23ki14/Footprint-Jibungoto/page"
)

// SessionStore keeps the page working copy per browser session and category.
type SessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSessionStore creates a store whose entries expire after ttl of
// inactivity.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if client == nil {
		panic("storage.NewSessionStore: redis client is nil")
	}
	return &SessionStore{redis: client, ttl: ttl}
}

func sessionKey(sessionID string, category domain.Category) string {
	return "page:" + sessionID + ":" + string(category)
}

// Load returns the saved state, or nil when the session has none for the
// category. A corrupt entry is dropped and reported as missing.
func (s *SessionStore) Load(ctx context.Context, sessionID string, category domain.Category) (*page.State, error) {
	key := sessionKey(sessionID, category)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state page.State
	if err := sonic.Unmarshal(data, &state); err != nil || state.Category != category {
		_ = s.redis.Del(ctx, key).Err()
		return nil, nil
	}
	if state.Actions == nil {
		state.Actions = []domain.Action{}
	}
	return &state, nil
}

// Save stores the state and refreshes its expiry. The in-flight flag is not
// persisted; it is derived from the submission guard on every request.
func (s *SessionStore) Save(ctx context.Context, sessionID string, state *page.State) error {
	saved := *state
	saved.Loading = false
	data, err := sonic.Marshal(&saved)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, sessionKey(sessionID, state.Category), data, s.ttl).Err()
}

// Discard drops the working copy, used once the user navigated away.
func (s *SessionStore) Discard(ctx context.Context, sessionID string, category domain.Category) error {
	return s.redis.Del(ctx, sessionKey(sessionID, category)).Err()
}

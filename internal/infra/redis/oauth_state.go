package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// OAuthStateStore remembers the nonces handed out with Google consent redirects
// so each one can be redeemed exactly once.
type OAuthStateStore struct {
	client RedisClient
	ttl    time.Duration
}

func NewOAuthStateStore(client RedisClient, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OAuthStateStore{client: client, ttl: ttl}
}

func (s *OAuthStateStore) stateKey(nonce string) string {
	return fmt.Sprintf("oauth_state:%s", nonce)
}

func (s *OAuthStateStore) Put(ctx context.Context, nonce string) error {
	return s.client.Set(ctx, s.stateKey(nonce), "1", s.ttl)
}

// Consume reports whether the nonce was outstanding and forgets it.
func (s *OAuthStateStore) Consume(ctx context.Context, nonce string) (bool, error) {
	key := s.stateKey(nonce)
	if _, err := s.client.Get(ctx, key); err != nil {
		if errors.Is(err, Nil) {
			return false, nil
		}
		return false, err
	}
	if err := s.client.Del(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"
)

type kvRedis struct {
	memRedis
	vals map[string]string
	ttls map[string]time.Duration
}

func newKVRedis() *kvRedis {
	return &kvRedis{memRedis: *newMemRedis(), vals: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (k *kvRedis) Set(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	k.vals[key] = v.(string)
	k.ttls[key] = ttl
	return nil
}

func (k *kvRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := k.vals[key]
	if !ok {
		return "", Nil
	}
	return v, nil
}

func (k *kvRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(k.vals, key)
	}
	return nil
}

func TestOAuthStateStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	kv := newKVRedis()
	s := NewOAuthStateStore(kv, 0)

	if err := s.Put(ctx, "n1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if kv.ttls["oauth_state:n1"] != 10*time.Minute {
		t.Fatalf("ttl = %v", kv.ttls["oauth_state:n1"])
	}
	ok, err := s.Consume(ctx, "n1")
	if err != nil || !ok {
		t.Fatalf("first consume = %v, %v", ok, err)
	}
	ok, err = s.Consume(ctx, "n1")
	if err != nil || ok {
		t.Fatalf("second consume = %v, %v", ok, err)
	}
	if ok, _ := s.Consume(ctx, "unknown"); ok {
		t.Fatal("unknown nonce accepted")
	}
}

//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/TSHgroup/hh25-backend/internal/domain/model"
	red "github.com/TSHgroup/hh25-backend/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerScenarioRepo mocks the database repository that the scenario decorator wraps.
type mockInnerScenarioRepo struct {
	SaveFunc        func(ctx context.Context, qx any, s *model.Scenario) error
	DeleteFunc      func(ctx context.Context, qx any, id string) error
	FindByIDFunc    func(ctx context.Context, qx any, id string) (*model.Scenario, error)
	ListPublicFunc  func(ctx context.Context, qx any, page model.PageRequest) ([]*model.Scenario, int, error)
	ListByOwnerFunc func(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Scenario, error)
}

func (m *mockInnerScenarioRepo) Save(ctx context.Context, qx any, s *model.Scenario) error {
	return m.SaveFunc(ctx, qx, s)
}
func (m *mockInnerScenarioRepo) Delete(ctx context.Context, qx any, id string) error {
	return m.DeleteFunc(ctx, qx, id)
}
func (m *mockInnerScenarioRepo) FindByID(ctx context.Context, qx any, id string) (*model.Scenario, error) {
	return m.FindByIDFunc(ctx, qx, id)
}
func (m *mockInnerScenarioRepo) ListPublic(ctx context.Context, qx any, page model.PageRequest) ([]*model.Scenario, int, error) {
	return m.ListPublicFunc(ctx, qx, page)
}
func (m *mockInnerScenarioRepo) ListByOwner(ctx context.Context, qx any, ownerID string, publicOnly bool) ([]*model.Scenario, error) {
	return m.ListByOwnerFunc(ctx, qx, ownerID, publicOnly)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }

package repository

import (
	"context"
	"sync"
	"time"

	"stage-planner/internal/model"
	"stage-planner/pkg/redis"
)

// SelectionDraftStore 团队确认三态选择草稿
// 草稿按活动存储，key 为 assignment id
type SelectionDraftStore interface {
	Get(ctx context.Context, eventID string) (map[string]model.Selection, error)
	Set(ctx context.Context, eventID, assignmentID string, sel model.Selection) error
	Clear(ctx context.Context, eventID string) error
}

// ── Redis 实现 ──

const draftKeyPrefix = "team:selection:"

type redisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDraftStore 基于 Redis Hash 的草稿存储，每次写入刷新 TTL
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) SelectionDraftStore {
	return &redisDraftStore{client: client, ttl: ttl}
}

func (s *redisDraftStore) Get(ctx context.Context, eventID string) (map[string]model.Selection, error) {
	raw, err := s.client.HGetAll(ctx, draftKeyPrefix+eventID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Selection, len(raw))
	for id, v := range raw {
		if sel := model.Selection(v); sel.IsValid() {
			out[id] = sel
		}
	}
	return out, nil
}

func (s *redisDraftStore) Set(ctx context.Context, eventID, assignmentID string, sel model.Selection) error {
	return s.client.HSetWithTTL(ctx, draftKeyPrefix+eventID, assignmentID, string(sel), s.ttl)
}

func (s *redisDraftStore) Clear(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, draftKeyPrefix+eventID)
}

// ── 进程内实现 ──

type memoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]map[string]model.Selection
}

// NewMemoryDraftStore 进程内草稿存储（单实例部署或测试）
func NewMemoryDraftStore() SelectionDraftStore {
	return &memoryDraftStore{drafts: make(map[string]map[string]model.Selection)}
}

func (s *memoryDraftStore) Get(_ context.Context, eventID string) (map[string]model.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]model.Selection, len(s.drafts[eventID]))
	for id, sel := range s.drafts[eventID] {
		out[id] = sel
	}
	return out, nil
}

func (s *memoryDraftStore) Set(_ context.Context, eventID, assignmentID string, sel model.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drafts[eventID] == nil {
		s.drafts[eventID] = make(map[string]model.Selection)
	}
	s.drafts[eventID][assignmentID] = sel
	return nil
}

func (s *memoryDraftStore) Clear(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, eventID)
	return nil
}

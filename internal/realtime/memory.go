package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryHub 进程内扇出，适用于单实例部署
type MemoryHub struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	closed bool
	logger *zap.Logger
}

// NewMemoryHub 创建进程内 Hub
func NewMemoryHub(logger *zap.Logger) *MemoryHub {
	return &MemoryHub{
		subs:   make(map[string]map[*memorySub]struct{}),
		logger: logger,
	}
}

type memorySub struct {
	hub    *MemoryHub
	userID string
	ch     chan Change
	once   sync.Once
	done   chan struct{}
}

func (s *memorySub) C() <-chan Change { return s.ch }

func (s *memorySub) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.hub.remove(s)
	})
	return nil
}

// Subscribe 订阅 userID 的变更，ctx 结束时自动退订
func (h *MemoryHub) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &memorySub{
		hub:    h,
		userID: userID,
		ch:     make(chan Change, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*memorySub]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish 投递给 change.UserID 的所有订阅
func (h *MemoryHub) Publish(_ context.Context, change Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}

	for sub := range h.subs[change.UserID] {
		select {
		case sub.ch <- change:
		default:
			h.logger.Warn("订阅缓冲已满，丢弃变更",
				zap.String("user_id", change.UserID),
				zap.String("kind", string(change.Kind)),
			)
		}
	}
	return nil
}

// Close 关闭所有订阅
func (h *MemoryHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*memorySub
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	return nil
}

func (h *MemoryHub) remove(sub *memorySub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.userID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
	close(sub.ch)
}

// subscriberCount 当前 userID 的订阅数
func (h *MemoryHub) subscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

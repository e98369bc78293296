package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"stage-planner/pkg/redis"
)

const channelPrefix = "notifications:"

// ChannelFor 用户的 Pub/Sub 频道名
func ChannelFor(userID string) string { return channelPrefix + userID }

// RedisHub 基于 Redis Pub/Sub 的 Hub，多实例部署时使用
type RedisHub struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisHub 创建 Redis Hub
func NewRedisHub(client *redis.Client, logger *zap.Logger) *RedisHub {
	return &RedisHub{client: client, logger: logger}
}

type redisSub struct {
	ch     chan Change
	cancel context.CancelFunc
	stop   func() error
	once   sync.Once
}

func (s *redisSub) C() <-chan Change { return s.ch }

func (s *redisSub) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.stop()
	})
	return err
}

// Subscribe 订阅 notifications:<userID>
func (h *RedisHub) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	msgs, stop, err := h.client.Subscribe(ctx, ChannelFor(userID))
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &redisSub{
		ch:     make(chan Change, subscriptionBuffer),
		cancel: cancel,
		stop:   stop,
	}

	go func() {
		defer close(sub.ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-msgs:
				if !ok {
					return
				}
				change, err := decodeChange(payload)
				if err != nil {
					h.logger.Warn("无法解析通知变更", zap.String("user_id", userID), zap.Error(err))
					continue
				}
				select {
				case sub.ch <- change:
				default:
					h.logger.Warn("订阅缓冲已满，丢弃变更", zap.String("user_id", userID))
				}
			}
		}
	}()

	return sub, nil
}

// Publish 发布到 change.UserID 的频道
func (h *RedisHub) Publish(ctx context.Context, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("序列化通知变更失败: %w", err)
	}
	return h.client.Publish(ctx, ChannelFor(change.UserID), payload)
}

// Close Redis 连接由调用方管理
func (h *RedisHub) Close() error { return nil }

func decodeChange(payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, err
	}
	if c.UserID == "" || (c.Kind != ChangeInsert && c.Kind != ChangeUpdate) {
		return Change{}, fmt.Errorf("变更内容无效: %s", payload)
	}
	return c, nil
}

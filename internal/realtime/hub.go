// Package realtime 通知变更的订阅/发布抽象。
//
// 订阅按用户过滤：Subscribe(ctx, userID) 返回该用户的变更流，
// ctx 结束或调用 Close 时退订。驱动：进程内（memory）与 Redis Pub/Sub。
package realtime

import (
	"context"
	"errors"
	"time"
)

// ChangeKind 变更类型
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert" // 新通知
	ChangeUpdate ChangeKind = "update" // 通知被标记已读
)

// ErrHubClosed Hub 已关闭
var ErrHubClosed = errors.New("realtime: hub fermé")

// Change 一次通知变更
type Change struct {
	Kind           ChangeKind `json:"kind"`
	UserID         string     `json:"user_id"`
	NotificationID string     `json:"notification_id,omitempty"` // 全部已读时为空
	At             time.Time  `json:"at"`
}

// Subscription 单个订阅
type Subscription interface {
	C() <-chan Change
	Close() error
}

// Hub 通知变更的发布/订阅
type Hub interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
	Publish(ctx context.Context, change Change) error
	Close() error
}

// subscriptionBuffer 每个订阅的缓冲大小，满时丢弃新变更
const subscriptionBuffer = 16

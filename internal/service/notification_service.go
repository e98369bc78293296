package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/realtime"
	"stage-planner/internal/repository"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = errors.New("notification introuvable")
)

// NotificationService 通知业务接口
type NotificationService interface {
	// Notify 写入通知并推送 insert 变更；推送失败只记录日志
	Notify(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead 幂等：已读通知再次标记仍执行写入
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	// Subscribe 订阅 userID 的通知变更，ctx 结束时退订
	Subscribe(ctx context.Context, userID string) (realtime.Subscription, error)
}

type notificationService struct {
	repo     *repository.Repository
	hub      realtime.Hub
	pageSize int
	logger   *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, hub realtime.Hub, pageSize int, logger *zap.Logger) NotificationService {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &notificationService{repo: repo, hub: hub, pageSize: pageSize, logger: logger}
}

// ────────────────────── Notify ──────────────────────

func (s *notificationService) Notify(ctx context.Context, n *model.Notification) error {
	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.logger.Error("创建通知失败",
			zap.String("user_id", n.UserID),
			zap.String("type", n.Type),
			zap.Error(err),
		)
		return err
	}

	s.publish(ctx, realtime.Change{Kind: realtime.ChangeInsert, UserID: n.UserID, NotificationID: n.ID})
	return nil
}

// ────────────────────── List ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	limit := req.PageSize
	if limit <= 0 {
		limit = s.pageSize
		req.PageSize = limit // 分页元数据与实际页长一致
	}
	offset := (req.GetPage() - 1) * limit

	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, offset, limit)
	if err != nil {
		s.logger.Error("列出通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		result = append(result, toNotificationResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── UnreadCount ──────────────────────

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ────────────────────── MarkRead ──────────────────────

func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.Notification.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("查询通知失败", zap.String("id", id), zap.Error(err))
		return err
	}
	// 他人的通知按不存在处理
	if n.UserID != userID {
		return ErrNotificationNotFound
	}

	if err := s.repo.Notification.MarkRead(ctx, id); err != nil {
		s.logger.Error("标记通知已读失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.publish(ctx, realtime.Change{Kind: realtime.ChangeUpdate, UserID: userID, NotificationID: id})
	return nil
}

// ────────────────────── MarkAllRead ──────────────────────

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := s.repo.Notification.MarkAllRead(ctx, userID)
	if err != nil {
		s.logger.Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	if updated > 0 {
		s.publish(ctx, realtime.Change{Kind: realtime.ChangeUpdate, UserID: userID})
	}
	return updated, nil
}

// ────────────────────── Subscribe ──────────────────────

func (s *notificationService) Subscribe(ctx context.Context, userID string) (realtime.Subscription, error) {
	sub, err := s.hub.Subscribe(ctx, userID)
	if err != nil {
		s.logger.Error("订阅通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return sub, nil
}

// ── 辅助函数 ──

func (s *notificationService) publish(ctx context.Context, change realtime.Change) {
	if s.hub == nil {
		return
	}
	change.At = time.Now()
	if err := s.hub.Publish(ctx, change); err != nil {
		s.logger.Warn("推送通知变更失败",
			zap.String("user_id", change.UserID),
			zap.String("kind", string(change.Kind)),
			zap.Error(err),
		)
	}
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:               n.ID,
		Type:             n.Type,
		Content:          n.Content,
		RelatedEventID:   derefString(n.RelatedEventID),
		RelatedRequestID: derefString(n.RelatedRequestID),
		IsRead:           n.IsRead,
		CreatedAt:        formatTime(n.CreatedAt),
	}
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stage-planner/internal/dto"
	"stage-planner/internal/realtime"
	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

const defaultKeepAlive = 25 * time.Second

// NotificationHandler 通知模块 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
	keepAlive       time.Duration
}

// NewNotificationHandler 创建 NotificationHandler
// keepAlive 为 SSE 心跳间隔，非正数时取 defaultKeepAlive
func NewNotificationHandler(notificationSvc service.NotificationService, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &NotificationHandler{notificationSvc: notificationSvc, keepAlive: keepAlive}
}

// List 通知列表（最新在前）
// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.notificationSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// UnreadCount 未读数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// MarkRead 标记单条已读（幂等）
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), userID, id); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// MarkAllRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	updated, err := h.notificationSvc.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, dto.MarkAllReadResponse{Updated: updated})
}

// streamEvent SSE 推送内容
type streamEvent struct {
	NotificationID string `json:"notification_id,omitempty"`
	Unread         *int64 `json:"unread,omitempty"`
	At             string `json:"at"`
}

// Stream 通知实时推送（Server-Sent Events）
// GET /api/v1/notifications/stream
// 事件名为变更类型 insert / update，客户端断开时退订
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	sub, err := h.notificationSvc.Subscribe(ctx, userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", h.eventFor(c, userID, realtime.Change{At: time.Now()}))
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case change, open := <-sub.C():
			if !open {
				return false
			}
			c.SSEvent(string(change.Kind), h.eventFor(c, userID, change))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		case <-ctx.Done():
			return false
		}
	})
}

// eventFor 附带重新计算的未读数；查询失败时省略
func (h *NotificationHandler) eventFor(c *gin.Context, userID string, change realtime.Change) streamEvent {
	ev := streamEvent{NotificationID: change.NotificationID, At: change.At.Format(time.RFC3339)}
	if count, err := h.notificationSvc.UnreadCount(c.Request.Context(), userID); err == nil {
		ev.Unread = &count
	}
	return ev
}

// handleNotificationError 统一处理通知模块业务错误
func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		response.NotFound(c, 16001, err.Error())
	case errors.Is(err, realtime.ErrHubClosed):
		response.Error(c, http.StatusServiceUnavailable, 16002, "Flux de notifications indisponible")
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}

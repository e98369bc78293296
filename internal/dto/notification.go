package dto

// ── 通知模块 DTO ──

// NotificationListRequest 通知列表查询
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID               string `json:"id"`
	Type             string `json:"type"`
	Content          string `json:"content"`
	RelatedEventID   string `json:"related_event_id,omitempty"`
	RelatedRequestID string `json:"related_request_id,omitempty"`
	IsRead           bool   `json:"is_read"`
	CreatedAt        string `json:"created_at"`
}

// UnreadCountResponse 未读数
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse 全部已读结果
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

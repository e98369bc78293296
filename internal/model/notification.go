package model

import "time"

// 通知类型
const (
	NotificationReplacementRequest = "replacement_request"
	NotificationTeamValidated      = "team_validated"
	NotificationRequestApproved    = "request_approved"
	NotificationRequestRejected    = "request_rejected"
	NotificationEventUpdate        = "event_update"
	NotificationEventCancelled     = "event_cancelled"
)

// Notification 通知消息表，对应 notifications
type Notification struct {
	ID               string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID           string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Type             string    `gorm:"type:varchar(50);not null"                      json:"type"`
	Content          string    `gorm:"type:text;not null"                             json:"content"`
	RelatedEventID   *string   `gorm:"type:uuid"                                      json:"related_event_id,omitempty"`
	RelatedRequestID *string   `gorm:"type:uuid"                                      json:"related_request_id,omitempty"`
	IsRead           bool      `gorm:"not null;default:false"                         json:"is_read"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

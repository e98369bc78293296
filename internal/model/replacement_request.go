package model

import "errors"

// ReplacementStatus 替换申请状态
type ReplacementStatus string

const (
	ReplacementPending              ReplacementStatus = "pending_approval"
	ReplacementApprovedAwaiting     ReplacementStatus = "approved_awaiting_replacement"
	ReplacementApprovedFound        ReplacementStatus = "approved_replacement_found"
	ReplacementRejected             ReplacementStatus = "rejected_by_regisseur"
	ReplacementCancelledByRequester ReplacementStatus = "cancelled_by_intermittent"
)

// IsActive pending_approval 与 approved_awaiting_replacement 视为进行中
func (s ReplacementStatus) IsActive() bool {
	return s == ReplacementPending || s == ReplacementApprovedAwaiting
}

// 申请类型
const (
	RequestTypeUrgent   = "urgent"
	RequestTypeSouhaite = "souhaite"
)

// ErrSuggestionLimit 推荐人数已达上限
var ErrSuggestionLimit = errors.New("nombre maximum de suggestions atteint")

// SuggestionSet 推荐替补的选择集合（保持选择顺序，最多 limit 个）
type SuggestionSet struct {
	limit int
	ids   []string
}

// NewSuggestionSet 创建选择集合
func NewSuggestionSet(limit int) *SuggestionSet {
	return &SuggestionSet{limit: limit}
}

// Toggle 已选则取消，未选则加入；超过上限时返回 ErrSuggestionLimit 且集合不变
func (s *SuggestionSet) Toggle(id string) error {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return nil
		}
	}
	if len(s.ids) >= s.limit {
		return ErrSuggestionLimit
	}
	s.ids = append(s.ids, id)
	return nil
}

// IDs 当前选择（副本）
func (s *SuggestionSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len 当前选择数量
func (s *SuggestionSet) Len() int { return len(s.ids) }

// ReplacementRequest 替换申请表，对应 replacement_requests
type ReplacementRequest struct {
	ID                              string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventAssignmentID               string            `gorm:"type:uuid;not null"                             json:"event_assignment_id"`
	RequesterIntermittentProfileID  string            `gorm:"type:uuid;not null"                             json:"requester_intermittent_profile_id"`
	RegisseurID                     string            `gorm:"type:uuid;not null"                             json:"regisseur_id"`
	RequestType                     string            `gorm:"type:varchar(20);not null"                      json:"request_type"` // urgent | souhaite
	Comment                         string            `gorm:"type:text;not null"                             json:"comment"`
	SuggestedIntermittentProfileIDs StringArray       `gorm:"type:text[]"                                    json:"suggested_intermittent_profile_ids,omitempty"`
	Status                          ReplacementStatus `gorm:"type:varchar(40);not null;default:'pending_approval'" json:"status"`
	Timestamps

	// 关联
	Assignment *Assignment          `gorm:"foreignKey:EventAssignmentID;references:ID"              json:"assignment,omitempty"`
	Requester  *IntermittentProfile `gorm:"foreignKey:RequesterIntermittentProfileID;references:ID" json:"requester,omitempty"`
}

// TableName 指定表名
func (ReplacementRequest) TableName() string { return "replacement_requests" }

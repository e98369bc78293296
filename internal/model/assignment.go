package model

import "time"

// AvailabilityStatus 分配状态（statut_disponibilite）
type AvailabilityStatus string

const (
	StatusPropose       AvailabilityStatus = "propose"        // 初始：régisseur 发出邀请
	StatusDisponible    AvailabilityStatus = "disponible"     // 接受
	StatusIncertain     AvailabilityStatus = "incertain"      // 提议其他日期
	StatusNonDisponible AvailabilityStatus = "non_disponible" // 拒绝
	StatusValide        AvailabilityStatus = "valide"         // 团队确认：入选
	StatusNonRetenu     AvailabilityStatus = "non_retenu"     // 团队确认：未入选
)

// assignmentTransitions 允许的状态迁移
var assignmentTransitions = map[AvailabilityStatus][]AvailabilityStatus{
	StatusPropose:    {StatusDisponible, StatusIncertain, StatusNonDisponible, StatusValide, StatusNonRetenu},
	StatusDisponible: {StatusValide, StatusNonRetenu},
	StatusIncertain:  {StatusValide, StatusNonRetenu},
}

// IsValid 是否为已知状态
func (s AvailabilityStatus) IsValid() bool {
	switch s {
	case StatusPropose, StatusDisponible, StatusIncertain, StatusNonDisponible, StatusValide, StatusNonRetenu:
		return true
	}
	return false
}

// CanTransitionTo 判断 s → next 是否在状态图中
func (s AvailabilityStatus) CanTransitionTo(next AvailabilityStatus) bool {
	for _, allowed := range assignmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal 本轮排班的终态：valide / non_disponible / non_retenu
func (s AvailabilityStatus) IsTerminal() bool {
	return s == StatusValide || s == StatusNonDisponible || s == StatusNonRetenu
}

// IsValidatable 团队确认可处理的状态
func (s AvailabilityStatus) IsValidatable() bool {
	return s == StatusPropose || s == StatusDisponible || s == StatusIncertain
}

// WrittenBy 目标状态只能由哪个角色写入
func (s AvailabilityStatus) WrittenBy() string {
	switch s {
	case StatusDisponible, StatusIncertain, StatusNonDisponible:
		return RoleIntermittent
	default:
		return RoleRegisseur
	}
}

// ResponseType intermittent 回复类型
type ResponseType string

const (
	ResponseAccept             ResponseType = "accept"
	ResponseRefuse             ResponseType = "refuse"
	ResponseProposeAlternative ResponseType = "propose_alternative"
)

// TargetStatus 回复类型对应的分配状态
func (r ResponseType) TargetStatus() (AvailabilityStatus, bool) {
	switch r {
	case ResponseAccept:
		return StatusDisponible, true
	case ResponseProposeAlternative:
		return StatusIncertain, true
	case ResponseRefuse:
		return StatusNonDisponible, true
	}
	return "", false
}

// Selection 团队确认的三态选择
type Selection string

const (
	SelectionPending     Selection = "pending"
	SelectionSelected    Selection = "selected"
	SelectionNotSelected Selection = "not_selected"
)

// Next 循环顺序：pending → selected → not_selected → pending
func (s Selection) Next() Selection {
	switch s {
	case SelectionPending:
		return SelectionSelected
	case SelectionSelected:
		return SelectionNotSelected
	default:
		return SelectionPending
	}
}

// IsValid 是否为已知选择
func (s Selection) IsValid() bool {
	return s == SelectionPending || s == SelectionSelected || s == SelectionNotSelected
}

// TargetStatus 提交时选择对应的分配状态；pending 不写入
func (s Selection) TargetStatus() (AvailabilityStatus, bool) {
	switch s {
	case SelectionSelected:
		return StatusValide, true
	case SelectionNotSelected:
		return StatusNonRetenu, true
	}
	return "", false
}

// Assignment 活动-intermittent 分配表，对应 event_intermittent_assignments
type Assignment struct {
	ID                    string             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventID               string             `gorm:"type:uuid;not null"                             json:"event_id"`
	IntermittentProfileID string             `gorm:"type:uuid;not null"                             json:"intermittent_profile_id"`
	StatutDisponibilite   AvailabilityStatus `gorm:"type:varchar(20);not null;default:'propose'"    json:"statut_disponibilite"`
	DateReponse           *time.Time         `json:"date_reponse,omitempty"`
	Timestamps

	// 关联
	Event        *Event               `gorm:"foreignKey:EventID;references:ID"               json:"event,omitempty"`
	Intermittent *IntermittentProfile `gorm:"foreignKey:IntermittentProfileID;references:ID" json:"intermittent,omitempty"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "event_intermittent_assignments" }

// EventResponse intermittent 回复历史表，对应 event_intermittent_responses（只追加）
type EventResponse struct {
	ID                string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	EventAssignmentID string       `gorm:"type:uuid;not null"                             json:"event_assignment_id"`
	ResponseType      ResponseType `gorm:"type:varchar(30);not null"                      json:"response_type"`
	Comment           *string      `gorm:"type:text"                                      json:"comment,omitempty"`
	AlternativeDates  StringArray  `gorm:"type:text[]"                                    json:"alternative_dates,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (EventResponse) TableName() string { return "event_intermittent_responses" }

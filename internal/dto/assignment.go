package dto

// ── 分配模块 DTO ──

// AssignRequest 分配 intermittent 请求
type AssignRequest struct {
	IntermittentIDs []string `json:"intermittent_ids" binding:"required,min=1,dive,uuid"`
}

// RespondRequest intermittent 回复请求
type RespondRequest struct {
	ResponseType     string   `json:"response_type"     binding:"required,oneof=accept refuse propose_alternative"`
	Comment          string   `json:"comment"           binding:"omitempty,max=2000"`
	AlternativeDates []string `json:"alternative_dates"`
}

// ValidateTeamRequest 团队确认提交
// selections 为空时使用已保存的草稿
type ValidateTeamRequest struct {
	Selections map[string]string `json:"selections"` // assignment_id → pending | selected | not_selected
}

// CandidateSearchRequest 候选人查询
type CandidateSearchRequest struct {
	Q string `form:"q" binding:"omitempty,max=100"`
}

// AssignmentResponse 分配响应
type AssignmentResponse struct {
	ID                    string             `json:"id"`
	EventID               string             `json:"event_id"`
	IntermittentProfileID string             `json:"intermittent_profile_id"`
	StatutDisponibilite   string             `json:"statut_disponibilite"`
	DateReponse           string             `json:"date_reponse,omitempty"`
	Intermittent          *IntermittentBrief `json:"intermittent,omitempty"`
	CreatedAt             string             `json:"created_at"`
}

// ResponseHistoryItem 回复历史条目
type ResponseHistoryItem struct {
	ID               string   `json:"id"`
	ResponseType     string   `json:"response_type"`
	Comment          string   `json:"comment,omitempty"`
	AlternativeDates []string `json:"alternative_dates,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// TeamMember 团队确认面板条目
type TeamMember struct {
	Assignment AssignmentResponse   `json:"assignment"`
	Selection  string               `json:"selection"`
	LastReply  *ResponseHistoryItem `json:"last_reply,omitempty"`
}

// TeamValidationResult 团队确认结果
type TeamValidationResult struct {
	Validated int `json:"validated"`
	Rejected  int `json:"rejected"`
	Skipped   int `json:"skipped"`
}

// MyAssignmentItem intermittent 仪表盘条目
type MyAssignmentItem struct {
	Assignment         AssignmentResponse          `json:"assignment"`
	Event              EventResponse               `json:"event"`
	ReplacementRequest *ReplacementRequestResponse `json:"replacement_request,omitempty"`
}

// AssignmentStats 仪表盘统计
type AssignmentStats struct {
	Total     int `json:"total"`
	Proposed  int `json:"proposed"`  // propose
	Accepted  int `json:"accepted"`  // valide
	Completed int `json:"completed"` // valide 且已结束
}

// MyAssignmentsResponse intermittent 仪表盘
type MyAssignmentsResponse struct {
	Items []MyAssignmentItem `json:"items"`
	Stats AssignmentStats    `json:"stats"`
}

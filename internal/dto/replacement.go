package dto

// ── 替换申请模块 DTO ──

// SubmitReplacementRequest 提交替换申请
type SubmitReplacementRequest struct {
	AssignmentID string   `json:"assignment_id"   binding:"required,uuid"`
	RequestType  string   `json:"request_type"    binding:"required,oneof=urgent souhaite"`
	Comment      string   `json:"comment"         binding:"max=2000"`
	SuggestedIDs []string `json:"suggested_ids"   binding:"omitempty,dive,uuid"`
}

// ReviewReplacementRequest régisseur 审核
type ReviewReplacementRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve_awaiting approve_found reject"`
}

// ReplacementListRequest 列表查询
type ReplacementListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=pending_approval approved_awaiting_replacement approved_replacement_found rejected_by_regisseur cancelled_by_intermittent"`
}

// ReplacementRequestResponse 替换申请响应
type ReplacementRequestResponse struct {
	ID                     string              `json:"id"`
	EventAssignmentID      string              `json:"event_assignment_id"`
	EventID                string              `json:"event_id,omitempty"`
	EventName              string              `json:"event_name,omitempty"`
	Requester              *IntermittentBrief  `json:"requester,omitempty"`
	RequestType            string              `json:"request_type"`
	Comment                string              `json:"comment"`
	SuggestedIntermittents []IntermittentBrief `json:"suggested_intermittents"`
	Status                 string              `json:"status"`
	CreatedAt              string              `json:"created_at"`
	UpdatedAt              string              `json:"updated_at"`
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

// ReplacementHandler 替换申请 HTTP 处理器
type ReplacementHandler struct {
	replacementSvc service.ReplacementService
}

// NewReplacementHandler 创建 ReplacementHandler
func NewReplacementHandler(replacementSvc service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{replacementSvc: replacementSvc}
}

// Submit 提交替换申请
// POST /api/v1/replacements
func (h *ReplacementHandler) Submit(c *gin.Context) {
	var req dto.SubmitReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.replacementSvc.Submit(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.Created(c, result)
}

// List 替换申请列表（régisseur 收到的 / intermittent 本人的）
// GET /api/v1/replacements
func (h *ReplacementHandler) List(c *gin.Context) {
	var req dto.ReplacementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.replacementSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 替换申请详情
// GET /api/v1/replacements/:id
func (h *ReplacementHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.replacementSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OK(c, result)
}

// Review régisseur 审核
// POST /api/v1/replacements/:id/review
func (h *ReplacementHandler) Review(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.replacementSvc.Review(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 申请人撤回
// POST /api/v1/replacements/:id/cancel
func (h *ReplacementHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.replacementSvc.Cancel(c.Request.Context(), actor, id); err != nil {
		h.handleReplacementError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleReplacementError 统一处理替换申请模块业务错误
func (h *ReplacementHandler) handleReplacementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReplacementNotFound):
		response.NotFound(c, 15001, err.Error())
	case errors.Is(err, service.ErrReasonRequired):
		response.BadRequest(c, 15002, err.Error())
	case errors.Is(err, model.ErrSuggestionLimit):
		response.BadRequest(c, 15003, err.Error())
	case errors.Is(err, service.ErrInvalidRequestType):
		response.BadRequest(c, 15004, err.Error())
	case errors.Is(err, service.ErrDuplicateSuggestion):
		response.BadRequest(c, 15005, err.Error())
	case errors.Is(err, service.ErrSuggestionAlreadyAssigned):
		response.BadRequest(c, 15006, err.Error())
	case errors.Is(err, service.ErrAssignmentNotValidated):
		response.Conflict(c, 15007, err.Error())
	case errors.Is(err, service.ErrActiveRequestExists):
		response.Conflict(c, 15008, err.Error())
	case errors.Is(err, service.ErrRequestNotPending):
		response.Conflict(c, 15009, err.Error())
	case errors.Is(err, service.ErrRequestNotCancellable):
		response.Conflict(c, 15010, err.Error())
	case errors.Is(err, service.ErrNotRequester):
		response.Forbidden(c, 15011, err.Error())
	case errors.Is(err, service.ErrInvalidDecision):
		response.BadRequest(c, 15012, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrNotAssignee):
		response.Forbidden(c, 14002, err.Error())
	case errors.Is(err, service.ErrUnknownIntermittent):
		response.BadRequest(c, 13006, err.Error())
	case errors.Is(err, service.ErrNotEventOwner):
		response.Forbidden(c, 13002, err.Error())
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"stage-planner/internal/dto"
	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

// AssignmentHandler 分配与团队确认 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
	calendarSvc   service.CalendarService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService, calendarSvc service.CalendarService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc, calendarSvc: calendarSvc}
}

// Assign 分配 intermittent（已分配者跳过）
// POST /api/v1/events/:id/assignments
func (h *AssignmentHandler) Assign(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	added, err := h.assignmentSvc.Assign(c.Request.Context(), actor, eventID, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.Created(c, gin.H{"list": added})
}

// Unassign 删除分配
// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.assignmentSvc.Unassign(c.Request.Context(), actor, id); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// Respond intermittent 回复邀请
// POST /api/v1/assignments/:id/respond
func (h *AssignmentHandler) Respond(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.Respond(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// History 回复历史
// GET /api/v1/assignments/:id/responses
func (h *AssignmentHandler) History(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.assignmentSvc.History(c.Request.Context(), actor, id)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// TeamBoard 团队确认面板
// GET /api/v1/events/:id/team
func (h *AssignmentHandler) TeamBoard(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	members, err := h.assignmentSvc.TeamBoard(c.Request.Context(), actor, eventID)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// CycleSelection 切换草稿选择 pending → selected → not_selected → pending
// POST /api/v1/events/:id/team/:assignmentId/cycle
func (h *AssignmentHandler) CycleSelection(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	assignmentID, ok := paramID(c, "assignmentId")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	sel, err := h.assignmentSvc.CycleSelection(c.Request.Context(), actor, eventID, assignmentID)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"assignment_id": assignmentID, "selection": sel})
}

// ValidateTeam 提交团队确认，请求体为空时使用草稿
// POST /api/v1/events/:id/team/validate
func (h *AssignmentHandler) ValidateTeam(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.ValidateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.ValidateTeam(c.Request.Context(), actor, eventID, &req)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// Candidates 可分配的 intermittent
// GET /api/v1/events/:id/candidates?q=
func (h *AssignmentHandler) Candidates(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.CandidateSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.assignmentSvc.Candidates(c.Request.Context(), actor, eventID, req.Q)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// MyAssignments intermittent 仪表盘
// GET /api/v1/me/assignments
func (h *AssignmentHandler) MyAssignments(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.assignmentSvc.MyAssignments(c.Request.Context(), actor)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, result)
}

// MyCalendar intermittent 的 iCalendar 订阅
// GET /api/v1/me/calendar.ics
func (h *AssignmentHandler) MyCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	feed, err := h.calendarSvc.Feed(c.Request.Context(), actor)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="planning.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

// handleAssignmentError 统一处理分配模块业务错误
func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 14001, err.Error())
	case errors.Is(err, service.ErrNotAssignee):
		response.Forbidden(c, 14002, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 14003, err.Error())
	case errors.Is(err, service.ErrInvalidResponseType):
		response.BadRequest(c, 14004, err.Error())
	case errors.Is(err, service.ErrAlternativeDatesRequired):
		response.BadRequest(c, 14005, err.Error())
	case errors.Is(err, service.ErrInvalidAlternativeDate):
		response.BadRequest(c, 14006, err.Error())
	case errors.Is(err, service.ErrInvalidSelection):
		response.BadRequest(c, 14007, err.Error())
	case errors.Is(err, service.ErrAssignmentNotInTeam):
		response.BadRequest(c, 14008, err.Error())
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrNotEventOwner):
		response.Forbidden(c, 13002, err.Error())
	case errors.Is(err, service.ErrUnknownIntermittent):
		response.BadRequest(c, 13006, err.Error())
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}

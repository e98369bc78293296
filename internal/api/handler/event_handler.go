package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"stage-planner/internal/dto"
	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

// EventHandler 活动模块 HTTP 处理器（含时间线与信息栏）
type EventHandler struct {
	eventSvc    service.EventService
	planningSvc service.PlanningService
}

// NewEventHandler 创建 EventHandler
func NewEventHandler(eventSvc service.EventService, planningSvc service.PlanningService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc, planningSvc: planningSvc}
}

// CreateEvent 创建活动
// POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.eventSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.Created(c, result)
}

// ListEvents 活动列表
// GET /api/v1/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	var req dto.EventListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.eventSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetEvent 活动详情
// GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	detail, err := h.eventSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, detail)
}

// UpdateEvent 更新活动
// PUT /api/v1/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.eventSvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteEvent 删除活动及其全部子记录
// DELETE /api/v1/events/:id
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	if err := h.eventSvc.Delete(c.Request.Context(), actor, id); err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, nil)
}

// DuplicateEvent 复制活动
// POST /api/v1/events/:id/duplicate
func (h *EventHandler) DuplicateEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	result, err := h.eventSvc.Duplicate(c.Request.Context(), actor, id)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.Created(c, result)
}

// SavePlanning 整体替换时间线
// PUT /api/v1/events/:id/planning
func (h *EventHandler) SavePlanning(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.SavePlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	items, err := h.planningSvc.SavePlanning(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"list": items})
}

// SaveInformation 整体替换部门信息栏
// PUT /api/v1/events/:id/information
func (h *EventHandler) SaveInformation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.SaveInformationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	fields, err := h.planningSvc.SaveInformation(c.Request.Context(), actor, id, &req)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"list": fields})
}

// handleEventError 统一处理活动模块业务错误
func (h *EventHandler) handleEventError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrNotEventOwner):
		response.Forbidden(c, 13002, err.Error())
	case errors.Is(err, service.ErrEventNameRequired):
		response.BadRequest(c, 13003, err.Error())
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 13004, err.Error())
	case errors.Is(err, service.ErrInvalidDateFilter):
		response.BadRequest(c, 13005, err.Error())
	case errors.Is(err, service.ErrUnknownIntermittent):
		response.BadRequest(c, 13006, err.Error())
	case errors.Is(err, service.ErrInvalidPlanningGroup):
		response.BadRequest(c, 13007, err.Error())
	case errors.Is(err, service.ErrUnknownInfoField):
		response.BadRequest(c, 13008, err.Error())
	case errors.Is(err, service.ErrDuplicateInfoField):
		response.BadRequest(c, 13009, err.Error())
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}

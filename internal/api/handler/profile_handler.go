package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"stage-planner/internal/dto"
	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

// ProfileHandler 档案模块 HTTP 处理器
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// GetMe 获取本人档案
// GET /api/v1/profiles/me
func (h *ProfileHandler) GetMe(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	profile, err := h.profileSvc.GetMe(c.Request.Context(), actor)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, profile)
}

// UpdateMe 更新本人档案
// PUT /api/v1/profiles/me
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	profile, err := h.profileSvc.UpdateMe(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, profile)
}

// SearchIntermittents intermittent 目录
// GET /api/v1/intermittents?q=
func (h *ProfileHandler) SearchIntermittents(c *gin.Context) {
	var req dto.IntermittentSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	list, err := h.profileSvc.SearchIntermittents(c.Request.Context(), req.Q)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *ProfileHandler) handleProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, err.Error())
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}

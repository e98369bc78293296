package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"stage-planner/internal/dto"
	"stage-planner/internal/service"
	"stage-planner/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// FeuilleDeRoute 导出活动的 feuille de route
// GET /api/v1/events/:id/feuille-de-route?groupe=tous&format=pdf
func (h *ExportHandler) FeuilleDeRoute(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req dto.FeuilleDeRouteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "Paramètres invalides")
		return
	}

	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	file, err := h.exportSvc.FeuilleDeRoute(c.Request.Context(), actor, eventID, req.Groupe, req.Format)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, file)
}

// Team 导出团队名单
// GET /api/v1/events/:id/team/export
func (h *ExportHandler) Team(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	file, err := h.exportSvc.Team(c.Request.Context(), actor, eventID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	sendFile(c, file)
}

// sendFile 设置下载响应头并写出文件
func sendFile(c *gin.Context, file *service.ExportFile) {
	encodedFilename := url.QueryEscape(file.Filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, file.ContentType, file.Buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidExportFormat):
		response.BadRequest(c, 17001, err.Error())
	case errors.Is(err, service.ErrInvalidExportGroup):
		response.BadRequest(c, 17002, err.Error())
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	case errors.Is(err, service.ErrEventNotFound):
		response.NotFound(c, 13001, err.Error())
	case errors.Is(err, service.ErrNotEventOwner):
		response.Forbidden(c, 13002, err.Error())
	case handleCommonError(c, err):
	default:
		response.InternalError(c)
	}
}

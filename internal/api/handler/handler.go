package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stage-planner/config"
	"stage-planner/internal/service"
	pkgerrors "stage-planner/pkg/errors"
	"stage-planner/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Profile      *ProfileHandler
	Event        *EventHandler
	Assignment   *AssignmentHandler
	Replacement  *ReplacementHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, cfg.Auth.RefreshTokenTTL),
		Profile:      NewProfileHandler(svc.Profile),
		Event:        NewEventHandler(svc.Event, svc.Planning),
		Assignment:   NewAssignmentHandler(svc.Assignment, svc.Calendar),
		Replacement:  NewReplacementHandler(svc.Replacement),
		Notification: NewNotificationHandler(svc.Notification, cfg.Realtime.KeepAlive),
		Export:       NewExportHandler(svc.Export),
	}
}

// handleCommonError 处理跨模块共享的错误，未识别时返回 false
func handleCommonError(c *gin.Context, err error) bool {
	var partial *pkgerrors.PartialWriteError
	switch {
	case errors.As(err, &partial):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 10006, pkgerrors.ErrPartialWrite.Error(),
			fmt.Sprintf("étape %q, %d écriture(s) appliquée(s)", partial.Step, partial.Applied))
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, service.ErrProfileRequired):
		response.Forbidden(c, 10004, err.Error())
	default:
		return false
	}
	return true
}

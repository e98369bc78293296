package service

import (
	"go.uber.org/zap"

	"stage-planner/config"
	"stage-planner/internal/realtime"
	"stage-planner/internal/repository"
	"stage-planner/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Profile      ProfileService
	Event        EventService
	Planning     PlanningService
	Assignment   AssignmentService
	Replacement  ReplacementService
	Notification NotificationService
	Export       ExportService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合
// blacklist 为 nil 时（未配置 Redis）登出与刷新不做吊销
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	hub realtime.Hub,
	logger *zap.Logger,
) *Service {
	notifications := NewNotificationService(repo, hub, cfg.Workflow.NotificationPageSize, logger)
	profiles := NewProfileService(repo, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, blacklist, profiles, logger),
		Profile:      profiles,
		Event:        NewEventService(repo, logger),
		Planning:     NewPlanningService(repo, logger),
		Assignment:   NewAssignmentService(repo, notifications, logger),
		Replacement:  NewReplacementService(repo, notifications, cfg.Workflow.MaxSuggestions, logger),
		Notification: notifications,
		Export:       NewExportService(repo, logger),
		Calendar:     NewCalendarService(repo, cfg.Server.BaseURL, logger),
	}
}

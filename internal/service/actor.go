package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
)

// ── 通用业务错误 ──

var (
	ErrPermissionDenied = errors.New("accès refusé")
	ErrProfileRequired  = errors.New("profil introuvable pour cet utilisateur")
)

// Actor 当前请求的身份上下文，由中间件在每个请求中解析一次
type Actor struct {
	UserID    string
	Role      string
	ProfileID string // régisseur 或 intermittent 档案 ID；admin 为空
}

// IsRegisseur 是否为 régisseur
func (a *Actor) IsRegisseur() bool {
	return a != nil && a.Role == model.RoleRegisseur && a.ProfileID != ""
}

// IsIntermittent 是否为 intermittent
func (a *Actor) IsIntermittent() bool {
	return a != nil && a.Role == model.RoleIntermittent && a.ProfileID != ""
}

// timeLayout 响应中的时间格式
const timeLayout = time.RFC3339

func formatTime(t time.Time) string { return t.Format(timeLayout) }

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optionalString 空白字符串视为 NULL
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// loadEvent 读取活动，不存在时返回 ErrEventNotFound
func loadEvent(ctx context.Context, repo *repository.Repository, logger *zap.Logger, eventID string) (*model.Event, error) {
	event, err := repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		logger.Error("查询活动失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	return event, nil
}

// loadOwnedEvent 读取活动并校验调用者是其 régisseur
func loadOwnedEvent(ctx context.Context, repo *repository.Repository, logger *zap.Logger, actor *Actor, eventID string) (*model.Event, error) {
	if !actor.IsRegisseur() {
		return nil, ErrPermissionDenied
	}
	event, err := loadEvent(ctx, repo, logger, eventID)
	if err != nil {
		return nil, err
	}
	if event.RegisseurID != actor.ProfileID {
		return nil, ErrNotEventOwner
	}
	return event, nil
}

// loadAssignment 读取分配，不存在时返回 ErrAssignmentNotFound
func loadAssignment(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.Assignment, error) {
	a, err := repo.Assignment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		logger.Error("查询分配失败", zap.String("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func toIntermittentBrief(p *model.IntermittentProfile) *dto.IntermittentBrief {
	if p == nil {
		return nil
	}
	return &dto.IntermittentBrief{
		ID:         p.ID,
		Nom:        p.Nom,
		Prenom:     p.Prenom,
		Email:      p.Email,
		Specialite: derefString(p.Specialite),
	}
}

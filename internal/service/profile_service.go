package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
)

// ProfileService 档案业务接口
type ProfileService interface {
	// ResolveActor 按角色加载档案，构造请求身份上下文
	ResolveActor(ctx context.Context, userID, role string) (*Actor, error)
	GetMe(ctx context.Context, actor *Actor) (*dto.ProfileResponse, error)
	UpdateMe(ctx context.Context, actor *Actor, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	SearchIntermittents(ctx context.Context, q string) ([]dto.IntermittentBrief, error)
}

type profileService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(repo *repository.Repository, logger *zap.Logger) ProfileService {
	return &profileService{repo: repo, logger: logger}
}

// ────────────────────── ResolveActor ──────────────────────

func (s *profileService) ResolveActor(ctx context.Context, userID, role string) (*Actor, error) {
	actor := &Actor{UserID: userID, Role: role}

	var (
		profileID string
		err       error
	)
	switch role {
	case model.RoleRegisseur:
		var p *model.RegisseurProfile
		if p, err = s.repo.Regisseur.GetByUserID(ctx, userID); err == nil {
			profileID = p.ID
		}
	case model.RoleIntermittent:
		var p *model.IntermittentProfile
		if p, err = s.repo.Intermittent.GetByUserID(ctx, userID); err == nil {
			profileID = p.ID
		}
	default:
		return actor, nil
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileRequired
		}
		s.logger.Error("查询档案失败", zap.String("user_id", userID), zap.String("role", role), zap.Error(err))
		return nil, err
	}
	actor.ProfileID = profileID
	return actor, nil
}

// ────────────────────── GetMe ──────────────────────

func (s *profileService) GetMe(ctx context.Context, actor *Actor) (*dto.ProfileResponse, error) {
	switch {
	case actor.IsRegisseur():
		p, err := s.repo.Regisseur.GetByID(ctx, actor.ProfileID)
		if err != nil {
			return nil, s.wrapNotFound(err, actor)
		}
		return toRegisseurProfileResponse(p), nil
	case actor.IsIntermittent():
		p, err := s.repo.Intermittent.GetByID(ctx, actor.ProfileID)
		if err != nil {
			return nil, s.wrapNotFound(err, actor)
		}
		return toIntermittentProfileResponse(p), nil
	}
	return nil, ErrProfileRequired
}

// ────────────────────── UpdateMe ──────────────────────

func (s *profileService) UpdateMe(ctx context.Context, actor *Actor, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	switch {
	case actor.IsRegisseur():
		p, err := s.repo.Regisseur.GetByID(ctx, actor.ProfileID)
		if err != nil {
			return nil, s.wrapNotFound(err, actor)
		}
		applyString(&p.Nom, req.Nom)
		applyString(&p.Prenom, req.Prenom)
		applyOptional(&p.Telephone, req.Telephone)
		applyOptional(&p.Organisation, req.Organisation)
		p.RefreshCompleteness()

		if err := s.repo.Regisseur.Update(ctx, p); err != nil {
			s.logger.Error("更新 régisseur 档案失败", zap.String("id", p.ID), zap.Error(err))
			return nil, err
		}
		return toRegisseurProfileResponse(p), nil

	case actor.IsIntermittent():
		p, err := s.repo.Intermittent.GetByID(ctx, actor.ProfileID)
		if err != nil {
			return nil, s.wrapNotFound(err, actor)
		}
		applyString(&p.Nom, req.Nom)
		applyString(&p.Prenom, req.Prenom)
		applyOptional(&p.Telephone, req.Telephone)
		applyOptional(&p.Specialite, req.Specialite)
		applyOptional(&p.Bio, req.Bio)
		p.RefreshCompleteness()

		if err := s.repo.Intermittent.Update(ctx, p); err != nil {
			s.logger.Error("更新 intermittent 档案失败", zap.String("id", p.ID), zap.Error(err))
			return nil, err
		}
		return toIntermittentProfileResponse(p), nil
	}
	return nil, ErrProfileRequired
}

// ────────────────────── SearchIntermittents ──────────────────────

func (s *profileService) SearchIntermittents(ctx context.Context, q string) ([]dto.IntermittentBrief, error) {
	profiles, err := s.repo.Intermittent.Search(ctx, q, nil)
	if err != nil {
		s.logger.Error("查询 intermittent 目录失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.IntermittentBrief, 0, len(profiles))
	for i := range profiles {
		result = append(result, *toIntermittentBrief(&profiles[i]))
	}
	return result, nil
}

// ── 辅助函数 ──

func (s *profileService) wrapNotFound(err error, actor *Actor) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProfileRequired
	}
	s.logger.Error("查询档案失败", zap.String("profile_id", actor.ProfileID), zap.Error(err))
	return err
}

func applyString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// applyOptional 传入空字符串时清空字段
func applyOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	*dst = optionalString(strings.TrimSpace(*v))
}

func toRegisseurProfileResponse(p *model.RegisseurProfile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Role:           model.RoleRegisseur,
		Nom:            p.Nom,
		Prenom:         p.Prenom,
		Email:          p.Email,
		Telephone:      derefString(p.Telephone),
		Organisation:   derefString(p.Organisation),
		ProfilComplete: p.ProfilComplete,
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

func toIntermittentProfileResponse(p *model.IntermittentProfile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Role:           model.RoleIntermittent,
		Nom:            p.Nom,
		Prenom:         p.Prenom,
		Email:          p.Email,
		Telephone:      derefString(p.Telephone),
		Specialite:     derefString(p.Specialite),
		Bio:            derefString(p.Bio),
		ProfilComplete: p.ProfilComplete,
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

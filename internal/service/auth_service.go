package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"stage-planner/config"
	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
	pkgerrors "stage-planner/pkg/errors"
	"stage-planner/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("email ou mot de passe incorrect")
	ErrUserNotFound       = errors.New("utilisateur introuvable")
	ErrEmailTaken         = errors.New("cet email est déjà utilisé")
	ErrInvalidToken       = errors.New("jeton de rafraîchissement invalide")
	ErrTokenRevoked       = errors.New("jeton révoqué")
	ErrWrongPassword      = errors.New("ancien mot de passe incorrect")

	ErrInvalidRegisseurInput = errors.New("email, mot de passe (8 caractères min.), nom et prénom requis")
)

// 会话新鲜度
const (
	SessionActive   = "active"
	SessionExpiring = "expiring"
)

// TokenBlacklist JWT 吊销存储（pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// RegisseurInput stagectl 创建 régisseur 的参数
type RegisseurInput struct {
	Email        string
	Password     string
	Nom          string
	Prenom       string
	Organisation string
}

// AuthService 认证业务接口
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	Session(expiresAt time.Time) *dto.SessionResponse
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	// ProvisionRegisseur 创建 régisseur 账号与档案（régisseur 不能自助注册）
	ProvisionRegisseur(ctx context.Context, in *RegisseurInput) (*model.RegisseurProfile, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	profiles  ProfileService
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	profiles ProfileService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		profiles:  profiles,
		logger:    logger,
	}
}

// ────────────────────── Register ──────────────────────

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	// 角色固定为 intermittent
	user := &model.User{Email: email, PasswordHash: string(hash), Role: model.RoleIntermittent}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	profile := &model.IntermittentProfile{
		UserID:     user.UserID,
		Nom:        strings.TrimSpace(req.Nom),
		Prenom:     strings.TrimSpace(req.Prenom),
		Email:      email,
		Specialite: req.Specialite,
	}
	profile.RefreshCompleteness()
	if err := s.repo.Intermittent.Create(ctx, profile); err != nil {
		s.logger.Error("创建 intermittent 档案失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, pkgerrors.Partial("profil", 1, err)
	}

	return &dto.RegisterResponse{ID: user.UserID, Email: user.Email, ProfileID: profile.ID}, nil
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(ctx, user)
}

// ────────────────────── Refresh ──────────────────────

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("检查 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	// Refresh Token 单次有效
	if s.blacklist != nil && claims.ExpiresAt != nil {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Error("吊销 RefreshToken 失败", zap.Error(err))
			return nil, err
		}
	}

	return s.issueTokens(ctx, user)
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("吊销 AccessToken 失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Session ──────────────────────

func (s *authService) Session(expiresAt time.Time) *dto.SessionResponse {
	remaining := time.Until(expiresAt)
	status := SessionActive
	if remaining < s.cfg.Auth.SessionExpiringWindow {
		status = SessionExpiring
	}
	if remaining < 0 {
		remaining = 0
	}
	return &dto.SessionResponse{
		Status:    status,
		ExpiresAt: formatTime(expiresAt),
		ExpiresIn: int(remaining.Seconds()),
	}
}

// ────────────────────── ChangePassword ──────────────────────

func (s *authService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}
	user.PasswordHash = string(hash)

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新密码失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ProvisionRegisseur ──────────────────────

func (s *authService) ProvisionRegisseur(ctx context.Context, in *RegisseurInput) (*model.RegisseurProfile, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || len(in.Password) < 8 || strings.TrimSpace(in.Nom) == "" || strings.TrimSpace(in.Prenom) == "" {
		return nil, ErrInvalidRegisseurInput
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{Email: email, PasswordHash: string(hash), Role: model.RoleRegisseur}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	profile := &model.RegisseurProfile{
		UserID:       user.UserID,
		Nom:          strings.TrimSpace(in.Nom),
		Prenom:       strings.TrimSpace(in.Prenom),
		Email:        email,
		Organisation: optionalString(strings.TrimSpace(in.Organisation)),
	}
	profile.RefreshCompleteness()
	if err := s.repo.Regisseur.Create(ctx, profile); err != nil {
		s.logger.Error("创建 régisseur 档案失败", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, pkgerrors.Partial("profil", 1, err)
	}

	s.logger.Info("régisseur 已创建", zap.String("user_id", user.UserID), zap.String("profile_id", profile.ID))
	return profile, nil
}

// ── 辅助函数 ──

func (s *authService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) issueTokens(ctx context.Context, user *model.User) (*dto.TokenResponse, error) {
	access, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}
	refresh, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	// 档案缺失不影响登录，前端据此引导补全
	var profileID string
	if actor, err := s.profiles.ResolveActor(ctx, user.UserID, user.Role); err == nil {
		profileID = actor.ProfileID
	} else if !errors.Is(err, ErrProfileRequired) {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User: dto.UserResponse{
			ID:        user.UserID,
			Email:     user.Email,
			Role:      user.Role,
			ProfileID: profileID,
		},
	}, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
	pkgerrors "stage-planner/pkg/errors"
)

// ── 替换申请模块业务错误 ──

var (
	ErrReplacementNotFound       = errors.New("demande de remplacement introuvable")
	ErrReasonRequired            = errors.New("veuillez indiquer la raison de votre demande")
	ErrInvalidRequestType        = errors.New("type de demande invalide (urgent ou souhaite)")
	ErrDuplicateSuggestion       = errors.New("un intermittent ne peut être suggéré qu'une seule fois")
	ErrSuggestionAlreadyAssigned = errors.New("un intermittent suggéré est déjà assigné à cet événement")
	ErrAssignmentNotValidated    = errors.New("seule une assignation validée peut faire l'objet d'un remplacement")
	ErrActiveRequestExists       = errors.New("une demande de remplacement est déjà en cours pour cette assignation")
	ErrRequestNotPending         = errors.New("cette demande a déjà été traitée")
	ErrRequestNotCancellable     = errors.New("cette demande ne peut plus être annulée")
	ErrNotRequester              = errors.New("cette demande ne vous appartient pas")
	ErrInvalidDecision           = errors.New("décision invalide")
)

const stepNotification = "notification"

// 审核决定
const (
	DecisionApproveAwaiting = "approve_awaiting"
	DecisionApproveFound    = "approve_found"
	DecisionReject          = "reject"
)

// ReplacementService 替换申请业务接口
type ReplacementService interface {
	Submit(ctx context.Context, actor *Actor, req *dto.SubmitReplacementRequest) (*dto.ReplacementRequestResponse, error)
	Review(ctx context.Context, actor *Actor, id string, req *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error)
	Cancel(ctx context.Context, actor *Actor, id string) error
	Get(ctx context.Context, actor *Actor, id string) (*dto.ReplacementRequestResponse, error)
	List(ctx context.Context, actor *Actor, req *dto.ReplacementListRequest) ([]dto.ReplacementRequestResponse, int64, error)
}

type replacementService struct {
	repo           *repository.Repository
	notifications  NotificationService
	maxSuggestions int
	logger         *zap.Logger
}

// NewReplacementService 创建 ReplacementService 实例
func NewReplacementService(repo *repository.Repository, notifications NotificationService, maxSuggestions int, logger *zap.Logger) ReplacementService {
	if maxSuggestions <= 0 {
		maxSuggestions = 3
	}
	return &replacementService{
		repo:           repo,
		notifications:  notifications,
		maxSuggestions: maxSuggestions,
		logger:         logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Submit: 申请与通知是两次独立写入，通知失败不回滚申请
// ═══════════════════════════════════════════════════════════

func (s *replacementService) Submit(ctx context.Context, actor *Actor, req *dto.SubmitReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	if !actor.IsIntermittent() {
		return nil, ErrPermissionDenied
	}

	// 1. 输入校验
	reason := strings.TrimSpace(req.Comment)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if req.RequestType != model.RequestTypeUrgent && req.RequestType != model.RequestTypeSouhaite {
		return nil, ErrInvalidRequestType
	}
	suggestions := model.NewSuggestionSet(s.maxSuggestions)
	seen := make(map[string]bool, len(req.SuggestedIDs))
	for _, id := range req.SuggestedIDs {
		if seen[id] {
			return nil, ErrDuplicateSuggestion
		}
		seen[id] = true
		if err := suggestions.Toggle(id); err != nil {
			return nil, err
		}
	}

	// 2. 分配校验
	a, err := loadAssignment(ctx, s.repo, s.logger, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.IntermittentProfileID != actor.ProfileID {
		return nil, ErrNotAssignee
	}
	if a.StatutDisponibilite != model.StatusValide {
		return nil, ErrAssignmentNotValidated
	}
	if a.Event == nil {
		return nil, ErrEventNotFound
	}

	active, err := s.repo.Replacement.CountActiveByAssignment(ctx, a.ID)
	if err != nil {
		s.logger.Error("查询进行中申请失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return nil, err
	}
	if active > 0 {
		return nil, ErrActiveRequestExists
	}

	// 3. 推荐人校验：必须存在且未在该活动持有分配
	suggested, err := s.checkSuggestions(ctx, a.EventID, suggestions.IDs())
	if err != nil {
		return nil, err
	}

	regisseur, err := s.repo.Regisseur.GetByID(ctx, a.Event.RegisseurID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileRequired
		}
		s.logger.Error("查询 régisseur 失败", zap.String("regisseur_id", a.Event.RegisseurID), zap.Error(err))
		return nil, err
	}

	// 4. 申请
	rr := &model.ReplacementRequest{
		EventAssignmentID:               a.ID,
		RequesterIntermittentProfileID:  actor.ProfileID,
		RegisseurID:                     a.Event.RegisseurID,
		RequestType:                     req.RequestType,
		Comment:                         reason,
		SuggestedIntermittentProfileIDs: model.StringArray(suggestions.IDs()),
		Status:                          model.ReplacementPending,
	}
	if err := s.repo.Replacement.Create(ctx, rr); err != nil {
		s.logger.Error("创建替换申请失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return nil, err
	}
	rr.Assignment = a
	rr.Requester = a.Intermittent
	resp := toReplacementResponse(rr, suggested)

	// 5. 通知活动 régisseur
	requesterName := "Un intermittent"
	if a.Intermittent != nil {
		requesterName = a.Intermittent.DisplayName()
	}
	eventID, requestID := a.EventID, rr.ID
	n := &model.Notification{
		UserID:           regisseur.UserID,
		Type:             model.NotificationReplacementRequest,
		Content:          fmt.Sprintf("%s demande à être remplacé(e) pour « %s ».", requesterName, a.Event.NomEvenement),
		RelatedEventID:   &eventID,
		RelatedRequestID: &requestID,
	}
	if err := s.notifications.Notify(ctx, n); err != nil {
		return resp, pkgerrors.Partial(stepNotification, 1, err)
	}

	return resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *replacementService) Review(ctx context.Context, actor *Actor, id string, req *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	if !actor.IsRegisseur() {
		return nil, ErrPermissionDenied
	}

	var status model.ReplacementStatus
	switch req.Decision {
	case DecisionApproveAwaiting:
		status = model.ReplacementApprovedAwaiting
	case DecisionApproveFound:
		status = model.ReplacementApprovedFound
	case DecisionReject:
		status = model.ReplacementRejected
	default:
		return nil, ErrInvalidDecision
	}

	rr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.RegisseurID != actor.ProfileID {
		return nil, ErrNotEventOwner
	}
	if rr.Status != model.ReplacementPending {
		return nil, ErrRequestNotPending
	}

	if err := s.repo.Replacement.UpdateStatus(ctx, rr.ID, status); err != nil {
		s.logger.Error("更新替换申请状态失败", zap.String("id", rr.ID), zap.Error(err))
		return nil, err
	}
	rr.Status = status

	suggested, err := s.suggestedProfiles(ctx, rr.SuggestedIntermittentProfileIDs)
	if err != nil {
		return nil, err
	}
	resp := toReplacementResponse(rr, suggested)

	if rr.Requester == nil {
		return resp, nil
	}
	n := s.reviewNotification(rr)
	if err := s.notifications.Notify(ctx, n); err != nil {
		return resp, pkgerrors.Partial(stepNotification, 1, err)
	}
	return resp, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *replacementService) Cancel(ctx context.Context, actor *Actor, id string) error {
	if !actor.IsIntermittent() {
		return ErrPermissionDenied
	}

	rr, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if rr.RequesterIntermittentProfileID != actor.ProfileID {
		return ErrNotRequester
	}
	if !rr.Status.IsActive() {
		return ErrRequestNotCancellable
	}

	if err := s.repo.Replacement.UpdateStatus(ctx, rr.ID, model.ReplacementCancelledByRequester); err != nil {
		s.logger.Error("取消替换申请失败", zap.String("id", rr.ID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Get ──────────────────────

func (s *replacementService) Get(ctx context.Context, actor *Actor, id string) (*dto.ReplacementRequestResponse, error) {
	rr, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsRegisseur() && rr.RegisseurID == actor.ProfileID:
	case actor.IsIntermittent() && rr.RequesterIntermittentProfileID == actor.ProfileID:
	default:
		return nil, ErrPermissionDenied
	}

	suggested, err := s.suggestedProfiles(ctx, rr.SuggestedIntermittentProfileIDs)
	if err != nil {
		return nil, err
	}
	return toReplacementResponse(rr, suggested), nil
}

// ────────────────────── List ──────────────────────

func (s *replacementService) List(ctx context.Context, actor *Actor, req *dto.ReplacementListRequest) ([]dto.ReplacementRequestResponse, int64, error) {
	var (
		list  []model.ReplacementRequest
		total int64
		err   error
	)
	switch {
	case actor.IsRegisseur():
		list, total, err = s.repo.Replacement.ListByRegisseur(ctx, actor.ProfileID, req.Status, req.GetOffset(), req.GetPageSize())
	case actor.IsIntermittent():
		list, total, err = s.repo.Replacement.ListByRequester(ctx, actor.ProfileID, req.Status, req.GetOffset(), req.GetPageSize())
	default:
		return nil, 0, ErrPermissionDenied
	}
	if err != nil {
		s.logger.Error("列出替换申请失败", zap.String("profile_id", actor.ProfileID), zap.Error(err))
		return nil, 0, err
	}

	var allIDs []string
	for _, rr := range list {
		allIDs = append(allIDs, rr.SuggestedIntermittentProfileIDs...)
	}
	suggested, err := s.suggestedProfiles(ctx, dedupe(allIDs))
	if err != nil {
		return nil, 0, err
	}

	result := make([]dto.ReplacementRequestResponse, 0, len(list))
	for i := range list {
		result = append(result, *toReplacementResponse(&list[i], suggested))
	}
	return result, total, nil
}

// ── 辅助函数 ──

func (s *replacementService) load(ctx context.Context, id string) (*model.ReplacementRequest, error) {
	rr, err := s.repo.Replacement.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReplacementNotFound
		}
		s.logger.Error("查询替换申请失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return rr, nil
}

func (s *replacementService) checkSuggestions(ctx context.Context, eventID string, ids []string) (map[string]*model.IntermittentProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	assigned, err := s.repo.Assignment.ListProfileIDsByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询已有分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	for _, id := range ids {
		if contains(assigned, id) {
			return nil, ErrSuggestionAlreadyAssigned
		}
	}

	profiles, err := s.suggestedProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(profiles) != len(ids) {
		return nil, ErrUnknownIntermittent
	}
	return profiles, nil
}

func (s *replacementService) suggestedProfiles(ctx context.Context, ids []string) (map[string]*model.IntermittentProfile, error) {
	out := make(map[string]*model.IntermittentProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	profiles, err := s.repo.Intermittent.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询推荐 intermittent 失败", zap.Error(err))
		return nil, err
	}
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out, nil
}

func (s *replacementService) reviewNotification(rr *model.ReplacementRequest) *model.Notification {
	eventName := ""
	var eventID *string
	if rr.Assignment != nil && rr.Assignment.Event != nil {
		eventName = rr.Assignment.Event.NomEvenement
		id := rr.Assignment.Event.ID
		eventID = &id
	}

	typ := model.NotificationRequestApproved
	content := fmt.Sprintf("Votre demande de remplacement pour « %s » a été acceptée.", eventName)
	switch rr.Status {
	case model.ReplacementApprovedAwaiting:
		content = fmt.Sprintf("Votre demande de remplacement pour « %s » a été acceptée, en attente d'un remplaçant.", eventName)
	case model.ReplacementApprovedFound:
		content = fmt.Sprintf("Votre demande de remplacement pour « %s » a été acceptée, un remplaçant a été trouvé.", eventName)
	case model.ReplacementRejected:
		typ = model.NotificationRequestRejected
		content = fmt.Sprintf("Votre demande de remplacement pour « %s » a été refusée.", eventName)
	}

	requestID := rr.ID
	return &model.Notification{
		UserID:           rr.Requester.UserID,
		Type:             typ,
		Content:          content,
		RelatedEventID:   eventID,
		RelatedRequestID: &requestID,
	}
}

// toReplacementResponse suggested 为空时只返回推荐人 ID
func toReplacementResponse(rr *model.ReplacementRequest, suggested map[string]*model.IntermittentProfile) *dto.ReplacementRequestResponse {
	resp := &dto.ReplacementRequestResponse{
		ID:                     rr.ID,
		EventAssignmentID:      rr.EventAssignmentID,
		Requester:              toIntermittentBrief(rr.Requester),
		RequestType:            rr.RequestType,
		Comment:                rr.Comment,
		SuggestedIntermittents: make([]dto.IntermittentBrief, 0, len(rr.SuggestedIntermittentProfileIDs)),
		Status:                 string(rr.Status),
		CreatedAt:              formatTime(rr.CreatedAt),
		UpdatedAt:              formatTime(rr.UpdatedAt),
	}
	if rr.Assignment != nil {
		resp.EventID = rr.Assignment.EventID
		if rr.Assignment.Event != nil {
			resp.EventName = rr.Assignment.Event.NomEvenement
		}
	}
	for _, id := range rr.SuggestedIntermittentProfileIDs {
		if p, ok := suggested[id]; ok {
			resp.SuggestedIntermittents = append(resp.SuggestedIntermittents, *toIntermittentBrief(p))
		} else {
			resp.SuggestedIntermittents = append(resp.SuggestedIntermittents, dto.IntermittentBrief{ID: id})
		}
	}
	return resp
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
	pkgerrors "stage-planner/pkg/errors"
)

// ── 分配模块业务错误 ──

var (
	ErrAssignmentNotFound       = errors.New("assignation introuvable")
	ErrNotAssignee              = errors.New("cette assignation ne vous concerne pas")
	ErrInvalidTransition        = errors.New("changement de statut non autorisé")
	ErrInvalidResponseType      = errors.New("type de réponse invalide")
	ErrAlternativeDatesRequired = errors.New("veuillez proposer au moins une date alternative")
	ErrInvalidAlternativeDate   = errors.New("date alternative invalide")
	ErrInvalidSelection         = errors.New("sélection invalide (pending, selected ou not_selected)")
	ErrAssignmentNotInTeam      = errors.New("cette assignation ne fait pas partie de l'équipe à valider")
)

const (
	stepResponse   = "reponse"
	stepValidation = "validation"
)

// alternativeDateLayouts 可接受的备选日期格式
var alternativeDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// AssignmentService 分配业务接口
type AssignmentService interface {
	Assign(ctx context.Context, actor *Actor, eventID string, req *dto.AssignRequest) ([]dto.AssignmentResponse, error)
	Unassign(ctx context.Context, actor *Actor, assignmentID string) error
	Respond(ctx context.Context, actor *Actor, assignmentID string, req *dto.RespondRequest) (*dto.AssignmentResponse, error)
	History(ctx context.Context, actor *Actor, assignmentID string) ([]dto.ResponseHistoryItem, error)
	TeamBoard(ctx context.Context, actor *Actor, eventID string) ([]dto.TeamMember, error)
	CycleSelection(ctx context.Context, actor *Actor, eventID, assignmentID string) (model.Selection, error)
	ValidateTeam(ctx context.Context, actor *Actor, eventID string, req *dto.ValidateTeamRequest) (*dto.TeamValidationResult, error)
	Candidates(ctx context.Context, actor *Actor, eventID, q string) ([]dto.IntermittentBrief, error)
	MyAssignments(ctx context.Context, actor *Actor) (*dto.MyAssignmentsResponse, error)
}

type assignmentService struct {
	repo          *repository.Repository
	notifications NotificationService
	logger        *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, notifications NotificationService, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, notifications: notifications, logger: logger}
}

// ────────────────────── Assign ──────────────────────

func (s *assignmentService) Assign(ctx context.Context, actor *Actor, eventID string, req *dto.AssignRequest) ([]dto.AssignmentResponse, error) {
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID); err != nil {
		return nil, err
	}

	ids := dedupe(req.IntermittentIDs)
	profiles, err := s.repo.Intermittent.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询 intermittent 失败", zap.Error(err))
		return nil, err
	}
	if len(profiles) != len(ids) {
		return nil, ErrUnknownIntermittent
	}

	existing, err := s.repo.Assignment.ListProfileIDsByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询已有分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	added, err := addAssignments(ctx, s.repo, eventID, ids, existing)
	if err != nil {
		s.logger.Error("创建分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	byID := make(map[string]*model.IntermittentProfile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}
	result := make([]dto.AssignmentResponse, 0, len(added))
	for i := range added {
		added[i].Intermittent = byID[added[i].IntermittentProfileID]
		result = append(result, *toAssignmentResponse(&added[i]))
	}
	return result, nil
}

// ────────────────────── Unassign ──────────────────────

func (s *assignmentService) Unassign(ctx context.Context, actor *Actor, assignmentID string) error {
	a, err := loadAssignment(ctx, s.repo, s.logger, assignmentID)
	if err != nil {
		return err
	}
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, a.EventID); err != nil {
		return err
	}

	ids := []string{a.ID}
	if err := s.repo.Replacement.DeleteByAssignments(ctx, ids); err != nil {
		s.logger.Error("删除替换申请失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return err
	}
	if err := s.repo.Response.DeleteByAssignments(ctx, ids); err != nil {
		s.logger.Error("删除回复历史失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return pkgerrors.Partial(stepResponses, 1, err)
	}
	if err := s.repo.Assignment.Delete(ctx, a.ID); err != nil {
		s.logger.Error("删除分配失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return pkgerrors.Partial(stepAssignments, 2, err)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// Respond: propose → disponible / incertain / non_disponible
// ═══════════════════════════════════════════════════════════

func (s *assignmentService) Respond(ctx context.Context, actor *Actor, assignmentID string, req *dto.RespondRequest) (*dto.AssignmentResponse, error) {
	if !actor.IsIntermittent() {
		return nil, ErrPermissionDenied
	}

	// 1. 写入前校验
	responseType := model.ResponseType(req.ResponseType)
	target, ok := responseType.TargetStatus()
	if !ok {
		return nil, ErrInvalidResponseType
	}

	var dates model.StringArray
	if responseType == model.ResponseProposeAlternative {
		var err error
		if dates, err = cleanAlternativeDates(req.AlternativeDates); err != nil {
			return nil, err
		}
	}

	a, err := loadAssignment(ctx, s.repo, s.logger, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.IntermittentProfileID != actor.ProfileID {
		return nil, ErrNotAssignee
	}
	if !a.StatutDisponibilite.CanTransitionTo(target) || target.WrittenBy() != model.RoleIntermittent {
		return nil, ErrInvalidTransition
	}

	// 2. 分配状态
	now := time.Now()
	if err := s.repo.Assignment.UpdateStatus(ctx, a.ID, target, &now); err != nil {
		s.logger.Error("更新分配状态失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return nil, err
	}
	a.StatutDisponibilite = target
	a.DateReponse = &now

	// 3. 回复历史
	resp := &model.EventResponse{
		EventAssignmentID: a.ID,
		ResponseType:      responseType,
		Comment:           optionalString(strings.TrimSpace(req.Comment)),
		AlternativeDates:  dates,
	}
	if err := s.repo.Response.Create(ctx, resp); err != nil {
		s.logger.Error("写入回复历史失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return toAssignmentResponse(a), pkgerrors.Partial(stepResponse, 1, err)
	}

	return toAssignmentResponse(a), nil
}

// ────────────────────── History ──────────────────────

func (s *assignmentService) History(ctx context.Context, actor *Actor, assignmentID string) ([]dto.ResponseHistoryItem, error) {
	a, err := loadAssignment(ctx, s.repo, s.logger, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := canAccessAssignment(actor, a); err != nil {
		return nil, err
	}

	list, err := s.repo.Response.ListByAssignment(ctx, a.ID)
	if err != nil {
		s.logger.Error("查询回复历史失败", zap.String("assignment_id", a.ID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ResponseHistoryItem, 0, len(list))
	for i := range list {
		result = append(result, toResponseHistoryItem(&list[i]))
	}
	return result, nil
}

// ────────────────────── TeamBoard ──────────────────────

func (s *assignmentService) TeamBoard(ctx context.Context, actor *Actor, eventID string) ([]dto.TeamMember, error) {
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID); err != nil {
		return nil, err
	}

	team, err := s.listTeam(ctx, eventID)
	if err != nil {
		return nil, err
	}

	drafts, err := s.repo.Drafts.Get(ctx, eventID)
	if err != nil {
		s.logger.Error("读取团队确认草稿失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(team))
	for _, a := range team {
		ids = append(ids, a.ID)
	}
	replies, err := s.repo.Response.LatestByAssignments(ctx, ids)
	if err != nil {
		s.logger.Error("查询最近回复失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.TeamMember, 0, len(team))
	for i := range team {
		sel, ok := drafts[team[i].ID]
		if !ok {
			sel = model.SelectionPending
		}
		member := dto.TeamMember{
			Assignment: *toAssignmentResponse(&team[i]),
			Selection:  string(sel),
		}
		if reply, ok := replies[team[i].ID]; ok {
			item := toResponseHistoryItem(&reply)
			member.LastReply = &item
		}
		result = append(result, member)
	}
	return result, nil
}

// ────────────────────── CycleSelection ──────────────────────

func (s *assignmentService) CycleSelection(ctx context.Context, actor *Actor, eventID, assignmentID string) (model.Selection, error) {
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID); err != nil {
		return "", err
	}

	a, err := loadAssignment(ctx, s.repo, s.logger, assignmentID)
	if err != nil {
		return "", err
	}
	if a.EventID != eventID || !a.StatutDisponibilite.IsValidatable() {
		return "", ErrAssignmentNotInTeam
	}

	drafts, err := s.repo.Drafts.Get(ctx, eventID)
	if err != nil {
		s.logger.Error("读取团队确认草稿失败", zap.String("event_id", eventID), zap.Error(err))
		return "", err
	}
	current, ok := drafts[assignmentID]
	if !ok {
		current = model.SelectionPending
	}

	next := current.Next()
	if err := s.repo.Drafts.Set(ctx, eventID, assignmentID, next); err != nil {
		s.logger.Error("保存团队确认草稿失败", zap.String("event_id", eventID), zap.Error(err))
		return "", err
	}
	return next, nil
}

// ═══════════════════════════════════════════════════════════
// ValidateTeam: 逐条独立写入，首个失败即停止并报告已完成数
// ═══════════════════════════════════════════════════════════

func (s *assignmentService) ValidateTeam(ctx context.Context, actor *Actor, eventID string, req *dto.ValidateTeamRequest) (*dto.TeamValidationResult, error) {
	event, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID)
	if err != nil {
		return nil, err
	}

	// 1. 选择来源：请求体优先，否则使用草稿
	selections := make(map[string]model.Selection)
	if req != nil && len(req.Selections) > 0 {
		for id, v := range req.Selections {
			sel := model.Selection(v)
			if !sel.IsValid() {
				return nil, ErrInvalidSelection
			}
			selections[id] = sel
		}
	} else {
		if selections, err = s.repo.Drafts.Get(ctx, eventID); err != nil {
			s.logger.Error("读取团队确认草稿失败", zap.String("event_id", eventID), zap.Error(err))
			return nil, err
		}
	}

	assignments, err := s.repo.Assignment.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	// 2. 逐条写入
	result := &dto.TeamValidationResult{}
	var changed []model.Assignment
	for _, a := range assignments {
		target, ok := selections[a.ID].TargetStatus()
		if !ok || !a.StatutDisponibilite.IsValidatable() || !a.StatutDisponibilite.CanTransitionTo(target) {
			result.Skipped++
			continue
		}

		if err := s.repo.Assignment.UpdateStatus(ctx, a.ID, target, nil); err != nil {
			s.logger.Error("团队确认写入失败",
				zap.String("event_id", eventID),
				zap.String("assignment_id", a.ID),
				zap.Int("applied", len(changed)),
				zap.Error(err),
			)
			return result, pkgerrors.Partial(stepValidation, len(changed), err)
		}

		a.StatutDisponibilite = target
		changed = append(changed, a)
		if target == model.StatusValide {
			result.Validated++
		} else {
			result.Rejected++
		}
	}

	// 3. 清除草稿
	if err := s.repo.Drafts.Clear(ctx, eventID); err != nil {
		s.logger.Warn("清除团队确认草稿失败", zap.String("event_id", eventID), zap.Error(err))
	}

	// 4. 通知相关 intermittent；失败不影响已完成的确认
	for i := range changed {
		s.notifyTeamDecision(ctx, event, &changed[i])
	}

	return result, nil
}

// ────────────────────── Candidates ──────────────────────

// Candidates 返回未在该活动持有分配的 intermittent；不检查与其他活动的日程冲突
func (s *assignmentService) Candidates(ctx context.Context, actor *Actor, eventID, q string) ([]dto.IntermittentBrief, error) {
	event, err := loadEvent(ctx, s.repo, s.logger, eventID)
	if err != nil {
		return nil, err
	}

	assigned, err := s.repo.Assignment.ListProfileIDsByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询已有分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	switch {
	case actor.IsRegisseur():
		if event.RegisseurID != actor.ProfileID {
			return nil, ErrNotEventOwner
		}
	case actor.IsIntermittent():
		// 提交替换申请时挑选推荐人
		if !contains(assigned, actor.ProfileID) {
			return nil, ErrPermissionDenied
		}
	default:
		return nil, ErrPermissionDenied
	}

	profiles, err := s.repo.Intermittent.Search(ctx, q, assigned)
	if err != nil {
		s.logger.Error("查询候选人失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.IntermittentBrief, 0, len(profiles))
	for i := range profiles {
		result = append(result, *toIntermittentBrief(&profiles[i]))
	}
	return result, nil
}

// ────────────────────── MyAssignments ──────────────────────

func (s *assignmentService) MyAssignments(ctx context.Context, actor *Actor) (*dto.MyAssignmentsResponse, error) {
	if !actor.IsIntermittent() {
		return nil, ErrPermissionDenied
	}

	list, err := s.repo.Assignment.ListByIntermittent(ctx, actor.ProfileID)
	if err != nil {
		s.logger.Error("查询本人分配失败", zap.String("profile_id", actor.ProfileID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	requests, err := s.repo.Replacement.LatestByAssignments(ctx, ids)
	if err != nil {
		s.logger.Error("查询替换申请失败", zap.String("profile_id", actor.ProfileID), zap.Error(err))
		return nil, err
	}

	now := time.Now()
	resp := &dto.MyAssignmentsResponse{Items: make([]dto.MyAssignmentItem, 0, len(list))}
	for i := range list {
		a := &list[i]
		item := dto.MyAssignmentItem{Assignment: *toAssignmentResponse(a)}
		if a.Event != nil {
			item.Event = *toEventResponse(a.Event)
		}
		if req, ok := requests[a.ID]; ok {
			item.ReplacementRequest = toReplacementResponse(&req, nil)
		}
		resp.Items = append(resp.Items, item)

		resp.Stats.Total++
		switch a.StatutDisponibilite {
		case model.StatusPropose:
			resp.Stats.Proposed++
		case model.StatusValide:
			resp.Stats.Accepted++
			if a.Event != nil && a.Event.DateFin.Before(now) {
				resp.Stats.Completed++
			}
		}
	}
	return resp, nil
}

// ── 辅助函数 ──

// listTeam 团队确认面板：未处于终态的分配
func (s *assignmentService) listTeam(ctx context.Context, eventID string) ([]model.Assignment, error) {
	all, err := s.repo.Assignment.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询分配失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	team := make([]model.Assignment, 0, len(all))
	for _, a := range all {
		if a.StatutDisponibilite.IsValidatable() {
			team = append(team, a)
		}
	}
	return team, nil
}

func (s *assignmentService) notifyTeamDecision(ctx context.Context, event *model.Event, a *model.Assignment) {
	if a.Intermittent == nil {
		return
	}
	content := fmt.Sprintf("Vous avez été retenu(e) pour « %s ».", event.NomEvenement)
	if a.StatutDisponibilite == model.StatusNonRetenu {
		content = fmt.Sprintf("Vous n'avez pas été retenu(e) pour « %s ».", event.NomEvenement)
	}
	eventID := event.ID
	n := &model.Notification{
		UserID:         a.Intermittent.UserID,
		Type:           model.NotificationTeamValidated,
		Content:        content,
		RelatedEventID: &eventID,
	}
	if err := s.notifications.Notify(ctx, n); err != nil {
		s.logger.Warn("团队确认通知失败", zap.String("assignment_id", a.ID), zap.Error(err))
	}
}

// addAssignments 为尚未分配的档案创建 propose 分配，返回新建的分配
func addAssignments(ctx context.Context, repo *repository.Repository, eventID string, ids, existing []string) ([]model.Assignment, error) {
	skip := make(map[string]bool, len(existing))
	for _, id := range existing {
		skip[id] = true
	}

	var toCreate []model.Assignment
	for _, id := range ids {
		if skip[id] {
			continue
		}
		skip[id] = true
		toCreate = append(toCreate, model.Assignment{
			EventID:               eventID,
			IntermittentProfileID: id,
			StatutDisponibilite:   model.StatusPropose,
		})
	}
	if len(toCreate) == 0 {
		return nil, nil
	}
	if err := repo.Assignment.BatchCreate(ctx, toCreate); err != nil {
		return nil, err
	}
	return toCreate, nil
}

// cleanAlternativeDates 去除空白项，剩余为空时报错
func cleanAlternativeDates(in []string) (model.StringArray, error) {
	var out model.StringArray
	for _, d := range in {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !parsesAsDate(d) {
			return nil, ErrInvalidAlternativeDate
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, ErrAlternativeDatesRequired
	}
	return out, nil
}

func parsesAsDate(s string) bool {
	for _, layout := range alternativeDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// canAccessAssignment 所属 régisseur 或被分配的 intermittent
func canAccessAssignment(actor *Actor, a *model.Assignment) error {
	switch {
	case actor.IsIntermittent():
		if a.IntermittentProfileID != actor.ProfileID {
			return ErrNotAssignee
		}
		return nil
	case actor.IsRegisseur():
		if a.Event == nil || a.Event.RegisseurID != actor.ProfileID {
			return ErrNotEventOwner
		}
		return nil
	}
	return ErrPermissionDenied
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func toAssignmentResponse(a *model.Assignment) *dto.AssignmentResponse {
	return &dto.AssignmentResponse{
		ID:                    a.ID,
		EventID:               a.EventID,
		IntermittentProfileID: a.IntermittentProfileID,
		StatutDisponibilite:   string(a.StatutDisponibilite),
		DateReponse:           formatTimePtr(a.DateReponse),
		Intermittent:          toIntermittentBrief(a.Intermittent),
		CreatedAt:             formatTime(a.CreatedAt),
	}
}

func toResponseHistoryItem(r *model.EventResponse) dto.ResponseHistoryItem {
	return dto.ResponseHistoryItem{
		ID:               r.ID,
		ResponseType:     string(r.ResponseType),
		Comment:          derefString(r.Comment),
		AlternativeDates: []string(r.AlternativeDates),
		CreatedAt:        formatTime(r.CreatedAt),
	}
}

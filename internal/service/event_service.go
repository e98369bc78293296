package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
	pkgerrors "stage-planner/pkg/errors"
)

// ── 活动模块业务错误 ──

var (
	ErrEventNotFound       = errors.New("événement introuvable")
	ErrNotEventOwner       = errors.New("cet événement appartient à un autre régisseur")
	ErrEventNameRequired   = errors.New("le nom de l'événement est requis")
	ErrInvalidDateRange    = errors.New("la date de fin doit être postérieure ou égale à la date de début")
	ErrInvalidDateFilter   = errors.New("filtre de date invalide (format AAAA-MM-JJ)")
	ErrUnknownIntermittent = errors.New("intermittent introuvable")
)

// 多步写入的步骤名
const (
	stepEvent        = "evenement"
	stepPlanning     = "planning"
	stepInformation  = "information"
	stepAssignments  = "assignations"
	stepReplacements = "demandes_remplacement"
	stepResponses    = "reponses"
)

// duplicateSuffix 复制活动时追加的名称后缀
const duplicateSuffix = " (copie)"

// EventService 活动业务接口
type EventService interface {
	Create(ctx context.Context, actor *Actor, req *dto.CreateEventRequest) (*dto.EventWriteResult, error)
	Update(ctx context.Context, actor *Actor, id string, req *dto.UpdateEventRequest) (*dto.EventWriteResult, error)
	Get(ctx context.Context, actor *Actor, id string) (*dto.EventDetailResponse, error)
	List(ctx context.Context, actor *Actor, req *dto.EventListRequest) ([]dto.EventResponse, int64, error)
	Delete(ctx context.Context, actor *Actor, id string) error
	Duplicate(ctx context.Context, actor *Actor, id string) (*dto.EventWriteResult, error)
}

type eventService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEventService 创建 EventService 实例
func NewEventService(repo *repository.Repository, logger *zap.Logger) EventService {
	return &eventService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Create: 活动、时间线、信息栏、初始分配依次独立写入
// ═══════════════════════════════════════════════════════════

func (s *eventService) Create(ctx context.Context, actor *Actor, req *dto.CreateEventRequest) (*dto.EventWriteResult, error) {
	if !actor.IsRegisseur() {
		return nil, ErrPermissionDenied
	}

	// 1. 写入前完成全部校验
	event, err := buildEvent(req.NomEvenement, req.DateDebut, req.DateFin, req.Lieu, req.SpecialitesRequises, req.Publish)
	if err != nil {
		return nil, err
	}
	event.RegisseurID = actor.ProfileID

	planning, err := normalizePlanning(req.Planning)
	if err != nil {
		return nil, err
	}
	fields, err := normalizeInformation(req.Information)
	if err != nil {
		return nil, err
	}
	staffIDs, err := s.checkIntermittents(ctx, req.IntermittentIDs)
	if err != nil {
		return nil, err
	}

	// 2. 活动
	if err := s.repo.Event.Create(ctx, event); err != nil {
		s.logger.Error("创建活动失败", zap.String("regisseur_id", actor.ProfileID), zap.Error(err))
		return nil, err
	}
	result := &dto.EventWriteResult{Event: *toEventResponse(event)}

	// 3. 子记录
	if err := s.writePlanning(ctx, event.ID, planning); err != nil {
		return result, pkgerrors.Partial(stepPlanning, 1, err)
	}
	result.PlanningCount = len(planning)

	if err := s.writeInformation(ctx, event.ID, fields); err != nil {
		return result, pkgerrors.Partial(stepInformation, 2, err)
	}
	result.InformationCount = len(fields)

	added, err := addAssignments(ctx, s.repo, event.ID, staffIDs, nil)
	if err != nil {
		s.logger.Error("创建初始分配失败", zap.String("event_id", event.ID), zap.Error(err))
		return result, pkgerrors.Partial(stepAssignments, 3, err)
	}
	result.AssignmentsAdded = len(added)

	return result, nil
}

// ═══════════════════════════════════════════════════════════
// Update: 已有分配永远保留，新 ID 以 propose 追加
// ═══════════════════════════════════════════════════════════

func (s *eventService) Update(ctx context.Context, actor *Actor, id string, req *dto.UpdateEventRequest) (*dto.EventWriteResult, error) {
	event, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, id)
	if err != nil {
		return nil, err
	}

	updated, err := buildEvent(req.NomEvenement, req.DateDebut, req.DateFin, req.Lieu, req.SpecialitesRequises, req.Publish)
	if err != nil {
		return nil, err
	}
	// 已取消或已结束的活动保持原状态
	if event.StatutEvenement == model.EventStatusCancelled || event.StatutEvenement == model.EventStatusCompleted {
		updated.StatutEvenement = event.StatutEvenement
	}

	var planning []model.PlanningItem
	if req.Planning != nil {
		if planning, err = normalizePlanning(*req.Planning); err != nil {
			return nil, err
		}
	}
	var fields []model.InformationField
	if req.Information != nil {
		if fields, err = normalizeInformation(*req.Information); err != nil {
			return nil, err
		}
	}
	staffIDs, err := s.checkIntermittents(ctx, req.IntermittentIDs)
	if err != nil {
		return nil, err
	}

	event.NomEvenement = updated.NomEvenement
	event.DateDebut = updated.DateDebut
	event.DateFin = updated.DateFin
	event.Lieu = updated.Lieu
	event.StatutEvenement = updated.StatutEvenement
	event.SpecialitesRequises = updated.SpecialitesRequises

	if err := s.repo.Event.Update(ctx, event); err != nil {
		s.logger.Error("更新活动失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}
	result := &dto.EventWriteResult{Event: *toEventResponse(event)}
	applied := 1

	if req.Planning != nil {
		if err := s.replacePlanning(ctx, id, planning); err != nil {
			return result, pkgerrors.Partial(stepPlanning, applied, err)
		}
		result.PlanningCount = len(planning)
		applied++
	}

	if req.Information != nil {
		if err := s.replaceInformation(ctx, id, fields); err != nil {
			return result, pkgerrors.Partial(stepInformation, applied, err)
		}
		result.InformationCount = len(fields)
		applied++
	}

	if len(staffIDs) > 0 {
		existing, err := s.repo.Assignment.ListProfileIDsByEvent(ctx, id)
		if err != nil {
			s.logger.Error("查询已有分配失败", zap.String("event_id", id), zap.Error(err))
			return result, pkgerrors.Partial(stepAssignments, applied, err)
		}
		added, err := addAssignments(ctx, s.repo, id, staffIDs, existing)
		if err != nil {
			s.logger.Error("追加分配失败", zap.String("event_id", id), zap.Error(err))
			return result, pkgerrors.Partial(stepAssignments, applied, err)
		}
		result.AssignmentsAdded = len(added)
	}

	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *eventService) Get(ctx context.Context, actor *Actor, id string) (*dto.EventDetailResponse, error) {
	event, err := loadEvent(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.Assignment.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询分配失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}

	if err := canViewEvent(actor, event, assignments); err != nil {
		return nil, err
	}

	planning, err := s.repo.Planning.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询时间线失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}
	fields, err := s.repo.Information.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询信息栏失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}

	detail := &dto.EventDetailResponse{
		EventResponse: *toEventResponse(event),
		Planning:      make([]dto.PlanningItemResponse, 0, len(planning)),
		Information:   make([]dto.InformationFieldResponse, 0, len(fields)),
		Assignments:   make([]dto.AssignmentResponse, 0, len(assignments)),
	}
	for i := range planning {
		detail.Planning = append(detail.Planning, toPlanningItemResponse(&planning[i]))
	}
	sortInformation(fields)
	for i := range fields {
		detail.Information = append(detail.Information, toInformationFieldResponse(&fields[i]))
	}
	for i := range assignments {
		// intermittent 只看到自己的分配
		if actor.IsIntermittent() && assignments[i].IntermittentProfileID != actor.ProfileID {
			continue
		}
		detail.Assignments = append(detail.Assignments, *toAssignmentResponse(&assignments[i]))
	}

	return detail, nil
}

// ────────────────────── List ──────────────────────

func (s *eventService) List(ctx context.Context, actor *Actor, req *dto.EventListRequest) ([]dto.EventResponse, int64, error) {
	if !actor.IsRegisseur() {
		return nil, 0, ErrPermissionDenied
	}

	filter := repository.EventFilter{Status: req.Status}
	if req.From != "" {
		from, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, 0, ErrInvalidDateFilter
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, 0, ErrInvalidDateFilter
		}
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}

	events, total, err := s.repo.Event.ListByRegisseur(ctx, actor.ProfileID, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出活动失败", zap.String("regisseur_id", actor.ProfileID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		result = append(result, *toEventResponse(&events[i]))
	}
	return result, total, nil
}

// ═══════════════════════════════════════════════════════════
// Delete: 应用层级联：申请、回复、分配、时间线、信息栏、活动
// ═══════════════════════════════════════════════════════════

func (s *eventService) Delete(ctx context.Context, actor *Actor, id string) error {
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, id); err != nil {
		return err
	}

	assignments, err := s.repo.Assignment.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询分配失败", zap.String("event_id", id), zap.Error(err))
		return err
	}
	assignmentIDs := make([]string, 0, len(assignments))
	for _, a := range assignments {
		assignmentIDs = append(assignmentIDs, a.ID)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{stepReplacements, func() error { return s.repo.Replacement.DeleteByAssignments(ctx, assignmentIDs) }},
		{stepResponses, func() error { return s.repo.Response.DeleteByAssignments(ctx, assignmentIDs) }},
		{stepAssignments, func() error { return s.repo.Assignment.DeleteByEvent(ctx, id) }},
		{stepPlanning, func() error { return s.repo.Planning.DeleteByEvent(ctx, id) }},
		{stepInformation, func() error { return s.repo.Information.DeleteByEvent(ctx, id) }},
		{stepEvent, func() error { return s.repo.Event.Delete(ctx, id) }},
	}
	for i, step := range steps {
		if err := step.run(); err != nil {
			s.logger.Error("删除活动失败", zap.String("event_id", id), zap.String("step", step.name), zap.Error(err))
			return pkgerrors.Partial(step.name, i, err)
		}
	}

	if err := s.repo.Drafts.Clear(ctx, id); err != nil {
		s.logger.Warn("清除团队确认草稿失败", zap.String("event_id", id), zap.Error(err))
	}
	return nil
}

// ═══════════════════════════════════════════════════════════
// Duplicate: 复制活动、时间线与信息栏，不复制分配
// ═══════════════════════════════════════════════════════════

func (s *eventService) Duplicate(ctx context.Context, actor *Actor, id string) (*dto.EventWriteResult, error) {
	src, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, id)
	if err != nil {
		return nil, err
	}

	planning, err := s.repo.Planning.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询时间线失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}
	fields, err := s.repo.Information.ListByEvent(ctx, id)
	if err != nil {
		s.logger.Error("查询信息栏失败", zap.String("event_id", id), zap.Error(err))
		return nil, err
	}

	copied := &model.Event{
		RegisseurID:         src.RegisseurID,
		NomEvenement:        src.NomEvenement + duplicateSuffix,
		DateDebut:           src.DateDebut,
		DateFin:             src.DateFin,
		Lieu:                src.Lieu,
		StatutEvenement:     model.EventStatusDraft,
		SpecialitesRequises: append(model.StringArray(nil), src.SpecialitesRequises...),
	}
	if err := s.repo.Event.Create(ctx, copied); err != nil {
		s.logger.Error("复制活动失败", zap.String("source_id", id), zap.Error(err))
		return nil, err
	}
	result := &dto.EventWriteResult{Event: *toEventResponse(copied)}

	items := make([]model.PlanningItem, 0, len(planning))
	for _, p := range planning {
		items = append(items, model.PlanningItem{Heure: p.Heure, Intitule: p.Intitule, Ordre: p.Ordre, Groupe: p.Groupe})
	}
	if err := s.writePlanning(ctx, copied.ID, items); err != nil {
		return result, pkgerrors.Partial(stepPlanning, 1, err)
	}
	result.PlanningCount = len(items)

	copiedFields := make([]model.InformationField, 0, len(fields))
	for _, f := range fields {
		copiedFields = append(copiedFields, model.InformationField{TypeChamp: f.TypeChamp, ContenuTexte: f.ContenuTexte, Lien: f.Lien})
	}
	if err := s.writeInformation(ctx, copied.ID, copiedFields); err != nil {
		return result, pkgerrors.Partial(stepInformation, 2, err)
	}
	result.InformationCount = len(copiedFields)

	return result, nil
}

// ── 辅助函数 ──

func (s *eventService) writePlanning(ctx context.Context, eventID string, items []model.PlanningItem) error {
	for i := range items {
		items[i].EventID = eventID
	}
	if err := s.repo.Planning.BatchCreate(ctx, items); err != nil {
		s.logger.Error("写入时间线失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}

func (s *eventService) writeInformation(ctx context.Context, eventID string, fields []model.InformationField) error {
	for i := range fields {
		fields[i].EventID = eventID
	}
	if err := s.repo.Information.BatchCreate(ctx, fields); err != nil {
		s.logger.Error("写入信息栏失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return nil
}

func (s *eventService) replacePlanning(ctx context.Context, eventID string, items []model.PlanningItem) error {
	if err := s.repo.Planning.DeleteByEvent(ctx, eventID); err != nil {
		s.logger.Error("删除时间线失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return s.writePlanning(ctx, eventID, items)
}

func (s *eventService) replaceInformation(ctx context.Context, eventID string, fields []model.InformationField) error {
	if err := s.repo.Information.DeleteByEvent(ctx, eventID); err != nil {
		s.logger.Error("删除信息栏失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}
	return s.writeInformation(ctx, eventID, fields)
}

// checkIntermittents 去重并确认所有档案存在
func (s *eventService) checkIntermittents(ctx context.Context, ids []string) ([]string, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	profiles, err := s.repo.Intermittent.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询 intermittent 失败", zap.Error(err))
		return nil, err
	}
	if len(profiles) != len(ids) {
		return nil, ErrUnknownIntermittent
	}
	return ids, nil
}

// buildEvent 校验字段并构造活动（未设置 RegisseurID）
func buildEvent(name string, debut, fin time.Time, lieu string, specialites []string, publish bool) (*model.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEventNameRequired
	}
	if fin.Before(debut) {
		return nil, ErrInvalidDateRange
	}

	status := model.EventStatusDraft
	if publish {
		status = model.EventStatusPublished
	}

	var tags model.StringArray
	for _, sp := range specialites {
		if sp = strings.TrimSpace(sp); sp != "" && !tags.Contains(sp) {
			tags = append(tags, sp)
		}
	}

	return &model.Event{
		NomEvenement:        name,
		DateDebut:           debut,
		DateFin:             fin,
		Lieu:                optionalString(strings.TrimSpace(lieu)),
		StatutEvenement:     status,
		SpecialitesRequises: tags,
	}, nil
}

// canViewEvent 所属 régisseur、admin 或持有分配的 intermittent
func canViewEvent(actor *Actor, event *model.Event, assignments []model.Assignment) error {
	switch {
	case actor.IsRegisseur():
		if event.RegisseurID != actor.ProfileID {
			return ErrNotEventOwner
		}
		return nil
	case actor.IsIntermittent():
		for _, a := range assignments {
			if a.IntermittentProfileID == actor.ProfileID {
				return nil
			}
		}
		return ErrPermissionDenied
	case actor != nil && actor.Role == model.RoleAdmin:
		return nil
	}
	return ErrPermissionDenied
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toEventResponse(e *model.Event) *dto.EventResponse {
	specialites := []string(e.SpecialitesRequises)
	if specialites == nil {
		specialites = []string{}
	}
	return &dto.EventResponse{
		ID:                  e.ID,
		RegisseurID:         e.RegisseurID,
		NomEvenement:        e.NomEvenement,
		DateDebut:           formatTime(e.DateDebut),
		DateFin:             formatTime(e.DateFin),
		Lieu:                derefString(e.Lieu),
		StatutEvenement:     e.StatutEvenement,
		SpecialitesRequises: specialites,
		CreatedAt:           formatTime(e.CreatedAt),
		UpdatedAt:           formatTime(e.UpdatedAt),
	}
}

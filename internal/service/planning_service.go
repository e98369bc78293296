package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/repository"
	pkgerrors "stage-planner/pkg/errors"
)

// ── 时间线 / 信息栏业务错误 ──

var (
	ErrInvalidPlanningGroup = errors.New("groupe de planning invalide (artistes ou techniques)")
	ErrUnknownInfoField     = errors.New("département inconnu (son, lumiere, plateau ou general)")
	ErrDuplicateInfoField   = errors.New("département présent plusieurs fois")
)

// PlanningService 时间线与部门信息栏业务接口
type PlanningService interface {
	SavePlanning(ctx context.Context, actor *Actor, eventID string, req *dto.SavePlanningRequest) ([]dto.PlanningItemResponse, error)
	SaveInformation(ctx context.Context, actor *Actor, eventID string, req *dto.SaveInformationRequest) ([]dto.InformationFieldResponse, error)
}

type planningService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPlanningService 创建 PlanningService 实例
func NewPlanningService(repo *repository.Repository, logger *zap.Logger) PlanningService {
	return &planningService{repo: repo, logger: logger}
}

// ────────────────────── SavePlanning ──────────────────────

func (s *planningService) SavePlanning(ctx context.Context, actor *Actor, eventID string, req *dto.SavePlanningRequest) ([]dto.PlanningItemResponse, error) {
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID); err != nil {
		return nil, err
	}

	items, err := normalizePlanning(req.Items)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].EventID = eventID
	}

	if err := s.repo.Planning.DeleteByEvent(ctx, eventID); err != nil {
		s.logger.Error("删除时间线失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	if err := s.repo.Planning.BatchCreate(ctx, items); err != nil {
		s.logger.Error("写入时间线失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, pkgerrors.Partial(stepPlanning, 1, err)
	}

	result := make([]dto.PlanningItemResponse, 0, len(items))
	for i := range items {
		result = append(result, toPlanningItemResponse(&items[i]))
	}
	return result, nil
}

// ────────────────────── SaveInformation ──────────────────────

func (s *planningService) SaveInformation(ctx context.Context, actor *Actor, eventID string, req *dto.SaveInformationRequest) ([]dto.InformationFieldResponse, error) {
	if _, err := loadOwnedEvent(ctx, s.repo, s.logger, actor, eventID); err != nil {
		return nil, err
	}

	fields, err := normalizeInformation(req.Fields)
	if err != nil {
		return nil, err
	}
	for i := range fields {
		fields[i].EventID = eventID
	}

	if err := s.repo.Information.DeleteByEvent(ctx, eventID); err != nil {
		s.logger.Error("删除信息栏失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	if err := s.repo.Information.BatchCreate(ctx, fields); err != nil {
		s.logger.Error("写入信息栏失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, pkgerrors.Partial(stepInformation, 1, err)
	}

	result := make([]dto.InformationFieldResponse, 0, len(fields))
	for i := range fields {
		result = append(result, toInformationFieldResponse(&fields[i]))
	}
	return result, nil
}

// ── 辅助函数 ──

// normalizePlanning 丢弃时间或标题为空的条目，ordre 取保留后的列表位置
// 分组为空时默认 techniques
func normalizePlanning(in []dto.PlanningItemInput) ([]model.PlanningItem, error) {
	items := make([]model.PlanningItem, 0, len(in))
	for _, it := range in {
		heure := strings.TrimSpace(it.Heure)
		intitule := strings.TrimSpace(it.Intitule)
		if heure == "" || intitule == "" {
			continue
		}

		groupe := strings.TrimSpace(it.Groupe)
		if groupe == "" {
			groupe = model.PlanningGroupTechniques
		}
		if !model.IsValidPlanningGroup(groupe) {
			return nil, ErrInvalidPlanningGroup
		}

		items = append(items, model.PlanningItem{
			Heure:    heure,
			Intitule: intitule,
			Ordre:    len(items),
			Groupe:   groupe,
		})
	}
	return items, nil
}

// normalizeInformation 没有文字也没有链接的部门不写入
func normalizeInformation(in []dto.InformationFieldInput) ([]model.InformationField, error) {
	seen := make(map[string]bool, len(in))
	fields := make([]model.InformationField, 0, len(in))
	for _, f := range in {
		typ := strings.TrimSpace(f.TypeChamp)
		if !model.IsValidInfoFieldType(typ) {
			return nil, ErrUnknownInfoField
		}
		if seen[typ] {
			return nil, ErrDuplicateInfoField
		}
		seen[typ] = true

		texte := strings.TrimSpace(f.ContenuTexte)
		lien := strings.TrimSpace(f.Lien)
		if texte == "" && lien == "" {
			continue
		}
		fields = append(fields, model.InformationField{
			TypeChamp:    typ,
			ContenuTexte: optionalString(texte),
			Lien:         optionalString(lien),
		})
	}
	return fields, nil
}

// sortInformation 按 son, lumiere, plateau, general 排序
func sortInformation(fields []model.InformationField) {
	rank := make(map[string]int, len(model.InfoFieldTypes))
	for i, t := range model.InfoFieldTypes {
		rank[t] = i
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return rank[fields[i].TypeChamp] < rank[fields[j].TypeChamp]
	})
}

// filterPlanning groupe 为 tous 或空时返回全部
func filterPlanning(items []model.PlanningItem, groupe string) []model.PlanningItem {
	if groupe == "" || groupe == "tous" {
		return items
	}
	out := make([]model.PlanningItem, 0, len(items))
	for _, it := range items {
		if it.Groupe == groupe {
			out = append(out, it)
		}
	}
	return out
}

func toPlanningItemResponse(p *model.PlanningItem) dto.PlanningItemResponse {
	return dto.PlanningItemResponse{
		ID:       p.ID,
		Heure:    p.Heure,
		Intitule: p.Intitule,
		Ordre:    p.Ordre,
		Groupe:   p.Groupe,
	}
}

func toInformationFieldResponse(f *model.InformationField) dto.InformationFieldResponse {
	return dto.InformationFieldResponse{
		ID:           f.ID,
		TypeChamp:    f.TypeChamp,
		ContenuTexte: derefString(f.ContenuTexte),
		Lien:         derefString(f.Lien),
	}
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"stage-planner/internal/model"
)

// ReplacementRepository 替换申请数据访问接口
type ReplacementRepository interface {
	Create(ctx context.Context, req *model.ReplacementRequest) error
	GetByID(ctx context.Context, id string) (*model.ReplacementRequest, error)
	ListByRegisseur(ctx context.Context, regisseurID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error)
	ListByRequester(ctx context.Context, profileID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error)
	// CountActiveByAssignment 进行中（pending_approval / approved_awaiting_replacement）的申请数
	CountActiveByAssignment(ctx context.Context, assignmentID string) (int64, error)
	// LatestByAssignments 每个分配最近一次申请，key 为 assignment id
	LatestByAssignments(ctx context.Context, assignmentIDs []string) (map[string]model.ReplacementRequest, error)
	UpdateStatus(ctx context.Context, id string, status model.ReplacementStatus) error
	DeleteByAssignments(ctx context.Context, assignmentIDs []string) error
}

type replacementRepo struct {
	db *gorm.DB
}

// NewReplacementRepo 创建 ReplacementRepository 实例
func NewReplacementRepo(db *gorm.DB) ReplacementRepository {
	return &replacementRepo{db: db}
}

func (r *replacementRepo) Create(ctx context.Context, req *model.ReplacementRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *replacementRepo) GetByID(ctx context.Context, id string) (*model.ReplacementRequest, error) {
	var req model.ReplacementRequest
	err := r.db.WithContext(ctx).
		Preload("Assignment.Event").
		Preload("Requester").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *replacementRepo) ListByRegisseur(ctx context.Context, regisseurID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error) {
	return r.list(ctx, "regisseur_id = ?", regisseurID, status, offset, limit)
}

func (r *replacementRepo) ListByRequester(ctx context.Context, profileID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error) {
	return r.list(ctx, "requester_intermittent_profile_id = ?", profileID, status, offset, limit)
}

func (r *replacementRepo) list(ctx context.Context, cond, ownerID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error) {
	var list []model.ReplacementRequest
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ReplacementRequest{}).Where(cond, ownerID)
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Assignment.Event").
		Preload("Requester").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&list).Error
	return list, total, err
}

func (r *replacementRepo) CountActiveByAssignment(ctx context.Context, assignmentID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ReplacementRequest{}).
		Where("event_assignment_id = ? AND status IN ?", assignmentID,
			[]model.ReplacementStatus{model.ReplacementPending, model.ReplacementApprovedAwaiting}).
		Count(&n).Error
	return n, err
}

func (r *replacementRepo) LatestByAssignments(ctx context.Context, assignmentIDs []string) (map[string]model.ReplacementRequest, error) {
	result := make(map[string]model.ReplacementRequest, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return result, nil
	}

	var list []model.ReplacementRequest
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (event_assignment_id) *
			FROM replacement_requests
			WHERE event_assignment_id IN ?
			ORDER BY event_assignment_id, created_at DESC`, assignmentIDs).
		Scan(&list).Error
	if err != nil {
		return nil, err
	}
	for _, req := range list {
		result[req.EventAssignmentID] = req
	}
	return result, nil
}

func (r *replacementRepo) UpdateStatus(ctx context.Context, id string, status model.ReplacementStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.ReplacementRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *replacementRepo) DeleteByAssignments(ctx context.Context, assignmentIDs []string) error {
	if len(assignmentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("event_assignment_id IN ?", assignmentIDs).
		Delete(&model.ReplacementRequest{}).Error
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"stage-planner/internal/model"
)

// AssignmentRepository 活动分配数据访问接口
type AssignmentRepository interface {
	BatchCreate(ctx context.Context, assignments []model.Assignment) error
	GetByID(ctx context.Context, id string) (*model.Assignment, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Assignment, error)
	ListByIntermittent(ctx context.Context, profileID string) ([]model.Assignment, error)
	// ListProfileIDsByEvent 已在该活动上持有分配的 intermittent 档案 ID
	ListProfileIDsByEvent(ctx context.Context, eventID string) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status model.AvailabilityStatus, dateReponse *time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByEvent(ctx context.Context, eventID string) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) BatchCreate(ctx context.Context, assignments []model.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&assignments).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("Intermittent").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Intermittent").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) ListByIntermittent(ctx context.Context, profileID string) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Preload("Event").
		Joins("JOIN events ON events.id = event_intermittent_assignments.event_id").
		Where("event_intermittent_assignments.intermittent_profile_id = ?", profileID).
		Order("events.date_debut ASC").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) ListProfileIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("event_id = ?", eventID).
		Pluck("intermittent_profile_id", &ids).Error
	return ids, err
}

func (r *assignmentRepo) UpdateStatus(ctx context.Context, id string, status model.AvailabilityStatus, dateReponse *time.Time) error {
	updates := map[string]interface{}{
		"statut_disponibilite": status,
		"updated_at":           gorm.Expr("NOW()"),
	}
	if dateReponse != nil {
		updates["date_reponse"] = *dateReponse
	}
	return r.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *assignmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Assignment{}).Error
}

func (r *assignmentRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.Assignment{}).Error
}

// ResponseRepository 回复历史数据访问接口（只追加）
type ResponseRepository interface {
	Create(ctx context.Context, resp *model.EventResponse) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]model.EventResponse, error)
	// LatestByAssignments 每个分配最近一次回复，key 为 assignment id
	LatestByAssignments(ctx context.Context, assignmentIDs []string) (map[string]model.EventResponse, error)
	DeleteByAssignments(ctx context.Context, assignmentIDs []string) error
}

type responseRepo struct {
	db *gorm.DB
}

// NewResponseRepo 创建 ResponseRepository 实例
func NewResponseRepo(db *gorm.DB) ResponseRepository {
	return &responseRepo{db: db}
}

func (r *responseRepo) Create(ctx context.Context, resp *model.EventResponse) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

func (r *responseRepo) ListByAssignment(ctx context.Context, assignmentID string) ([]model.EventResponse, error) {
	var list []model.EventResponse
	err := r.db.WithContext(ctx).
		Where("event_assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *responseRepo) LatestByAssignments(ctx context.Context, assignmentIDs []string) (map[string]model.EventResponse, error) {
	result := make(map[string]model.EventResponse, len(assignmentIDs))
	if len(assignmentIDs) == 0 {
		return result, nil
	}

	var list []model.EventResponse
	err := r.db.WithContext(ctx).
		Raw(`SELECT DISTINCT ON (event_assignment_id) *
			FROM event_intermittent_responses
			WHERE event_assignment_id IN ?
			ORDER BY event_assignment_id, created_at DESC`, assignmentIDs).
		Scan(&list).Error
	if err != nil {
		return nil, err
	}
	for _, resp := range list {
		result[resp.EventAssignmentID] = resp
	}
	return result, nil
}

func (r *responseRepo) DeleteByAssignments(ctx context.Context, assignmentIDs []string) error {
	if len(assignmentIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("event_assignment_id IN ?", assignmentIDs).
		Delete(&model.EventResponse{}).Error
}

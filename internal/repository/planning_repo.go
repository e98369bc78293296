package repository

import (
	"context"

	"gorm.io/gorm"

	"stage-planner/internal/model"
)

// PlanningRepository 时间线数据访问接口
type PlanningRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.PlanningItem, error)
	BatchCreate(ctx context.Context, items []model.PlanningItem) error
	DeleteByEvent(ctx context.Context, eventID string) error
}

type planningRepo struct {
	db *gorm.DB
}

// NewPlanningRepo 创建 PlanningRepository 实例
func NewPlanningRepo(db *gorm.DB) PlanningRepository {
	return &planningRepo{db: db}
}

func (r *planningRepo) ListByEvent(ctx context.Context, eventID string) ([]model.PlanningItem, error) {
	var items []model.PlanningItem
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("ordre ASC").
		Find(&items).Error
	return items, err
}

func (r *planningRepo) BatchCreate(ctx context.Context, items []model.PlanningItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *planningRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.PlanningItem{}).Error
}

// InformationFieldRepository 部门信息栏数据访问接口
type InformationFieldRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.InformationField, error)
	BatchCreate(ctx context.Context, fields []model.InformationField) error
	DeleteByEvent(ctx context.Context, eventID string) error
}

type informationFieldRepo struct {
	db *gorm.DB
}

// NewInformationFieldRepo 创建 InformationFieldRepository 实例
func NewInformationFieldRepo(db *gorm.DB) InformationFieldRepository {
	return &informationFieldRepo{db: db}
}

func (r *informationFieldRepo) ListByEvent(ctx context.Context, eventID string) ([]model.InformationField, error) {
	var fields []model.InformationField
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("type_champ ASC").
		Find(&fields).Error
	return fields, err
}

func (r *informationFieldRepo) BatchCreate(ctx context.Context, fields []model.InformationField) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&fields).Error
}

func (r *informationFieldRepo) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.InformationField{}).Error
}

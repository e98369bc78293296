package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"stage-planner/internal/model"
)

// EventFilter 活动列表过滤条件
type EventFilter struct {
	Status string
	From   *time.Time // date_fin >= From
	To     *time.Time // date_debut < To
}

// EventRepository 活动数据访问接口
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Event, error)
	ListByRegisseur(ctx context.Context, regisseurID string, filter EventFilter, offset, limit int) ([]model.Event, int64, error)
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id string) error
}

type eventRepo struct {
	db *gorm.DB
}

// NewEventRepo 创建 EventRepository 实例
func NewEventRepo(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	err := r.db.WithContext(ctx).
		Preload("Regisseur").
		Where("id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Event, error) {
	var events []model.Event
	if len(ids) == 0 {
		return events, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("date_debut ASC").
		Find(&events).Error
	return events, err
}

func (r *eventRepo) ListByRegisseur(ctx context.Context, regisseurID string, filter EventFilter, offset, limit int) ([]model.Event, int64, error) {
	var events []model.Event
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Event{}).Where("regisseur_id = ?", regisseurID)
	if filter.Status != "" {
		db = db.Where("statut_evenement = ?", filter.Status)
	}
	if filter.From != nil {
		db = db.Where("date_fin >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("date_debut < ?", *filter.To)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("date_debut ASC").
		Offset(offset).Limit(limit).
		Find(&events).Error
	return events, total, err
}

func (r *eventRepo) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"nom_evenement":        event.NomEvenement,
			"date_debut":           event.DateDebut,
			"date_fin":             event.DateFin,
			"lieu":                 event.Lieu,
			"statut_evenement":     event.StatutEvenement,
			"specialites_requises": event.SpecialitesRequises,
			"updated_at":           gorm.Expr("NOW()"),
		}).Error
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Event{}).Error
}

package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User         UserRepository
	Regisseur    RegisseurRepository
	Intermittent IntermittentRepository
	Event        EventRepository
	Planning     PlanningRepository
	Information  InformationFieldRepository
	Assignment   AssignmentRepository
	Response     ResponseRepository
	Replacement  ReplacementRepository
	Notification NotificationRepository
	Drafts       SelectionDraftStore
}

// NewRepository 创建 Repository 聚合
// drafts 为 nil 时使用进程内草稿存储
func NewRepository(db *gorm.DB, drafts SelectionDraftStore) *Repository {
	if drafts == nil {
		drafts = NewMemoryDraftStore()
	}
	return &Repository{
		User:         NewUserRepo(db),
		Regisseur:    NewRegisseurRepo(db),
		Intermittent: NewIntermittentRepo(db),
		Event:        NewEventRepo(db),
		Planning:     NewPlanningRepo(db),
		Information:  NewInformationFieldRepo(db),
		Assignment:   NewAssignmentRepo(db),
		Response:     NewResponseRepo(db),
		Replacement:  NewReplacementRepo(db),
		Notification: NewNotificationRepo(db),
		Drafts:       drafts,
	}
}

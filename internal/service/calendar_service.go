package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"stage-planner/internal/model"
	"stage-planner/internal/repository"
)

// CalendarService intermittent 日历订阅
type CalendarService interface {
	// Feed 生成本人分配的 iCalendar 文本（propose / disponible / incertain / valide）
	Feed(ctx context.Context, actor *Actor) (string, error)
}

type calendarService struct {
	repo    *repository.Repository
	baseURL string
	logger  *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, baseURL string, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}
}

func (s *calendarService) Feed(ctx context.Context, actor *Actor) (string, error) {
	if !actor.IsIntermittent() {
		return "", ErrPermissionDenied
	}

	list, err := s.repo.Assignment.ListByIntermittent(ctx, actor.ProfileID)
	if err != nil {
		s.logger.Error("查询本人分配失败", zap.String("profile_id", actor.ProfileID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Stage Planner//Planning intermittent//FR")
	cal.SetXWRCalName("Stage Planner")
	cal.SetRefreshInterval("PT1H")

	now := time.Now().UTC()
	for _, a := range list {
		if a.Event == nil || !inCalendar(a.StatutDisponibilite) {
			continue
		}
		ev := cal.AddEvent(a.ID + "@stage-planner")
		ev.SetDtStampTime(now)
		ev.SetCreatedTime(a.CreatedAt)
		ev.SetModifiedAt(a.UpdatedAt)
		ev.SetStartAt(a.Event.DateDebut)
		ev.SetEndAt(a.Event.DateFin)
		ev.SetSummary(a.Event.NomEvenement)
		if a.Event.Lieu != nil {
			ev.SetLocation(*a.Event.Lieu)
		}
		ev.SetDescription(fmt.Sprintf("Statut : %s", statusLabel(a.StatutDisponibilite)))
		if s.baseURL != "" {
			ev.SetURL(fmt.Sprintf("%s/events/%s", s.baseURL, a.EventID))
		}
		if a.StatutDisponibilite == model.StatusValide {
			ev.SetStatus(ics.ObjectStatusConfirmed)
		} else {
			ev.SetStatus(ics.ObjectStatusTentative)
		}
	}

	return cal.Serialize(), nil
}

// inCalendar non_disponible / non_retenu 不出现在日历中
func inCalendar(s model.AvailabilityStatus) bool {
	switch s {
	case model.StatusPropose, model.StatusDisponible, model.StatusIncertain, model.StatusValide:
		return true
	}
	return false
}

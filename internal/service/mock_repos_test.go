package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stage-planner/internal/model"
	"stage-planner/internal/realtime"
	"stage-planner/internal/repository"
)

// errInjected 测试注入的写入失败
var errInjected = errors.New("injected failure")

// memStore 所有 mock repository 共享的内存数据
type memStore struct {
	mu sync.Mutex
	n  int

	users         map[string]*model.User
	regisseurs    map[string]*model.RegisseurProfile
	intermittents map[string]*model.IntermittentProfile
	events        map[string]*model.Event
	planning      map[string]*model.PlanningItem
	information   map[string]*model.InformationField
	assignments   map[string]*model.Assignment
	responses     map[string]*model.EventResponse
	replacements  map[string]*model.ReplacementRequest
	notifications map[string]*model.Notification

	// fail key 形如 "Planning.BatchCreate"，命中时返回 errInjected
	fail map[string]bool
	// failAfter 第 N 次调用（从 0 计）起失败
	failAfter map[string]int
	calls     map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]*model.User),
		regisseurs:    make(map[string]*model.RegisseurProfile),
		intermittents: make(map[string]*model.IntermittentProfile),
		events:        make(map[string]*model.Event),
		planning:      make(map[string]*model.PlanningItem),
		information:   make(map[string]*model.InformationField),
		assignments:   make(map[string]*model.Assignment),
		responses:     make(map[string]*model.EventResponse),
		replacements:  make(map[string]*model.ReplacementRequest),
		notifications: make(map[string]*model.Notification),
		fail:          make(map[string]bool),
		failAfter:     make(map[string]int),
		calls:         make(map[string]int),
	}
}

// nextID 生成递增 ID，递增的 created_at 保证排序稳定
func (s *memStore) nextID(prefix string) (string, time.Time) {
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.n) * time.Second)
}

func (s *memStore) check(key string) error {
	call := s.calls[key]
	s.calls[key]++
	if s.fail[key] {
		return errInjected
	}
	if after, ok := s.failAfter[key]; ok && call >= after {
		return errInjected
	}
	return nil
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:         &mockUserRepo{s},
		Regisseur:    &mockRegisseurRepo{s},
		Intermittent: &mockIntermittentRepo{s},
		Event:        &mockEventRepo{s},
		Planning:     &mockPlanningRepo{s},
		Information:  &mockInformationRepo{s},
		Assignment:   &mockAssignmentRepo{s},
		Response:     &mockResponseRepo{s},
		Replacement:  &mockReplacementRepo{s},
		Notification: &mockNotificationRepo{s},
		Drafts:       repository.NewMemoryDraftStore(),
	}
}

// ── 测试夹具 ──

type fixture struct {
	store *memStore
	repo  *repository.Repository
	hub   *realtime.MemoryHub

	notifications NotificationService
	events        EventService
	planning      PlanningService
	assignments   AssignmentService
	replacements  ReplacementService
	exports       ExportService
	calendar      CalendarService
}

func newFixture() *fixture {
	store := newMemStore()
	repo := store.repository()
	logger := zap.NewNop()
	hub := realtime.NewMemoryHub(logger)
	notifications := NewNotificationService(repo, hub, 20, logger)
	return &fixture{
		store:         store,
		repo:          repo,
		hub:           hub,
		notifications: notifications,
		events:        NewEventService(repo, logger),
		planning:      NewPlanningService(repo, logger),
		assignments:   NewAssignmentService(repo, notifications, logger),
		replacements:  NewReplacementService(repo, notifications, 3, logger),
		exports:       NewExportService(repo, logger),
		calendar:      NewCalendarService(repo, "https://planner.example.com", logger),
	}
}

func (f *fixture) regisseur(nom string) *Actor {
	ctx := context.Background()
	u := &model.User{Email: strings.ToLower(nom) + "@regie.fr", Role: model.RoleRegisseur}
	_ = f.repo.User.Create(ctx, u)
	p := &model.RegisseurProfile{UserID: u.UserID, Nom: nom, Prenom: "R", Email: u.Email}
	_ = f.repo.Regisseur.Create(ctx, p)
	return &Actor{UserID: u.UserID, Role: model.RoleRegisseur, ProfileID: p.ID}
}

func (f *fixture) intermittent(nom string) *Actor {
	ctx := context.Background()
	u := &model.User{Email: strings.ToLower(nom) + "@tech.fr", Role: model.RoleIntermittent}
	_ = f.repo.User.Create(ctx, u)
	specialite := "son"
	p := &model.IntermittentProfile{UserID: u.UserID, Nom: nom, Prenom: "I", Email: u.Email, Specialite: &specialite}
	_ = f.repo.Intermittent.Create(ctx, p)
	return &Actor{UserID: u.UserID, Role: model.RoleIntermittent, ProfileID: p.ID}
}

func (f *fixture) event(owner *Actor, name string) *model.Event {
	lieu := "Théâtre du Rond-Point"
	e := &model.Event{
		RegisseurID:     owner.ProfileID,
		NomEvenement:    name,
		DateDebut:       time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC),
		DateFin:         time.Date(2030, 6, 1, 23, 0, 0, 0, time.UTC),
		Lieu:            &lieu,
		StatutEvenement: model.EventStatusPublished,
	}
	_ = f.repo.Event.Create(context.Background(), e)
	return e
}

func (f *fixture) assign(e *model.Event, who *Actor, status model.AvailabilityStatus) *model.Assignment {
	a := model.Assignment{EventID: e.ID, IntermittentProfileID: who.ProfileID, StatutDisponibilite: status}
	list := []model.Assignment{a}
	_ = f.repo.Assignment.BatchCreate(context.Background(), list)
	return f.store.assignments[list[0].ID]
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("User.Create"); err != nil {
		return err
	}
	u.UserID, u.CreatedAt = m.s.nextID("user")
	cp := *u
	m.s.users[u.UserID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, u *model.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("User.Update"); err != nil {
		return err
	}
	cp := *u
	m.s.users[u.UserID] = &cp
	return nil
}

// ── Mock RegisseurRepository ──

type mockRegisseurRepo struct{ s *memStore }

func (m *mockRegisseurRepo) Create(_ context.Context, p *model.RegisseurProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Regisseur.Create"); err != nil {
		return err
	}
	p.ID, p.CreatedAt = m.s.nextID("reg")
	cp := *p
	m.s.regisseurs[p.ID] = &cp
	return nil
}

func (m *mockRegisseurRepo) GetByID(_ context.Context, id string) (*model.RegisseurProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p, ok := m.s.regisseurs[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegisseurRepo) GetByUserID(_ context.Context, userID string) (*model.RegisseurProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.regisseurs {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRegisseurRepo) Update(_ context.Context, p *model.RegisseurProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *p
	m.s.regisseurs[p.ID] = &cp
	return nil
}

// ── Mock IntermittentRepository ──

type mockIntermittentRepo struct{ s *memStore }

func (m *mockIntermittentRepo) Create(_ context.Context, p *model.IntermittentProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Intermittent.Create"); err != nil {
		return err
	}
	p.ID, p.CreatedAt = m.s.nextID("int")
	cp := *p
	m.s.intermittents[p.ID] = &cp
	return nil
}

func (m *mockIntermittentRepo) GetByID(_ context.Context, id string) (*model.IntermittentProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p, ok := m.s.intermittents[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIntermittentRepo) GetByUserID(_ context.Context, userID string) (*model.IntermittentProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, p := range m.s.intermittents {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockIntermittentRepo) GetByIDs(_ context.Context, ids []string) ([]model.IntermittentProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.IntermittentProfile
	for _, id := range ids {
		if p, ok := m.s.intermittents[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockIntermittentRepo) Search(_ context.Context, q string, excludeIDs []string) ([]model.IntermittentProfile, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	q = strings.ToLower(strings.TrimSpace(q))
	var out []model.IntermittentProfile
	for _, p := range m.s.intermittents {
		if contains(excludeIDs, p.ID) {
			continue
		}
		hay := strings.ToLower(p.Nom + " " + p.Prenom + " " + derefString(p.Specialite))
		if q != "" && !strings.Contains(hay, q) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nom < out[j].Nom })
	return out, nil
}

func (m *mockIntermittentRepo) Update(_ context.Context, p *model.IntermittentProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *p
	m.s.intermittents[p.ID] = &cp
	return nil
}

// ── Mock EventRepository ──

type mockEventRepo struct{ s *memStore }

func (m *mockEventRepo) Create(_ context.Context, e *model.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Event.Create"); err != nil {
		return err
	}
	e.ID, e.CreatedAt = m.s.nextID("evt")
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.s.events[e.ID] = &cp
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e, ok := m.s.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) GetByIDs(_ context.Context, ids []string) ([]model.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Event
	for _, id := range ids {
		if e, ok := m.s.events[id]; ok {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockEventRepo) ListByRegisseur(_ context.Context, regisseurID string, filter repository.EventFilter, offset, limit int) ([]model.Event, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.Event
	for _, e := range m.s.events {
		if e.RegisseurID != regisseurID {
			continue
		}
		if filter.Status != "" && e.StatutEvenement != filter.Status {
			continue
		}
		if filter.From != nil && e.DateFin.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.DateDebut.Before(*filter.To) {
			continue
		}
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DateDebut.After(all[j].DateDebut) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockEventRepo) Update(_ context.Context, e *model.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Event.Update"); err != nil {
		return err
	}
	cp := *e
	m.s.events[e.ID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Event.Delete"); err != nil {
		return err
	}
	delete(m.s.events, id)
	return nil
}

// ── Mock PlanningRepository ──

type mockPlanningRepo struct{ s *memStore }

func (m *mockPlanningRepo) ListByEvent(_ context.Context, eventID string) ([]model.PlanningItem, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.PlanningItem
	for _, p := range m.s.planning {
		if p.EventID == eventID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordre < out[j].Ordre })
	return out, nil
}

func (m *mockPlanningRepo) BatchCreate(_ context.Context, items []model.PlanningItem) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Planning.BatchCreate"); err != nil {
		return err
	}
	for i := range items {
		items[i].ID, items[i].CreatedAt = m.s.nextID("plan")
		cp := items[i]
		m.s.planning[cp.ID] = &cp
	}
	return nil
}

func (m *mockPlanningRepo) DeleteByEvent(_ context.Context, eventID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Planning.DeleteByEvent"); err != nil {
		return err
	}
	for id, p := range m.s.planning {
		if p.EventID == eventID {
			delete(m.s.planning, id)
		}
	}
	return nil
}

// ── Mock InformationFieldRepository ──

type mockInformationRepo struct{ s *memStore }

func (m *mockInformationRepo) ListByEvent(_ context.Context, eventID string) ([]model.InformationField, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.InformationField
	for _, f := range m.s.information {
		if f.EventID == eventID {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeChamp < out[j].TypeChamp })
	return out, nil
}

func (m *mockInformationRepo) BatchCreate(_ context.Context, fields []model.InformationField) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Information.BatchCreate"); err != nil {
		return err
	}
	for i := range fields {
		fields[i].ID, fields[i].CreatedAt = m.s.nextID("info")
		cp := fields[i]
		m.s.information[cp.ID] = &cp
	}
	return nil
}

func (m *mockInformationRepo) DeleteByEvent(_ context.Context, eventID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Information.DeleteByEvent"); err != nil {
		return err
	}
	for id, f := range m.s.information {
		if f.EventID == eventID {
			delete(m.s.information, id)
		}
	}
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ s *memStore }

// hydrate 模拟 Preload("Event") / Preload("Intermittent")
func (m *mockAssignmentRepo) hydrate(a *model.Assignment) model.Assignment {
	cp := *a
	if e, ok := m.s.events[a.EventID]; ok {
		ev := *e
		cp.Event = &ev
	}
	if p, ok := m.s.intermittents[a.IntermittentProfileID]; ok {
		pp := *p
		cp.Intermittent = &pp
	}
	return cp
}

func (m *mockAssignmentRepo) BatchCreate(_ context.Context, list []model.Assignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Assignment.BatchCreate"); err != nil {
		return err
	}
	for i := range list {
		list[i].ID, list[i].CreatedAt = m.s.nextID("asg")
		cp := list[i]
		cp.Event, cp.Intermittent = nil, nil
		m.s.assignments[cp.ID] = &cp
	}
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.Assignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a, ok := m.s.assignments[id]; ok {
		cp := m.hydrate(a)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListByEvent(_ context.Context, eventID string) ([]model.Assignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.s.assignments {
		if a.EventID == eventID {
			cp := m.hydrate(a)
			cp.Event = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockAssignmentRepo) ListByIntermittent(_ context.Context, profileID string) ([]model.Assignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.s.assignments {
		if a.IntermittentProfileID == profileID {
			cp := m.hydrate(a)
			cp.Intermittent = nil
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Event == nil || out[j].Event == nil {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Event.DateDebut.Before(out[j].Event.DateDebut)
	})
	return out, nil
}

func (m *mockAssignmentRepo) ListProfileIDsByEvent(_ context.Context, eventID string) ([]string, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []string
	for _, a := range m.s.assignments {
		if a.EventID == eventID {
			out = append(out, a.IntermittentProfileID)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) UpdateStatus(_ context.Context, id string, status model.AvailabilityStatus, dateReponse *time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Assignment.UpdateStatus"); err != nil {
		return err
	}
	a, ok := m.s.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	a.StatutDisponibilite = status
	if dateReponse != nil {
		a.DateReponse = dateReponse
	}
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Assignment.Delete"); err != nil {
		return err
	}
	delete(m.s.assignments, id)
	return nil
}

func (m *mockAssignmentRepo) DeleteByEvent(_ context.Context, eventID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Assignment.DeleteByEvent"); err != nil {
		return err
	}
	for id, a := range m.s.assignments {
		if a.EventID == eventID {
			delete(m.s.assignments, id)
		}
	}
	return nil
}

// ── Mock ResponseRepository ──

type mockResponseRepo struct{ s *memStore }

func (m *mockResponseRepo) Create(_ context.Context, r *model.EventResponse) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Response.Create"); err != nil {
		return err
	}
	r.ID, r.CreatedAt = m.s.nextID("resp")
	cp := *r
	m.s.responses[r.ID] = &cp
	return nil
}

func (m *mockResponseRepo) ListByAssignment(_ context.Context, assignmentID string) ([]model.EventResponse, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []model.EventResponse
	for _, r := range m.s.responses {
		if r.EventAssignmentID == assignmentID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockResponseRepo) LatestByAssignments(_ context.Context, ids []string) (map[string]model.EventResponse, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make(map[string]model.EventResponse)
	for _, r := range m.s.responses {
		if !contains(ids, r.EventAssignmentID) {
			continue
		}
		if cur, ok := out[r.EventAssignmentID]; !ok || r.CreatedAt.After(cur.CreatedAt) {
			out[r.EventAssignmentID] = *r
		}
	}
	return out, nil
}

func (m *mockResponseRepo) DeleteByAssignments(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Response.DeleteByAssignments"); err != nil {
		return err
	}
	for id, r := range m.s.responses {
		if contains(ids, r.EventAssignmentID) {
			delete(m.s.responses, id)
		}
	}
	return nil
}

// ── Mock ReplacementRepository ──

type mockReplacementRepo struct{ s *memStore }

func (m *mockReplacementRepo) hydrate(r *model.ReplacementRequest) model.ReplacementRequest {
	cp := *r
	if a, ok := m.s.assignments[r.EventAssignmentID]; ok {
		ac := *a
		if e, ok := m.s.events[a.EventID]; ok {
			ev := *e
			ac.Event = &ev
		}
		cp.Assignment = &ac
	}
	if p, ok := m.s.intermittents[r.RequesterIntermittentProfileID]; ok {
		pp := *p
		cp.Requester = &pp
	}
	return cp
}

func (m *mockReplacementRepo) Create(_ context.Context, r *model.ReplacementRequest) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Replacement.Create"); err != nil {
		return err
	}
	r.ID, r.CreatedAt = m.s.nextID("rr")
	r.UpdatedAt = r.CreatedAt
	cp := *r
	cp.Assignment, cp.Requester = nil, nil
	m.s.replacements[r.ID] = &cp
	return nil
}

func (m *mockReplacementRepo) GetByID(_ context.Context, id string) (*model.ReplacementRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r, ok := m.s.replacements[id]; ok {
		cp := m.hydrate(r)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockReplacementRepo) list(match func(*model.ReplacementRequest) bool, status string, offset, limit int) ([]model.ReplacementRequest, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.ReplacementRequest
	for _, r := range m.s.replacements {
		if !match(r) || (status != "" && string(r.Status) != status) {
			continue
		}
		all = append(all, m.hydrate(r))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockReplacementRepo) ListByRegisseur(_ context.Context, regisseurID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error) {
	return m.list(func(r *model.ReplacementRequest) bool { return r.RegisseurID == regisseurID }, status, offset, limit)
}

func (m *mockReplacementRepo) ListByRequester(_ context.Context, profileID, status string, offset, limit int) ([]model.ReplacementRequest, int64, error) {
	return m.list(func(r *model.ReplacementRequest) bool { return r.RequesterIntermittentProfileID == profileID }, status, offset, limit)
}

func (m *mockReplacementRepo) CountActiveByAssignment(_ context.Context, assignmentID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, r := range m.s.replacements {
		if r.EventAssignmentID == assignmentID && r.Status.IsActive() {
			n++
		}
	}
	return n, nil
}

func (m *mockReplacementRepo) LatestByAssignments(_ context.Context, ids []string) (map[string]model.ReplacementRequest, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make(map[string]model.ReplacementRequest)
	for _, r := range m.s.replacements {
		if !contains(ids, r.EventAssignmentID) {
			continue
		}
		if cur, ok := out[r.EventAssignmentID]; !ok || r.CreatedAt.After(cur.CreatedAt) {
			out[r.EventAssignmentID] = *r
		}
	}
	return out, nil
}

func (m *mockReplacementRepo) UpdateStatus(_ context.Context, id string, status model.ReplacementStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Replacement.UpdateStatus"); err != nil {
		return err
	}
	r, ok := m.s.replacements[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.Status = status
	return nil
}

func (m *mockReplacementRepo) DeleteByAssignments(_ context.Context, ids []string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Replacement.DeleteByAssignments"); err != nil {
		return err
	}
	for id, r := range m.s.replacements {
		if contains(ids, r.EventAssignmentID) {
			delete(m.s.replacements, id)
		}
	}
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *memStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Notification.Create"); err != nil {
		return err
	}
	n.ID, n.CreatedAt = m.s.nextID("notif")
	cp := *n
	m.s.notifications[n.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if n, ok := m.s.notifications[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var all []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			all = append(all, *n)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var c int64
	for _, n := range m.s.notifications {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.check("Notification.MarkRead"); err != nil {
		return err
	}
	if n, ok := m.s.notifications[id]; ok {
		n.IsRead = true
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var c int64
	for _, n := range m.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

// notificationsFor 某用户收到的通知（按写入顺序）
func (s *memStore) notificationsFor(userID string) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

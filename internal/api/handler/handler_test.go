package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stage-planner/internal/dto"
	"stage-planner/internal/model"
	"stage-planner/internal/realtime"
	"stage-planner/internal/service"
	pkgerrors "stage-planner/pkg/errors"
	"stage-planner/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult *dto.RegisterResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	refreshResult  *dto.TokenResponse
	refreshErr     error
	refreshToken   string
	logoutErr      error
	logoutJTI      string
	changePassErr  error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Refresh(_ context.Context, token string) (*dto.TokenResponse, error) {
	m.refreshToken = token
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) Session(expiresAt time.Time) *dto.SessionResponse {
	return &dto.SessionResponse{Status: service.SessionActive, ExpiresAt: expiresAt.Format(time.RFC3339)}
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}
func (m *mockAuthService) ProvisionRegisseur(_ context.Context, _ *service.RegisseurInput) (*model.RegisseurProfile, error) {
	return nil, nil
}

// ── Mock EventService ──

type mockEventService struct {
	writeResult *dto.EventWriteResult
	writeErr    error
	getResult   *dto.EventDetailResponse
	getErr      error
	listResult  []dto.EventResponse
	listTotal   int64
	gotActor    *service.Actor
}

func (m *mockEventService) Create(_ context.Context, actor *service.Actor, _ *dto.CreateEventRequest) (*dto.EventWriteResult, error) {
	m.gotActor = actor
	return m.writeResult, m.writeErr
}
func (m *mockEventService) Update(_ context.Context, _ *service.Actor, _ string, _ *dto.UpdateEventRequest) (*dto.EventWriteResult, error) {
	return m.writeResult, m.writeErr
}
func (m *mockEventService) Get(_ context.Context, _ *service.Actor, _ string) (*dto.EventDetailResponse, error) {
	return m.getResult, m.getErr
}
func (m *mockEventService) List(_ context.Context, _ *service.Actor, _ *dto.EventListRequest) ([]dto.EventResponse, int64, error) {
	return m.listResult, m.listTotal, nil
}
func (m *mockEventService) Delete(_ context.Context, _ *service.Actor, _ string) error {
	return m.writeErr
}
func (m *mockEventService) Duplicate(_ context.Context, _ *service.Actor, _ string) (*dto.EventWriteResult, error) {
	return m.writeResult, m.writeErr
}

// ── Mock AssignmentService ──

type mockAssignmentService struct {
	validateReq    *dto.ValidateTeamRequest
	validateResult *dto.TeamValidationResult
	respondErr     error
	selection      model.Selection
}

func (m *mockAssignmentService) Assign(_ context.Context, _ *service.Actor, _ string, _ *dto.AssignRequest) ([]dto.AssignmentResponse, error) {
	return nil, nil
}
func (m *mockAssignmentService) Unassign(_ context.Context, _ *service.Actor, _ string) error {
	return nil
}
func (m *mockAssignmentService) Respond(_ context.Context, _ *service.Actor, id string, _ *dto.RespondRequest) (*dto.AssignmentResponse, error) {
	if m.respondErr != nil {
		return nil, m.respondErr
	}
	return &dto.AssignmentResponse{ID: id, StatutDisponibilite: string(model.StatusDisponible)}, nil
}
func (m *mockAssignmentService) History(_ context.Context, _ *service.Actor, _ string) ([]dto.ResponseHistoryItem, error) {
	return nil, nil
}
func (m *mockAssignmentService) TeamBoard(_ context.Context, _ *service.Actor, _ string) ([]dto.TeamMember, error) {
	return nil, nil
}
func (m *mockAssignmentService) CycleSelection(_ context.Context, _ *service.Actor, _, _ string) (model.Selection, error) {
	return m.selection, nil
}
func (m *mockAssignmentService) ValidateTeam(_ context.Context, _ *service.Actor, _ string, req *dto.ValidateTeamRequest) (*dto.TeamValidationResult, error) {
	m.validateReq = req
	return m.validateResult, nil
}
func (m *mockAssignmentService) Candidates(_ context.Context, _ *service.Actor, _, _ string) ([]dto.IntermittentBrief, error) {
	return nil, nil
}
func (m *mockAssignmentService) MyAssignments(_ context.Context, _ *service.Actor) (*dto.MyAssignmentsResponse, error) {
	return &dto.MyAssignmentsResponse{}, nil
}

// ── Mock CalendarService ──

type mockCalendarService struct {
	feed string
	err  error
}

func (m *mockCalendarService) Feed(_ context.Context, _ *service.Actor) (string, error) {
	return m.feed, m.err
}

// ── Mock ReplacementService ──

type mockReplacementService struct {
	submitResult *dto.ReplacementRequestResponse
	submitErr    error
}

func (m *mockReplacementService) Submit(_ context.Context, _ *service.Actor, _ *dto.SubmitReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	return m.submitResult, m.submitErr
}
func (m *mockReplacementService) Review(_ context.Context, _ *service.Actor, _ string, _ *dto.ReviewReplacementRequest) (*dto.ReplacementRequestResponse, error) {
	return nil, nil
}
func (m *mockReplacementService) Cancel(_ context.Context, _ *service.Actor, _ string) error {
	return nil
}
func (m *mockReplacementService) Get(_ context.Context, _ *service.Actor, _ string) (*dto.ReplacementRequestResponse, error) {
	return nil, nil
}
func (m *mockReplacementService) List(_ context.Context, _ *service.Actor, _ *dto.ReplacementListRequest) ([]dto.ReplacementRequestResponse, int64, error) {
	return nil, 0, nil
}

// ── Mock NotificationService ──

type mockNotificationService struct {
	hub       *realtime.MemoryHub
	unread    int64
	markErr   error
	listTotal int64
}

func (m *mockNotificationService) Notify(_ context.Context, _ *model.Notification) error {
	return nil
}
func (m *mockNotificationService) List(_ context.Context, _ string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	return []dto.NotificationResponse{}, m.listTotal, nil
}
func (m *mockNotificationService) UnreadCount(_ context.Context, _ string) (int64, error) {
	return m.unread, nil
}
func (m *mockNotificationService) MarkRead(_ context.Context, _, _ string) error {
	return m.markErr
}
func (m *mockNotificationService) MarkAllRead(_ context.Context, _ string) (int64, error) {
	return 2, nil
}
func (m *mockNotificationService) Subscribe(ctx context.Context, userID string) (realtime.Subscription, error) {
	return m.hub.Subscribe(ctx, userID)
}

// ── Mock ExportService ──

type mockExportService struct {
	file      *service.ExportFile
	err       error
	gotGroupe string
	gotFormat string
}

func (m *mockExportService) FeuilleDeRoute(_ context.Context, _ *service.Actor, _, groupe, format string) (*service.ExportFile, error) {
	m.gotGroupe, m.gotFormat = groupe, format
	return m.file, m.err
}
func (m *mockExportService) Team(_ context.Context, _ *service.Actor, _ string) (*service.ExportFile, error) {
	return m.file, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

var (
	testRegisseur    = &service.Actor{UserID: "user-reg", Role: model.RoleRegisseur, ProfileID: "reg-1"}
	testIntermittent = &service.Actor{UserID: "user-int", Role: model.RoleIntermittent, ProfileID: "int-1"}
)

// withActor 模拟 JWTAuth + ProfileContext 注入的上下文
func withActor(actor *service.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxUserID, actor.UserID)
		c.Set(CtxRole, actor.Role)
		c.Set(CtxTokenJTI, "test-jti")
		c.Set(CtxTokenExp, time.Now().Add(15*time.Minute))
		c.Set(CtxActor, actor)
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock, time.Hour)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "a@b.fr", Password: "Test1234"}))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	// 验证 Set-Cookie 头
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			found = true
			if c.Value != "test-refresh-token" || !c.HttpOnly {
				t.Errorf("unexpected cookie: %+v", c)
			}
		}
	}
	if !found {
		t.Error("expected refresh_token cookie to be set")
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, 0)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	w := serve(r, "POST", "/auth/login", strings.NewReader("invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_ErrorMapping(t *testing.T) {
	login := jsonBody(dto.LoginRequest{Email: "a@b.fr", Password: "x"})
	register := jsonBody(dto.RegisterRequest{Email: "a@b.fr", Password: "Test12345", Nom: "Martin", Prenom: "Léa"})

	tests := []struct {
		name       string
		path       string
		body       io.Reader
		err        error
		wantStatus int
		wantCode   int
	}{
		{"InvalidCredentials", "/auth/login", login, service.ErrInvalidCredentials, 401, 11001},
		{"EmailTaken", "/auth/register", register, service.ErrEmailTaken, 409, 11004},
		{"InternalError", "/auth/register", nil, errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.body == nil {
				tt.body = jsonBody(dto.RegisterRequest{Email: "b@b.fr", Password: "Test12345", Nom: "Petit", Prenom: "Jean"})
			}
			h := NewAuthHandler(&mockAuthService{loginErr: tt.err, registerErr: tt.err}, 0)
			r := gin.New()
			r.POST("/auth/login", h.Login)
			r.POST("/auth/register", h.Register)

			w := serve(r, "POST", tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAuthHandler_RefreshToken_FromCookie(t *testing.T) {
	mock := &mockAuthService{refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	h := NewAuthHandler(mock, time.Hour)

	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: "cookie-refresh"})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.refreshToken != "cookie-refresh" {
		t.Errorf("应使用 Cookie 中的 refresh_token，实际=%q", mock.refreshToken)
	}
}

func TestAuthHandler_RefreshToken_Missing(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, 0)
	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)

	w := serve(r, "POST", "/auth/refresh", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_RefreshToken_Revoked(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrTokenRevoked}, 0)
	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)

	w := serve(r, "POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "used"}))
	if w.Code != http.StatusUnauthorized || parseResponse(w).Code != 11003 {
		t.Errorf("expected 401/11003, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock, 0)

	r := gin.New()
	r.POST("/auth/logout", withActor(testIntermittent), h.Logout)
	w := serve(r, "POST", "/auth/logout", nil)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" {
		t.Errorf("应吊销当前 Token 的 jti，实际=%q", mock.logoutJTI)
	}
}

func TestAuthHandler_Session_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, 0)
	r := gin.New()
	r.GET("/auth/session", h.Session)

	w := serve(r, "GET", "/auth/session", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// EventHandler Tests
// ═══════════════════════════════════════════════════════════

func validCreateBody() io.Reader {
	start := time.Date(2030, 6, 1, 18, 0, 0, 0, time.UTC)
	return jsonBody(dto.CreateEventRequest{
		NomEvenement: "Festival",
		DateDebut:    start,
		DateFin:      start.Add(5 * time.Hour),
	})
}

func TestEventHandler_Create_Success(t *testing.T) {
	mock := &mockEventService{writeResult: &dto.EventWriteResult{Event: dto.EventResponse{ID: "evt-1"}}}
	h := NewEventHandler(mock, nil)

	r := gin.New()
	r.POST("/events", withActor(testRegisseur), h.CreateEvent)
	w := serve(r, "POST", "/events", validCreateBody())

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.gotActor != testRegisseur {
		t.Error("应把身份上下文传给 Service")
	}
}

func TestEventHandler_Create_NoActor(t *testing.T) {
	h := NewEventHandler(&mockEventService{}, nil)

	r := gin.New()
	r.POST("/events", h.CreateEvent)
	w := serve(r, "POST", "/events", validCreateBody())

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestEventHandler_Create_PartialWrite(t *testing.T) {
	mock := &mockEventService{
		writeResult: &dto.EventWriteResult{PlanningCount: 3},
		writeErr:    pkgerrors.Partial("information", 2, errors.New("connexion perdue")),
	}
	h := NewEventHandler(mock, nil)

	r := gin.New()
	r.POST("/events", withActor(testRegisseur), h.CreateEvent)
	w := serve(r, "POST", "/events", validCreateBody())

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10006 {
		t.Errorf("expected code 10006, got %d", resp.Code)
	}
	if !strings.Contains(resp.Details, `"information"`) || strings.Contains(resp.Details, "connexion perdue") {
		t.Errorf("details 应包含步骤且不暴露底层错误，实际=%q", resp.Details)
	}
}

func TestEventHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrEventNotFound, 404, 13001},
		{"NotOwner", service.ErrNotEventOwner, 403, 13002},
		{"PermissionDenied", service.ErrPermissionDenied, 403, 10003},
		{"ProfileRequired", service.ErrProfileRequired, 403, 10004},
		{"InternalError", errors.New("unknown"), 500, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEventHandler(&mockEventService{getErr: tt.err}, nil)

			r := gin.New()
			r.GET("/events/:id", withActor(testIntermittent), h.GetEvent)
			w := serve(r, "GET", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestEventHandler_Get_MalformedID(t *testing.T) {
	mock := &mockEventService{getErr: errors.New("ne doit pas être appelé")}
	h := NewEventHandler(mock, nil)

	r := gin.New()
	r.GET("/events/:id", withActor(testRegisseur), h.GetEvent)
	w := serve(r, "GET", "/events/pas-un-uuid", nil)

	if w.Code != http.StatusNotFound || parseResponse(w).Code != 10007 {
		t.Errorf("expected 404/10007, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestEventHandler_List_Pagination(t *testing.T) {
	mock := &mockEventService{listResult: []dto.EventResponse{{ID: "a"}}, listTotal: 41}
	h := NewEventHandler(mock, nil)

	r := gin.New()
	r.GET("/events", withActor(testRegisseur), h.ListEvents)

	w := serve(r, "GET", "/events?page=2&page_size=20", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.Pagination.TotalPages != 3 || resp.Data.Pagination.Page != 2 {
		t.Errorf("分页元数据不正确: %+v", resp.Data.Pagination)
	}

	w = serve(r, "GET", "/events?status=inconnu", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法状态过滤 expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AssignmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAssignmentHandler_ValidateTeam_EmptyBodyUsesDraft(t *testing.T) {
	mock := &mockAssignmentService{validateResult: &dto.TeamValidationResult{Validated: 1}}
	h := NewAssignmentHandler(mock, nil)

	r := gin.New()
	r.POST("/events/:id/team/validate", withActor(testRegisseur), h.ValidateTeam)

	w := serve(r, "POST", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40/team/validate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("空请求体应使用草稿, got %d: %s", w.Code, w.Body.String())
	}
	if mock.validateReq == nil || mock.validateReq.Selections != nil {
		t.Errorf("空请求体不应带 selections，实际=%+v", mock.validateReq)
	}

	w = serve(r, "POST", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40/team/validate", jsonBody(map[string]interface{}{
		"selections": map[string]string{"asg-1": "selected"},
	}))
	if w.Code != http.StatusOK || mock.validateReq.Selections["asg-1"] != "selected" {
		t.Errorf("显式 selections 应传给 Service，实际=%+v", mock.validateReq)
	}
}

func TestAssignmentHandler_Respond_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"NotFound", service.ErrAssignmentNotFound, 404, 14001},
		{"NotAssignee", service.ErrNotAssignee, 403, 14002},
		{"Transition", service.ErrInvalidTransition, 409, 14003},
		{"AltDates", service.ErrAlternativeDatesRequired, 400, 14005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAssignmentHandler(&mockAssignmentService{respondErr: tt.err}, nil)

			r := gin.New()
			r.POST("/assignments/:id/respond", withActor(testIntermittent), h.Respond)
			w := serve(r, "POST", "/assignments/8c5d2e71-4a3b-4f9e-b1c6-7d0a9e3f5b22/respond", jsonBody(dto.RespondRequest{ResponseType: "accept"}))

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAssignmentHandler_Respond_InvalidType(t *testing.T) {
	h := NewAssignmentHandler(&mockAssignmentService{}, nil)

	r := gin.New()
	r.POST("/assignments/:id/respond", withActor(testIntermittent), h.Respond)
	w := serve(r, "POST", "/assignments/8c5d2e71-4a3b-4f9e-b1c6-7d0a9e3f5b22/respond", jsonBody(dto.RespondRequest{ResponseType: "peut-etre"}))

	if w.Code != http.StatusBadRequest || parseResponse(w).Code != 10001 {
		t.Errorf("expected 400/10001, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestAssignmentHandler_CycleSelection(t *testing.T) {
	h := NewAssignmentHandler(&mockAssignmentService{selection: model.SelectionSelected}, nil)

	r := gin.New()
	r.POST("/events/:id/team/:assignmentId/cycle", withActor(testRegisseur), h.CycleSelection)
	w := serve(r, "POST", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40/team/8c5d2e71-4a3b-4f9e-b1c6-7d0a9e3f5b22/cycle", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"selection":"selected"`) {
		t.Errorf("响应应包含新的选择，实际=%s", w.Body.String())
	}
}

func TestAssignmentHandler_MyCalendar(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	h := NewAssignmentHandler(&mockAssignmentService{}, &mockCalendarService{feed: feed})

	r := gin.New()
	r.GET("/me/calendar.ics", withActor(testIntermittent), h.MyCalendar)
	w := serve(r, "GET", "/me/calendar.ics", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar, got %s", ct)
	}
	if w.Body.String() != feed {
		t.Errorf("日历内容不正确: %q", w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// ReplacementHandler Tests
// ═══════════════════════════════════════════════════════════

func validSubmitBody() io.Reader {
	return jsonBody(dto.SubmitReplacementRequest{
		AssignmentID: "6f1c2a8e-8f57-4d3a-9a53-0c7d0e3f2a11",
		RequestType:  "urgent",
		Comment:      "Hospitalisation",
	})
}

func TestReplacementHandler_Submit_Success(t *testing.T) {
	mock := &mockReplacementService{submitResult: &dto.ReplacementRequestResponse{ID: "rr-1", Status: "pending_approval"}}
	h := NewReplacementHandler(mock)

	r := gin.New()
	r.POST("/replacements", withActor(testIntermittent), h.Submit)
	w := serve(r, "POST", "/replacements", validSubmitBody())

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestReplacementHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"Reason", service.ErrReasonRequired, 400, 15002},
		{"Limit", model.ErrSuggestionLimit, 400, 15003},
		{"NotValidated", service.ErrAssignmentNotValidated, 409, 15007},
		{"ActiveExists", service.ErrActiveRequestExists, 409, 15008},
		{"NotAssignee", service.ErrNotAssignee, 403, 14002},
		{"Partial", pkgerrors.Partial("notification", 1, errors.New("x")), 500, 10006},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewReplacementHandler(&mockReplacementService{submitErr: tt.err})

			r := gin.New()
			r.POST("/replacements", withActor(testIntermittent), h.Submit)
			w := serve(r, "POST", "/replacements", validSubmitBody())

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// NotificationHandler Tests
// ═══════════════════════════════════════════════════════════

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{markErr: service.ErrNotificationNotFound}, time.Minute)

	r := gin.New()
	r.PUT("/notifications/:id/read", withActor(testIntermittent), h.MarkRead)
	w := serve(r, "PUT", "/notifications/d4a7f0c3-6e21-4b8d-a5f9-2c3e7b1d9f60/read", nil)

	if w.Code != http.StatusNotFound || parseResponse(w).Code != 16001 {
		t.Errorf("expected 404/16001, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

func TestNotificationHandler_UnreadCountAndMarkAll(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{unread: 3}, time.Minute)

	r := gin.New()
	r.GET("/notifications/unread-count", withActor(testIntermittent), h.UnreadCount)
	r.PUT("/notifications/read-all", withActor(testIntermittent), h.MarkAllRead)

	w := serve(r, "GET", "/notifications/unread-count", nil)
	if !strings.Contains(w.Body.String(), `"count":3`) {
		t.Errorf("未读数不正确: %s", w.Body.String())
	}
	w = serve(r, "PUT", "/notifications/read-all", nil)
	if !strings.Contains(w.Body.String(), `"updated":2`) {
		t.Errorf("更新数不正确: %s", w.Body.String())
	}
}

// readEvent 读取下一个 SSE 事件名
func readEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && name != "":
			return name, data
		}
	}
	t.Fatalf("事件流提前结束: %v", sc.Err())
	return "", ""
}

func TestNotificationHandler_Stream(t *testing.T) {
	hub := realtime.NewMemoryHub(zap.NewNop())
	defer hub.Close()
	h := NewNotificationHandler(&mockNotificationService{hub: hub, unread: 1}, time.Hour)

	r := gin.New()
	r.GET("/notifications/stream", withActor(testIntermittent), h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/notifications/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("连接事件流失败: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected text/event-stream, got %s", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	if name, _ := readEvent(t, sc); name != "ready" {
		t.Fatalf("首个事件应为 ready，实际=%s", name)
	}

	// 其他用户的变更不应推送
	_ = hub.Publish(ctx, realtime.Change{Kind: realtime.ChangeInsert, UserID: "someone-else", NotificationID: "n-0", At: time.Now()})
	_ = hub.Publish(ctx, realtime.Change{Kind: realtime.ChangeInsert, UserID: testIntermittent.UserID, NotificationID: "n-1", At: time.Now()})

	name, data := readEvent(t, sc)
	if name != string(realtime.ChangeInsert) {
		t.Errorf("expected insert, got %s", name)
	}
	if !strings.Contains(data, `"notification_id":"n-1"`) || !strings.Contains(data, `"unread":1`) {
		t.Errorf("事件内容不正确: %s", data)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_FeuilleDeRoute_Success(t *testing.T) {
	mock := &mockExportService{file: &service.ExportFile{
		Buf:         bytes.NewBufferString("%PDF-1.3"),
		Filename:    "feuille-de-route_festival_tous.pdf",
		ContentType: service.ContentTypePDF,
	}}
	h := NewExportHandler(mock)

	r := gin.New()
	r.GET("/events/:id/feuille-de-route", withActor(testRegisseur), h.FeuilleDeRoute)
	w := serve(r, "GET", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40/feuille-de-route?groupe=artistes&format=pdf", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != service.ContentTypePDF {
		t.Errorf("expected pdf content type, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "feuille-de-route_festival_tous.pdf") {
		t.Errorf("Content-Disposition 不正确: %s", cd)
	}
	if mock.gotGroupe != "artistes" || mock.gotFormat != "pdf" {
		t.Errorf("查询参数未传给 Service: %s %s", mock.gotGroupe, mock.gotFormat)
	}
}

func TestExportHandler_InvalidQuery(t *testing.T) {
	h := NewExportHandler(&mockExportService{})

	r := gin.New()
	r.GET("/events/:id/feuille-de-route", withActor(testRegisseur), h.FeuilleDeRoute)
	w := serve(r, "GET", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40/feuille-de-route?format=docx", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestExportHandler_TeamNotOwner(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrNotEventOwner})

	r := gin.New()
	r.GET("/events/:id/team/export", withActor(testRegisseur), h.Team)
	w := serve(r, "GET", "/events/3b0e6a52-1d4f-4c8e-9f7a-5e2d8c1b6a40/team/export", nil)

	if w.Code != http.StatusForbidden || parseResponse(w).Code != 13002 {
		t.Errorf("expected 403/13002, got %d/%d", w.Code, parseResponse(w).Code)
	}
}

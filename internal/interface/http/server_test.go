package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alem-hub/learnhub/config"
	"github.com/alem-hub/learnhub/internal/application/command"
	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/application/query"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/course"
	"github.com/alem-hub/learnhub/internal/infrastructure/messaging"
	"github.com/alem-hub/learnhub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnhub/internal/interface/http/handlers"
	"github.com/alem-hub/learnhub/pkg/logger"
)

const testSecret = "test-secret-test-secret-test-secret"

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

type testServer struct {
	handler http.Handler
	store   *memory.Store
	auth    *handlers.JWTAuth
}

func newTestServer(t *testing.T, flags *config.FeatureFlags) *testServer {
	t.Helper()
	store := memory.NewStore()
	log := logger.Nop()
	auth := handlers.NewJWTAuth(testSecret, "learnhub")
	deps := command.Deps{UoW: store, Logger: log}
	engine := gamification.NewEngine(store, nil, log)

	srv := NewServer(DefaultConfig(), Dependencies{
		RegisterAccount:     command.NewRegisterAccountHandler(deps, bcrypt.MinCost),
		Login:               command.NewLoginHandler(deps),
		SetAccountStatus:    command.NewSetAccountStatusHandler(deps),
		Enroll:              command.NewEnrollHandler(deps),
		RecordProgress:      command.NewRecordProgressHandler(deps),
		SetEnrollmentStatus: command.NewSetEnrollmentStatusHandler(deps),
		GrantAward:          command.NewGrantAwardHandler(deps, engine),
		GetAccount:          query.NewGetAccountHandler(store, log),
		ListMyEnrollments:   query.NewListMyEnrollmentsHandler(store, log),
		StudentAnalytics:    query.NewStudentAnalyticsHandler(store, log),
		PendingQueue:        query.NewPendingEnrollmentQueueHandler(store, log),
		StudentProgress:     query.NewStudentProgressHandler(store, log),
		PublicStats:         query.NewPublicStatsHandler(store, log),
		Auth:                auth,
		Features:            flags,
		EventMetrics:        messaging.NewEventBusMetrics(),
		Logger:              log,
	})

	ts := &testServer{handler: srv.Handler(), store: store, auth: auth}
	ts.seedAccount(t, "admin-1", "Ada", account.RoleAdmin, true)
	ts.seedAccount(t, "student-1", "Ann", account.RoleStudent, true)
	require.NoError(t, store.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Courses().Create(ctx, &course.Course{ID: "course-1", Title: "Go Basics", CreatedAt: t0})
	}))
	return ts
}

func (ts *testServer) seedAccount(t *testing.T, id, name string, role account.Role, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	acc, err := account.NewAccount(account.NewAccountParams{
		ID: id, Name: name, Email: id + "@example.com", PasswordHash: string(hash), Role: role,
	}, t0)
	require.NoError(t, err)
	if active && acc.Status != account.StatusActive {
		_, err := acc.SetStatus(account.StatusActive, t0)
		require.NoError(t, err)
	}
	require.NoError(t, ts.store.Write(context.Background(), func(ctx context.Context, repos port.Repositories) error {
		return repos.Accounts().Create(ctx, acc)
	}))
}

func (ts *testServer) token(t *testing.T, accountID string) string {
	t.Helper()
	token, err := ts.auth.Issue(accountID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestRegisterApproveLogin(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/v1/accounts", "", map[string]string{
		"name": "Cara", "email": "cara@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code)
	created := decodeData[query.AccountDTO](t, env)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "student", created.Role)

	login := map[string]string{"email": "cara@example.com", "password": "secret1"}
	code, env = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", login)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, codeForbidden, env.Error.Code)
	assert.Equal(t, "account is pending approval", env.Error.Message)

	code, _ = ts.do(t, http.MethodPatch, "/api/v1/accounts/"+created.ID+"/status",
		ts.token(t, "student-1"), map[string]string{"status": "active"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = ts.do(t, http.MethodPatch, "/api/v1/accounts/"+created.ID+"/status",
		ts.token(t, "admin-1"), map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", decodeData[query.AccountDTO](t, env).Status)

	code, env = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", login)
	require.Equal(t, http.StatusOK, code)
	res := decodeData[loginResponse](t, env)
	require.NotEmpty(t, res.Token)

	code, env = ts.do(t, http.MethodGet, "/api/v1/accounts/me", res.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cara@example.com", decodeData[query.AccountDTO](t, env).Email)

	code, env = ts.do(t, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "cara@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, codeUnauthorized, env.Error.Code)
}

func TestEnrollAndComplete(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "student-1")

	code, env := ts.do(t, http.MethodPost, "/api/v1/enrollments", token, map[string]string{"courseId": "course-1"})
	require.Equal(t, http.StatusCreated, code)
	enrolled := decodeData[enrollmentResponse](t, env)
	assert.Equal(t, "pending", enrolled.Enrollment.Status)
	require.NotNil(t, enrolled.Reward)
	require.Len(t, enrolled.Reward.BadgesEarned, 1)
	assert.Equal(t, "First Steps", enrolled.Reward.BadgesEarned[0].Name)

	code, env = ts.do(t, http.MethodPut, "/api/v1/enrollments/"+enrolled.Enrollment.ID+"/progress", token,
		map[string]any{"moduleId": "m1", "progress": 100, "timeSpent": 30, "quiz": map[string]any{"score": 90, "passed": true}})
	require.Equal(t, http.StatusOK, code)
	done := decodeData[enrollmentResponse](t, env)
	assert.Equal(t, "completed", done.Enrollment.Status)
	assert.Equal(t, []string{"m1"}, done.Enrollment.CompletedModules)
	require.NotNil(t, done.Reward)
	assert.Equal(t, 500, done.Reward.PointsAdded)

	code, env = ts.do(t, http.MethodGet, "/api/v1/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decodeData[query.AccountDTO](t, env)
	assert.Equal(t, 500, me.Points)
	assert.Equal(t, 1, me.CoursesCompleted)

	code, env = ts.do(t, http.MethodGet, "/api/v1/enrollments/my", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Meta.TotalCount)
}

func TestAuthenticationRequired(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/api/v1/accounts/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, codeUnauthorized, env.Error.Code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/enrollments/my", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Valid token for an account that does not exist.
	code, env = ts.do(t, http.MethodGet, "/api/v1/analytics/students", ts.token(t, "ghost"), nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, codeUnauthorized, env.Error.Code)
}

func TestRejectedAccountLosesAccess(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "student-1")

	code, _ := ts.do(t, http.MethodGet, "/api/v1/accounts/me", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodPatch, "/api/v1/accounts/student-1/status",
		ts.token(t, "admin-1"), map[string]string{"status": "rejected"})
	require.Equal(t, http.StatusOK, code)

	code, env := ts.do(t, http.MethodPost, "/api/v1/enrollments", token, map[string]string{"courseId": "course-1"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, codeForbidden, env.Error.Code)
	assert.Equal(t, "account is inactive, please contact administrator", env.Error.Message)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/accounts/me", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(t, http.MethodPatch, "/api/v1/accounts/student-1/status",
		ts.token(t, "admin-1"), map[string]string{"status": "pending"})
	require.Equal(t, http.StatusOK, code)
	code, env = ts.do(t, http.MethodGet, "/api/v1/enrollments/my", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "account is pending approval", env.Error.Message)
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	srv := NewServer(cfg, Dependencies{Logger: logger.Nop()})

	require.NoError(t, srv.Shutdown(context.Background()))

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start kept serving after Shutdown")
	}
	assert.Zero(t, srv.Uptime())
}

func TestServer_ShutdownStopsRunningServer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	srv := NewServer(cfg, Dependencies{Logger: logger.Nop()})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	require.Eventually(t, func() bool { return srv.Uptime() > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.token(t, "student-1")

	code, env := ts.do(t, http.MethodPost, "/api/v1/enrollments", token, map[string]string{"courseId": "nope"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, codeNotFound, env.Error.Code)

	code, env = ts.do(t, http.MethodPost, "/api/v1/enrollments", token, map[string]string{"courseId": "course-1"})
	require.Equal(t, http.StatusCreated, code)
	id := decodeData[enrollmentResponse](t, env).Enrollment.ID

	code, env = ts.do(t, http.MethodPost, "/api/v1/enrollments", token, map[string]string{"courseId": "course-1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, codeConflict, env.Error.Code)

	code, env = ts.do(t, http.MethodPut, "/api/v1/enrollments/"+id+"/progress", token, map[string]any{"progress": 150})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, codeValidation, env.Error.Code)

	code, env = ts.do(t, http.MethodPut, "/api/v1/enrollments/"+id+"/progress", token, "{not json")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, codeBadRequest, env.Error.Code)

	code, _ = ts.do(t, http.MethodPatch, "/api/v1/enrollments/"+id+"/status", token, map[string]string{"status": "active"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/analytics/students", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, codeForbidden, env.Error.Code)
}

func TestAnalyticsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	code, _ := ts.do(t, http.MethodPost, "/api/v1/enrollments", ts.token(t, "student-1"), map[string]string{"courseId": "course-1"})
	require.Equal(t, http.StatusCreated, code)
	admin := ts.token(t, "admin-1")

	code, env := ts.do(t, http.MethodGet, "/api/v1/analytics/students", admin, nil)
	require.Equal(t, http.StatusOK, code)
	students := decodeData[[]query.StudentSummary](t, env)
	require.Len(t, students, 1)
	assert.Equal(t, "Go Basics", students[0].TopCourse)

	code, env = ts.do(t, http.MethodGet, "/api/v1/analytics/pending", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Meta.TotalCount)

	code, env = ts.do(t, http.MethodGet, "/api/v1/analytics/progress/student-1", admin, nil)
	require.Equal(t, http.StatusOK, code)
	progress := decodeData[query.StudentProgressResult](t, env)
	assert.Equal(t, "Ann", progress.Student.Name)
	assert.Len(t, progress.Enrollments, 1)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/analytics/progress/ghost", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPublicStats_FeatureFlag(t *testing.T) {
	ts := newTestServer(t, nil)
	code, env := ts.do(t, http.MethodGet, "/api/v1/analytics/public-stats", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decodeData[query.PublicStatsResult](t, env).StudentCount)

	flags := config.NewFeatureFlags()
	require.NoError(t, flags.Set(config.FeaturePublicStats, false))
	require.NoError(t, flags.Set(config.FeaturePublicRegistration, false))
	ts = newTestServer(t, flags)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/analytics/public-stats", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = ts.do(t, http.MethodPost, "/api/v1/accounts", "", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthEndpointsAndMiddleware(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = ts.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "total_published")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/enrollments", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestGrantAward(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/v1/accounts/student-1/awards", ts.token(t, "admin-1"),
		map[string]any{"points": 1000, "badge": map[string]string{"name": "Helper"}})
	require.Equal(t, http.StatusOK, code)
	res := decodeData[awardResponse](t, env)
	require.NotNil(t, res.Points)
	assert.True(t, res.Points.LeveledUp)
	assert.Equal(t, 2, res.Points.Level)
	require.NotNil(t, res.Badge)
	assert.Len(t, res.Badge.BadgesEarned, 1)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/accounts/student-1/awards", ts.token(t, "student-1"),
		map[string]any{"points": 1000})
	assert.Equal(t, http.StatusForbidden, code)
}

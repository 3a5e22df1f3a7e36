package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alem-hub/learnhub/internal/application/command"
	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/query"
	"github.com/alem-hub/learnhub/internal/domain/account"
	"github.com/alem-hub/learnhub/internal/domain/enrollment"
	"github.com/alem-hub/learnhub/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, status, nil)
}

// handleReady handles the readiness endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		}, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"}, nil)
}

// handleLive handles the liveness endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"}, nil)
}

// handleMetrics reports event bus counters and server uptime.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"events":         s.deps.EventMetrics.Snapshot(),
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Bio       string `json:"bio"`
	Specialty string `json:"specialty"`
}

// handleRegister handles POST /api/v1/accounts
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.RegisterAccount.Handle(r.Context(), command.RegisterAccountCommand{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
		Bio:       req.Bio,
		Specialty: req.Specialty,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.NewAccountDTO(res.Account), nil)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string           `json:"token"`
	Account query.AccountDTO `json:"account"`
}

// handleLogin handles POST /api/v1/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auth == nil {
		writeJSONError(w, r, http.StatusServiceUnavailable, codeInternal, "authentication is not configured")
		return
	}
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	acc, err := s.deps.Login.Handle(r.Context(), command.LoginCommand{Email: req.Email, Password: req.Password})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	token, err := s.deps.Auth.Issue(acc.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, loginResponse{Token: token, Account: query.NewAccountDTO(acc)}, nil)
}

// handleGetMe handles GET /api/v1/accounts/me
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetAccount.Handle(r.Context(), query.GetAccountQuery{
		AccountID: handlers.RequesterFromContext(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto, nil)
}

type statusRequest struct {
	Status string `json:"status"`
}

// handleSetAccountStatus handles PATCH /api/v1/accounts/{id}/status
func (s *Server) handleSetAccountStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.SetAccountStatus.Handle(r.Context(), command.SetAccountStatusCommand{
		AccountID:   r.PathValue("id"),
		RequesterID: handlers.RequesterFromContext(r.Context()),
		Status:      req.Status,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewAccountDTO(res.Account), nil)
}

type badgeRequest struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type awardRequest struct {
	Points int           `json:"points"`
	Badge  *badgeRequest `json:"badge"`
}

type awardResponse struct {
	Points *rewardDTO `json:"points,omitempty"`
	Badge  *rewardDTO `json:"badge,omitempty"`
}

// handleGrantAward handles POST /api/v1/accounts/{id}/awards
func (s *Server) handleGrantAward(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.GrantAwardCommand{
		AccountID:   r.PathValue("id"),
		RequesterID: handlers.RequesterFromContext(r.Context()),
		Points:      req.Points,
	}
	if req.Badge != nil {
		cmd.Badge = &command.BadgeInput{
			Name:        req.Badge.Name,
			Icon:        req.Badge.Icon,
			Description: req.Badge.Description,
			Category:    req.Badge.Category,
		}
	}

	res, err := s.deps.GrantAward.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, awardResponse{
		Points: newRewardDTO(res.Points),
		Badge:  newRewardDTO(res.Badge),
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// rewardDTO reports what a command added to the requester's gamification state.
type rewardDTO struct {
	PointsAdded  int             `json:"pointsAdded"`
	TotalPoints  int             `json:"totalPoints"`
	Level        int             `json:"level"`
	LeveledUp    bool            `json:"leveledUp"`
	BadgesEarned []account.Badge `json:"badgesEarned"`
}

func newRewardDTO(o *gamification.Outcome) *rewardDTO {
	if o == nil {
		return nil
	}
	return &rewardDTO{
		PointsAdded:  o.PointsAdded,
		TotalPoints:  o.TotalPoints,
		Level:        o.LevelAfter,
		LeveledUp:    o.LeveledUp(),
		BadgesEarned: append([]account.Badge{}, o.BadgesEarned...),
	}
}

type enrollmentResponse struct {
	Enrollment query.EnrollmentDTO `json:"enrollment"`
	Reward     *rewardDTO          `json:"reward,omitempty"`
}

type enrollRequest struct {
	CourseID string `json:"courseId"`
}

// handleEnroll handles POST /api/v1/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.Enroll.Handle(r.Context(), command.EnrollCommand{
		AccountID: handlers.RequesterFromContext(r.Context()),
		CourseID:  req.CourseID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, enrollmentResponse{
		Enrollment: query.NewEnrollmentDTO(enrollment.Detail{Enrollment: res.Enrollment}),
		Reward:     newRewardDTO(res.Gamification),
	}, nil)
}

// handleListMyEnrollments handles GET /api/v1/enrollments/my
func (s *Server) handleListMyEnrollments(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.ListMyEnrollments.Handle(r.Context(), query.ListMyEnrollmentsQuery{
		RequesterID: handlers.RequesterFromContext(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res.Enrollments, &ResponseMeta{TotalCount: len(res.Enrollments)})
}

type quizRequest struct {
	Score  float64 `json:"score"`
	Passed bool    `json:"passed"`
}

type progressRequest struct {
	ModuleID  *string      `json:"moduleId"`
	Progress  *float64     `json:"progress"`
	TimeSpent *int         `json:"timeSpent"`
	Quiz      *quizRequest `json:"quiz"`
}

// handleRecordProgress handles PUT /api/v1/enrollments/{id}/progress
func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if !s.decode(w, r, &req) {
		return
	}

	cmd := command.RecordProgressCommand{
		EnrollmentID: r.PathValue("id"),
		RequesterID:  handlers.RequesterFromContext(r.Context()),
		ModuleID:     req.ModuleID,
		Progress:     req.Progress,
		TimeSpent:    req.TimeSpent,
	}
	if req.Quiz != nil {
		cmd.Quiz = &enrollment.QuizAttempt{Score: req.Quiz.Score, Passed: req.Quiz.Passed}
	}

	res, err := s.deps.RecordProgress.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, enrollmentResponse{
		Enrollment: query.NewEnrollmentDTO(enrollment.Detail{Enrollment: res.Enrollment}),
		Reward:     newRewardDTO(res.Gamification),
	}, nil)
}

// handleSetEnrollmentStatus handles PATCH /api/v1/enrollments/{id}/status
func (s *Server) handleSetEnrollmentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.deps.SetEnrollmentStatus.Handle(r.Context(), command.SetEnrollmentStatusCommand{
		EnrollmentID: r.PathValue("id"),
		RequesterID:  handlers.RequesterFromContext(r.Context()),
		Status:       req.Status,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, enrollmentResponse{
		Enrollment: query.NewEnrollmentDTO(enrollment.Detail{Enrollment: res.Enrollment}),
		Reward:     newRewardDTO(res.Gamification),
	}, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleStudentAnalytics handles GET /api/v1/analytics/students
func (s *Server) handleStudentAnalytics(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.StudentAnalytics.Handle(r.Context(), query.StudentAnalyticsQuery{
		RequesterID: handlers.RequesterFromContext(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res.Students, &ResponseMeta{TotalCount: len(res.Students)})
}

// handlePendingQueue handles GET /api/v1/analytics/pending
func (s *Server) handlePendingQueue(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.PendingQueue.Handle(r.Context(), query.PendingEnrollmentQueueQuery{
		RequesterID: handlers.RequesterFromContext(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res.Pending, &ResponseMeta{TotalCount: len(res.Pending)})
}

// handleStudentProgress handles GET /api/v1/analytics/progress/{userId}
func (s *Server) handleStudentProgress(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.StudentProgress.Handle(r.Context(), query.StudentProgressQuery{
		RequesterID: handlers.RequesterFromContext(r.Context()),
		StudentID:   r.PathValue("userId"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res, nil)
}

// handlePublicStats handles GET /api/v1/analytics/public-stats
func (s *Server) handlePublicStats(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.PublicStats.Handle(r.Context(), query.PublicStatsQuery{})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

// decode reads a JSON body into dst and writes a 400 when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		writeJSONError(w, r, http.StatusRequestEntityTooLarge, codeBadRequest, "request body too large")
	case errors.Is(err, io.EOF):
		writeJSONError(w, r, http.StatusBadRequest, codeBadRequest, "request body is required")
	default:
		writeJSONError(w, r, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
	}
	return false
}

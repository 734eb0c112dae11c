package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mentorlink/mentorship-core/internal/application/command"
	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/memory"
	"github.com/mentorlink/mentorship-core/internal/interface/http/handlers"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

const testAdminKey = "admin-secret"

type testEnv struct {
	server      *Server
	jwt         *handlers.JWTAuth
	profiles    *memory.ProfileRepository
	mentorships *memory.MentorshipRepository
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	profiles := memory.NewProfileRepository()
	mentorships := memory.NewMentorshipRepository()
	jwtAuth := handlers.NewJWTAuth("test-secret", "mentorship-core")

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.ReconcileSettle = 0
	if mutate != nil {
		mutate(&cfg)
	}

	deps := Dependencies{
		Profiles:             command.NewProfileHandler(profiles, nil, nil),
		AddTestimonial:       command.NewAddTestimonialHandler(profiles, mentorships, nil, nil),
		RequestMentorship:    command.NewRequestMentorshipHandler(profiles, mentorships, nil, nil, nil),
		RespondToRequest:     command.NewRespondToRequestHandler(profiles, mentorships, nil, 0, nil),
		Complete:             command.NewCompleteMentorshipHandler(profiles, mentorships, nil, nil),
		Cancel:               command.NewCancelMentorshipHandler(profiles, mentorships, nil, nil),
		Progress:             command.NewProgressHandler(mentorships, nil),
		ReconcileLoad:        command.NewReconcileMentorLoadHandler(profiles, mentorships, nil, 2),
		FindPotentialMentors: query.NewFindPotentialMentorsHandler(profiles, nil, 0),
		GetMentorProfile:     query.NewGetMentorProfileHandler(profiles, nil, 0),
		GetMentorship:        query.NewGetMentorshipHandler(mentorships),
		ListMentorships:      query.NewListMentorshipsHandler(mentorships),
		JWT:                  jwtAuth,
		AdminKey:             handlers.NewAPIKeyAuth(cfg.APIKeyHeader, []string{string(hash)}),
		Logger:               logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError}),
	}

	return &testEnv{
		server:      NewServer(cfg, deps),
		jwt:         jwtAuth,
		profiles:    profiles,
		mentorships: mentorships,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
	ReqID   string          `json:"request_id"`
}

func (e *testEnv) do(t *testing.T, method, path, caller string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		token, err := e.jwt.IssueToken(caller, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (e *testEnv) seedPair(t *testing.T, maxMentees int) {
	t.Helper()
	rec, _ := e.do(t, http.MethodPost, "/api/v1/profiles/mentor", "mentor-1", map[string]any{
		"specializations":    []string{"leadership", "technical_skills"},
		"industry":           "fintech",
		"skills":             []string{"go", "system design"},
		"experience_years":   12,
		"personality_traits": map[string]float64{"communication_style": 7},
		"max_mentees":        maxMentees,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = e.do(t, http.MethodPut, "/api/v1/profiles/mentee", "mentee-1", map[string]any{
		"industry":          "fintech",
		"skills_to_improve": []string{"go"},
		"career_goals":      []string{"become a tech lead"},
		"experience_years":  3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func (e *testEnv) request(t *testing.T, mentee string) query.MentorshipDTO {
	t.Helper()
	rec, env := e.do(t, http.MethodPost, "/api/v1/mentorships", mentee, map[string]any{
		"mentor_id":   "mentor-1",
		"focus_areas": []string{"leadership"},
		"goals":       []string{"lead a project"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[requestMentorshipResponse](t, env).Mentorship
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t, nil)

	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("store", func(context.Context) error { return nil })
	checker.AddOptionalCheck("redis", func(context.Context) error { return assert.AnError })
	env.server.deps.HealthChecker = checker

	rec, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeData[handlers.HealthStatus](t, body)
	assert.False(t, status.Healthy)
	assert.True(t, status.Ready)
	assert.Equal(t, "Degraded: redis", status.Message)

	rec, _ = env.do(t, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_RequiresAuthentication(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, body := env.do(t, http.MethodGet, "/api/v1/mentorships", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, "unauthorized", body.Error.Code)
	assert.NotEmpty(t, body.ReqID)
}

func TestServer_MentorshipLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPair(t, 1)

	// matches
	rec, body := env.do(t, http.MethodGet, "/api/v1/mentors/matches", "mentee-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ranked := decodeData[[]query.RankedMentorDTO](t, body)
	require.Len(t, ranked, 1)
	assert.Equal(t, "mentor-1", ranked[0].Mentor.UserID)
	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, 1, body.Meta.TotalCount)

	// request
	m := env.request(t, "mentee-1")
	assert.Equal(t, "pending", m.Status)
	assert.Equal(t, "mentee-1", m.MenteeID)

	rec, body = env.do(t, http.MethodPost, "/api/v1/mentorships", "mentee-1", map[string]any{
		"mentor_id":   "mentor-1",
		"focus_areas": []string{"leadership"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", body.Error.Code)

	// only the mentor may answer
	rec, body = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/respond", "mentee-1", map[string]any{"action": "accept"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", body.Error.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/respond", "mentor-1", map[string]any{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "active", decodeData[query.MentorshipDTO](t, body).Status)

	mentor, err := env.profiles.FindMentor(context.Background(), "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, 1, mentor.Availability.CurrentMentees)

	// progress
	rec, _ = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/goals", "mentor-1", map[string]any{"description": "ship the design doc"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/goals/1/complete", "mentee-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[query.MentorshipDTO](t, body)
	require.Len(t, got.Goals, 2)
	assert.True(t, got.Goals[1].IsCompleted)
	assert.Equal(t, 1, got.CompletedGoals)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/goals/x/complete", "mentee-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/goals/7/complete", "mentee-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/meetings", "mentee-1", map[string]any{
		"scheduled_for":    time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"duration_minutes": 45,
		"meeting_link":     "https://meet.example.com/abc",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodPatch, "/api/v1/mentorships/"+m.ID+"/meetings/0", "mentor-1", map[string]any{
		"status": "completed",
		"notes":  "discussed roadmap",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	got = decodeData[query.MentorshipDTO](t, body)
	require.Len(t, got.Meetings, 1)
	assert.Equal(t, "completed", got.Meetings[0].Status)
	assert.Equal(t, 45, got.Meetings[0].DurationMinutes)

	// outsiders see nothing
	rec, _ = env.do(t, http.MethodGet, "/api/v1/mentorships/"+m.ID, "stranger", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// completion frees the slot
	rec, body = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/complete", "mentee-1", map[string]any{"rating": 5, "comment": "great"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", decodeData[query.MentorshipDTO](t, body).Status)

	mentor, err = env.profiles.FindMentor(context.Background(), "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, 0, mentor.Availability.CurrentMentees)

	rec, _ = env.do(t, http.MethodPost, "/api/v1/mentorships/"+m.ID+"/cancel", "mentee-1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// testimonial after a completed mentorship
	rec, body = env.do(t, http.MethodPost, "/api/v1/mentors/mentor-1/testimonials", "mentee-1", map[string]any{"content": "very helpful", "rating": 4})
	require.Equal(t, http.StatusCreated, rec.Code)
	profileDTO := decodeData[query.MentorProfileDTO](t, body)
	assert.Equal(t, 1, profileDTO.Rating.Count)
	assert.InDelta(t, 4.0, profileDTO.Rating.Average, 0.001)

	rec, body = env.do(t, http.MethodGet, "/api/v1/mentorships?role=mentor&status=completed", "mentor-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]query.MentorshipDTO](t, body), 1)
}

func TestServer_CapacityExceededOnAccept(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPair(t, 1)

	rec, _ := env.do(t, http.MethodPut, "/api/v1/profiles/mentee", "mentee-2", map[string]any{"industry": "retail"})
	require.Equal(t, http.StatusOK, rec.Code)

	first := env.request(t, "mentee-1")
	second := env.request(t, "mentee-2")

	rec, _ = env.do(t, http.MethodPost, "/api/v1/mentorships/"+first.ID+"/respond", "mentor-1", map[string]any{"action": "accept"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := env.do(t, http.MethodPost, "/api/v1/mentorships/"+second.ID+"/respond", "mentor-1", map[string]any{"action": "accept"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "capacity_exceeded", body.Error.Code)

	rec, body = env.do(t, http.MethodPost, "/api/v1/mentorships/"+second.ID+"/respond", "mentor-1", map[string]any{"action": "reject"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "declined", decodeData[query.MentorshipDTO](t, body).Status)
}

func TestServer_ValidationErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPair(t, 2)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   any
		status int
		code   string
	}{
		{"unknown field", http.MethodPatch, "/api/v1/profiles/mentor", "mentor-1", map[string]any{"current_mentees": 0}, http.StatusBadRequest, "invalid_request"},
		{"unknown focus area", http.MethodPost, "/api/v1/mentorships", "mentee-1", map[string]any{"mentor_id": "mentor-1", "focus_areas": []string{"astrology"}}, http.StatusBadRequest, "validation_error"},
		{"self request", http.MethodPost, "/api/v1/mentorships", "mentor-1", map[string]any{"mentor_id": "mentor-1", "focus_areas": []string{"leadership"}}, http.StatusUnprocessableEntity, "invalid_operation"},
		{"missing mentor", http.MethodGet, "/api/v1/profiles/mentor/nobody", "mentee-1", nil, http.StatusNotFound, "not_found"},
		{"negative limit", http.MethodGet, "/api/v1/mentors/matches?limit=-1", "mentee-1", nil, http.StatusBadRequest, "invalid_request"},
		{"empty body", http.MethodPost, "/api/v1/mentorships", "mentee-1", nil, http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestServer_UpdateMentorProfile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPair(t, 2)

	rec, body := env.do(t, http.MethodPatch, "/api/v1/profiles/mentor", "mentor-1", map[string]any{
		"max_mentees":     4,
		"specializations": []string{"networking"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	dto := decodeData[query.MentorProfileDTO](t, body)
	assert.Equal(t, 4, dto.Availability.MaxMentees)
	assert.Equal(t, []string{"networking"}, dto.Specializations)
	assert.Equal(t, "fintech", dto.Industry)
}

func TestServer_AdminReconcile(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPair(t, 3)

	// drift the counter with no active mentorship behind it
	_, err := env.profiles.AdjustMentorLoad(context.Background(), shared.UserID("mentor-1"), 2)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/reconcile-load", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/reconcile-load", nil)
	req.Header.Set("X-API-Key", testAdminKey)
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		p, err := env.profiles.FindMentor(context.Background(), "mentor-1")
		return err == nil && p.Availability.CurrentMentees == 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, env.server.waitBackground(context.Background()))
}

func TestServer_RateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.RateLimitPerMinute = 2 })

	for i := 0; i < 2; i++ {
		rec, _ := env.do(t, http.MethodGet, "/live", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := env.do(t, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", body.Error.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{shared.ErrMentorshipNotFound, http.StatusNotFound, "not_found"},
		{shared.ErrNotParticipant, http.StatusForbidden, "forbidden"},
		{shared.ErrMentorAtCapacity, http.StatusConflict, "capacity_exceeded"},
		{shared.ErrStaleMentorship, http.StatusConflict, "concurrent_modification"},
		{shared.ErrPendingRequest, http.StatusConflict, "conflict"},
		{shared.ErrNotPending, http.StatusConflict, "invalid_state"},
		{shared.ErrSelfMentorship, http.StatusUnprocessableEntity, "invalid_operation"},
		{shared.ErrInvalidAction, http.StatusBadRequest, "validation_error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{assert.AnError, http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

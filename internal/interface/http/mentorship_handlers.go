package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mentorlink/mentorship-core/internal/application/command"
	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/interface/http/handlers"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MENTORSHIP WORKFLOW HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type requestMentorshipRequest struct {
	MentorID   string   `json:"mentor_id"`
	FocusAreas []string `json:"focus_areas"`
	Goals      []string `json:"goals"`
	Message    string   `json:"message"`
}

type requestMentorshipResponse struct {
	Mentorship    query.MentorshipDTO `json:"mentorship"`
	Compatibility query.BreakdownDTO  `json:"compatibility"`
}

// handleRequestMentorship handles POST /api/v1/mentorships
func (s *Server) handleRequestMentorship(w http.ResponseWriter, r *http.Request) {
	var req requestMentorshipRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := s.deps.RequestMentorship.Handle(r.Context(), command.RequestMentorshipCommand{
		MenteeID:      handlers.CallerID(r.Context()),
		MentorID:      req.MentorID,
		FocusAreas:    req.FocusAreas,
		Goals:         req.Goals,
		Message:       req.Message,
		CorrelationID: handlers.RequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, "request_mentorship", err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, requestMentorshipResponse{
		Mentorship:    query.NewMentorshipDTO(result.Mentorship),
		Compatibility: query.NewBreakdownDTO(result.Breakdown),
	})
}

// handleListMentorships handles GET /api/v1/mentorships?role=&status=&limit=&offset=
func (s *Server) handleListMentorships(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", 0)
	if err != nil {
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	offset, err := getQueryParamInt(r, "offset", 0)
	if err != nil {
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.ListMentorships.Handle(r.Context(), query.ListMentorshipsQuery{
		CallerID: handlers.CallerID(r.Context()),
		Role:     r.URL.Query().Get("role"),
		Statuses: getQueryParamList(r, "status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.writeDomainError(w, r, "list_mentorships", err)
		return
	}

	meta := &ResponseMeta{
		Limit:   result.Limit,
		Offset:  result.Offset,
		HasMore: len(result.Mentorships) == result.Limit,
	}
	s.writeJSONWithMeta(w, r, http.StatusOK, result.Mentorships, meta)
}

// handleGetMentorship handles GET /api/v1/mentorships/{id}
func (s *Server) handleGetMentorship(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetMentorship.Handle(r.Context(), query.GetMentorshipQuery{
		MentorshipID: r.PathValue("id"),
		CallerID:     handlers.CallerID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, "get_mentorship", err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, dto)
}

type respondRequest struct {
	Action string `json:"action"`
}

// handleRespond handles POST /api/v1/mentorships/{id}/respond
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	m, err := s.deps.RespondToRequest.Handle(r.Context(), command.RespondToRequestCommand{
		MentorshipID:  r.PathValue("id"),
		CallerID:      handlers.CallerID(r.Context()),
		Action:        req.Action,
		CorrelationID: handlers.RequestID(r.Context()),
	})
	s.writeMentorship(w, r, "respond_to_request", m, err)
}

type completeRequest struct {
	Rating  *int   `json:"rating"`
	Comment string `json:"comment"`
}

// handleComplete handles POST /api/v1/mentorships/{id}/complete
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	m, err := s.deps.Complete.Handle(r.Context(), command.CompleteMentorshipCommand{
		MentorshipID:  r.PathValue("id"),
		CallerID:      handlers.CallerID(r.Context()),
		Rating:        req.Rating,
		Comment:       req.Comment,
		CorrelationID: handlers.RequestID(r.Context()),
	})
	s.writeMentorship(w, r, "complete_mentorship", m, err)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// handleCancel handles POST /api/v1/mentorships/{id}/cancel
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	m, err := s.deps.Cancel.Handle(r.Context(), command.CancelMentorshipCommand{
		MentorshipID:  r.PathValue("id"),
		CallerID:      handlers.CallerID(r.Context()),
		Reason:        req.Reason,
		CorrelationID: handlers.RequestID(r.Context()),
	})
	s.writeMentorship(w, r, "cancel_mentorship", m, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type addGoalRequest struct {
	Description string `json:"description"`
}

// handleAddGoal handles POST /api/v1/mentorships/{id}/goals
func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var req addGoalRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	m, err := s.deps.Progress.AddGoal(r.Context(), command.AddGoalCommand{
		MentorshipID: r.PathValue("id"),
		CallerID:     handlers.CallerID(r.Context()),
		Description:  req.Description,
	})
	s.writeMentorship(w, r, "add_goal", m, err)
}

// handleCompleteGoal handles POST /api/v1/mentorships/{id}/goals/{index}/complete
func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}

	m, err := s.deps.Progress.CompleteGoal(r.Context(), command.CompleteGoalCommand{
		MentorshipID: r.PathValue("id"),
		CallerID:     handlers.CallerID(r.Context()),
		GoalIndex:    index,
	})
	s.writeMentorship(w, r, "complete_goal", m, err)
}

type scheduleMeetingRequest struct {
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	MeetingLink     string    `json:"meeting_link"`
}

// handleScheduleMeeting handles POST /api/v1/mentorships/{id}/meetings
func (s *Server) handleScheduleMeeting(w http.ResponseWriter, r *http.Request) {
	var req scheduleMeetingRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	m, err := s.deps.Progress.ScheduleMeeting(r.Context(), command.ScheduleMeetingCommand{
		MentorshipID: r.PathValue("id"),
		CallerID:     handlers.CallerID(r.Context()),
		ScheduledFor: req.ScheduledFor,
		Duration:     time.Duration(req.DurationMinutes) * time.Minute,
		MeetingLink:  req.MeetingLink,
	})
	s.writeMentorship(w, r, "schedule_meeting", m, err)
}

type updateMeetingRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// handleUpdateMeeting handles PATCH /api/v1/mentorships/{id}/meetings/{index}
func (s *Server) handleUpdateMeeting(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req updateMeetingRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	m, err := s.deps.Progress.UpdateMeeting(r.Context(), command.UpdateMeetingCommand{
		MentorshipID: r.PathValue("id"),
		CallerID:     handlers.CallerID(r.Context()),
		MeetingIndex: index,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	s.writeMentorship(w, r, "update_meeting", m, err)
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_request", "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

func (s *Server) writeMentorship(w http.ResponseWriter, r *http.Request, op string, m *mentorship.Mentorship, err error) {
	if err != nil {
		s.writeDomainError(w, r, op, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, query.NewMentorshipDTO(m))
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type loadRepairResponse struct {
	MentorID string `json:"mentor_id"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

type reconcileResponse struct {
	FinishedAt time.Time            `json:"finished_at"`
	Checked    int                  `json:"checked"`
	Drifted    int                  `json:"drifted"`
	Skipped    int                  `json:"skipped"`
	Repaired   []loadRepairResponse `json:"repaired"`
}

// handleReconcileLoad handles POST /api/v1/admin/reconcile-load. The pass
// pauses for ReconcileSettle between observations, longer than a request may
// live, so it runs in the background and only one manual pass runs at a time.
func (s *Server) handleReconcileLoad(w http.ResponseWriter, r *http.Request) {
	if !s.reconciling.CompareAndSwap(false, true) {
		handlers.WriteError(w, r, http.StatusConflict, "reconcile_in_progress", "A reconciliation is already running")
		return
	}

	log := logger.FromContext(r.Context())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.config.ReconcileTimeout)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer s.reconciling.Store(false)
		defer cancel()

		result, err := s.deps.ReconcileLoad.Handle(ctx, command.ReconcileMentorLoadCommand{
			Settle: s.config.ReconcileSettle,
		})
		if err != nil {
			log.Error("manual reconciliation failed", logger.Err(err))
			return
		}
		s.lastReconcile.Store(newReconcileResponse(result))
		log.Info("manual reconciliation finished",
			logger.Int("checked", result.Checked),
			logger.Int("drifted", result.Drifted),
			logger.Int("repaired", len(result.Repaired)),
		)
	}()

	resp := map[string]interface{}{"status": "started"}
	if last := s.lastReconcile.Load(); last != nil {
		resp["previous"] = last
	}
	s.writeJSON(w, r, http.StatusAccepted, resp)
}

func newReconcileResponse(result *command.ReconcileMentorLoadResult) *reconcileResponse {
	resp := &reconcileResponse{
		FinishedAt: time.Now().UTC(),
		Checked:    result.Checked,
		Drifted:    result.Drifted,
		Skipped:    result.Skipped,
		Repaired:   make([]loadRepairResponse, len(result.Repaired)),
	}
	for i, rep := range result.Repaired {
		resp.Repaired[i] = loadRepairResponse{MentorID: rep.MentorID.String(), Previous: rep.Previous, Current: rep.Current}
	}
	return resp
}

// handleListJobs handles GET /api/v1/admin/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scheduler == nil {
		handlers.WriteError(w, r, http.StatusNotFound, "not_found", "Scheduler is disabled")
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.deps.Scheduler.ListJobs())
}

package http

import (
	"net/http"

	"github.com/mentorlink/mentorship-core/internal/application/command"
	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			s.writeJSON(w, r, http.StatusServiceUnavailable, status)
			return
		}
		s.writeJSON(w, r, http.StatusOK, status)
		return
	}

	s.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": s.config.Version,
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			s.writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type scheduleSlotRequest struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toSchedule(in []scheduleSlotRequest) []profile.ScheduleSlot {
	if in == nil {
		return nil
	}
	out := make([]profile.ScheduleSlot, len(in))
	for i, s := range in {
		out[i] = profile.ScheduleSlot{Day: s.Day, StartTime: s.StartTime, EndTime: s.EndTime}
	}
	return out
}

type createMentorRequest struct {
	Specializations    []string              `json:"specializations"`
	Industry           string                `json:"industry"`
	RelatedIndustries  []string              `json:"related_industries"`
	Skills             []string              `json:"skills"`
	ExperienceYears    *int                  `json:"experience_years"`
	PersonalityTraits  map[string]float64    `json:"personality_traits"`
	CareerAchievements []string              `json:"career_achievements"`
	MaxMentees         int                   `json:"max_mentees"`
	Schedule           []scheduleSlotRequest `json:"schedule"`
	TimeZone           string                `json:"time_zone"`
}

// handleCreateMentorProfile handles POST /api/v1/profiles/mentor
func (s *Server) handleCreateMentorProfile(w http.ResponseWriter, r *http.Request) {
	var req createMentorRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	p, err := s.deps.Profiles.CreateMentor(r.Context(), command.CreateMentorProfileCommand{
		UserID:             handlers.CallerID(r.Context()),
		Specializations:    req.Specializations,
		Industry:           req.Industry,
		RelatedIndustries:  req.RelatedIndustries,
		Skills:             req.Skills,
		ExperienceYears:    req.ExperienceYears,
		PersonalityTraits:  req.PersonalityTraits,
		CareerAchievements: req.CareerAchievements,
		MaxMentees:         req.MaxMentees,
		Schedule:           toSchedule(req.Schedule),
		TimeZone:           req.TimeZone,
	})
	if err != nil {
		s.writeDomainError(w, r, "create_mentor_profile", err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, query.NewMentorProfileDTO(p, -1))
}

// updateMentorRequest lists the fields a mentor may change. The load
// counter, rating and testimonials are not among them.
type updateMentorRequest struct {
	IsActive           *bool                  `json:"is_active"`
	Specializations    *[]string              `json:"specializations"`
	Industry           *string                `json:"industry"`
	RelatedIndustries  *[]string              `json:"related_industries"`
	Skills             *[]string              `json:"skills"`
	ExperienceYears    *int                   `json:"experience_years"`
	PersonalityTraits  *map[string]float64    `json:"personality_traits"`
	CareerAchievements *[]string              `json:"career_achievements"`
	MaxMentees         *int                   `json:"max_mentees"`
	Schedule           *[]scheduleSlotRequest `json:"schedule"`
	TimeZone           *string                `json:"time_zone"`
}

func (req updateMentorRequest) toUpdate() (profile.MentorProfileUpdate, error) {
	u := profile.MentorProfileUpdate{
		IsActive:           req.IsActive,
		Industry:           req.Industry,
		RelatedIndustries:  req.RelatedIndustries,
		Skills:             req.Skills,
		ExperienceYears:    req.ExperienceYears,
		CareerAchievements: req.CareerAchievements,
		MaxMentees:         req.MaxMentees,
		TimeZone:           req.TimeZone,
	}
	if req.Specializations != nil {
		areas, err := shared.ParseFocusAreas(*req.Specializations)
		if err != nil {
			return u, err
		}
		u.Specializations = &areas
	}
	if req.PersonalityTraits != nil {
		traits := command.ParseTraits(*req.PersonalityTraits)
		u.PersonalityTraits = &traits
	}
	if req.Schedule != nil {
		schedule := toSchedule(*req.Schedule)
		if schedule == nil {
			schedule = []profile.ScheduleSlot{}
		}
		u.Schedule = &schedule
	}
	return u, nil
}

// handleUpdateMentorProfile handles PATCH /api/v1/profiles/mentor
func (s *Server) handleUpdateMentorProfile(w http.ResponseWriter, r *http.Request) {
	var req updateMentorRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		s.writeDomainError(w, r, "update_mentor_profile", err)
		return
	}

	p, err := s.deps.Profiles.UpdateMentor(r.Context(), command.UpdateMentorProfileCommand{
		UserID: handlers.CallerID(r.Context()),
		Update: update,
	})
	if err != nil {
		s.writeDomainError(w, r, "update_mentor_profile", err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, query.NewMentorProfileDTO(p, -1))
}

// handleGetMentorProfile handles GET /api/v1/profiles/mentor/{id}
func (s *Server) handleGetMentorProfile(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetMentorProfile.Handle(r.Context(), query.GetMentorProfileQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, "get_mentor_profile", err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, dto)
}

type upsertMenteeRequest struct {
	Industry          string             `json:"industry"`
	SkillsToImprove   []string           `json:"skills_to_improve"`
	CareerGoals       []string           `json:"career_goals"`
	PersonalityTraits map[string]float64 `json:"personality_traits"`
	ExperienceYears   *int               `json:"experience_years"`
}

// handleUpsertMenteeProfile handles PUT /api/v1/profiles/mentee
func (s *Server) handleUpsertMenteeProfile(w http.ResponseWriter, r *http.Request) {
	var req upsertMenteeRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	p, err := s.deps.Profiles.UpsertMentee(r.Context(), command.UpsertMenteeProfileCommand{
		UserID:            handlers.CallerID(r.Context()),
		Industry:          req.Industry,
		SkillsToImprove:   req.SkillsToImprove,
		CareerGoals:       req.CareerGoals,
		PersonalityTraits: req.PersonalityTraits,
		ExperienceYears:   req.ExperienceYears,
	})
	if err != nil {
		s.writeDomainError(w, r, "upsert_mentee_profile", err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, query.NewMenteeProfileDTO(p))
}

type addTestimonialRequest struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

// handleAddTestimonial handles POST /api/v1/mentors/{id}/testimonials
func (s *Server) handleAddTestimonial(w http.ResponseWriter, r *http.Request) {
	var req addTestimonialRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	p, err := s.deps.AddTestimonial.Handle(r.Context(), command.AddTestimonialCommand{
		MentorID: r.PathValue("id"),
		CallerID: handlers.CallerID(r.Context()),
		Content:  req.Content,
		Rating:   req.Rating,
	})
	if err != nil {
		s.writeDomainError(w, r, "add_testimonial", err)
		return
	}

	s.writeJSON(w, r, http.StatusCreated, query.NewMentorProfileDTO(p, 5))
}

// handleFindMatches handles GET /api/v1/mentors/matches
func (s *Server) handleFindMatches(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryParamInt(r, "limit", 20)
	if err != nil {
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	offset, err := getQueryParamInt(r, "offset", 0)
	if err != nil {
		handlers.WriteError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := s.deps.FindPotentialMentors.Handle(r.Context(), query.FindPotentialMentorsQuery{
		MenteeID: handlers.CallerID(r.Context()),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.writeDomainError(w, r, "find_potential_mentors", err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.Total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    offset+len(result.Mentors) < result.Total,
		Cached:     result.Cached,
	}
	s.writeJSONWithMeta(w, r, http.StatusOK, result.Mentors, meta)
}

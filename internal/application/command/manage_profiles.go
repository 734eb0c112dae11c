package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE COMMANDS
// Owners create and edit their own profiles. The mentor's load, rating and
// testimonials are never written from here.
// ══════════════════════════════════════════════════════════════════════════════

// CreateMentorProfileCommand creates the caller's mentor profile.
type CreateMentorProfileCommand struct {
	UserID             string
	Specializations    []string
	Industry           string
	RelatedIndustries  []string
	Skills             []string
	ExperienceYears    *int
	PersonalityTraits  map[string]float64
	CareerAchievements []string
	MaxMentees         int
	Schedule           []profile.ScheduleSlot
	TimeZone           string
}

// UpdateMentorProfileCommand applies a partial update to the caller's profile.
type UpdateMentorProfileCommand struct {
	UserID string
	Update profile.MentorProfileUpdate
}

// UpsertMenteeProfileCommand creates or replaces the caller's mentee profile.
type UpsertMenteeProfileCommand struct {
	UserID            string
	Industry          string
	SkillsToImprove   []string
	CareerGoals       []string
	PersonalityTraits map[string]float64
	ExperienceYears   *int
}

// ProfileHandler handles profile commands.
type ProfileHandler struct {
	profiles       profile.Repository
	eventPublisher shared.EventPublisher
	now            Clock
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles profile.Repository, eventPublisher shared.EventPublisher, now Clock) *ProfileHandler {
	if now == nil {
		now = SystemClock
	}
	return &ProfileHandler{profiles: profiles, eventPublisher: eventPublisher, now: now}
}

// CreateMentor handles CreateMentorProfileCommand.
func (h *ProfileHandler) CreateMentor(ctx context.Context, cmd CreateMentorProfileCommand) (*profile.MentorProfile, error) {
	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}
	specs, err := shared.ParseFocusAreas(cmd.Specializations)
	if err != nil {
		return nil, err
	}
	if cmd.MaxMentees < 0 {
		return nil, shared.NewDomainError("profile", "CreateMentor", shared.ErrValueOutOfRange, "max mentees must be at least 1")
	}

	p, err := profile.NewMentorProfile(profile.NewMentorProfileParams{
		UserID:             userID,
		Specializations:    specs,
		Industry:           cmd.Industry,
		RelatedIndustries:  cleanStrings(cmd.RelatedIndustries),
		Skills:             cleanStrings(cmd.Skills),
		ExperienceYears:    cmd.ExperienceYears,
		PersonalityTraits:  ParseTraits(cmd.PersonalityTraits),
		CareerAchievements: cleanStrings(cmd.CareerAchievements),
		MaxMentees:         cmd.MaxMentees,
		Schedule:           cmd.Schedule,
		TimeZone:           cmd.TimeZone,
		Now:                h.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.profiles.CreateMentor(ctx, p); err != nil {
		return nil, mapLookup("create_mentor_profile", "create", err)
	}

	publish(ctx, h.eventPublisher, "", shared.NewMentorProfileUpdatedEvent(userID.String(), nil))
	return p, nil
}

// UpdateMentor handles UpdateMentorProfileCommand. The update is re-applied
// to a fresh copy when the profile changed underneath it, so testimonials
// written meanwhile survive.
func (h *ProfileHandler) UpdateMentor(ctx context.Context, cmd UpdateMentorProfileCommand) (*profile.MentorProfile, error) {
	userID := shared.UserID(cmd.UserID)
	if cmd.Update.IsEmpty() {
		p, err := h.profiles.FindMentor(ctx, userID)
		if err != nil {
			return nil, mapLookup("update_mentor_profile", "find", err)
		}
		return p, nil
	}

	p, err := mutateMentorProfile(ctx, h.profiles, userID, func(_ context.Context, p *profile.MentorProfile) error {
		return cmd.Update.Apply(p, h.now())
	})
	if err != nil {
		return nil, mapLookup("update_mentor_profile", "save", err)
	}

	// re-read: the stored load may differ from the one Apply saw
	saved, err := h.profiles.FindMentor(ctx, p.UserID)
	if err != nil {
		return nil, mapLookup("update_mentor_profile", "reload", err)
	}

	publish(ctx, h.eventPublisher, "", shared.NewMentorProfileUpdatedEvent(p.UserID.String(), cmd.Update.Fields()))
	return saved, nil
}

// UpsertMentee handles UpsertMenteeProfileCommand.
func (h *ProfileHandler) UpsertMentee(ctx context.Context, cmd UpsertMenteeProfileCommand) (*profile.MenteeProfile, error) {
	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	p := &profile.MenteeProfile{
		UserID:            userID,
		Industry:          strings.TrimSpace(cmd.Industry),
		SkillsToImprove:   cleanStrings(cmd.SkillsToImprove),
		CareerGoals:       cleanStrings(cmd.CareerGoals),
		PersonalityTraits: ParseTraits(cmd.PersonalityTraits),
		ExperienceYears:   cmd.ExperienceYears,
		UpdatedAt:         h.now(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := h.profiles.SaveMentee(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert_mentee_profile: save: %w", err)
	}

	publish(ctx, h.eventPublisher, "", shared.NewMenteeProfileUpdatedEvent(userID.String()))
	return p, nil
}

// ParseTraits converts raw trait names to the trait map. Names are
// lower-cased; validation happens in the domain.
func ParseTraits(raw map[string]float64) profile.PersonalityTraits {
	if raw == nil {
		return nil
	}
	out := make(profile.PersonalityTraits, len(raw))
	for k, v := range raw {
		out[profile.Trait(strings.ToLower(strings.TrimSpace(k)))] = v
	}
	return out
}

// cleanStrings trims entries and drops blanks.
func cleanStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

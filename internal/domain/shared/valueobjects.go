// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"math"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// UserID Value Object
// ═══════════════════════════════════════════════════════════════════════════

// UserID is the opaque identifier of a platform user. Both sides of a
// mentorship are identified by it.
type UserID string

// IsValid checks if the user ID is non-empty after trimming.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String returns the string representation.
func (u UserID) String() string {
	return string(u)
}

// NewUserID creates a new UserID with validation.
func NewUserID(id string) (UserID, error) {
	uid := UserID(strings.TrimSpace(id))
	if !uid.IsValid() {
		return "", NewDomainError("shared", "NewUserID", ErrInvalidID, "user ID cannot be empty")
	}
	return uid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// FocusArea Value Object
// ═══════════════════════════════════════════════════════════════════════════

// FocusArea is an enumerated tag describing the topical scope of a mentorship
// or a mentor's specialization.
type FocusArea string

const (
	FocusCareerAdvancement  FocusArea = "career_advancement"
	FocusSkillDevelopment   FocusArea = "skill_development"
	FocusLeadership         FocusArea = "leadership"
	FocusTechnicalSkills    FocusArea = "technical_skills"
	FocusSoftSkills         FocusArea = "soft_skills"
	FocusWorkLifeBalance    FocusArea = "work_life_balance"
	FocusNetworking         FocusArea = "networking"
	FocusEntrepreneurship   FocusArea = "entrepreneurship"
	FocusIndustryTransition FocusArea = "industry_transition"
	FocusOther              FocusArea = "other"
)

var focusAreas = map[FocusArea]struct{}{
	FocusCareerAdvancement:  {},
	FocusSkillDevelopment:   {},
	FocusLeadership:         {},
	FocusTechnicalSkills:    {},
	FocusSoftSkills:         {},
	FocusWorkLifeBalance:    {},
	FocusNetworking:         {},
	FocusEntrepreneurship:   {},
	FocusIndustryTransition: {},
	FocusOther:              {},
}

// IsValid checks if the focus area belongs to the fixed vocabulary.
func (f FocusArea) IsValid() bool {
	_, ok := focusAreas[f]
	return ok
}

// String returns the string representation.
func (f FocusArea) String() string {
	return string(f)
}

// ParseFocusAreas normalizes and validates a list of raw tags. Duplicates are
// dropped while the first-seen order is preserved.
func ParseFocusAreas(raw []string) ([]FocusArea, error) {
	result := make([]FocusArea, 0, len(raw))
	seen := make(map[FocusArea]struct{}, len(raw))
	for _, r := range raw {
		f := FocusArea(strings.ToLower(strings.TrimSpace(r)))
		if !f.IsValid() {
			return nil, WrapError("shared", "ParseFocusAreas", ErrInvalidInput, "unknown focus area: "+r, ErrInvalidFocusArea)
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		result = append(result, f)
	}
	return result, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Rating Value Object (testimonials, final feedback)
// ═══════════════════════════════════════════════════════════════════════════

// Rating represents a rating value (1-5 stars).
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

// IsValid checks if the rating is within valid range.
func (r Rating) IsValid() bool {
	return r >= MinRating && r <= MaxRating
}

// Int returns the underlying int value.
func (r Rating) Int() int {
	return int(r)
}

// NewRating creates a new Rating with validation.
func NewRating(value int) (Rating, error) {
	if value < int(MinRating) || value > int(MaxRating) {
		return 0, ErrInvalidRating
	}
	return Rating(value), nil
}

// AverageRating calculates the average from a slice of ratings, rounded to
// two decimal places.
func AverageRating(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += int(r)
	}
	avg := float64(sum) / float64(len(ratings))
	return math.Round(avg*100) / 100
}

// Package matching содержит расчёт совместимости ментора и менти и порядок
// ранжирования кандидатов. Пакет не выполняет ввод-вывод.
package matching

import (
	"math"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHTS
// ══════════════════════════════════════════════════════════════════════════════

// Веса групп факторов. Сумма равна 100.
const (
	WeightPersonality = 30
	WeightIndustry    = 20
	WeightSkills      = 20
	WeightExperience  = 15
	WeightGoals       = 15
)

const (
	// NeutralScore возвращается, когда ни одна группа факторов не применима.
	NeutralScore = 50

	relatedIndustryPoints = 10
	idealGapMin           = 3
	idealGapMax           = 15
	positiveGapPoints     = 10
	maxTraitScore         = 10.0
)

// Factor - группа факторов совместимости.
type Factor string

const (
	FactorPersonality Factor = "personality"
	FactorIndustry    Factor = "industry"
	FactorSkills      Factor = "skills"
	FactorExperience  Factor = "experience"
	FactorGoals       Factor = "goals"
)

// FactorResult - вклад одной группы в итоговую оценку.
type FactorResult struct {
	Factor Factor
	Earned float64
	Weight float64
}

// Breakdown - итоговая оценка с раскладкой по применимым факторам.
type Breakdown struct {
	Score            int
	Earned           float64
	ApplicableWeight float64
	Factors          []FactorResult
}

// Factor возвращает результат группы и признак её применимости.
func (b Breakdown) Factor(f Factor) (FactorResult, bool) {
	for _, r := range b.Factors {
		if r.Factor == f {
			return r, true
		}
	}
	return FactorResult{}, false
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORER
// ══════════════════════════════════════════════════════════════════════════════

// Score возвращает совместимость ментора и менти в диапазоне [0, 100].
func Score(mentor *profile.MentorProfile, mentee *profile.MenteeProfile) int {
	return Explain(mentor, mentee).Score
}

// Explain считает совместимость и возвращает раскладку по факторам.
//
// Группа факторов учитывается, только если у обеих сторон есть данные для
// сравнения; итог нормируется на сумму весов учтённых групп. Если учтённых
// групп нет, оценка равна NeutralScore. Результат не симметричен: ментор и
// менти играют разные роли.
func Explain(mentor *profile.MentorProfile, mentee *profile.MenteeProfile) Breakdown {
	if mentor == nil || mentee == nil {
		return Breakdown{Score: NeutralScore}
	}

	s := scorer{fold: cases.Fold()}
	var b Breakdown

	if r, ok := s.personality(mentor.PersonalityTraits, mentee.PersonalityTraits); ok {
		b.add(r)
	}
	if industry, skills, ok := s.industryAndSkills(mentor, mentee); ok {
		b.add(industry)
		if skills != nil {
			b.add(*skills)
		}
	}
	if r, ok := experience(mentor.ExperienceYears, mentee.ExperienceYears); ok {
		b.add(r)
	}
	if r, ok := s.goals(mentor.CareerAchievements, mentee.CareerGoals); ok {
		b.add(r)
	}

	if b.ApplicableWeight <= 0 {
		b.Score = NeutralScore
		return b
	}

	score := int(math.Round(b.Earned / b.ApplicableWeight * 100))
	b.Score = max(0, min(100, score))
	return b
}

func (b *Breakdown) add(r FactorResult) {
	b.Factors = append(b.Factors, r)
	b.Earned += r.Earned
	b.ApplicableWeight += r.Weight
}

// scorer хранит Caser на время одного расчёта: cases.Caser нельзя
// разделять между горутинами.
type scorer struct {
	fold cases.Caser
}

func (s scorer) normalize(v string) string {
	return s.fold.String(strings.TrimSpace(v))
}

// personality сравнивает черты, заданные у обеих сторон.
func (s scorer) personality(mentor, mentee profile.PersonalityTraits) (FactorResult, bool) {
	if len(mentor) == 0 || len(mentee) == 0 {
		return FactorResult{}, false
	}

	var sum float64
	count := 0
	for _, trait := range profile.CanonicalTraits() {
		mv, okM := mentor[trait]
		ev, okE := mentee[trait]
		if !okM || !okE {
			continue
		}
		sum += traitScore(trait, mv, ev)
		count++
	}
	if count == 0 {
		return FactorResult{}, false
	}

	return FactorResult{
		Factor: FactorPersonality,
		Earned: sum / (float64(count) * maxTraitScore) * WeightPersonality,
		Weight: WeightPersonality,
	}, true
}

// traitScore оценивает одну черту по шкале 0–10.
func traitScore(trait profile.Trait, mentorValue, menteeValue float64) float64 {
	diff := math.Abs(mentorValue - menteeValue)

	if trait.PrefersSimilarity() {
		return math.Max(0, math.Min(maxTraitScore, maxTraitScore-diff*2))
	}

	// Умеренная разница ценится выше и полного совпадения, и противоположности.
	switch {
	case diff <= 2:
		return 5
	case diff >= 3 && diff <= 4:
		return 10
	default:
		return 7
	}
}

// industryAndSkills учитывается, когда отрасль указана у обеих сторон.
// Навыки сравниваются только внутри этой группы.
func (s scorer) industryAndSkills(mentor *profile.MentorProfile, mentee *profile.MenteeProfile) (FactorResult, *FactorResult, bool) {
	mentorIndustry := s.normalize(mentor.Industry)
	menteeIndustry := s.normalize(mentee.Industry)
	if mentorIndustry == "" || menteeIndustry == "" {
		return FactorResult{}, nil, false
	}

	industry := FactorResult{Factor: FactorIndustry, Weight: WeightIndustry}
	switch {
	case mentorIndustry == menteeIndustry:
		industry.Earned = WeightIndustry
	case s.containsFolded(mentor.RelatedIndustries, menteeIndustry):
		industry.Earned = relatedIndustryPoints
	}

	desired := s.nonBlank(mentee.SkillsToImprove)
	if len(mentor.Skills) == 0 || len(desired) == 0 {
		return industry, nil, true
	}

	have := make(map[string]struct{}, len(mentor.Skills))
	for _, skill := range mentor.Skills {
		have[s.normalize(skill)] = struct{}{}
	}
	matched := 0
	for _, skill := range desired {
		if _, ok := have[skill]; ok {
			matched++
		}
	}

	skills := FactorResult{
		Factor: FactorSkills,
		Earned: float64(matched) / float64(len(desired)) * WeightSkills,
		Weight: WeightSkills,
	}
	return industry, &skills, true
}

// experience учитывается, когда стаж указан у обеих сторон, включая ноль.
func experience(mentorYears, menteeYears *int) (FactorResult, bool) {
	if mentorYears == nil || menteeYears == nil {
		return FactorResult{}, false
	}

	r := FactorResult{Factor: FactorExperience, Weight: WeightExperience}
	gap := *mentorYears - *menteeYears
	switch {
	case gap >= idealGapMin && gap <= idealGapMax:
		r.Earned = WeightExperience
	case gap > 0:
		r.Earned = positiveGapPoints
	}
	return r, true
}

// goals: цель менти совпадает, если хотя бы одно достижение ментора
// содержит её как подстроку без учёта регистра.
func (s scorer) goals(achievements, goals []string) (FactorResult, bool) {
	wanted := s.nonBlank(goals)
	if len(wanted) == 0 || len(achievements) == 0 {
		return FactorResult{}, false
	}

	folded := make([]string, 0, len(achievements))
	for _, a := range achievements {
		folded = append(folded, s.normalize(a))
	}

	matched := 0
	for _, goal := range wanted {
		for _, a := range folded {
			if strings.Contains(a, goal) {
				matched++
				break
			}
		}
	}

	return FactorResult{
		Factor: FactorGoals,
		Earned: float64(matched) / float64(len(wanted)) * WeightGoals,
		Weight: WeightGoals,
	}, true
}

// nonBlank нормализует значения и отбрасывает пустые.
func (s scorer) nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := s.normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (s scorer) containsFolded(values []string, target string) bool {
	for _, v := range values {
		if s.normalize(v) == target {
			return true
		}
	}
	return false
}

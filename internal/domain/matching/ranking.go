package matching

import (
	"sort"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
)

// Candidate - ментор в ранжированном списке для конкретного менти.
type Candidate struct {
	Mentor    *profile.MentorProfile
	Score     int
	Breakdown Breakdown
	Position  int // 1-based
}

// CandidateList реализует sort.Interface.
//
// Порядок: оценка по убыванию, затем средний рейтинг по убыванию,
// затем UserID по возрастанию. Порядок не зависит от порядка выборки.
type CandidateList []Candidate

func (l CandidateList) Len() int      { return len(l) }
func (l CandidateList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }
func (l CandidateList) Less(i, j int) bool {
	a, b := l[i], l[j]
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Mentor.Rating.Average != b.Mentor.Rating.Average {
		return a.Mentor.Rating.Average > b.Mentor.Rating.Average
	}
	return a.Mentor.UserID < b.Mentor.UserID
}

// Rank оценивает каждого ментора относительно менти и возвращает полный
// упорядоченный список без усечения. Профиль самого менти, если он попал
// в mentors, пропускается.
func Rank(mentee *profile.MenteeProfile, mentors []*profile.MentorProfile) []Candidate {
	list := make(CandidateList, 0, len(mentors))
	for _, m := range mentors {
		if m == nil || (mentee != nil && m.UserID == mentee.UserID) {
			continue
		}
		b := Explain(m, mentee)
		list = append(list, Candidate{
			Mentor:    m,
			Score:     b.Score,
			Breakdown: b,
		})
	}

	sort.Stable(list)

	for i := range list {
		list[i].Position = i + 1
	}
	return list
}

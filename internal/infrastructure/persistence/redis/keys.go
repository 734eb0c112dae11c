package redis

import "strconv"

// Key layout. InvalidateAllRankings relies on every ranking key sharing
// PrefixRanking.
const (
	PrefixRanking       = "ranking:"
	PrefixMentorProfile = "mentor:"
	PrefixRateLimit     = "ratelimit:"
)

// RankingKey holds one mentee's ranked mentor list.
func RankingKey(menteeID string) string { return PrefixRanking + menteeID }

// MentorProfileKey holds one mentor's profile view.
func MentorProfileKey(mentorID string) string { return PrefixMentorProfile + mentorID }

// RateLimitKey is the counter of identifier in fixed window number window.
func RateLimitKey(identifier string, window int64) string {
	return PrefixRateLimit + identifier + ":" + strconv.FormatInt(window, 10)
}

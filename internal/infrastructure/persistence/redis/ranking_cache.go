package redis

import (
	"context"
	"errors"
	"time"

	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/circuitbreaker"
)

// RankingCache implements query.RankingCache and query.ProfileCache on the
// generic Cache. Values are the query DTOs encoded as JSON.
//
// With a breaker attached, calls fail fast with circuitbreaker.ErrOpen while
// Redis is down and the query handlers recompute from the repository.
type RankingCache struct {
	cache   *Cache
	breaker *circuitbreaker.Breaker
}

// NewRankingCache creates a new RankingCache. breaker may be nil.
func NewRankingCache(cache *Cache, breaker *circuitbreaker.Breaker) *RankingCache {
	return &RankingCache{cache: cache, breaker: breaker}
}

func (c *RankingCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if c.breaker == nil {
		return fn(ctx)
	}
	return c.breaker.Execute(ctx, fn)
}

var (
	_ query.RankingCache = (*RankingCache)(nil)
	_ query.ProfileCache = (*RankingCache)(nil)
)

// GetRanking returns the cached list for a mentee. A miss is (nil, false, nil).
func (c *RankingCache) GetRanking(ctx context.Context, menteeID shared.UserID) ([]query.RankedMentorDTO, bool, error) {
	var ranking []query.RankedMentorDTO
	hit := false
	err := c.guard(ctx, func(ctx context.Context) error {
		err := c.cache.Get(ctx, RankingKey(string(menteeID)), &ranking)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		hit = err == nil
		return err
	})
	if err != nil || !hit {
		return nil, false, err
	}
	return ranking, true, nil
}

// SetRanking stores the list. An empty ranking is cached too.
func (c *RankingCache) SetRanking(ctx context.Context, menteeID shared.UserID, ranking []query.RankedMentorDTO, ttl time.Duration) error {
	if ranking == nil {
		ranking = []query.RankedMentorDTO{}
	}
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, RankingKey(string(menteeID)), ranking, ttl)
	})
}

// InvalidateRanking removes one mentee's list.
func (c *RankingCache) InvalidateRanking(ctx context.Context, menteeID shared.UserID) error {
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, RankingKey(string(menteeID)))
	})
}

// InvalidateAllRankings removes every cached list.
func (c *RankingCache) InvalidateAllRankings(ctx context.Context) error {
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.DeleteByPattern(ctx, PrefixRanking+"*")
	})
}

// GetMentorProfile returns the cached profile view. A miss is (nil, false, nil).
func (c *RankingCache) GetMentorProfile(ctx context.Context, userID shared.UserID) (*query.MentorProfileDTO, bool, error) {
	var dto query.MentorProfileDTO
	hit := false
	err := c.guard(ctx, func(ctx context.Context) error {
		err := c.cache.Get(ctx, MentorProfileKey(string(userID)), &dto)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		hit = err == nil
		return err
	})
	if err != nil || !hit {
		return nil, false, err
	}
	return &dto, true, nil
}

// SetMentorProfile stores the profile view under its user id.
func (c *RankingCache) SetMentorProfile(ctx context.Context, dto query.MentorProfileDTO, ttl time.Duration) error {
	if dto.UserID == "" {
		return ErrCacheKeyEmpty
	}
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, MentorProfileKey(dto.UserID), dto, ttl)
	})
}

// InvalidateMentorProfile removes the profile view.
func (c *RankingCache) InvalidateMentorProfile(ctx context.Context, userID shared.UserID) error {
	return c.guard(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, MentorProfileKey(string(userID)))
	})
}

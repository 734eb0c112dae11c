package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/pkg/circuitbreaker"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "ranking:mentee-1", RankingKey("mentee-1"))
	assert.Equal(t, "mentor:mentor-1", MentorProfileKey("mentor-1"))
	assert.Equal(t, "ratelimit:10.0.0.1:42", RateLimitKey("10.0.0.1", 42))
}

func TestConfigOptions(t *testing.T) {
	opts, err := Config{Host: "cache", Port: 6380, Password: "pw", DB: 2, PoolSize: 7}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = Config{URL: "redis://:secret@redis.internal:6379/3", Host: "ignored"}.Options()
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = Config{URL: "http://not-redis"}.Options()
	assert.Error(t, err)
}

func TestCacheValidatesArguments(t *testing.T) {
	// The client never dials: every call below fails before reaching the network.
	c := NewCacheFromClient(nil)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, c.Get(ctx, "", new(int)), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.DeleteByPattern(ctx, ""), ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(ctx))

	rc := NewRankingCache(c, nil)
	assert.ErrorIs(t, rc.SetMentorProfile(ctx, query.MentorProfileDTO{}, time.Minute), ErrCacheKeyEmpty)
}

func TestRankingCacheFailsFastWhenBreakerOpen(t *testing.T) {
	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(1), circuitbreaker.WithCooldown(time.Hour))
	ctx := context.Background()
	_ = breaker.Execute(ctx, func(context.Context) error { return errors.New("connection refused") })
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	// A nil client would panic if the breaker let the call through.
	rc := NewRankingCache(NewCacheFromClient(nil), breaker)

	ranking, hit, err := rc.GetRanking(ctx, "mentee-1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.False(t, hit)
	assert.Nil(t, ranking)

	_, hit, err = rc.GetMentorProfile(ctx, "mentor-1")
	assert.True(t, circuitbreaker.IsRejection(err))
	assert.False(t, hit)

	assert.ErrorIs(t, rc.InvalidateAllRankings(ctx), circuitbreaker.ErrOpen)
}

package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"forum-quiz-bot/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ScoreLister reads the full score table from a backing store.
type ScoreLister interface {
	ListScores(ctx context.Context) ([]domain.Score, error)
}

// LeaderboardCache caches the ranked leaderboard with TTL to avoid repeated
// store hits from the ops endpoints.
type LeaderboardCache struct {
	source ScoreLister
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	board     domain.Leaderboard
	expiresAt time.Time
}

func NewLeaderboardCache(source ScoreLister, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *LeaderboardCache) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	now := c.clock()

	c.mu.RLock()
	if c.expiresAt.After(now) {
		lb := c.board
		c.mu.RUnlock()
		return lb, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("leaderboard", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.expiresAt.After(now) {
			lb := c.board
			c.mu.RUnlock()
			return lb, nil
		}
		c.mu.RUnlock()

		scores, err := c.source.ListScores(ctx)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		lb := domain.NewLeaderboard(scores, now)

		c.mu.Lock()
		c.board = lb
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

// LeaderboardChanged stores a fresh snapshot pushed by the quiz.
func (c *LeaderboardCache) LeaderboardChanged(lb domain.Leaderboard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = lb
	c.expiresAt = c.clock().Add(c.ttlWithJitter())
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

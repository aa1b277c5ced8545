package app

import (
	"sync"

	"forum-quiz-bot/internal/domain"
)

// LeaderboardFeed fans leaderboard snapshots out to live subscribers.
type LeaderboardFeed struct {
	mu          sync.Mutex
	latest      *domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{subscribers: make(map[chan domain.Leaderboard]struct{})}
}

// LeaderboardChanged publishes lb to every subscriber without blocking.
func (f *LeaderboardFeed) LeaderboardChanged(lb domain.Leaderboard) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = &lb
	for ch := range f.subscribers {
		select {
		case ch <- lb:
		default:
			// slow subscriber: replace its stale snapshot with the new one
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

// Subscribe returns a channel of snapshots, primed with the latest one if any.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *LeaderboardFeed) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	if f.latest != nil {
		ch <- *f.latest
	}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers reports how many live subscriptions exist.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

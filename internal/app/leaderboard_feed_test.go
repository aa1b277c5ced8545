package app

import (
	"testing"

	"forum-quiz-bot/internal/domain"
)

func TestLeaderboardFeedPrimesNewSubscribers(t *testing.T) {
	feed := NewLeaderboardFeed()
	feed.LeaderboardChanged(board("alice"))

	ch, cancel := feed.Subscribe()
	defer cancel()

	select {
	case lb := <-ch:
		if lb.Entries[0].UserName != "alice" {
			t.Fatalf("unexpected snapshot: %+v", lb)
		}
	default:
		t.Fatalf("expected primed snapshot")
	}
}

func TestLeaderboardFeedNeverBlocksOnSlowSubscriber(t *testing.T) {
	feed := NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	defer cancel()

	for i := 0; i < 100; i++ {
		feed.LeaderboardChanged(board("alice"))
	}
	feed.LeaderboardChanged(board("bob"))

	var last domain.Leaderboard
	for len(ch) > 0 {
		last = <-ch
	}
	if last.Entries[0].UserName != "bob" {
		t.Fatalf("expected newest snapshot to be kept, got %+v", last)
	}
}

func TestLeaderboardFeedCancel(t *testing.T) {
	feed := NewLeaderboardFeed()
	ch, cancel := feed.Subscribe()
	if feed.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", feed.Subscribers())
	}
	cancel()
	cancel()
	if feed.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", feed.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}

func board(leader string) domain.Leaderboard {
	return domain.Leaderboard{Entries: []domain.LeaderboardEntry{{UserName: leader, Score: 1}}}
}

package domain

import (
	"sort"
	"time"
)

// QuestionStatus is the lifecycle state of a question. Open -> Answered is one-way.
type QuestionStatus string

const (
	StatusOpen     QuestionStatus = "open"
	StatusAnswered QuestionStatus = "answered"
)

// Question is the unit of play hosted in a forum topic.
type Question struct {
	ID            string         `json:"id"`
	TopicID       int64          `json:"topicId"`
	Text          string         `json:"text"`
	Answer        string         `json:"answer"`
	Variants      []string       `json:"variants"`
	Hints         []string       `json:"hints"`
	HintsRevealed int            `json:"hintsRevealed"` // starts at 1, the opening hint
	Category      string         `json:"category"`
	Status        QuestionStatus `json:"status"`
	Winner        string         `json:"winner,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	AnsweredAt    time.Time      `json:"answeredAt,omitempty"`
}

// IsOpen reports whether the question still accepts guesses.
func (q Question) IsOpen() bool {
	return q.Status == StatusOpen
}

// HasHintsLeft reports whether a wrong guess can still reveal a hint.
func (q Question) HasHintsLeft() bool {
	return q.HintsRevealed < len(q.Hints)
}

// NextHint returns the hint that the next reveal will publish.
func (q Question) NextHint() (string, bool) {
	if !q.HasHintsLeft() {
		return "", false
	}
	return q.Hints[q.HintsRevealed], true
}

// Guess is one submission; guesses are append-only.
type Guess struct {
	QuestionID string    `json:"questionId"`
	Username   string    `json:"username"`
	RawText    string    `json:"rawText"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Score holds the cumulative points of one forum member.
type Score struct {
	UserName  string    `json:"userName"`
	Score     int       `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a score.
type LeaderboardEntry struct {
	UserName string `json:"userName"`
	Score    int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SortScores orders scores by points desc; ties go to whoever reached the score
// first, then by name.
func SortScores(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if !scores[i].UpdatedAt.Equal(scores[j].UpdatedAt) {
			return scores[i].UpdatedAt.Before(scores[j].UpdatedAt)
		}
		return scores[i].UserName < scores[j].UserName
	})
}

// NewLeaderboard builds a leaderboard from already ordered scores.
func NewLeaderboard(scores []Score, now time.Time) Leaderboard {
	entries := make([]LeaderboardEntry, 0, len(scores))
	for _, s := range scores {
		entries = append(entries, LeaderboardEntry{UserName: s.UserName, Score: s.Score})
	}
	return Leaderboard{Entries: entries, UpdatedAt: now}
}

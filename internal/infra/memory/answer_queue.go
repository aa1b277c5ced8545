package memory

import (
	"context"
	"sync"

	"forum-quiz-bot/internal/domain"
)

// AnswerQueue is an unbounded, append-only in-memory guess log.
type AnswerQueue struct {
	mu      sync.RWMutex
	answers map[string][]domain.Guess
}

func NewAnswerQueue() *AnswerQueue {
	return &AnswerQueue{answers: make(map[string][]domain.Guess)}
}

func (q *AnswerQueue) AddAnswer(_ context.Context, guess domain.Guess) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.answers[guess.QuestionID] = append(q.answers[guess.QuestionID], guess)
	return nil
}

func (q *AnswerQueue) Answers(_ context.Context, questionID string) ([]domain.Guess, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]domain.Guess(nil), q.answers[questionID]...), nil
}

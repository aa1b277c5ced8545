package memory

import (
	"context"
	"sync"
	"time"

	"forum-quiz-bot/internal/domain"
)

// QuizRepository keeps questions and scores in process memory.
type QuizRepository struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	open      map[int64]string // topic -> open question id
	latest    map[int64]string // topic -> newest question id
	scores    map[string]domain.Score
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{
		questions: make(map[string]domain.Question),
		open:      make(map[int64]string),
		latest:    make(map[int64]string),
		scores:    make(map[string]domain.Score),
	}
}

func (r *QuizRepository) CreateQuestion(_ context.Context, q domain.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.open[q.TopicID]; ok {
		return domain.ErrRoundInProgress
	}
	r.questions[q.ID] = cloneQuestion(q)
	r.open[q.TopicID] = q.ID
	r.latest[q.TopicID] = q.ID
	return nil
}

func (r *QuizRepository) OpenQuestion(_ context.Context, topicID int64) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.open[topicID]
	if !ok {
		return domain.Question{}, domain.ErrNoActiveQuestion
	}
	return cloneQuestion(r.questions[id]), nil
}

func (r *QuizRepository) LatestQuestion(_ context.Context, topicID int64) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.latest[topicID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(r.questions[id]), nil
}

// Question returns a question by ID.
func (r *QuizRepository) Question(_ context.Context, id string) (domain.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (r *QuizRepository) RevealHint(_ context.Context, questionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[questionID]
	switch {
	case !ok:
		return 0, domain.ErrQuestionNotFound
	case !q.IsOpen():
		return q.HintsRevealed, domain.ErrQuestionClosed
	case !q.HasHintsLeft():
		return q.HintsRevealed, domain.ErrHintsExhausted
	}
	q.HintsRevealed++
	r.questions[questionID] = q
	return q.HintsRevealed, nil
}

func (r *QuizRepository) MarkAnswered(_ context.Context, questionID, winner string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !q.IsOpen() {
		return domain.ErrQuestionClosed
	}
	q.Status = domain.StatusAnswered
	q.Winner = winner
	q.AnsweredAt = at
	r.questions[questionID] = q
	delete(r.open, q.TopicID)
	return nil
}

func (r *QuizRepository) CreditScore(_ context.Context, userName string, delta int, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.scores[userName]
	s.UserName = userName
	s.Score += delta
	s.UpdatedAt = at
	r.scores[userName] = s
	return s.Score, nil
}

func (r *QuizRepository) ListScores(_ context.Context) ([]domain.Score, error) {
	r.mu.RLock()
	scores := make([]domain.Score, 0, len(r.scores))
	for _, s := range r.scores {
		scores = append(scores, s)
	}
	r.mu.RUnlock()

	domain.SortScores(scores)
	return scores, nil
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Variants = append([]string(nil), q.Variants...)
	q.Hints = append([]string(nil), q.Hints...)
	return q
}

package postgres

import (
	"context"
	"fmt"

	"forum-quiz-bot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AnswerQueue persists guesses in the guesses table.
type AnswerQueue struct {
	pool *pgxpool.Pool
}

func NewAnswerQueue(pool *pgxpool.Pool) *AnswerQueue {
	return &AnswerQueue{pool: pool}
}

func (q *AnswerQueue) AddAnswer(ctx context.Context, guess domain.Guess) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO guesses (question_id, user_name, raw_text, received_at)
		VALUES ($1, $2, $3, $4)`,
		guess.QuestionID, guess.Username, guess.RawText, guess.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert guess: %w", err)
	}
	return nil
}

func (q *AnswerQueue) Answers(ctx context.Context, questionID string) ([]domain.Guess, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT question_id, user_name, raw_text, received_at
		FROM guesses WHERE question_id=$1 ORDER BY id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("list guesses: %w", err)
	}
	defer rows.Close()

	var guesses []domain.Guess
	for rows.Next() {
		var g domain.Guess
		if err := rows.Scan(&g.QuestionID, &g.Username, &g.RawText, &g.ReceivedAt); err != nil {
			return nil, err
		}
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forum-quiz-bot/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// QuizRepository stores questions and scores in Postgres. The partial unique
// index questions_one_open_per_topic enforces one open round per topic.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

const questionColumns = `id, topic_id, text, answer, variants, hints, hints_revealed, category, status, winner, created_at, answered_at`

func (r *QuizRepository) CreateQuestion(ctx context.Context, q domain.Question) error {
	if q.Variants == nil {
		q.Variants = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO questions (id, topic_id, text, answer, variants, hints, hints_revealed, category, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		q.ID, q.TopicID, q.Text, q.Answer, q.Variants, q.Hints, q.HintsRevealed, q.Category, string(q.Status), q.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrRoundInProgress
	}
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r *QuizRepository) OpenQuestion(ctx context.Context, topicID int64) (domain.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE topic_id=$1 AND status='open'`, topicID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrNoActiveQuestion
	}
	return q, err
}

func (r *QuizRepository) LatestQuestion(ctx context.Context, topicID int64) (domain.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE topic_id=$1 ORDER BY seq DESC LIMIT 1`, topicID)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

// Question loads a question by ID.
func (r *QuizRepository) Question(ctx context.Context, id string) (domain.Question, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func (r *QuizRepository) RevealHint(ctx context.Context, questionID string) (int, error) {
	var revealed int
	err := r.pool.QueryRow(ctx, `
		UPDATE questions SET hints_revealed = hints_revealed + 1
		WHERE id=$1 AND status='open' AND hints_revealed < cardinality(hints)
		RETURNING hints_revealed`, questionID).Scan(&revealed)
	if err == nil {
		return revealed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("reveal hint: %w", err)
	}

	q, err := r.Question(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if !q.IsOpen() {
		return q.HintsRevealed, domain.ErrQuestionClosed
	}
	return q.HintsRevealed, domain.ErrHintsExhausted
}

func (r *QuizRepository) MarkAnswered(ctx context.Context, questionID, winner string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions SET status='answered', winner=$2, answered_at=$3
		WHERE id=$1 AND status='open'`, questionID, winner, at)
	if err != nil {
		return fmt.Errorf("mark answered: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.Question(ctx, questionID); err != nil {
		return err
	}
	return domain.ErrQuestionClosed
}

func (r *QuizRepository) CreditScore(ctx context.Context, userName string, delta int, at time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO scores (user_name, score, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_name) DO UPDATE
		SET score = scores.score + EXCLUDED.score, updated_at = EXCLUDED.updated_at
		RETURNING score`, userName, delta, at).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("credit score: %w", err)
	}
	return total, nil
}

func (r *QuizRepository) ListScores(ctx context.Context) ([]domain.Score, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_name, score, updated_at FROM scores ORDER BY score DESC, updated_at ASC, user_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.Score
	for rows.Next() {
		var s domain.Score
		if err := rows.Scan(&s.UserName, &s.Score, &s.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q          domain.Question
		status     string
		winner     *string
		answeredAt *time.Time
	)
	err := row.Scan(&q.ID, &q.TopicID, &q.Text, &q.Answer, &q.Variants, &q.Hints,
		&q.HintsRevealed, &q.Category, &status, &winner, &q.CreatedAt, &answeredAt)
	if err != nil {
		return domain.Question{}, err
	}
	q.Status = domain.QuestionStatus(status)
	if winner != nil {
		q.Winner = *winner
	}
	if answeredAt != nil {
		q.AnsweredAt = *answeredAt
	}
	return q, nil
}

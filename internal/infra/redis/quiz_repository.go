package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"forum-quiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// QuizRepository keeps questions and scores in Redis.
// Questions are stored as: HSET quiz:question:{id} {field} {value}
// The open round marker:   SET  quiz:topic:{topicID}:open {questionID} NX
// Scores are stored as:    HSET quiz:scores {user} {points}
// Last change per user:    HSET quiz:scores:updated {user} {unix nanos}
type QuizRepository struct {
	client *redis.Client
}

func NewQuizRepository(client *redis.Client) *QuizRepository {
	return &QuizRepository{client: client}
}

// revealHintScript increments hints_revealed while the question is open and
// has hints left. Negative results encode the refusal reason.
var revealHintScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then return -1 end
if status ~= 'open' then return -2 end
local revealed = tonumber(redis.call('HGET', KEYS[1], 'hints_revealed'))
local count = tonumber(redis.call('HGET', KEYS[1], 'hint_count'))
if revealed >= count then return -3 end
return redis.call('HINCRBY', KEYS[1], 'hints_revealed', 1)
`)

// markAnsweredScript closes an open question and releases its topic marker.
var markAnsweredScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then return -1 end
if status ~= 'open' then return -2 end
redis.call('HSET', KEYS[1], 'status', 'answered')
redis.call('HSET', KEYS[1], 'winner', ARGV[1])
redis.call('HSET', KEYS[1], 'answered_at', ARGV[2])
if redis.call('GET', KEYS[2]) == ARGV[3] then
  redis.call('DEL', KEYS[2])
end
return 1
`)

func (r *QuizRepository) CreateQuestion(ctx context.Context, q domain.Question) error {
	openKey := openKey(q.TopicID)
	ok, err := r.client.SetNX(ctx, openKey, q.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve topic: %w", err)
	}
	if !ok {
		return domain.ErrRoundInProgress
	}

	fields, err := questionFields(q)
	if err != nil {
		_ = r.client.Del(ctx, openKey).Err()
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, questionKey(q.ID), fields)
		pipe.Set(ctx, latestKey(q.TopicID), q.ID, 0)
		return nil
	})
	if err != nil {
		_ = r.client.Del(ctx, openKey).Err()
		return fmt.Errorf("store question: %w", err)
	}
	return nil
}

func (r *QuizRepository) OpenQuestion(ctx context.Context, topicID int64) (domain.Question, error) {
	id, err := r.client.Get(ctx, openKey(topicID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Question{}, domain.ErrNoActiveQuestion
	}
	if err != nil {
		return domain.Question{}, err
	}
	return r.Question(ctx, id)
}

func (r *QuizRepository) LatestQuestion(ctx context.Context, topicID int64) (domain.Question, error) {
	id, err := r.client.Get(ctx, latestKey(topicID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, err
	}
	return r.Question(ctx, id)
}

// Question loads a question by ID.
func (r *QuizRepository) Question(ctx context.Context, id string) (domain.Question, error) {
	fields, err := r.client.HGetAll(ctx, questionKey(id)).Result()
	if err != nil {
		return domain.Question{}, err
	}
	if len(fields) == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return questionFromFields(fields)
}

func (r *QuizRepository) RevealHint(ctx context.Context, questionID string) (int, error) {
	n, err := revealHintScript.Run(ctx, r.client, []string{questionKey(questionID)}).Int()
	if err != nil {
		return 0, err
	}
	switch n {
	case -1:
		return 0, domain.ErrQuestionNotFound
	case -2:
		return 0, domain.ErrQuestionClosed
	case -3:
		return 0, domain.ErrHintsExhausted
	}
	return n, nil
}

func (r *QuizRepository) MarkAnswered(ctx context.Context, questionID, winner string, at time.Time) error {
	topic, err := r.client.HGet(ctx, questionKey(questionID), "topic_id").Int64()
	if errors.Is(err, redis.Nil) {
		return domain.ErrQuestionNotFound
	}
	if err != nil {
		return err
	}

	keys := []string{questionKey(questionID), openKey(topic)}
	n, err := markAnsweredScript.Run(ctx, r.client, keys, winner, formatTime(at), questionID).Int()
	if err != nil {
		return err
	}
	switch n {
	case -1:
		return domain.ErrQuestionNotFound
	case -2:
		return domain.ErrQuestionClosed
	}
	return nil
}

func (r *QuizRepository) CreditScore(ctx context.Context, userName string, delta int, at time.Time) (int, error) {
	var total *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.HIncrBy(ctx, scoresKey, userName, int64(delta))
		pipe.HSet(ctx, scoresUpdatedKey, userName, formatTime(at))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("credit score: %w", err)
	}
	return int(total.Val()), nil
}

func (r *QuizRepository) ListScores(ctx context.Context) ([]domain.Score, error) {
	points, err := r.client.HGetAll(ctx, scoresKey).Result()
	if err != nil {
		return nil, err
	}
	updated, err := r.client.HGetAll(ctx, scoresUpdatedKey).Result()
	if err != nil {
		return nil, err
	}

	scores := make([]domain.Score, 0, len(points))
	for user, raw := range points {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("score of %s: %w", user, err)
		}
		scores = append(scores, domain.Score{
			UserName:  user,
			Score:     p,
			UpdatedAt: parseTime(updated[user]),
		})
	}
	domain.SortScores(scores)
	return scores, nil
}

const (
	scoresKey        = "quiz:scores"
	scoresUpdatedKey = "quiz:scores:updated"
)

func questionKey(id string) string {
	return "quiz:question:" + id
}

func openKey(topicID int64) string {
	return "quiz:topic:" + strconv.FormatInt(topicID, 10) + ":open"
}

func latestKey(topicID int64) string {
	return "quiz:topic:" + strconv.FormatInt(topicID, 10) + ":latest"
}

func questionFields(q domain.Question) (map[string]interface{}, error) {
	variants, err := json.Marshal(q.Variants)
	if err != nil {
		return nil, fmt.Errorf("encode variants: %w", err)
	}
	hints, err := json.Marshal(q.Hints)
	if err != nil {
		return nil, fmt.Errorf("encode hints: %w", err)
	}
	return map[string]interface{}{
		"id":             q.ID,
		"topic_id":       q.TopicID,
		"text":           q.Text,
		"answer":         q.Answer,
		"variants":       string(variants),
		"hints":          string(hints),
		"hints_revealed": q.HintsRevealed,
		"hint_count":     len(q.Hints),
		"category":       q.Category,
		"status":         string(q.Status),
		"winner":         q.Winner,
		"created_at":     formatTime(q.CreatedAt),
		"answered_at":    formatTime(q.AnsweredAt),
	}, nil
}

func questionFromFields(f map[string]string) (domain.Question, error) {
	topic, err := strconv.ParseInt(f["topic_id"], 10, 64)
	if err != nil {
		return domain.Question{}, fmt.Errorf("decode topic_id: %w", err)
	}
	revealed, err := strconv.Atoi(f["hints_revealed"])
	if err != nil {
		return domain.Question{}, fmt.Errorf("decode hints_revealed: %w", err)
	}
	q := domain.Question{
		ID:            f["id"],
		TopicID:       topic,
		Text:          f["text"],
		Answer:        f["answer"],
		HintsRevealed: revealed,
		Category:      f["category"],
		Status:        domain.QuestionStatus(f["status"]),
		Winner:        f["winner"],
		CreatedAt:     parseTime(f["created_at"]),
		AnsweredAt:    parseTime(f["answered_at"]),
	}
	if err := json.Unmarshal([]byte(f["variants"]), &q.Variants); err != nil {
		return domain.Question{}, fmt.Errorf("decode variants: %w", err)
	}
	if err := json.Unmarshal([]byte(f["hints"]), &q.Hints); err != nil {
		return domain.Question{}, fmt.Errorf("decode hints: %w", err)
	}
	return q, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}

func parseTime(raw string) time.Time {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

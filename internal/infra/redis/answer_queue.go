package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forum-quiz-bot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AnswerQueue appends guesses to a Redis list per question:
// RPUSH quiz:question:{id}:guesses {json}
type AnswerQueue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnswerQueue returns a queue whose lists expire ttl after the last write;
// a non-positive ttl keeps them forever.
func NewAnswerQueue(client *redis.Client, ttl time.Duration) *AnswerQueue {
	return &AnswerQueue{client: client, ttl: ttl}
}

func (q *AnswerQueue) AddAnswer(ctx context.Context, guess domain.Guess) error {
	raw, err := json.Marshal(guess)
	if err != nil {
		return fmt.Errorf("encode guess: %w", err)
	}
	key := guessesKey(guess.QuestionID)
	pipe := q.client.Pipeline()
	pipe.RPush(ctx, key, raw)
	if q.ttl > 0 {
		pipe.Expire(ctx, key, q.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (q *AnswerQueue) Answers(ctx context.Context, questionID string) ([]domain.Guess, error) {
	items, err := q.client.LRange(ctx, guessesKey(questionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	guesses := make([]domain.Guess, 0, len(items))
	for _, item := range items {
		var g domain.Guess
		if err := json.Unmarshal([]byte(item), &g); err != nil {
			return nil, fmt.Errorf("decode guess: %w", err)
		}
		guesses = append(guesses, g)
	}
	return guesses, nil
}

func guessesKey(questionID string) string {
	return "quiz:question:" + questionID + ":guesses"
}

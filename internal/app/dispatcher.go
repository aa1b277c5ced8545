package app

import (
	"context"
	"errors"

	"forum-quiz-bot/internal/domain"
	"forum-quiz-bot/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Dispatcher routes inbound forum events to the quiz and reduces every
// outcome to a success flag; errors never reach the event loop.
type Dispatcher struct {
	quiz    *QuizService
	botID   int64
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewDispatcher(quiz *QuizService, botMemberID int64, log logrus.FieldLogger, m *metrics.Metrics) *Dispatcher {
	if m == nil {
		m = metrics.Noop()
	}
	return &Dispatcher{quiz: quiz, botID: botMemberID, log: log, metrics: m}
}

// Handle processes one event end to end and reports whether it produced a reply.
func (d *Dispatcher) Handle(ctx context.Context, ev domain.Event) bool {
	kind, err := d.handle(ctx, ev)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	d.metrics.EventsHandled.WithLabelValues(kind, result).Inc()
	return err == nil
}

func (d *Dispatcher) handle(ctx context.Context, ev domain.Event) (string, error) {
	switch e := ev.(type) {
	case domain.TopicCreated:
		_, err := d.quiz.StartRound(ctx, RoundRequest{TopicID: e.TopicID, Content: e.Content})
		return "topic", err

	case domain.PostCreated:
		if e.Author.ID == d.botID {
			return "own_post", errIgnored
		}
		_, err := d.quiz.SubmitGuess(ctx, GuessRequest{TopicID: e.TopicID, Author: e.Author.Name, Content: e.Content})
		if !errors.Is(err, domain.ErrNoActiveQuestion) {
			return "guess", err
		}
		_, err = d.quiz.ChooseCategory(ctx, CategoryChoice{TopicID: e.TopicID, Author: e.Author.Name, Content: e.Content})
		return "category", err
	}

	d.log.WithField("event", ev).Warn("unsupported event")
	return "unknown", errIgnored
}

var errIgnored = errors.New("event ignored")

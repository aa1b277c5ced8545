package app

import (
	"context"
	"time"

	"forum-quiz-bot/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NotificationSource lists recent forum events addressed to the bot.
type NotificationSource interface {
	Notifications(ctx context.Context) ([]domain.Event, error)
}

// SeenStore remembers which notifications were already dispatched.
type SeenStore interface {
	// MarkSeen returns true the first time id is marked.
	MarkSeen(ctx context.Context, id string) (bool, error)
}

// EventHandler handles one event; Dispatcher implements it.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) bool
}

// Poller drives the quiz from forum notifications. Topics are handled
// concurrently; events of one topic are handled one at a time in arrival order.
type Poller struct {
	source      NotificationSource
	seen        SeenStore
	handler     EventHandler
	interval    time.Duration
	topicWorker int
	log         logrus.FieldLogger
}

func NewPoller(source NotificationSource, seen SeenStore, handler EventHandler, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Poller{
		source:      source,
		seen:        seen,
		handler:     handler,
		interval:    interval,
		topicWorker: 4,
		log:         log,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if n, err := p.PollOnce(ctx); err != nil {
			p.log.WithError(err).Error("polling notifications failed")
		} else if n > 0 {
			p.log.WithField("events", n).Debug("notifications dispatched")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce fetches notifications once and dispatches the unseen ones. It
// returns how many events were dispatched. A notification whose seen mark
// cannot be stored is skipped for this poll only.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.source.Notifications(ctx)
	if err != nil {
		return 0, err
	}

	var order []int64
	byTopic := make(map[int64][]domain.Event)
	fresh := 0
	for _, ev := range events {
		first, err := p.seen.MarkSeen(ctx, ev.NotificationID())
		if err != nil {
			// Left unseen so the next poll retries it.
			p.log.WithError(err).WithField("notification", ev.NotificationID()).Warn("marking notification seen failed")
			continue
		}
		if !first {
			continue
		}
		if _, ok := byTopic[ev.Topic()]; !ok {
			order = append(order, ev.Topic())
		}
		byTopic[ev.Topic()] = append(byTopic[ev.Topic()], ev)
		fresh++
	}

	var g errgroup.Group
	g.SetLimit(p.topicWorker)
	for _, topic := range order {
		topicEvents := byTopic[topic]
		g.Go(func() error {
			for _, ev := range topicEvents {
				p.handler.Handle(ctx, ev)
			}
			return nil
		})
	}
	return fresh, g.Wait()
}

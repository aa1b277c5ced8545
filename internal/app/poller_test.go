package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"forum-quiz-bot/internal/domain"
	"forum-quiz-bot/internal/infra/memory"
	"forum-quiz-bot/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
	calls  int
}

func (s *staticSource) Notifications(context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.events, s.err
}

type recordingHandler struct {
	mu      sync.Mutex
	byTopic map[int64][]string
}

func (h *recordingHandler) Handle(_ context.Context, ev domain.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byTopic == nil {
		h.byTopic = make(map[int64][]string)
	}
	h.byTopic[ev.Topic()] = append(h.byTopic[ev.Topic()], ev.NotificationID())
	return true
}

func TestPollOnceDispatchesUnseenEventsInTopicOrder(t *testing.T) {
	src := &staticSource{events: []domain.Event{
		domain.TopicCreated{ID: "1", TopicID: 7},
		domain.PostCreated{ID: "2", TopicID: 8},
		domain.PostCreated{ID: "3", TopicID: 7},
		domain.PostCreated{ID: "4", TopicID: 7},
		domain.PostCreated{ID: "5", TopicID: 8},
	}}
	h := &recordingHandler{}
	p := NewPoller(src, memory.NewSeenStore(time.Hour), h, time.Second, logger.Discard())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"1", "3", "4"}, h.byTopic[7])
	assert.Equal(t, []string{"2", "5"}, h.byTopic[8])

	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "seen notifications must not be dispatched twice")
	assert.Len(t, h.byTopic[7], 3)
}

func TestPollOnceSourceError(t *testing.T) {
	src := &staticSource{err: errors.New("forum down")}
	p := NewPoller(src, memory.NewSeenStore(time.Hour), &recordingHandler{}, time.Second, logger.Discard())

	_, err := p.PollOnce(context.Background())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &staticSource{}
	p := NewPoller(src, memory.NewSeenStore(time.Hour), &recordingHandler{}, 10*time.Millisecond, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	assert.GreaterOrEqual(t, src.calls, 2)
}

type flakySeenStore struct {
	*memory.SeenStore
	mu     sync.Mutex
	calls  int
	failOn int
}

func (s *flakySeenStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failOn
	s.mu.Unlock()
	if fail {
		return false, errors.New("redis down")
	}
	return s.SeenStore.MarkSeen(ctx, id)
}

func TestPollOnceSeenStoreFailureSkipsOnlyThatEvent(t *testing.T) {
	src := &staticSource{events: []domain.Event{
		domain.PostCreated{ID: "1", TopicID: 1},
		domain.PostCreated{ID: "2", TopicID: 1},
	}}
	h := &recordingHandler{}
	seen := &flakySeenStore{SeenStore: memory.NewSeenStore(time.Hour), failOn: 2}
	p := NewPoller(src, seen, h, time.Second, logger.Discard())

	n, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1"}, h.byTopic[1])

	n, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1", "2"}, h.byTopic[1])
}

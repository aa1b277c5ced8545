package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"forum-quiz-bot/internal/domain"
	"forum-quiz-bot/internal/matcher"
	"forum-quiz-bot/internal/metrics"
	"forum-quiz-bot/internal/render"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// QuizRepository abstracts where questions and scores live (in-memory, Redis, Postgres).
// OpenQuestion must never see more than one open question per topic.
type QuizRepository interface {
	CreateQuestion(ctx context.Context, q domain.Question) error
	OpenQuestion(ctx context.Context, topicID int64) (domain.Question, error)
	LatestQuestion(ctx context.Context, topicID int64) (domain.Question, error)
	RevealHint(ctx context.Context, questionID string) (int, error)
	MarkAnswered(ctx context.Context, questionID, winner string, at time.Time) error
	CreditScore(ctx context.Context, userName string, delta int, at time.Time) (int, error)
	ListScores(ctx context.Context) ([]domain.Score, error)
}

// AnswerQueue keeps every submitted guess in submission order.
type AnswerQueue interface {
	AddAnswer(ctx context.Context, guess domain.Guess) error
	Answers(ctx context.Context, questionID string) ([]domain.Guess, error)
}

// Forum posts replies into a topic.
type Forum interface {
	PostReply(ctx context.Context, topicID int64, markup string) error
}

// QuestionDraft is what the language model proposes for a new round.
type QuestionDraft struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Variants []string `json:"variants"`
	Hints    []string `json:"hints"`
}

// Generator originates questions and consolation jokes.
type Generator interface {
	GenerateQuestion(ctx context.Context, category string) (QuestionDraft, error)
	GenerateJoke(ctx context.Context, category string) (string, error)
}

// LeaderboardObserver is told about every leaderboard change.
type LeaderboardObserver interface {
	LeaderboardChanged(lb domain.Leaderboard)
}

// Settings are the quiz rules taken from configuration.
type Settings struct {
	TriggerPhrase   string
	DefaultCategory string
	Scoring         ScorePolicy
}

// RoundRequest asks for a new round in a topic. An empty Category means the
// configured default.
type RoundRequest struct {
	TopicID  int64
	Content  string
	Category string
}

// GuessRequest is one forum post in a quiz topic.
type GuessRequest struct {
	TopicID int64
	Author  string
	Content string
}

// CategoryChoice is a post in which the last winner names the next category.
type CategoryChoice struct {
	TopicID int64
	Author  string
	Content string
}

// OutcomeKind tells which reply a guess produced.
type OutcomeKind string

const (
	OutcomeCorrect OutcomeKind = "correct"
	OutcomeHint    OutcomeKind = "hint"
	OutcomeJoke    OutcomeKind = "joke"
)

// GuessOutcome summarizes the effect of a guess.
type GuessOutcome struct {
	Kind        OutcomeKind
	Question    domain.Question
	Guess       string
	Points      int
	TotalScore  int
	Leaderboard domain.Leaderboard
}

// QuizService runs the round state machine: NoActiveRound -> Open(k) -> Answered.
// It holds no round state of its own; the repository owns it. Events for the
// same topic must be serialized by the caller.
type QuizService struct {
	repo      QuizRepository
	answers   AnswerQueue
	forum     Forum
	generator Generator
	settings  Settings

	now       func() time.Time
	newID     func() string
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
	observers []LeaderboardObserver
}

type Option func(*QuizService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *QuizService) { s.newID = newID }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *QuizService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *QuizService) { s.metrics = m }
}

func WithObservers(obs ...LeaderboardObserver) Option {
	return func(s *QuizService) { s.observers = append(s.observers, obs...) }
}

func NewQuizService(repo QuizRepository, answers AnswerQueue, forum Forum, generator Generator, settings Settings, opts ...Option) *QuizService {
	if settings.Scoring == nil {
		settings.Scoring = FixedPoints(1)
	}
	s := &QuizService{
		repo:      repo,
		answers:   answers,
		forum:     forum,
		generator: generator,
		settings:  settings,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       logrus.StandardLogger(),
		metrics:   metrics.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartRound opens a round when content contains the trigger phrase.
func (s *QuizService) StartRound(ctx context.Context, req RoundRequest) (domain.Question, error) {
	log := s.log.WithField("topic_id", req.TopicID)
	if !strings.Contains(strings.ToLower(req.Content), strings.ToLower(s.settings.TriggerPhrase)) {
		log.Debug("not a quiz start post")
		return domain.Question{}, domain.ErrNotTriggered
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = s.settings.DefaultCategory
	}
	return s.openRound(ctx, req.TopicID, category)
}

// ChooseCategory lets the winner of the last round in a topic start the next
// one in the category named by their post.
func (s *QuizService) ChooseCategory(ctx context.Context, choice CategoryChoice) (domain.Question, error) {
	log := s.log.WithFields(logrus.Fields{"topic_id": choice.TopicID, "user": choice.Author})

	last, err := s.repo.LatestQuestion(ctx, choice.TopicID)
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound):
		log.Debug("no previous round in topic")
		return domain.Question{}, domain.ErrNotRoundWinner
	case err != nil:
		log.WithError(err).Error("load previous round failed")
		return domain.Question{}, err
	}
	if last.IsOpen() {
		return domain.Question{}, domain.ErrRoundInProgress
	}
	if !strings.EqualFold(last.Winner, choice.Author) {
		log.Debug("post is not from the last winner")
		return domain.Question{}, domain.ErrNotRoundWinner
	}

	category := matcher.PlainText(choice.Content)
	if category == "" {
		category = s.settings.DefaultCategory
	}
	return s.openRound(ctx, choice.TopicID, category)
}

func (s *QuizService) openRound(ctx context.Context, topicID int64, category string) (domain.Question, error) {
	log := s.log.WithFields(logrus.Fields{"topic_id": topicID, "category": category})

	q, err := s.createRound(ctx, topicID, category)
	if err != nil {
		s.metrics.RoundsStarted.WithLabelValues("failed").Inc()
		log.WithError(err).Error("round start failed")
		return q, err
	}
	s.metrics.RoundsStarted.WithLabelValues("ok").Inc()
	log.WithField("question_id", q.ID).Info("new round started")
	return q, nil
}

func (s *QuizService) createRound(ctx context.Context, topicID int64, category string) (domain.Question, error) {
	if _, err := s.repo.OpenQuestion(ctx, topicID); err == nil {
		return domain.Question{}, domain.ErrRoundInProgress
	} else if !errors.Is(err, domain.ErrNoActiveQuestion) {
		return domain.Question{}, err
	}

	draft, err := s.generator.GenerateQuestion(ctx, category)
	if err != nil {
		return domain.Question{}, fmt.Errorf("generate question: %w", err)
	}
	if err := draft.validate(); err != nil {
		return domain.Question{}, err
	}

	q := domain.Question{
		ID:            s.newID(),
		TopicID:       topicID,
		Text:          strings.TrimSpace(draft.Question),
		Answer:        strings.TrimSpace(draft.Answer),
		Variants:      nonBlank(draft.Variants),
		Hints:         nonBlank(draft.Hints),
		HintsRevealed: 1,
		Category:      category,
		Status:        domain.StatusOpen,
		CreatedAt:     s.now(),
	}

	markup, err := render.Render(render.HintCard{Hint: q.Hints[0]})
	if err != nil {
		return domain.Question{}, err
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, fmt.Errorf("persist question: %w", err)
	}
	if err := s.forum.PostReply(ctx, topicID, markup); err != nil {
		return q, fmt.Errorf("post opening hint: %w", err)
	}
	return q, nil
}

// SubmitGuess judges a post against the open question of its topic. A correct
// guess closes the round; a wrong one reveals the next hint, or earns a joke
// once hints have run out.
func (s *QuizService) SubmitGuess(ctx context.Context, req GuessRequest) (GuessOutcome, error) {
	log := s.log.WithFields(logrus.Fields{"topic_id": req.TopicID, "user": req.Author})

	outcome, err := s.submitGuess(ctx, req, log)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveQuestion) {
			log.Debug("no active question for post")
		} else {
			log.WithError(err).Error("guess handling failed")
		}
		return outcome, err
	}
	s.metrics.Guesses.WithLabelValues(string(outcome.Kind)).Inc()
	return outcome, nil
}

func (s *QuizService) submitGuess(ctx context.Context, req GuessRequest, log logrus.FieldLogger) (GuessOutcome, error) {
	q, err := s.repo.OpenQuestion(ctx, req.TopicID)
	if err != nil {
		return GuessOutcome{}, err
	}
	log = log.WithField("question_id", q.ID)

	guess := matcher.PlainText(req.Content)
	log.WithField("guess", guess).Debug("quiz answer attempt")

	if err := s.answers.AddAnswer(ctx, domain.Guess{
		QuestionID: q.ID,
		Username:   req.Author,
		RawText:    guess,
		ReceivedAt: s.now(),
	}); err != nil {
		log.WithError(err).Warn("record guess failed")
	}

	if matcher.IsCorrect(guess, q.Answer, q.Variants) {
		log.Info("correct answer")
		return s.handleCorrectAnswer(ctx, q, req.Author, guess)
	}

	if _, ok := q.NextHint(); ok {
		revealed, err := s.repo.RevealHint(ctx, q.ID)
		switch {
		case err == nil:
			q.HintsRevealed = revealed
			markup, err := render.Render(render.HintCard{Hint: q.Hints[revealed-1]})
			if err != nil {
				return GuessOutcome{}, err
			}
			if err := s.forum.PostReply(ctx, req.TopicID, markup); err != nil {
				return GuessOutcome{}, fmt.Errorf("post hint: %w", err)
			}
			return GuessOutcome{Kind: OutcomeHint, Question: q, Guess: guess}, nil
		case errors.Is(err, domain.ErrHintsExhausted):
			// a concurrent guess took the last hint
		default:
			return GuessOutcome{}, fmt.Errorf("reveal hint: %w", err)
		}
	}

	joke, err := s.generator.GenerateJoke(ctx, q.Category)
	if err != nil {
		return GuessOutcome{}, fmt.Errorf("generate joke: %w", err)
	}
	markup, err := render.Render(render.JokeConsolation{Joke: joke})
	if err != nil {
		return GuessOutcome{}, err
	}
	if err := s.forum.PostReply(ctx, req.TopicID, markup); err != nil {
		return GuessOutcome{}, fmt.Errorf("post joke: %w", err)
	}
	return GuessOutcome{Kind: OutcomeJoke, Question: q, Guess: guess}, nil
}

// handleCorrectAnswer closes the round before crediting, so a question can
// only ever pay out once.
func (s *QuizService) handleCorrectAnswer(ctx context.Context, q domain.Question, winner, guess string) (GuessOutcome, error) {
	now := s.now()
	if err := s.repo.MarkAnswered(ctx, q.ID, winner, now); err != nil {
		return GuessOutcome{}, fmt.Errorf("close round: %w", err)
	}
	q.Status = domain.StatusAnswered
	q.Winner = winner
	q.AnsweredAt = now

	points := s.settings.Scoring.Points(q)
	total, err := s.repo.CreditScore(ctx, winner, points, now)
	if err != nil {
		return GuessOutcome{}, fmt.Errorf("credit score: %w", err)
	}

	lb, err := s.Leaderboard(ctx)
	if err != nil {
		return GuessOutcome{}, err
	}
	for _, obs := range s.observers {
		obs.LeaderboardChanged(lb)
	}

	markup, err := render.Render(render.CorrectAnswerAnnouncement{
		Username:     winner,
		QuestionText: q.Text,
		Leaderboard:  lb.Entries,
	})
	if err != nil {
		return GuessOutcome{}, err
	}
	if err := s.forum.PostReply(ctx, q.TopicID, markup); err != nil {
		return GuessOutcome{}, fmt.Errorf("post announcement: %w", err)
	}
	return GuessOutcome{
		Kind:        OutcomeCorrect,
		Question:    q,
		Guess:       guess,
		Points:      points,
		TotalScore:  total,
		Leaderboard: lb,
	}, nil
}

// Leaderboard returns every score, best first.
func (s *QuizService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	scores, err := s.repo.ListScores(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list scores: %w", err)
	}
	return domain.NewLeaderboard(scores, s.now()), nil
}

// Answers lists the guesses recorded for a question.
func (s *QuizService) Answers(ctx context.Context, questionID string) ([]domain.Guess, error) {
	return s.answers.Answers(ctx, questionID)
}

func (d QuestionDraft) validate() error {
	if strings.TrimSpace(d.Answer) == "" {
		return fmt.Errorf("%w: missing answer", domain.ErrGeneration)
	}
	if strings.TrimSpace(d.Question) == "" {
		return fmt.Errorf("%w: missing question", domain.ErrGeneration)
	}
	if len(nonBlank(d.Hints)) == 0 {
		return fmt.Errorf("%w: no hints", domain.ErrGeneration)
	}
	return nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

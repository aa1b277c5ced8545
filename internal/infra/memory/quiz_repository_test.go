package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"forum-quiz-bot/internal/domain"
)

func TestQuizRepositoryOneOpenQuestionPerTopic(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()

	if err := repo.CreateQuestion(ctx, sampleQuestion("q1", 7)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateQuestion(ctx, sampleQuestion("q2", 7)); !errors.Is(err, domain.ErrRoundInProgress) {
		t.Fatalf("expected ErrRoundInProgress, got %v", err)
	}
	if err := repo.CreateQuestion(ctx, sampleQuestion("q3", 8)); err != nil {
		t.Fatalf("other topic should be free: %v", err)
	}

	open, err := repo.OpenQuestion(ctx, 7)
	if err != nil {
		t.Fatalf("open question: %v", err)
	}
	if open.ID != "q1" {
		t.Fatalf("expected q1 open, got %s", open.ID)
	}
}

func TestQuizRepositoryRevealHintIsBounded(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	if err := repo.CreateQuestion(ctx, sampleQuestion("q1", 7)); err != nil {
		t.Fatalf("create: %v", err)
	}

	for want := 2; want <= 3; want++ {
		got, err := repo.RevealHint(ctx, "q1")
		if err != nil {
			t.Fatalf("reveal %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected %d revealed, got %d", want, got)
		}
	}
	if _, err := repo.RevealHint(ctx, "q1"); !errors.Is(err, domain.ErrHintsExhausted) {
		t.Fatalf("expected ErrHintsExhausted, got %v", err)
	}
	if _, err := repo.RevealHint(ctx, "missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestQuizRepositoryMarkAnsweredIsTerminal(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.CreateQuestion(ctx, sampleQuestion("q1", 7)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.MarkAnswered(ctx, "q1", "alice", now); err != nil {
		t.Fatalf("mark answered: %v", err)
	}
	if err := repo.MarkAnswered(ctx, "q1", "bob", now); !errors.Is(err, domain.ErrQuestionClosed) {
		t.Fatalf("expected ErrQuestionClosed, got %v", err)
	}
	if _, err := repo.RevealHint(ctx, "q1"); !errors.Is(err, domain.ErrQuestionClosed) {
		t.Fatalf("expected ErrQuestionClosed on hint, got %v", err)
	}
	if _, err := repo.OpenQuestion(ctx, 7); !errors.Is(err, domain.ErrNoActiveQuestion) {
		t.Fatalf("expected no open question, got %v", err)
	}

	latest, err := repo.LatestQuestion(ctx, 7)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Winner != "alice" || latest.Status != domain.StatusAnswered {
		t.Fatalf("unexpected latest question: %+v", latest)
	}

	if err := repo.CreateQuestion(ctx, sampleQuestion("q2", 7)); err != nil {
		t.Fatalf("new round after answer: %v", err)
	}
}

func TestQuizRepositoryCreditScoreAndRanking(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mustCredit(t, repo, "bob", 1, t0)
	mustCredit(t, repo, "alice", 1, t0.Add(time.Minute))
	total := mustCredit(t, repo, "carol", 1, t0.Add(2*time.Minute))
	if total != 1 {
		t.Fatalf("expected total 1, got %d", total)
	}
	total = mustCredit(t, repo, "carol", 2, t0.Add(3*time.Minute))
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}

	scores, err := repo.ListScores(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{scores[0].UserName, scores[1].UserName, scores[2].UserName}
	want := []string{"carol", "bob", "alice"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository()
	ctx := context.Background()
	if err := repo.CreateQuestion(ctx, sampleQuestion("q1", 7)); err != nil {
		t.Fatalf("create: %v", err)
	}
	q, _ := repo.OpenQuestion(ctx, 7)
	q.Hints[0] = "mutated"

	again, _ := repo.Question(ctx, "q1")
	if again.Hints[0] == "mutated" {
		t.Fatalf("repository state leaked through returned question")
	}
}

func mustCredit(t *testing.T, repo *QuizRepository, user string, delta int, at time.Time) int {
	t.Helper()
	total, err := repo.CreditScore(context.Background(), user, delta, at)
	if err != nil {
		t.Fatalf("credit %s: %v", user, err)
	}
	return total
}

func sampleQuestion(id string, topic int64) domain.Question {
	return domain.Question{
		ID:            id,
		TopicID:       topic,
		Text:          "Who won WrestleMania III?",
		Answer:        "Hulk Hogan",
		Variants:      []string{"Hogan"},
		Hints:         []string{"Hulkamania", "Red and yellow", "Leg drop"},
		HintsRevealed: 1,
		Category:      "wrestling",
		Status:        domain.StatusOpen,
	}
}

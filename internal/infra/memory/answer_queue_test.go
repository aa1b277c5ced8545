package memory

import (
	"context"
	"testing"
	"time"

	"forum-quiz-bot/internal/domain"
)

func TestAnswerQueueKeepsOrderPerQuestion(t *testing.T) {
	q := NewAnswerQueue()
	ctx := context.Background()
	now := time.Now()

	for _, g := range []domain.Guess{
		{QuestionID: "q1", Username: "alice", RawText: "Flair", ReceivedAt: now},
		{QuestionID: "q2", Username: "bob", RawText: "Sting", ReceivedAt: now},
		{QuestionID: "q1", Username: "carol", RawText: "Hogan", ReceivedAt: now},
	} {
		if err := q.AddAnswer(ctx, g); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := q.Answers(ctx, "q1")
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(got) != 2 || got[0].Username != "alice" || got[1].Username != "carol" {
		t.Fatalf("unexpected answers: %+v", got)
	}
	if empty, _ := q.Answers(ctx, "none"); len(empty) != 0 {
		t.Fatalf("expected no answers, got %+v", empty)
	}
}

func TestSeenStoreMarksOnce(t *testing.T) {
	s := NewSeenStore(time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	first, _ := s.MarkSeen(context.Background(), "n1")
	second, _ := s.MarkSeen(context.Background(), "n1")
	if !first || second {
		t.Fatalf("expected first=true second=false, got %v %v", first, second)
	}

	now = now.Add(2 * time.Hour)
	again, _ := s.MarkSeen(context.Background(), "n1")
	if !again {
		t.Fatalf("expected id to be forgotten after retention window")
	}
}

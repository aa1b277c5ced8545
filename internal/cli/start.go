package cli

import (
	"context"
	"errors"
	"fmt"

	"forum-quiz-bot/internal/app"
	"github.com/spf13/cobra"
)

// NewStartCmd opens a quiz round in the configured topic.
func NewStartCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Post the opening question into the quiz topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startQuiz(cmd.Context(), *configPath)
		},
	}
}

// errNoDurableStore is returned by start when the round would only live in
// this process and vanish before run could see it.
var errNoDurableStore = errors.New("start needs postgres or redis configured: an in-memory round does not outlive the command")

func startQuiz(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Quiz.TopicID == 0 {
		return fmt.Errorf("quiz topic id not configured")
	}
	if cfg.Postgres.URL == "" && cfg.Redis.Addr == "" {
		return errNoDurableStore
	}
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	b, err := newBot(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	q, err := b.quiz.StartRound(ctx, app.RoundRequest{
		TopicID: cfg.Quiz.TopicID,
		Content: cfg.Quiz.TriggerPhrase,
	})
	if err != nil {
		return err
	}
	log.WithField("question_id", q.ID).Info("quiz started")
	return nil
}

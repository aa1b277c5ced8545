package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum-quiz-bot/internal/app"
	"forum-quiz-bot/internal/config"
	transport "forum-quiz-bot/internal/transport/http"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewRunCmd builds the long-running bot: notification poller plus ops server.
func NewRunCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll forum notifications and serve ops endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", os.Getenv("PORT"), "port for the ops server (overrides config)")
	return cmd
}

func runBot(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b, err := newBot(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	dispatcher := app.NewDispatcher(b.quiz, cfg.Forum.MemberID, log.WithField("component", "dispatcher"), b.metrics)
	poller := app.NewPoller(b.forum, b.seen, dispatcher,
		config.Duration(cfg.Forum.PollInterval, 10*time.Second),
		log.WithField("component", "poller"))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(b.board, b.feed, b.registry, log.WithField("component", "http")),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", finalPort).Info("starting ops server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"member_id":   cfg.Forum.MemberID,
			"member_name": cfg.Forum.MemberName,
		}).Info("polling forum notifications")
		return poller.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

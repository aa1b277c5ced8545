package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"forum-quiz-bot/internal/app"
	"forum-quiz-bot/internal/config"
	"forum-quiz-bot/internal/infra/apiclient"
	"forum-quiz-bot/internal/infra/forum"
	"forum-quiz-bot/internal/infra/memory"
	"forum-quiz-bot/internal/infra/postgres"
	infraredis "forum-quiz-bot/internal/infra/redis"
	"forum-quiz-bot/internal/infra/xai"
	"forum-quiz-bot/internal/logger"
	"forum-quiz-bot/internal/metrics"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// bot is the wired object graph shared by the start and run commands.
type bot struct {
	cfg      config.Config
	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	forum    *forum.Client
	quiz     *app.QuizService
	feed     *app.LeaderboardFeed
	board    *memory.LeaderboardCache
	seen     app.SeenStore
	closers  []func()
}

func (b *bot) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func loadConfig(path string) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err := cfg.Validate(); err != nil {
		return cfg, log, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, log, nil
}

func newBot(ctx context.Context, cfg config.Config, log *logrus.Logger) (*bot, error) {
	b := &bot{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	b.metrics = metrics.New(b.registry)

	api := apiclient.New(
		&http.Client{Timeout: 30 * time.Second},
		apiclient.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       config.Duration(cfg.Retry.Delay, apiclient.DefaultPolicy.Delay),
		},
		apiclient.WithLogger(log.WithField("component", "apiclient")),
		apiclient.WithMetrics(b.metrics),
	)

	b.forum = forum.NewClient(api, forum.Config{
		BaseURL:   cfg.Forum.BaseURL,
		APIKey:    cfg.Forum.APIKey,
		MemberID:  cfg.Forum.MemberID,
		UserAgent: cfg.Forum.UserAgent,
	}, log.WithField("component", "forum"))

	generator := xai.NewClient(api, xai.Config{
		URL:          cfg.LLM.URL,
		APIKey:       cfg.LLM.APIKey,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		SystemPrompt: cfg.LLM.SystemPrompt,
		HintCount:    cfg.Quiz.HintCount,
	}, log.WithField("component", "xai"))

	repo, answers, err := b.stores(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}

	scoring, err := app.NewScorePolicy(cfg.Quiz.Scoring, cfg.Quiz.Points)
	if err != nil {
		b.Close()
		return nil, err
	}

	b.feed = app.NewLeaderboardFeed()
	b.board = memory.NewLeaderboardCache(repo, config.Duration(cfg.Leaderboard.CacheTTL, 30*time.Second))

	b.quiz = app.NewQuizService(repo, answers, b.forum, generator,
		app.Settings{
			TriggerPhrase:   cfg.Quiz.TriggerPhrase,
			DefaultCategory: cfg.Quiz.DefaultCategory,
			Scoring:         scoring,
		},
		app.WithLogger(log.WithField("component", "quiz")),
		app.WithMetrics(b.metrics),
		app.WithObservers(b.board, b.feed),
	)
	return b, nil
}

// stores picks the most durable backend configured: Postgres, then Redis,
// then process memory. The notification seen-store lives in Redis whenever
// Redis is configured.
func (b *bot) stores(ctx context.Context) (app.QuizRepository, app.AnswerQueue, error) {
	cfg := b.cfg
	ttl := config.Duration(cfg.Redis.TTL, 24*time.Hour)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
		b.seen = infraredis.NewSeenStore(redisClient, ttl)
	} else {
		b.seen = memory.NewSeenStore(ttl)
	}

	switch {
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.log.Info("using postgres quiz store")
		return postgres.NewQuizRepository(pool), postgres.NewAnswerQueue(pool), nil
	case redisClient != nil:
		b.log.Info("using redis quiz store")
		return infraredis.NewQuizRepository(redisClient), infraredis.NewAnswerQueue(redisClient, ttl), nil
	default:
		b.log.Warn("no database configured, quiz state is kept in memory")
		return memory.NewQuizRepository(), memory.NewAnswerQueue(), nil
	}
}

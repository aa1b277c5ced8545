package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"forum-quiz-bot/internal/app"
	"forum-quiz-bot/internal/domain"
	"forum-quiz-bot/internal/infra/postgres"
	"forum-quiz-bot/internal/infra/postgres/migrations"
	infraredis "forum-quiz-bot/internal/infra/redis"
	"forum-quiz-bot/internal/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type stubGenerator struct{}

func (stubGenerator) GenerateQuestion(context.Context, string) (app.QuestionDraft, error) {
	return app.QuestionDraft{
		Question: "Who headlined WrestleMania III?",
		Answer:   "Hulk Hogan",
		Variants: []string{"Hogan"},
		Hints:    []string{"Hulkamania", "Leg drop"},
	}, nil
}

func (stubGenerator) GenerateJoke(context.Context, string) (string, error) {
	return "a joke", nil
}

type countingForum struct {
	mu    sync.Mutex
	posts int
}

func (f *countingForum) PostReply(context.Context, int64, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts++
	return nil
}

func TestRoundEndToEndOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewQuizRepository(pool)
	forum := &countingForum{}
	service := app.NewQuizService(repo, postgres.NewAnswerQueue(pool), forum, stubGenerator{},
		app.Settings{TriggerPhrase: "start quiz", DefaultCategory: "wrestling"},
		app.WithLogger(logger.Discard()))

	q, err := service.StartRound(ctx, app.RoundRequest{TopicID: 7, Content: "start quiz"})
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := repo.CreateQuestion(ctx, domain.Question{
		ID: "dup", TopicID: 7, Text: "x", Answer: "y", Hints: []string{"z"},
		HintsRevealed: 1, Category: "c", Status: domain.StatusOpen, CreatedAt: time.Now(),
	}); !errors.Is(err, domain.ErrRoundInProgress) {
		t.Fatalf("expected unique index to reject second open round, got %v", err)
	}

	out, err := service.SubmitGuess(ctx, app.GuessRequest{TopicID: 7, Author: "bob", Content: "Sting"})
	if err != nil || out.Kind != app.OutcomeHint {
		t.Fatalf("expected hint, got %v %v", out.Kind, err)
	}
	out, err = service.SubmitGuess(ctx, app.GuessRequest{TopicID: 7, Author: "bob", Content: "Flair"})
	if err != nil || out.Kind != app.OutcomeJoke {
		t.Fatalf("expected joke, got %v %v", out.Kind, err)
	}
	out, err = service.SubmitGuess(ctx, app.GuessRequest{TopicID: 7, Author: "alice", Content: "HOGAN"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if out.Kind != app.OutcomeCorrect || out.TotalScore != 1 {
		t.Fatalf("expected correct answer with 1 point, got %+v", out)
	}

	stored, err := repo.Question(ctx, q.ID)
	if err != nil {
		t.Fatalf("load question: %v", err)
	}
	if stored.Status != domain.StatusAnswered || stored.Winner != "alice" || stored.HintsRevealed != 2 {
		t.Fatalf("unexpected stored question: %+v", stored)
	}

	guesses, err := service.Answers(ctx, q.ID)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(guesses) != 3 {
		t.Fatalf("expected 3 recorded guesses, got %d", len(guesses))
	}
	if forum.posts != 4 {
		t.Fatalf("expected 4 posts (hint, hint, joke, announcement), got %d", forum.posts)
	}
}

func TestRoundEndToEndOnRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	repo := infraredis.NewQuizRepository(client)
	service := app.NewQuizService(repo, infraredis.NewAnswerQueue(client, time.Hour), &countingForum{}, stubGenerator{},
		app.Settings{TriggerPhrase: "start quiz", DefaultCategory: "wrestling"},
		app.WithLogger(logger.Discard()))

	if _, err := service.StartRound(ctx, app.RoundRequest{TopicID: 9, Content: "start quiz"}); err != nil {
		t.Fatalf("start round: %v", err)
	}
	out, err := service.SubmitGuess(ctx, app.GuessRequest{TopicID: 9, Author: "bob", Content: "Hulk Hogan"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(out.Leaderboard.Entries) != 1 || out.Leaderboard.Entries[0].UserName != "bob" {
		t.Fatalf("expected bob leading, got %+v", out.Leaderboard.Entries)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	var db *bun.DB
	// postgres may accept TCP before it accepts logins
	for i := 0; ; i++ {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
		if err := db.PingContext(ctx); err == nil {
			break
		} else if i == 20 {
			t.Fatalf("postgres not ready: %v", err)
		}
		_ = db.Close()
		time.Sleep(500 * time.Millisecond)
	}
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

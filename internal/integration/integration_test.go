package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/app"
	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/Tarasyah/TriviaQuiz/internal/infra/memory"
	pghistory "github.com/Tarasyah/TriviaQuiz/internal/infra/postgres"
	pgmigrations "github.com/Tarasyah/TriviaQuiz/internal/infra/postgres/migrations"
	infraredis "github.com/Tarasyah/TriviaQuiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	runMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		pghistory.NewHistoryRepository(pool),
		infraredis.NewCachedQuestionSource(redisClient, memory.NewStaticQuestionSource(sampleQuestions()), 5*time.Minute),
	)

	// Play a full quiz as alice with state living in Redis.
	if _, err := service.StartQuiz(ctx, "s1", 2, 0); err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "s1", 1, "Mars"); err != nil {
		t.Fatalf("answer 1: %v", err)
	}
	if _, _, err := service.Advance(ctx, "s1"); err != nil {
		t.Fatalf("advance 1: %v", err)
	}
	if _, err := service.SubmitAnswer(ctx, "s1", 2, "1991"); err != nil {
		t.Fatalf("answer 2: %v", err)
	}
	if _, completed, err := service.Advance(ctx, "s1"); err != nil || !completed {
		t.Fatalf("expected completed quiz, completed=%v err=%v", completed, err)
	}

	alice := domain.Identity{UserID: "alice"}
	outcome, err := service.Finish(ctx, "s1", alice)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !outcome.Saved || outcome.Scorecard.Correct != 1 || outcome.Scorecard.Incorrect != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	// Finishing again must find no session: the blob is gone from Redis.
	if _, err := service.Finish(ctx, "s1", alice); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on refinish, got %v", err)
	}

	// The result landed in Postgres, scoped to alice.
	entries, err := service.History(ctx, alice, domain.HistoryOrderDesc)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 1 || entries[0].Total != 2 {
		t.Fatalf("unexpected history: %+v", entries)
	}

	bob := domain.Identity{UserID: "bob"}
	if others, _ := service.History(ctx, bob, domain.HistoryOrderDesc); len(others) != 0 {
		t.Fatalf("expected empty history for bob, got %+v", others)
	}
	if err := service.RemoveHistory(ctx, bob, entries[0].ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for bob, got %v", err)
	}
	if err := service.RemoveHistory(ctx, alice, entries[0].ID); err != nil {
		t.Fatalf("remove history: %v", err)
	}
	if err := service.RemoveHistory(ctx, alice, entries[0].ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func runMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
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
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
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

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Category:         "Science",
			Difficulty:       domain.DifficultyEasy,
			Text:             "What planet is known as the Red Planet?",
			CorrectAnswer:    "Mars",
			IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"},
		},
		{
			Category:         "History",
			Difficulty:       domain.DifficultyMedium,
			Text:             "In which year did the Berlin Wall fall?",
			CorrectAnswer:    "1989",
			IncorrectAnswers: []string{"1987", "1991", "1993"},
		},
	}
}

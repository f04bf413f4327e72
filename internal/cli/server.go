package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/app"
	"github.com/Tarasyah/TriviaQuiz/internal/config"
	"github.com/Tarasyah/TriviaQuiz/internal/identity"
	"github.com/Tarasyah/TriviaQuiz/internal/infra/memory"
	"github.com/Tarasyah/TriviaQuiz/internal/infra/opentdb"
	pghistory "github.com/Tarasyah/TriviaQuiz/internal/infra/postgres"
	redisinfra "github.com/Tarasyah/TriviaQuiz/internal/infra/redis"
	transport "github.com/Tarasyah/TriviaQuiz/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	sessionTTL := config.Duration(cfg.Redis.TTL, 30*time.Minute)

	triviaTimeout := config.Duration(cfg.Trivia.Timeout, 10*time.Second)
	cacheTTL := config.Duration(cfg.Trivia.CacheTTL, 5*time.Minute)
	client := opentdb.NewClient(&http.Client{Timeout: triviaTimeout}, cfg.Trivia.URL)

	var source app.QuestionSource
	if redisClient != nil {
		source = redisinfra.NewCachedQuestionSource(redisClient, client, cacheTTL)
	} else {
		source = memory.NewCachedQuestionSource(client, cacheTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var history app.HistoryRepository = memory.NewHistoryRepository()
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		history = pghistory.NewHistoryRepository(pool)
	}

	service := app.NewQuizService(sessions, history, source)
	verifier := identity.NewHMACVerifier(cfg.Auth.Secret)
	autoAdvance := config.Duration(cfg.Quiz.AutoAdvance, 2*time.Second)
	api := transport.NewAPI(service, verifier, cfg.Trivia.Amount, autoAdvance)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/auth"
	"trivia-game-service/internal/config"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/infra/postgres"
	redisinfra "trivia-game-service/internal/infra/redis"
	transport "trivia-game-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia game server",
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

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var store app.GameStore
	var facilitators auth.FacilitatorStore
	var memStore *memory.Store
	if pool != nil {
		pgStore := postgres.NewStore(pool)
		store = pgStore
		facilitators = pgStore
	} else {
		memStore = memory.NewStore()
		store = memStore
		facilitators = memStore
	}

	if redisClient != nil {
		store = redisinfra.NewCachedStore(store, redisClient, quizTTL)
	} else {
		store = memory.NewCachedStore(store, quizTTL)
	}

	var liveStore app.LiveStore
	if redisClient != nil {
		liveStore = redisinfra.NewLiveStore(redisClient, redisTTL)
	} else {
		liveStore = memory.NewLiveStore()
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = os.Getenv("AUTH_SECRET")
	}
	if secret == "" {
		// Tokens issued with a generated secret do not survive a restart.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		secret = hex.EncodeToString(buf)
		log.Printf("auth secret not configured; using a generated one")
	}
	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL)
	authService := auth.NewService(facilitators, secret, tokenTTL)

	if memStore != nil {
		if err := seedSampleGame(ctx, memStore, authService); err != nil {
			return err
		}
	}

	revealDelay := config.TTLDuration(cfg.Game.RevealDelay, app.DefaultRevealDelay)
	hub := transport.NewHub()
	coordinator := app.NewCoordinator(store, liveStore, app.NewOwnershipAuthorizer(store), hub, revealDelay)
	wsHandler := transport.NewWSHandler(coordinator, hub)
	apiHandler := transport.NewAPIHandler(coordinator, authService, store)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Routes(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia game service on :%s", finalPort)
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

// seedSampleGame loads a demo facilitator and quiz into the in-memory store
// so the service is playable without Postgres. Quiz authoring proper lives in
// the admin tooling.
func seedSampleGame(ctx context.Context, store *memory.Store, authService *auth.Service) error {
	facilitator, err := authService.Register(ctx, "demo", "demo1234")
	if err != nil {
		return err
	}

	quiz := store.AddQuiz(domain.Quiz{
		Name:          "General Knowledge Demo",
		FacilitatorID: facilitator.ID,
		NumTeams:      2,
		NumRounds:     2,
		EasyCount:     1,
		MediumCount:   1,
		HardCount:     1,
		InsaneCount:   1,
	})

	questions := []domain.Question{
		{
			Text: "Which planet is known as the Red Planet?", Type: domain.QuestionMultipleChoice,
			Difficulty: domain.DifficultyEasy, TimeLimit: 30,
			OptionA: "Venus", OptionB: "Mars", OptionC: "Jupiter", OptionD: "Saturn",
			CorrectAnswer: "B",
		},
		{
			Text: "The chemical symbol Fe stands for which element?", Type: domain.QuestionMultipleChoice,
			Difficulty: domain.DifficultyMedium, TimeLimit: 30,
			OptionA: "Fluorine", OptionB: "Fermium", OptionC: "Iron", OptionD: "Francium",
			CorrectAnswer: "C",
		},
		{
			Text: "Name the strait separating Asia from North America.", Type: domain.QuestionFillInBlank,
			Difficulty: domain.DifficultyHard, TimeLimit: 45,
			CorrectAnswer: "Bering Strait",
		},
		{
			Text: "Your team is stranded on Mars with limited supplies. Outline a survival plan.", Type: domain.QuestionOpenScenario,
			Difficulty: domain.DifficultyInsane, TimeLimit: 120,
			ModelAnswer: "Prioritize oxygen and water recovery, ration food, establish communication.",
		},
	}
	for _, q := range questions {
		q.QuizID = quiz.ID
		store.AddQuestion(q)
	}

	log.Printf("seeded demo quiz %d for facilitator %q (password demo1234)", quiz.ID, facilitator.Username)
	return nil
}

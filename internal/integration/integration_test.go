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

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/auth"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/postgres"
	pgmigrations "trivia-game-service/internal/infra/postgres/migrations"
	infraredis "trivia-game-service/internal/infra/redis"
)

type captureHub struct {
	mu     sync.Mutex
	events []domain.Event
}

func (h *captureHub) Broadcast(sessionID int64, ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *captureHub) SendToTeam(sessionID, teamID int64, ev domain.Event) { h.Broadcast(sessionID, ev) }
func (h *captureHub) SendToFacilitators(sessionID int64, ev domain.Event) { h.Broadcast(sessionID, ev) }

// waitForCount blocks until the hub has seen n events of the kind.
func (h *captureHub) waitForCount(t *testing.T, kind domain.EventKind, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		seen := 0
		h.mu.Lock()
		for _, ev := range h.events {
			if ev.Type == kind {
				seen++
			}
		}
		h.mu.Unlock()
		if seen >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %s events", n, kind)
}

func TestGameFlowEndToEnd(t *testing.T) {
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

	pgStore := postgres.NewStore(pool)
	store := infraredis.NewCachedStore(pgStore, redisClient, 5*time.Minute)
	liveStore := infraredis.NewLiveStore(redisClient, 5*time.Minute)
	authService := auth.NewService(pgStore, "integration-secret", time.Hour)
	hub := &captureHub{}
	coordinator := app.NewCoordinator(store, liveStore, app.NewOwnershipAuthorizer(store), hub, 10*time.Millisecond)

	// Facilitator account and quiz content.
	facilitator, err := authService.Register(ctx, "host", "host-pw-123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, err := authService.Login(ctx, "host", "host-pw-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	facilitatorID, err := authService.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if facilitatorID != facilitator.ID {
		t.Fatalf("token names facilitator %d, want %d", facilitatorID, facilitator.ID)
	}

	quiz, err := pgStore.CreateQuiz(ctx, domain.Quiz{
		Name:          "Integration Quiz",
		FacilitatorID: facilitator.ID,
		NumTeams:      2, NumRounds: 2,
		EasyCount: 1, MediumCount: 1, HardCount: 1, InsaneCount: 1,
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	for _, d := range domain.Difficulties {
		if _, err := pgStore.CreateQuestion(ctx, domain.Question{
			QuizID: quiz.ID, Text: "Pick B", Type: domain.QuestionMultipleChoice,
			Difficulty: d, TimeLimit: 30,
			OptionA: "Wrong", OptionB: "Right", CorrectAnswer: "B",
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	// Full game: launch, join, start, four turns, end.
	session, err := coordinator.Launch(ctx, facilitatorID, quiz.ID)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if session.Status != domain.StatusWaiting || len(session.RoomCode) != 6 {
		t.Fatalf("unexpected session %+v", session)
	}

	teamA, err := coordinator.Join(ctx, session.RoomCode, "Red")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := coordinator.Join(ctx, session.RoomCode, "Blue"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := coordinator.Start(ctx, facilitatorID, session.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	for turn := 0; turn < 4; turn++ {
		served, err := coordinator.Serve(ctx, facilitatorID, session.ID)
		if err != nil {
			t.Fatalf("serve turn %d: %v", turn, err)
		}
		coordinator.DiceRolled(session.ID, []byte(`{"dice_value":3}`))
		hub.waitForCount(t, domain.EventQuestionServed, turn+1, 2*time.Second)

		answerID, err := coordinator.SubmitAnswer(ctx, session.ID, served.CurrentTeam.ID, served.Question.ID, "b")
		if err != nil {
			t.Fatalf("submit turn %d: %v", turn, err)
		}
		if err := coordinator.Grade(ctx, facilitatorID, session.ID, answerID, true, served.Question.Points()); err != nil {
			t.Fatalf("grade turn %d: %v", turn, err)
		}
	}

	if _, err := coordinator.Serve(ctx, facilitatorID, session.ID); !errors.Is(err, domain.ErrNoMoreQuestions) {
		t.Fatalf("expected ErrNoMoreQuestions, got %v", err)
	}

	standings, err := coordinator.Standings(ctx, session.ID)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(standings) != 2 || standings[0].Score+standings[1].Score != 10 {
		t.Fatalf("expected 10 total points across 2 teams, got %+v", standings)
	}
	if standings[0].Score == standings[1].Score && standings[0].ID != teamA.ID {
		t.Fatalf("tie must rank the earlier join first, got %+v", standings)
	}

	if err := coordinator.End(ctx, facilitatorID, session.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	ended, err := pgStore.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if ended.Status != domain.StatusCompleted || ended.CompletedAt == nil {
		t.Fatalf("expected completed session, got %+v", ended)
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

package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
)

type countingStore struct {
	app.GameStore
	quizReads     int64
	questionReads int64
}

func (c *countingStore) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	atomic.AddInt64(&c.quizReads, 1)
	return c.GameStore.GetQuiz(ctx, quizID)
}

func (c *countingStore) GetQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	atomic.AddInt64(&c.questionReads, 1)
	return c.GameStore.GetQuestionsByQuiz(ctx, quizID)
}

func newCacheFixture(t *testing.T) (*miniredis.Miniredis, *countingStore, *CachedStore, domain.Quiz) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	base := memory.NewStore()
	quiz := base.AddQuiz(domain.Quiz{Name: "Redis Cached", NumTeams: 2, NumRounds: 2})
	base.AddQuestion(domain.Question{
		QuizID: quiz.ID, Text: "Pick B", Type: domain.QuestionMultipleChoice,
		Difficulty: domain.DifficultyEasy, CorrectAnswer: "B",
	})

	counting := &countingStore{GameStore: base}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	cached := NewCachedStore(counting, client, time.Minute)
	return mr, counting, cached, quiz
}

func TestCachedStoreFillsRedisKeys(t *testing.T) {
	ctx := context.Background()
	mr, counting, cached, quiz := newCacheFixture(t)

	if _, err := cached.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if _, err := cached.GetQuestionsByQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get questions: %v", err)
	}

	if !mr.Exists("quiz:1:meta") || !mr.Exists("quiz:1:questions") {
		t.Fatalf("expected cache keys to be set")
	}

	// Repeat reads come from redis, not the backing store.
	for i := 0; i < 3; i++ {
		if _, err := cached.GetQuiz(ctx, quiz.ID); err != nil {
			t.Fatalf("get quiz: %v", err)
		}
		if _, err := cached.GetQuestionsByQuiz(ctx, quiz.ID); err != nil {
			t.Fatalf("get questions: %v", err)
		}
	}
	if n := atomic.LoadInt64(&counting.quizReads); n != 1 {
		t.Fatalf("expected 1 backing quiz read, got %d", n)
	}
	if n := atomic.LoadInt64(&counting.questionReads); n != 1 {
		t.Fatalf("expected 1 backing question read, got %d", n)
	}
}

func TestCachedStorePreservesAnswerKey(t *testing.T) {
	// domain.Question drops the answer key from its JSON form; the cache
	// entry must carry it anyway or auto-grading breaks after a cache hit.
	ctx := context.Background()
	_, _, cached, quiz := newCacheFixture(t)

	if _, err := cached.GetQuestionsByQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	questions, err := cached.GetQuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("cached read: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectAnswer != "B" {
		t.Fatalf("answer key lost in cache round-trip: %+v", questions)
	}
}

func TestCachedStoreZeroTTLUsesDefault(t *testing.T) {
	// A zero TTL selects DefaultQuizTTL; passing 0 through to SET would mean
	// never-expire, the opposite of what zero means to the in-memory cache.
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	base := memory.NewStore()
	quiz := base.AddQuiz(domain.Quiz{Name: "Defaulted"})
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	cached := NewCachedStore(&countingStore{GameStore: base}, client, 0)

	if _, err := cached.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if ttl := mr.TTL("quiz:1:meta"); ttl <= 0 {
		t.Fatalf("expected an expiring cache key, got ttl %v", ttl)
	}
}

func TestCachedStoreSurvivesRedisFlush(t *testing.T) {
	ctx := context.Background()
	mr, counting, cached, quiz := newCacheFixture(t)

	if _, err := cached.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	mr.FlushAll()
	if _, err := cached.GetQuiz(ctx, quiz.ID); err != nil {
		t.Fatalf("get quiz after flush: %v", err)
	}
	if n := atomic.LoadInt64(&counting.quizReads); n != 2 {
		t.Fatalf("expected refill after flush, got %d reads", n)
	}
}

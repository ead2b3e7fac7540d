package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
)

// CachedStore caches immutable quiz content in Redis and falls back to the
// wrapped store on a miss. Content is stored as:
//
//	SET quiz:{quizID}:meta      {quiz JSON}
//	SET quiz:{quizID}:questions {questions JSON}
//
// Lazy engine rebuilds and back-to-back serves hit these keys instead of the
// database. Mutating operations pass straight through.
type CachedStore struct {
	app.GameStore
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

// DefaultQuizTTL bounds how long cached quiz content is served without a
// backing-store read when the caller does not pick a TTL.
const DefaultQuizTTL = 10 * time.Minute

// NewCachedStore wraps store with a Redis-backed cache. A ttl of zero or less
// selects DefaultQuizTTL rather than Redis's never-expire meaning of zero, so
// both cache implementations read a zero the same way.
func NewCachedStore(store app.GameStore, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultQuizTTL
	}
	return &CachedStore{
		GameStore: store,
		client:    client,
		ttl:       ttl,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedStore) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	key := c.metaKey(quizID)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var quiz domain.Quiz
		if json.Unmarshal(raw, &quiz) == nil {
			return quiz, nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var quiz domain.Quiz
			if json.Unmarshal(raw, &quiz) == nil {
				return quiz, nil
			}
		}

		quiz, err := c.GameStore.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if raw, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *CachedStore) GetQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	key := c.questionsKey(quizID)
	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var questions []cachedQuestion
		if json.Unmarshal(raw, &questions) == nil {
			return restoreQuestions(questions), nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var questions []cachedQuestion
			if json.Unmarshal(raw, &questions) == nil {
				return restoreQuestions(questions), nil
			}
		}

		questions, err := c.GameStore.GetQuestionsByQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(cacheQuestions(questions)); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// cachedQuestion carries the answer key, which domain.Question deliberately
// omits from its JSON form.
type cachedQuestion struct {
	domain.Question
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

func cacheQuestions(questions []domain.Question) []cachedQuestion {
	out := make([]cachedQuestion, len(questions))
	for i, q := range questions {
		out[i] = cachedQuestion{Question: q, CorrectAnswer: q.CorrectAnswer}
	}
	return out
}

func restoreQuestions(cached []cachedQuestion) []domain.Question {
	out := make([]domain.Question, len(cached))
	for i, cq := range cached {
		q := cq.Question
		q.CorrectAnswer = cq.CorrectAnswer
		out[i] = q
	}
	return out
}

func (c *CachedStore) metaKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":meta"
}

func (c *CachedStore) questionsKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":questions"
}

func (c *CachedStore) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

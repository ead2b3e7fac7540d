package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"trivia-game-service/internal/domain"
)

// Engine holds one session's allocation and consumption cursor. It is not
// safe for concurrent use; the coordinator serializes access per session.
type Engine struct {
	quizID     int64
	numTeams   int
	numRounds  int
	allocation []Assignment
	cursor     int
}

// Served is one consumed allocation entry.
type Served struct {
	TeamIndex int
	Question  domain.Question
	Round     int
}

// NewEngine builds a fresh allocation for a game. Each call reshuffles the
// difficulty buckets, so a rebuilt engine serves questions in a new order.
func NewEngine(quiz domain.Quiz, questions []domain.Question) *Engine {
	return NewEngineWithRand(quiz, questions, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewEngineWithRand allows deterministic shuffles in tests.
func NewEngineWithRand(quiz domain.Quiz, questions []domain.Question, rng *rand.Rand) *Engine {
	return &Engine{
		quizID:     quiz.ID,
		numTeams:   quiz.NumTeams,
		numRounds:  quiz.NumRounds,
		allocation: Allocate(quiz.NumTeams, quiz.NumRounds, questions, rng),
	}
}

// Next consumes the next allocation entry. The cursor only moves forward,
// one entry per call. Returns ErrNoMoreQuestions once the allocation is
// exhausted; the caller decides whether that means the game is over.
func (e *Engine) Next() (Served, error) {
	if e.cursor >= len(e.allocation) {
		return Served{}, domain.ErrNoMoreQuestions
	}
	a := e.allocation[e.cursor]
	round := e.cursor/e.numTeams + 1
	e.cursor++
	return Served{TeamIndex: a.TeamIndex, Question: a.Question, Round: round}, nil
}

// Remaining reports how many allocation entries are left to serve.
func (e *Engine) Remaining() int {
	return len(e.allocation) - e.cursor
}

// RollDice returns a uniform roll of a single six-sided die. Used when a
// client asks the server to roll instead of rolling in the browser.
func RollDice(rng *rand.Rand) int {
	return rng.Intn(6) + 1
}

// CheckAnswer auto-grades a multiple-choice submission: trimmed,
// case-insensitive match on the option letter.
func CheckAnswer(q domain.Question, submitted string) bool {
	if q.CorrectAnswer == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(q.CorrectAnswer))
}

// ValidateSupply checks that the actual question counts cover the quiz's
// configured per-difficulty minimums and the teams*rounds total. All
// shortfalls are reported in one error.
func ValidateSupply(quiz domain.Quiz, counts map[domain.Difficulty]int) error {
	needed := quiz.NumTeams * quiz.NumRounds
	total := 0
	for _, d := range domain.Difficulties {
		total += counts[d]
	}

	var problems []string
	if total < needed {
		problems = append(problems, fmt.Sprintf("total questions %d/%d (need %d more)", total, needed, needed-total))
	}
	for _, d := range domain.Difficulties {
		want := quiz.ConfiguredCount(d)
		if counts[d] < want {
			problems = append(problems, fmt.Sprintf("%s questions %d/%d (need %d more)", d, counts[d], want, want-counts[d]))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("quiz validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

package game

import (
	"math/rand"

	"trivia-game-service/internal/domain"
)

// Assignment pairs a team index with the question pre-allocated to it.
type Assignment struct {
	TeamIndex int
	Question  domain.Question
}

// Allocate pre-assigns questions to teams for an entire game.
//
// The pool is split into difficulty buckets and each bucket is shuffled
// independently, so repeated runs vary content but not structure. Teams are
// then walked round-robin (round-major, team-minor); each pick goes to the
// non-empty bucket the team has drawn from least so far, ties resolved in
// easy, medium, hard, insane order. Allocation ends short if every bucket
// drains before the grid is full; callers validate supply up front.
//
// The caller's slice is never mutated; buckets are private copies.
func Allocate(teamCount, roundCount int, pool []domain.Question, rng *rand.Rand) []Assignment {
	buckets := make(map[domain.Difficulty][]domain.Question, len(domain.Difficulties))
	for _, q := range pool {
		buckets[q.Difficulty] = append(buckets[q.Difficulty], q)
	}
	for _, d := range domain.Difficulties {
		b := buckets[d]
		rng.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	}

	drawn := make([]map[domain.Difficulty]int, teamCount)
	for i := range drawn {
		drawn[i] = make(map[domain.Difficulty]int, len(domain.Difficulties))
	}

	allocation := make([]Assignment, 0, teamCount*roundCount)
	for round := 0; round < roundCount; round++ {
		for team := 0; team < teamCount; team++ {
			pick, ok := lowestBucket(drawn[team], buckets)
			if !ok {
				return allocation
			}
			allocation = append(allocation, Assignment{TeamIndex: team, Question: buckets[pick][0]})
			buckets[pick] = buckets[pick][1:]
			drawn[team][pick]++
		}
	}
	return allocation
}

// lowestBucket picks the non-empty difficulty this team has seen least,
// fixed priority order breaking ties.
func lowestBucket(drawn map[domain.Difficulty]int, buckets map[domain.Difficulty][]domain.Question) (domain.Difficulty, bool) {
	var best domain.Difficulty
	found := false
	for _, d := range domain.Difficulties {
		if len(buckets[d]) == 0 {
			continue
		}
		if !found || drawn[d] < drawn[best] {
			best = d
			found = true
		}
	}
	return best, found
}

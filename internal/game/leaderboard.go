package game

import (
	"sort"

	"trivia-game-service/internal/domain"
)

// Rank orders teams into standings: position descending, then score
// descending, then join order ascending. Join order is unique per session,
// so the ordering is a strict total order. Pure; safe for concurrent readers.
func Rank(teams []domain.Team) []domain.Standing {
	standings := make([]domain.Standing, 0, len(teams))
	for _, t := range teams {
		standings = append(standings, domain.Standing{
			ID:        t.ID,
			Name:      t.Name,
			Position:  t.Position,
			Score:     t.Score,
			JoinOrder: t.JoinOrder,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Position != standings[j].Position {
			return standings[i].Position > standings[j].Position
		}
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].JoinOrder < standings[j].JoinOrder
	})

	return standings
}

package app

import (
	"context"

	"trivia-game-service/internal/domain"
)

// OwnershipAuthorizer grants privileged actions to the facilitator who owns
// the quiz, per the persisted ownership column.
type OwnershipAuthorizer struct {
	store GameStore
}

func NewOwnershipAuthorizer(store GameStore) *OwnershipAuthorizer {
	return &OwnershipAuthorizer{store: store}
}

func (a *OwnershipAuthorizer) OwnsQuiz(ctx context.Context, facilitatorID, quizID int64) error {
	quiz, err := a.store.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if quiz.FacilitatorID != facilitatorID {
		return domain.ErrNotAuthorized
	}
	return nil
}

package memory

import (
	"context"
	"errors"
	"testing"

	"trivia-game-service/internal/domain"
)

func TestTeamsSortedByJoinOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	session, err := store.CreateSession(ctx, 1, "ABC123")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Insert out of order on purpose.
	for _, join := range []struct {
		name  string
		order int
	}{{"Third", 3}, {"First", 1}, {"Second", 2}} {
		if _, err := store.CreateTeam(ctx, session.ID, join.name, join.order); err != nil {
			t.Fatalf("create team: %v", err)
		}
	}

	teams, err := store.GetTeamsBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get teams: %v", err)
	}
	for i, want := range []string{"First", "Second", "Third"} {
		if teams[i].Name != want {
			t.Fatalf("index %d: expected %s, got %s", i, want, teams[i].Name)
		}
	}
}

func TestUpdateTeamScoreMovesScoreAndPosition(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	session, _ := store.CreateSession(ctx, 1, "ABC123")
	team, err := store.CreateTeam(ctx, session.ID, "Red", 1)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	if err := store.UpdateTeamScore(ctx, team.ID, 3); err != nil {
		t.Fatalf("update score: %v", err)
	}
	if err := store.UpdateTeamScore(ctx, team.ID, 2); err != nil {
		t.Fatalf("update score: %v", err)
	}

	teams, _ := store.GetTeamsBySession(ctx, session.ID)
	if teams[0].Score != 5 || teams[0].Position != 5 {
		t.Fatalf("expected score and position 5, got %+v", teams[0])
	}

	if err := store.UpdateTeamScore(ctx, 999, 1); !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}

func TestRoomCodeLookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	created, err := store.CreateSession(ctx, 1, "XYZ789")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	session, err := store.GetSessionByRoomCode(ctx, "XYZ789")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if session.ID != created.ID {
		t.Fatalf("expected session %d, got %d", created.ID, session.ID)
	}

	if _, err := store.GetSessionByRoomCode(ctx, "NOPE00"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStatusTimestamps(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	session, _ := store.CreateSession(ctx, 1, "ABC123")

	if err := store.UpdateSessionStatus(ctx, session.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("start: %v", err)
	}
	updated, _ := store.GetSession(ctx, session.ID)
	if updated.StartedAt == nil || updated.CompletedAt != nil {
		t.Fatalf("expected started_at only, got %+v", updated)
	}

	if err := store.UpdateSessionStatus(ctx, session.ID, domain.StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	updated, _ = store.GetSession(ctx, session.ID)
	if updated.CompletedAt == nil {
		t.Fatalf("expected completed_at, got %+v", updated)
	}
}

func TestQuestionCountsByDifficulty(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	quiz := store.AddQuiz(domain.Quiz{Name: "Counts"})
	for i := 0; i < 3; i++ {
		store.AddQuestion(domain.Question{QuizID: quiz.ID, Difficulty: domain.DifficultyEasy})
	}
	store.AddQuestion(domain.Question{QuizID: quiz.ID, Difficulty: domain.DifficultyInsane})
	store.AddQuestion(domain.Question{QuizID: quiz.ID + 1, Difficulty: domain.DifficultyEasy})

	counts, err := store.QuestionCountsByDifficulty(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[domain.DifficultyEasy] != 3 || counts[domain.DifficultyInsane] != 1 || counts[domain.DifficultyMedium] != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestGradeAnswerPersistsDecision(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	answer, err := store.CreateAnswer(ctx, domain.Answer{SessionID: 1, TeamID: 2, QuestionID: 3, Submitted: "B"})
	if err != nil {
		t.Fatalf("create answer: %v", err)
	}
	if answer.SubmittedAt.IsZero() {
		t.Fatalf("expected submission timestamp")
	}

	graded, err := store.GradeAnswer(ctx, answer.ID, true, 3)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if graded.IsCorrect == nil || !*graded.IsCorrect || graded.PointsAwarded != 3 || graded.GradedAt == nil {
		t.Fatalf("grade not persisted: %+v", graded)
	}

	if _, err := store.GradeAnswer(ctx, 999, false, 0); !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("expected ErrAnswerNotFound, got %v", err)
	}
}

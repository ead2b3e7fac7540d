package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned for unknown session IDs or room codes.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrTeamNotFound indicates a team ID does not belong to the session.
	ErrTeamNotFound = errors.New("team not found in session")
	// ErrAnswerNotFound indicates a grading request references an unknown answer.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrFacilitatorNotFound indicates an unknown facilitator account.
	ErrFacilitatorNotFound = errors.New("facilitator not found")

	// ErrGameAlreadyStarted rejects joins and starts once the session left waiting.
	ErrGameAlreadyStarted = errors.New("game has already started")
	// ErrGameNotInProgress rejects gameplay actions outside in_progress.
	ErrGameNotInProgress = errors.New("game is not in progress")
	// ErrSessionFull rejects joins beyond the configured team count.
	ErrSessionFull = errors.New("game is full")
	// ErrTeamNameTaken rejects duplicate team names within a session.
	ErrTeamNameTaken = errors.New("team name already taken")
	// ErrNotEnoughTeams rejects a start before every seat is filled.
	ErrNotEnoughTeams = errors.New("not enough teams to start")

	// ErrNoMoreQuestions is the terminal allocation-exhausted condition; the
	// caller decides whether it implies game completion.
	ErrNoMoreQuestions = errors.New("no more questions available")

	// ErrNotAuthorized rejects privileged actions on quizzes the actor does not own.
	ErrNotAuthorized = errors.New("not authorized for this quiz")
	// ErrInvalidCredentials rejects logins with a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken rejects duplicate facilitator registrations.
	ErrUsernameTaken = errors.New("username already registered")
)

package domain

import "encoding/json"

// EventKind tags every message fanned out to game connections.
type EventKind string

const (
	EventTeamJoined             EventKind = "team_joined"
	EventGameStarted            EventKind = "game_started"
	EventQuestionReadyForDice   EventKind = "question_ready_for_dice"
	EventDiceRolled             EventKind = "dice_rolled"
	EventQuestionServed         EventKind = "question_served"
	EventAnswerSubmitted        EventKind = "answer_submitted"
	EventAnswerSubmittedDetails EventKind = "answer_submitted_details"
	EventAnswerGraded           EventKind = "answer_graded"
	EventLeaderboardUpdate      EventKind = "leaderboard_update"
	EventGameEnded              EventKind = "game_ended"
	EventPong                   EventKind = "pong"
	EventError                  EventKind = "error"
)

// Event is the tagged envelope delivered over websocket connections.
type Event struct {
	Type EventKind `json:"type"`
	Data any       `json:"data"`
}

// TeamRef identifies the team a broadcast concerns.
type TeamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TeamJoinedData announces a new team to everyone in the session.
type TeamJoinedData struct {
	SessionID int64  `json:"session_id"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Score     int    `json:"score"`
	JoinOrder int    `json:"join_order"`
}

// QuestionReadyData tells clients which team must roll the dice.
type QuestionReadyData struct {
	TeamName string `json:"team_name"`
}

// QuestionServedData reveals the in-flight question after the dice delay.
// The model answer rides along for the facilitator's grading view.
type QuestionServedData struct {
	Question    Question `json:"question"`
	CurrentTeam TeamRef  `json:"current_team"`
	RoundNumber int      `json:"round_number"`
}

// AnswerSubmittedData is the session-wide notice that stops client timers.
type AnswerSubmittedData struct {
	TeamID   int64  `json:"team_id"`
	TeamName string `json:"team_name"`
}

// AnswerGradedData publishes a grading decision.
type AnswerGradedData struct {
	TeamID        int64  `json:"team_id"`
	TeamName      string `json:"team_name"`
	IsCorrect     bool   `json:"is_correct"`
	PointsAwarded int    `json:"points_awarded"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
}

// LeaderboardData carries the full standings after every grade.
type LeaderboardData struct {
	Leaderboard []Standing `json:"leaderboard"`
}

// GameEndedData closes the session with the winning standing.
type GameEndedData struct {
	Winner *Standing `json:"winner,omitempty"`
}

// RawData passes a client-originated payload through unchanged, e.g. the
// dice value rolled in the browser.
type RawData = json.RawMessage

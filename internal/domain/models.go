package domain

import "time"

// Difficulty buckets a question for allocation and scoring.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyInsane Difficulty = "insane"
)

// Difficulties lists all buckets in allocation tie-break order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyInsane}

// Points returns the fixed base score for the difficulty.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyHard, DifficultyInsane:
		return 3
	default:
		return 2
	}
}

// QuestionType distinguishes auto-gradable questions from facilitator-graded ones.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillInBlank    QuestionType = "fill_in_blank"
	QuestionOpenScenario   QuestionType = "open_scenario"
)

// Question is immutable quiz content owned by a Quiz.
type Question struct {
	ID         int64        `json:"id"`
	QuizID     int64        `json:"quiz_id"`
	Text       string       `json:"question_text"`
	Type       QuestionType `json:"question_type"`
	Difficulty Difficulty   `json:"difficulty"`
	TimeLimit  int          `json:"time_limit"` // seconds

	// Multiple-choice answer key.
	OptionA       string `json:"option_a,omitempty"`
	OptionB       string `json:"option_b,omitempty"`
	OptionC       string `json:"option_c,omitempty"`
	OptionD       string `json:"option_d,omitempty"`
	CorrectAnswer string `json:"-"` // option letter, never sent to clients

	// Free-text model answer for the other types.
	ModelAnswer string `json:"model_answer,omitempty"`
}

// Points returns the base score awarded for answering this question correctly.
func (q Question) Points() int {
	return q.Difficulty.Points()
}

// OptionText resolves an option letter to its text, empty if unknown.
func (q Question) OptionText(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}

// Quiz configures a game: team/round counts and the minimum question
// supply per difficulty that a launch must satisfy.
type Quiz struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FacilitatorID int64  `json:"facilitator_id"`
	NumTeams      int    `json:"num_teams"`
	NumRounds     int    `json:"num_rounds"`

	EasyCount   int `json:"easy_questions_count"`
	MediumCount int `json:"medium_questions_count"`
	HardCount   int `json:"hard_questions_count"`
	InsaneCount int `json:"insane_questions_count"`
}

// ConfiguredCount returns the configured minimum supply for a difficulty.
func (q Quiz) ConfiguredCount(d Difficulty) int {
	switch d {
	case DifficultyEasy:
		return q.EasyCount
	case DifficultyMedium:
		return q.MediumCount
	case DifficultyHard:
		return q.HardCount
	case DifficultyInsane:
		return q.InsaneCount
	}
	return 0
}

// SessionStatus is the linear session lifecycle.
type SessionStatus string

const (
	StatusWaiting    SessionStatus = "waiting"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// Session is one live play-through of a quiz, joined via room code.
type Session struct {
	ID          int64         `json:"id"`
	QuizID      int64         `json:"quiz_id"`
	RoomCode    string        `json:"room_code"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// Team accumulates score and board position; join order fixes turn order.
type Team struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Name      string `json:"team_name"`
	Position  int    `json:"position"`
	Score     int    `json:"score"`
	JoinOrder int    `json:"join_order"`
}

// Standing is one leaderboard row.
type Standing struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Score     int    `json:"score"`
	JoinOrder int    `json:"join_order"`
}

// Answer is the persisted record of a team's submission and its grade.
type Answer struct {
	ID            int64      `json:"id"`
	SessionID     int64      `json:"session_id"`
	TeamID        int64      `json:"team_id"`
	QuestionID    int64      `json:"question_id"`
	Submitted     string     `json:"submitted_answer"`
	IsCorrect     *bool      `json:"is_correct,omitempty"`
	PointsAwarded int        `json:"points_awarded"`
	RoundNumber   int        `json:"round_number"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	GradedAt      *time.Time `json:"graded_at,omitempty"`
}

// PendingAnswer is a submitted-but-ungraded answer held in live state until
// the facilitator grades it. The auto_* fields carry the synchronous
// multiple-choice check as a hint; scoring only happens on explicit grading.
type PendingAnswer struct {
	AnswerID      int64        `json:"answer_id"`
	TeamID        int64        `json:"team_id"`
	TeamName      string       `json:"team_name"`
	QuestionID    int64        `json:"question_id"`
	QuestionType  QuestionType `json:"question_type"`
	Submitted     string       `json:"submitted_answer"`
	AutoGraded    bool         `json:"auto_graded"`
	AutoCorrect   bool         `json:"auto_is_correct"`
	AutoPoints    int          `json:"auto_points"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
}

// Facilitator owns quizzes and drives game sessions.
type Facilitator struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

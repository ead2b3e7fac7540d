package app

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	mrand "math/rand"
	"strings"
	"time"

	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/game"
)

// GameStore is the persistence collaborator. Every operation is single-row
// atomic; the coordinator never assumes cross-row transactions.
type GameStore interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	GetQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)
	GetQuestion(ctx context.Context, questionID int64) (domain.Question, error)
	QuestionCountsByDifficulty(ctx context.Context, quizID int64) (map[domain.Difficulty]int, error)

	CreateSession(ctx context.Context, quizID int64, roomCode string) (domain.Session, error)
	GetSession(ctx context.Context, sessionID int64) (domain.Session, error)
	GetSessionByRoomCode(ctx context.Context, roomCode string) (domain.Session, error)
	UpdateSessionStatus(ctx context.Context, sessionID int64, status domain.SessionStatus) error

	CreateTeam(ctx context.Context, sessionID int64, name string, joinOrder int) (domain.Team, error)
	GetTeamsBySession(ctx context.Context, sessionID int64) ([]domain.Team, error)
	UpdateTeamScore(ctx context.Context, teamID int64, delta int) error

	CreateAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	GetAnswer(ctx context.Context, answerID int64) (domain.Answer, error)
	GradeAnswer(ctx context.Context, answerID int64, correct bool, points int) (domain.Answer, error)
}

// Authorizer is the capability check consulted before privileged actions.
type Authorizer interface {
	OwnsQuiz(ctx context.Context, facilitatorID, quizID int64) error
}

// Broadcaster delivers events to a session's connections. Delivery is
// best-effort and must not block the caller beyond enqueueing.
type Broadcaster interface {
	Broadcast(sessionID int64, event domain.Event)
	SendToTeam(sessionID, teamID int64, event domain.Event)
	SendToFacilitators(sessionID int64, event domain.Event)
}

// LiveStore tracks the live in-memory state per session.
type LiveStore interface {
	GetOrCreate(sessionID int64) *Live
	Get(sessionID int64) (*Live, bool)
	Delete(sessionID int64)
}

// DefaultRevealDelay separates the dice-rolled broadcast from the question
// reveal so the roll animation is visible before the question appears.
const DefaultRevealDelay = 3 * time.Second

// Coordinator composes the allocator, engine, ranker, and registry into the
// game's externally triggered actions. It is the sole writer of live state.
type Coordinator struct {
	store       GameStore
	live        LiveStore
	authz       Authorizer
	hub         Broadcaster
	revealDelay time.Duration
}

// NewCoordinator wires the coordinator. A revealDelay of zero selects
// DefaultRevealDelay; tests pass a small positive value.
func NewCoordinator(store GameStore, live LiveStore, authz Authorizer, hub Broadcaster, revealDelay time.Duration) *Coordinator {
	if revealDelay <= 0 {
		revealDelay = DefaultRevealDelay
	}
	return &Coordinator{store: store, live: live, authz: authz, hub: hub, revealDelay: revealDelay}
}

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newRoomCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("room code: %w", err)
	}
	for i := range buf {
		buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(buf), nil
}

// Launch validates question supply and creates a waiting session with a
// fresh room code.
func (c *Coordinator) Launch(ctx context.Context, facilitatorID, quizID int64) (domain.Session, error) {
	quiz, err := c.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := c.authz.OwnsQuiz(ctx, facilitatorID, quiz.ID); err != nil {
		return domain.Session{}, err
	}

	counts, err := c.store.QuestionCountsByDifficulty(ctx, quizID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := game.ValidateSupply(quiz, counts); err != nil {
		return domain.Session{}, err
	}

	// Room codes are short; retry on the rare collision.
	for attempt := 0; attempt < 10; attempt++ {
		code, err := newRoomCode()
		if err != nil {
			return domain.Session{}, err
		}
		if _, err := c.store.GetSessionByRoomCode(ctx, code); err == nil {
			continue
		}
		return c.store.CreateSession(ctx, quizID, code)
	}
	return domain.Session{}, fmt.Errorf("could not find a free room code")
}

// Join registers a team by room code while the session is still waiting.
// Names are unique per session, case-insensitive; capacity is the quiz's
// configured team count. The check-and-create runs under the session's live
// mutex so concurrent joins cannot both pass the capacity or name checks.
func (c *Coordinator) Join(ctx context.Context, roomCode, teamName string) (domain.Team, error) {
	session, err := c.store.GetSessionByRoomCode(ctx, roomCode)
	if err != nil {
		return domain.Team{}, err
	}

	live := c.live.GetOrCreate(session.ID)
	team, err := c.admitTeam(ctx, live, session.ID, teamName)
	if err != nil {
		return domain.Team{}, err
	}

	c.hub.Broadcast(session.ID, domain.Event{Type: domain.EventTeamJoined, Data: domain.TeamJoinedData{
		SessionID: session.ID,
		ID:        team.ID,
		Name:      team.Name,
		Position:  team.Position,
		Score:     team.Score,
		JoinOrder: team.JoinOrder,
	}})
	return team, nil
}

// admitTeam holds the session's live mutex across the status, capacity, and
// name checks and the insert, so two racing joins cannot both pass the checks
// against the same roster snapshot. The session is re-read under the lock to
// close the window against a concurrent Start.
func (c *Coordinator) admitTeam(ctx context.Context, live *Live, sessionID int64, teamName string) (domain.Team, error) {
	live.mu.Lock()
	defer live.mu.Unlock()

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Team{}, err
	}
	if session.Status != domain.StatusWaiting {
		return domain.Team{}, domain.ErrGameAlreadyStarted
	}

	quiz, err := c.store.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.Team{}, err
	}
	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return domain.Team{}, err
	}
	if len(teams) >= quiz.NumTeams {
		return domain.Team{}, domain.ErrSessionFull
	}
	for _, t := range teams {
		if strings.EqualFold(t.Name, teamName) {
			return domain.Team{}, domain.ErrTeamNameTaken
		}
	}

	return c.store.CreateTeam(ctx, sessionID, teamName, len(teams)+1)
}

// Start moves a waiting session to in_progress. Every configured seat must
// be filled, not merely a minimum. A fresh allocation is materialized and
// the cursor reset by building a new engine.
func (c *Coordinator) Start(ctx context.Context, facilitatorID, sessionID int64) error {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	quiz, err := c.store.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}
	if err := c.authz.OwnsQuiz(ctx, facilitatorID, quiz.ID); err != nil {
		return err
	}

	live := c.live.GetOrCreate(sessionID)
	if err := c.activate(ctx, live, quiz, sessionID); err != nil {
		return err
	}

	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventGameStarted, Data: struct{}{}})
	return nil
}

// activate performs the waiting-to-in_progress transition under the session's
// live mutex, serializing against concurrent joins and a duplicate Start. The
// status is re-read under the lock; only the first caller sees waiting.
func (c *Coordinator) activate(ctx context.Context, live *Live, quiz domain.Quiz, sessionID int64) error {
	live.mu.Lock()
	defer live.mu.Unlock()

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != domain.StatusWaiting {
		return domain.ErrGameAlreadyStarted
	}

	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(teams) != quiz.NumTeams {
		return fmt.Errorf("%w: have %d of %d teams", domain.ErrNotEnoughTeams, len(teams), quiz.NumTeams)
	}

	questions, err := c.store.GetQuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		return err
	}
	if err := c.store.UpdateSessionStatus(ctx, sessionID, domain.StatusInProgress); err != nil {
		return err
	}

	live.engine = game.NewEngine(quiz, questions)
	live.clearSlotLocked()
	live.pending = nil
	return nil
}

// ServedQuestion is Serve's synchronous result, mirroring what will be
// broadcast once the dice roll comes in.
type ServedQuestion struct {
	Question    domain.Question `json:"question"`
	CurrentTeam domain.TeamRef  `json:"current_team"`
	RoundNumber int             `json:"round_number"`
}

// Serve consumes the next allocation entry and parks it in the slot awaiting
// a dice roll. Returns ErrNoMoreQuestions once the allocation is exhausted.
func (c *Coordinator) Serve(ctx context.Context, facilitatorID, sessionID int64) (ServedQuestion, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return ServedQuestion{}, err
	}
	if err := c.authz.OwnsQuiz(ctx, facilitatorID, session.QuizID); err != nil {
		return ServedQuestion{}, err
	}
	if session.Status != domain.StatusInProgress {
		return ServedQuestion{}, domain.ErrGameNotInProgress
	}

	live, err := c.liveFor(ctx, session)
	if err != nil {
		return ServedQuestion{}, err
	}
	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return ServedQuestion{}, err
	}

	live.mu.Lock()
	served, err := live.engine.Next()
	if err != nil {
		live.mu.Unlock()
		return ServedQuestion{}, err
	}
	if served.TeamIndex >= len(teams) {
		live.mu.Unlock()
		return ServedQuestion{}, fmt.Errorf("allocation refers to team index %d but session has %d teams", served.TeamIndex, len(teams))
	}
	team := teams[served.TeamIndex]
	ref := domain.TeamRef{ID: team.ID, Name: team.Name}
	live.fillSlotLocked(served.Question, ref, served.Round)
	live.mu.Unlock()

	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventQuestionReadyForDice, Data: domain.QuestionReadyData{TeamName: team.Name}})

	return ServedQuestion{Question: served.Question, CurrentTeam: ref, RoundNumber: served.Round}, nil
}

// DiceRolled handles the client-originated roll: the roll is broadcast
// immediately and the question reveal is scheduled after the grace delay so
// every client sees the roll strictly before the question. A reveal whose
// slot was superseded in the meantime is suppressed. An empty payload means
// the client wants the server to roll for it.
func (c *Coordinator) DiceRolled(sessionID int64, roll json.RawMessage) {
	if len(roll) == 0 || string(roll) == "null" || string(roll) == "{}" {
		value := game.RollDice(mrand.New(mrand.NewSource(time.Now().UnixNano())))
		roll, _ = json.Marshal(map[string]int{"dice_value": value})
	}
	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventDiceRolled, Data: domain.RawData(roll)})

	live, ok := c.live.Get(sessionID)
	if !ok {
		return
	}

	live.mu.Lock()
	if live.slot.Phase != SlotAwaitingDice {
		live.mu.Unlock()
		return
	}
	generation := live.slot.generation
	live.teardown()
	live.reveal = time.AfterFunc(c.revealDelay, func() {
		c.reveal(sessionID, generation)
	})
	live.mu.Unlock()
}

// reveal promotes the slot to active and broadcasts the question, unless the
// slot moved on since the timer was scheduled.
func (c *Coordinator) reveal(sessionID int64, generation uint64) {
	live, ok := c.live.Get(sessionID)
	if !ok {
		return
	}

	live.mu.Lock()
	if live.slot.Phase != SlotAwaitingDice || live.slot.generation != generation {
		live.mu.Unlock()
		return
	}
	live.slot.Phase = SlotActive
	data := domain.QuestionServedData{
		Question:    live.slot.Question,
		CurrentTeam: live.slot.Team,
		RoundNumber: live.slot.Round,
	}
	live.mu.Unlock()

	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventQuestionServed, Data: data})
}

// SubmitAnswer persists a submission and holds it for grading. Accepted
// whenever the session is in_progress, independent of the slot sub-state.
// Multiple-choice answers are auto-checked synchronously as a grading hint;
// the team's score is untouched until an explicit grade.
func (c *Coordinator) SubmitAnswer(ctx context.Context, sessionID, teamID, questionID int64, submitted string) (int64, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status != domain.StatusInProgress {
		return 0, domain.ErrGameNotInProgress
	}

	question, err := c.store.GetQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	var team *domain.Team
	for i := range teams {
		if teams[i].ID == teamID {
			team = &teams[i]
			break
		}
	}
	if team == nil {
		return 0, domain.ErrTeamNotFound
	}

	live, ok := c.live.Get(sessionID)
	round := 0
	if ok {
		live.mu.Lock()
		if live.slot.Phase != SlotIdle {
			round = live.slot.Round
		}
		live.mu.Unlock()
	}

	answer, err := c.store.CreateAnswer(ctx, domain.Answer{
		SessionID:   sessionID,
		TeamID:      teamID,
		QuestionID:  questionID,
		Submitted:   submitted,
		RoundNumber: round,
	})
	if err != nil {
		return 0, err
	}

	pending := domain.PendingAnswer{
		AnswerID:     answer.ID,
		TeamID:       teamID,
		TeamName:     team.Name,
		QuestionID:   questionID,
		QuestionType: question.Type,
		Submitted:    submitted,
	}
	if question.Type == domain.QuestionMultipleChoice {
		pending.AutoGraded = true
		pending.AutoCorrect = game.CheckAnswer(question, submitted)
		if pending.AutoCorrect {
			pending.AutoPoints = question.Points()
		}
		if question.CorrectAnswer != "" {
			pending.CorrectAnswer = question.CorrectAnswer + ": " + question.OptionText(question.CorrectAnswer)
		}
	}

	if ok {
		live.mu.Lock()
		duplicate := false
		for _, p := range live.pending {
			if p.AnswerID == pending.AnswerID {
				duplicate = true
				break
			}
		}
		if !duplicate {
			live.pending = append(live.pending, pending)
		}
		live.mu.Unlock()
	}

	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventAnswerSubmitted, Data: domain.AnswerSubmittedData{
		TeamID:   teamID,
		TeamName: team.Name,
	}})
	c.hub.SendToFacilitators(sessionID, domain.Event{Type: domain.EventAnswerSubmittedDetails, Data: pending})

	return answer.ID, nil
}

// Grade applies a facilitator's decision: the persisted answer is marked,
// points go to the team's score and position only when correct, and clearing
// the last pending answer returns the slot to idle.
func (c *Coordinator) Grade(ctx context.Context, facilitatorID, sessionID, answerID int64, correct bool, points int) error {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := c.authz.OwnsQuiz(ctx, facilitatorID, session.QuizID); err != nil {
		return err
	}

	// The answer must belong to this session; the facilitator's authority
	// does not extend to answers submitted elsewhere.
	answer, err := c.store.GetAnswer(ctx, answerID)
	if err != nil {
		return err
	}
	if answer.SessionID != sessionID {
		return domain.ErrAnswerNotFound
	}

	answer, err = c.store.GradeAnswer(ctx, answerID, correct, points)
	if err != nil {
		return err
	}
	if correct {
		if err := c.store.UpdateTeamScore(ctx, answer.TeamID, points); err != nil {
			return err
		}
	}

	question, err := c.store.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		log.Printf("grade: load question %d: %v", answer.QuestionID, err)
	}
	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	teamName := ""
	for _, t := range teams {
		if t.ID == answer.TeamID {
			teamName = t.Name
			break
		}
	}

	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventAnswerGraded, Data: domain.AnswerGradedData{
		TeamID:        answer.TeamID,
		TeamName:      teamName,
		IsCorrect:     correct,
		PointsAwarded: points,
		CorrectAnswer: question.ModelAnswer,
	}})
	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventLeaderboardUpdate, Data: domain.LeaderboardData{Leaderboard: game.Rank(teams)}})

	if live, ok := c.live.Get(sessionID); ok {
		live.mu.Lock()
		kept := live.pending[:0]
		for _, p := range live.pending {
			if p.AnswerID != answerID {
				kept = append(kept, p)
			}
		}
		live.pending = kept
		if len(live.pending) == 0 && live.slot.Phase == SlotActive {
			live.clearSlotLocked()
		}
		live.mu.Unlock()
	}
	return nil
}

// GameState is the reconnect resync payload: everything a client needs to
// catch up with no gaps.
type GameState struct {
	Session         domain.Session         `json:"session"`
	Teams           []domain.Team          `json:"teams"`
	Leaderboard     []domain.Standing      `json:"leaderboard"`
	CurrentQuestion *domain.Question       `json:"current_question,omitempty"`
	CurrentTeam     *domain.TeamRef        `json:"current_team,omitempty"`
	RoundNumber     int                    `json:"round_number"`
	WaitingForDice  bool                   `json:"waiting_for_dice"`
	PendingAnswers  []domain.PendingAnswer `json:"pending_answers"`
}

// State reports the current session state. Read-only: calling it twice with
// no intervening action returns identical content.
func (c *Coordinator) State(ctx context.Context, sessionID int64) (GameState, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return GameState{}, err
	}
	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return GameState{}, err
	}

	state := GameState{
		Session:        session,
		Teams:          teams,
		Leaderboard:    []domain.Standing{},
		RoundNumber:    1,
		PendingAnswers: []domain.PendingAnswer{},
	}

	live, ok := c.live.Get(sessionID)
	if !ok {
		return state, nil
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	if live.engine != nil {
		state.Leaderboard = game.Rank(teams)
	}
	if live.slot.Phase != SlotIdle {
		q := live.slot.Question
		t := live.slot.Team
		state.CurrentQuestion = &q
		state.CurrentTeam = &t
		state.RoundNumber = live.slot.Round
		state.WaitingForDice = live.slot.Phase == SlotAwaitingDice
	}
	state.PendingAnswers = append(state.PendingAnswers, live.pending...)
	return state, nil
}

// Standings ranks the session's teams; used for explicit leaderboard requests.
func (c *Coordinator) Standings(ctx context.Context, sessionID int64) ([]domain.Standing, error) {
	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return game.Rank(teams), nil
}

// End marks the session completed, announces the winner, and tears down the
// live state, cancelling any scheduled reveal.
func (c *Coordinator) End(ctx context.Context, facilitatorID, sessionID int64) error {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := c.authz.OwnsQuiz(ctx, facilitatorID, session.QuizID); err != nil {
		return err
	}
	if err := c.store.UpdateSessionStatus(ctx, sessionID, domain.StatusCompleted); err != nil {
		return err
	}

	teams, err := c.store.GetTeamsBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	data := domain.GameEndedData{}
	if standings := game.Rank(teams); len(standings) > 0 {
		data.Winner = &standings[0]
	}
	c.hub.Broadcast(sessionID, domain.Event{Type: domain.EventGameEnded, Data: data})

	if live, ok := c.live.Get(sessionID); ok {
		live.mu.Lock()
		live.teardown()
		live.mu.Unlock()
	}
	c.live.Delete(sessionID)
	return nil
}

// liveFor returns the session's live state, lazily rebuilding the engine
// from persisted quiz data after a restart. The rebuilt allocation is a new
// shuffle: status, scores, and teams survive a restart, question order does not.
func (c *Coordinator) liveFor(ctx context.Context, session domain.Session) (*Live, error) {
	live := c.live.GetOrCreate(session.ID)

	live.mu.Lock()
	defer live.mu.Unlock()
	if live.engine != nil {
		return live, nil
	}

	quiz, err := c.store.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	questions, err := c.store.GetQuestionsByQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrQuestionNotFound
	}
	log.Printf("rebuilding live state for session %d; question order reshuffled", session.ID)
	live.engine = game.NewEngine(quiz, questions)
	return live, nil
}

package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"trivia-game-service/internal/domain"
)

// Store is an in-memory implementation of the persistence collaborator,
// used by tests and as the no-postgres fallback in the server command.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	clock  func() time.Time

	facilitators map[int64]domain.Facilitator
	byUsername   map[string]int64
	quizzes      map[int64]domain.Quiz
	questions    map[int64]domain.Question
	sessions     map[int64]domain.Session
	byRoomCode   map[string]int64
	teams        map[int64]domain.Team
	answers      map[int64]domain.Answer
}

func NewStore() *Store {
	return &Store{
		clock:        time.Now,
		facilitators: make(map[int64]domain.Facilitator),
		byUsername:   make(map[string]int64),
		quizzes:      make(map[int64]domain.Quiz),
		questions:    make(map[int64]domain.Question),
		sessions:     make(map[int64]domain.Session),
		byRoomCode:   make(map[string]int64),
		teams:        make(map[int64]domain.Team),
		answers:      make(map[int64]domain.Answer),
	}
}

func (s *Store) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// AddQuiz seeds quiz content; IDs are assigned if zero.
func (s *Store) AddQuiz(quiz domain.Quiz) domain.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz.ID == 0 {
		quiz.ID = s.nextIDLocked()
	}
	s.quizzes[quiz.ID] = quiz
	return quiz
}

// AddQuestion seeds a question under its quiz.
func (s *Store) AddQuestion(q domain.Question) domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == 0 {
		q.ID = s.nextIDLocked()
	}
	s.questions[q.ID] = q
	return q
}

func (s *Store) GetQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) GetQuestionsByQuiz(_ context.Context, quizID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var questions []domain.Question
	for _, q := range s.questions {
		if q.QuizID == quizID {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (s *Store) GetQuestion(_ context.Context, questionID int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) QuestionCountsByDifficulty(_ context.Context, quizID int64) (map[domain.Difficulty]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[domain.Difficulty]int, len(domain.Difficulties))
	for _, q := range s.questions {
		if q.QuizID == quizID {
			counts[q.Difficulty]++
		}
	}
	return counts, nil
}

func (s *Store) CreateSession(_ context.Context, quizID int64, roomCode string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := domain.Session{
		ID:        s.nextIDLocked(),
		QuizID:    quizID,
		RoomCode:  roomCode,
		Status:    domain.StatusWaiting,
		CreatedAt: s.clock(),
	}
	s.sessions[session.ID] = session
	s.byRoomCode[roomCode] = session.ID
	return session, nil
}

func (s *Store) GetSession(_ context.Context, sessionID int64) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) GetSessionByRoomCode(_ context.Context, roomCode string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRoomCode[roomCode]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s.sessions[id], nil
}

func (s *Store) UpdateSessionStatus(_ context.Context, sessionID int64, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	now := s.clock()
	session.Status = status
	switch status {
	case domain.StatusInProgress:
		session.StartedAt = &now
	case domain.StatusCompleted:
		session.CompletedAt = &now
	}
	s.sessions[sessionID] = session
	return nil
}

func (s *Store) CreateTeam(_ context.Context, sessionID int64, name string, joinOrder int) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domain.Team{}, domain.ErrSessionNotFound
	}
	team := domain.Team{
		ID:        s.nextIDLocked(),
		SessionID: sessionID,
		Name:      name,
		JoinOrder: joinOrder,
	}
	s.teams[team.ID] = team
	return team, nil
}

func (s *Store) GetTeamsBySession(_ context.Context, sessionID int64) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var teams []domain.Team
	for _, t := range s.teams {
		if t.SessionID == sessionID {
			teams = append(teams, t)
		}
	}
	// Join order assigns allocator indexing; callers rely on it.
	for i := 1; i < len(teams); i++ {
		for j := i; j > 0 && teams[j-1].JoinOrder > teams[j].JoinOrder; j-- {
			teams[j-1], teams[j] = teams[j], teams[j-1]
		}
	}
	return teams, nil
}

func (s *Store) UpdateTeamScore(_ context.Context, teamID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[teamID]
	if !ok {
		return domain.ErrTeamNotFound
	}
	team.Score += delta
	team.Position += delta
	s.teams[teamID] = team
	return nil
}

func (s *Store) CreateAnswer(_ context.Context, answer domain.Answer) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer.ID = s.nextIDLocked()
	answer.SubmittedAt = s.clock()
	s.answers[answer.ID] = answer
	return answer, nil
}

func (s *Store) GetAnswer(_ context.Context, answerID int64) (domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	answer, ok := s.answers[answerID]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	return answer, nil
}

func (s *Store) GradeAnswer(_ context.Context, answerID int64, correct bool, points int) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answer, ok := s.answers[answerID]
	if !ok {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	now := s.clock()
	answer.IsCorrect = &correct
	answer.PointsAwarded = points
	answer.GradedAt = &now
	s.answers[answerID] = answer
	return answer, nil
}

func (s *Store) CreateFacilitator(_ context.Context, username, passwordHash string) (domain.Facilitator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUsername[strings.ToLower(username)]; ok {
		return domain.Facilitator{}, domain.ErrUsernameTaken
	}
	facilitator := domain.Facilitator{
		ID:           s.nextIDLocked(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.clock(),
	}
	s.facilitators[facilitator.ID] = facilitator
	s.byUsername[strings.ToLower(username)] = facilitator.ID
	return facilitator, nil
}

func (s *Store) GetFacilitatorByUsername(_ context.Context, username string) (domain.Facilitator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return domain.Facilitator{}, domain.ErrFacilitatorNotFound
	}
	return s.facilitators[id], nil
}

func (s *Store) GetFacilitator(_ context.Context, id int64) (domain.Facilitator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facilitator, ok := s.facilitators[id]
	if !ok {
		return domain.Facilitator{}, domain.ErrFacilitatorNotFound
	}
	return facilitator, nil
}

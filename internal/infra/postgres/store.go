package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-game-service/internal/domain"
)

// Store is the Postgres persistence collaborator. Every method is a
// single-row operation; no cross-row transactions are assumed.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const questionColumns = `id, quiz_id, question_text, question_type, difficulty, time_limit,
	option_a, option_b, option_c, option_d, correct_answer, model_answer`

func (s *Store) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, facilitator_id, num_teams, num_rounds,
		       easy_questions_count, medium_questions_count, hard_questions_count, insane_questions_count
		FROM quizzes WHERE id=$1`, quizID).
		Scan(&quiz.ID, &quiz.Name, &quiz.FacilitatorID, &quiz.NumTeams, &quiz.NumRounds,
			&quiz.EasyCount, &quiz.MediumCount, &quiz.HardCount, &quiz.InsaneCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE quiz_id=$1 ORDER BY id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) GetQuestion(ctx context.Context, questionID int64) (domain.Question, error) {
	q, err := scanQuestion(s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, questionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &q.Difficulty, &q.TimeLimit,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &q.CorrectAnswer, &q.ModelAnswer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	return q, nil
}

func (s *Store) QuestionCountsByDifficulty(ctx context.Context, quizID int64) (map[domain.Difficulty]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT difficulty, COUNT(*) FROM questions WHERE quiz_id=$1 GROUP BY difficulty`, quizID)
	if err != nil {
		return nil, fmt.Errorf("question counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Difficulty]int, len(domain.Difficulties))
	for rows.Next() {
		var d domain.Difficulty
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[d] = n
	}
	return counts, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, quizID int64, roomCode string) (domain.Session, error) {
	var session domain.Session
	err := s.pool.QueryRow(ctx, `
		INSERT INTO game_sessions (quiz_id, room_code) VALUES ($1, $2)
		RETURNING id, quiz_id, room_code, status, created_at`, quizID, roomCode).
		Scan(&session.ID, &session.QuizID, &session.RoomCode, &session.Status, &session.CreatedAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

const sessionColumns = `id, quiz_id, room_code, status, created_at, started_at, completed_at`

func (s *Store) GetSession(ctx context.Context, sessionID int64) (domain.Session, error) {
	return s.getSession(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id=$1`, sessionID)
}

func (s *Store) GetSessionByRoomCode(ctx context.Context, roomCode string) (domain.Session, error) {
	return s.getSession(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE room_code=$1`, roomCode)
}

func (s *Store) getSession(ctx context.Context, query string, arg interface{}) (domain.Session, error) {
	var session domain.Session
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&session.ID, &session.QuizID, &session.RoomCode, &session.Status,
			&session.CreatedAt, &session.StartedAt, &session.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID int64, status domain.SessionStatus) error {
	var query string
	switch status {
	case domain.StatusInProgress:
		query = `UPDATE game_sessions SET status=$2, started_at=now() WHERE id=$1`
	case domain.StatusCompleted:
		query = `UPDATE game_sessions SET status=$2, completed_at=now() WHERE id=$1`
	default:
		query = `UPDATE game_sessions SET status=$2 WHERE id=$1`
	}
	tag, err := s.pool.Exec(ctx, query, sessionID, status)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, sessionID int64, name string, joinOrder int) (domain.Team, error) {
	var team domain.Team
	err := s.pool.QueryRow(ctx, `
		INSERT INTO teams (game_session_id, team_name, join_order) VALUES ($1, $2, $3)
		RETURNING id, game_session_id, team_name, position, score, join_order`, sessionID, name, joinOrder).
		Scan(&team.ID, &team.SessionID, &team.Name, &team.Position, &team.Score, &team.JoinOrder)
	if err != nil {
		return domain.Team{}, fmt.Errorf("create team: %w", err)
	}
	return team, nil
}

func (s *Store) GetTeamsBySession(ctx context.Context, sessionID int64) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, game_session_id, team_name, position, score, join_order
		FROM teams WHERE game_session_id=$1 ORDER BY join_order`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Name, &t.Position, &t.Score, &t.JoinOrder); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (s *Store) UpdateTeamScore(ctx context.Context, teamID int64, delta int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE teams SET score=score+$2, position=position+$2 WHERE id=$1`, teamID, delta)
	if err != nil {
		return fmt.Errorf("update team score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTeamNotFound
	}
	return nil
}

func (s *Store) CreateAnswer(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO answers (game_session_id, team_id, question_id, submitted_answer, round_number)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, submitted_at`,
		answer.SessionID, answer.TeamID, answer.QuestionID, answer.Submitted, answer.RoundNumber).
		Scan(&answer.ID, &answer.SubmittedAt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("create answer: %w", err)
	}
	return answer, nil
}

func (s *Store) GetAnswer(ctx context.Context, answerID int64) (domain.Answer, error) {
	var answer domain.Answer
	err := s.pool.QueryRow(ctx, `
		SELECT id, game_session_id, team_id, question_id, submitted_answer,
		       is_correct, points_awarded, round_number, submitted_at, graded_at
		FROM answers WHERE id=$1`,
		answerID).
		Scan(&answer.ID, &answer.SessionID, &answer.TeamID, &answer.QuestionID, &answer.Submitted,
			&answer.IsCorrect, &answer.PointsAwarded, &answer.RoundNumber, &answer.SubmittedAt, &answer.GradedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("get answer: %w", err)
	}
	return answer, nil
}

func (s *Store) GradeAnswer(ctx context.Context, answerID int64, correct bool, points int) (domain.Answer, error) {
	var answer domain.Answer
	err := s.pool.QueryRow(ctx, `
		UPDATE answers SET is_correct=$2, points_awarded=$3, graded_at=now() WHERE id=$1
		RETURNING id, game_session_id, team_id, question_id, submitted_answer,
		          is_correct, points_awarded, round_number, submitted_at, graded_at`,
		answerID, correct, points).
		Scan(&answer.ID, &answer.SessionID, &answer.TeamID, &answer.QuestionID, &answer.Submitted,
			&answer.IsCorrect, &answer.PointsAwarded, &answer.RoundNumber, &answer.SubmittedAt, &answer.GradedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, domain.ErrAnswerNotFound
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("grade answer: %w", err)
	}
	return answer, nil
}

func (s *Store) CreateFacilitator(ctx context.Context, username, passwordHash string) (domain.Facilitator, error) {
	var facilitator domain.Facilitator
	err := s.pool.QueryRow(ctx, `
		INSERT INTO facilitators (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username, password_hash, created_at`, username, passwordHash).
		Scan(&facilitator.ID, &facilitator.Username, &facilitator.PasswordHash, &facilitator.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Facilitator{}, domain.ErrUsernameTaken
	}
	if err != nil {
		return domain.Facilitator{}, fmt.Errorf("create facilitator: %w", err)
	}
	return facilitator, nil
}

func (s *Store) GetFacilitatorByUsername(ctx context.Context, username string) (domain.Facilitator, error) {
	var facilitator domain.Facilitator
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at FROM facilitators WHERE lower(username)=lower($1)`, username).
		Scan(&facilitator.ID, &facilitator.Username, &facilitator.PasswordHash, &facilitator.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Facilitator{}, domain.ErrFacilitatorNotFound
	}
	if err != nil {
		return domain.Facilitator{}, fmt.Errorf("get facilitator: %w", err)
	}
	return facilitator, nil
}

func (s *Store) GetFacilitator(ctx context.Context, id int64) (domain.Facilitator, error) {
	var facilitator domain.Facilitator
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at FROM facilitators WHERE id=$1`, id).
		Scan(&facilitator.ID, &facilitator.Username, &facilitator.PasswordHash, &facilitator.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Facilitator{}, domain.ErrFacilitatorNotFound
	}
	if err != nil {
		return domain.Facilitator{}, fmt.Errorf("get facilitator: %w", err)
	}
	return facilitator, nil
}

// CreateQuiz inserts quiz configuration; used by seeders and tests. Quiz
// CRUD proper lives with the admin tooling, not this service.
func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO quizzes (name, facilitator_id, num_teams, num_rounds,
			easy_questions_count, medium_questions_count, hard_questions_count, insane_questions_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		quiz.Name, quiz.FacilitatorID, quiz.NumTeams, quiz.NumRounds,
		quiz.EasyCount, quiz.MediumCount, quiz.HardCount, quiz.InsaneCount).
		Scan(&quiz.ID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	return quiz, nil
}

// CreateQuestion inserts question content; used by seeders and tests.
func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO questions (quiz_id, question_text, question_type, difficulty, time_limit,
			option_a, option_b, option_c, option_d, correct_answer, model_answer)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		q.QuizID, q.Text, q.Type, q.Difficulty, q.TimeLimit,
		q.OptionA, q.OptionB, q.OptionC, q.OptionD, q.CorrectAnswer, q.ModelAnswer).
		Scan(&q.ID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

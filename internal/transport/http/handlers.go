package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/auth"
	"trivia-game-service/internal/domain"
)

// APIHandler exposes the coordinator's actions over JSON endpoints.
// Privileged routes require a facilitator bearer token.
type APIHandler struct {
	coordinator *app.Coordinator
	auth        *auth.Service
	store       app.GameStore
}

func NewAPIHandler(coordinator *app.Coordinator, authService *auth.Service, store app.GameStore) *APIHandler {
	return &APIHandler{coordinator: coordinator, auth: authService, store: store}
}

// Routes registers all game endpoints on the mux.
func (h *APIHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/facilitator/register", h.register)
	mux.HandleFunc("POST /api/facilitator/login", h.login)
	mux.HandleFunc("POST /api/quizzes/{quizID}/launch", h.launch)
	mux.HandleFunc("POST /api/game/join", h.join)
	mux.HandleFunc("GET /api/game/room/{roomCode}", h.roomLookup)
	mux.HandleFunc("GET /api/game/{sessionID}/state", h.state)
	mux.HandleFunc("POST /api/game/{sessionID}/start", h.start)
	mux.HandleFunc("POST /api/game/{sessionID}/question/serve", h.serve)
	mux.HandleFunc("POST /api/game/{sessionID}/answer", h.answer)
	mux.HandleFunc("POST /api/game/{sessionID}/grade", h.grade)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	facilitator, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, facilitator)
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (h *APIHandler) launch(w http.ResponseWriter, r *http.Request) {
	facilitatorID, err := h.facilitatorID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	quizID, err := strconv.ParseInt(r.PathValue("quizID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid quiz id", http.StatusBadRequest)
		return
	}
	session, err := h.coordinator.Launch(r.Context(), facilitatorID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type joinRequest struct {
	RoomCode string `json:"room_code"`
	TeamName string `json:"team_name"`
}

func (h *APIHandler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.TeamName)
	if len(name) < 2 || len(name) > 50 {
		http.Error(w, "team name must be 2-50 characters", http.StatusBadRequest)
		return
	}
	team, err := h.coordinator.Join(r.Context(), strings.ToUpper(strings.TrimSpace(req.RoomCode)), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *APIHandler) roomLookup(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("roomCode"))
	session, err := h.store.GetSessionByRoomCode(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	teams, err := h.store.GetTeamsBySession(r.Context(), session.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.store.GetQuiz(r.Context(), session.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"teams":   teams,
		"quiz":    quiz,
	})
}

func (h *APIHandler) state(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.PathValue("sessionID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	state, err := h.coordinator.State(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) start(w http.ResponseWriter, r *http.Request) {
	facilitatorID, sessionID, err := h.privileged(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.coordinator.Start(r.Context(), facilitatorID, sessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "game started"})
}

func (h *APIHandler) serve(w http.ResponseWriter, r *http.Request) {
	facilitatorID, sessionID, err := h.privileged(r)
	if err != nil {
		writeError(w, err)
		return
	}
	served, err := h.coordinator.Serve(r.Context(), facilitatorID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, served)
}

type answerRequest struct {
	TeamID     int64  `json:"team_id"`
	QuestionID int64  `json:"question_id"`
	Submitted  string `json:"submitted_answer"`
}

func (h *APIHandler) answer(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.PathValue("sessionID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	answerID, err := h.coordinator.SubmitAnswer(r.Context(), sessionID, req.TeamID, req.QuestionID, req.Submitted)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "answer submitted", "answer_id": answerID})
}

type gradeRequest struct {
	AnswerID      int64 `json:"answer_id"`
	IsCorrect     bool  `json:"is_correct"`
	PointsAwarded int   `json:"points_awarded"`
}

func (h *APIHandler) grade(w http.ResponseWriter, r *http.Request) {
	facilitatorID, sessionID, err := h.privileged(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.coordinator.Grade(r.Context(), facilitatorID, sessionID, req.AnswerID, req.IsCorrect, req.PointsAwarded); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "answer graded"})
}

func (h *APIHandler) privileged(r *http.Request) (facilitatorID, sessionID int64, err error) {
	facilitatorID, err = h.facilitatorID(r)
	if err != nil {
		return 0, 0, err
	}
	sessionID, err = strconv.ParseInt(r.PathValue("sessionID"), 10, 64)
	if err != nil {
		return 0, 0, domain.ErrSessionNotFound
	}
	return facilitatorID, sessionID, nil
}

func (h *APIHandler) facilitatorID(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return 0, domain.ErrInvalidCredentials
	}
	return h.auth.Verify(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrTeamNotFound),
		errors.Is(err, domain.ErrAnswerNotFound),
		errors.Is(err, domain.ErrFacilitatorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrGameAlreadyStarted),
		errors.Is(err, domain.ErrGameNotInProgress),
		errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrTeamNameTaken),
		errors.Is(err, domain.ErrNotEnoughTeams),
		errors.Is(err, domain.ErrNoMoreQuestions),
		errors.Is(err, domain.ErrUsernameTaken):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// RESTHandler exposes the attempt use cases as JSON endpoints.
type RESTHandler struct {
	service *app.AttemptService
	log     *zap.Logger
}

func NewRESTHandler(service *app.AttemptService, log *zap.Logger) *RESTHandler {
	return &RESTHandler{service: service, log: log}
}

type startRequest struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
}

type answerRequest struct {
	Option  int `json:"option"`
	Elapsed int `json:"elapsed"`
}

type goToRequest struct {
	Index int `json:"index"`
}

// GetQuiz handles GET /v1/quizzes/{quizId}
func (h *RESTHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.Quiz(r.Context(), mux.Vars(r)["quizId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// Leaderboard handles GET /v1/quizzes/{quizId}/leaderboard?limit=N
func (h *RESTHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context(), mux.Vars(r)["quizId"], queryInt(r, "limit", 10))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// UserResults handles GET /v1/users/{userId}/results
func (h *RESTHandler) UserResults(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Results(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": records})
}

// StartAttempt handles POST /v1/attempts
func (h *RESTHandler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
		return
	}
	view, err := h.service.Start(r.Context(), req.QuizID, req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetAttempt handles GET /v1/attempts/{attemptId}
func (h *RESTHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context(), mux.Vars(r)["attemptId"])
	h.respond(w, r, view, err)
}

// AbandonAttempt handles DELETE /v1/attempts/{attemptId}
func (h *RESTHandler) AbandonAttempt(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Abandon(r.Context(), mux.Vars(r)["attemptId"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Answer handles POST /v1/attempts/{attemptId}/answer
func (h *RESTHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
		return
	}
	view, err := h.service.Answer(r.Context(), mux.Vars(r)["attemptId"], req.Option, req.Elapsed)
	h.respond(w, r, view, err)
}

// Next handles POST /v1/attempts/{attemptId}/next
func (h *RESTHandler) Next(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Next(r.Context(), mux.Vars(r)["attemptId"])
	h.respond(w, r, view, err)
}

// Previous handles POST /v1/attempts/{attemptId}/previous
func (h *RESTHandler) Previous(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Previous(r.Context(), mux.Vars(r)["attemptId"])
	h.respond(w, r, view, err)
}

// GoTo handles POST /v1/attempts/{attemptId}/goto
func (h *RESTHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req goToRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput))
		return
	}
	view, err := h.service.GoTo(r.Context(), mux.Vars(r)["attemptId"], req.Index)
	h.respond(w, r, view, err)
}

// Submit handles POST /v1/attempts/{attemptId}/submit
func (h *RESTHandler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Submit(r.Context(), mux.Vars(r)["attemptId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RESTHandler) respond(w http.ResponseWriter, r *http.Request, view app.AttemptView, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RESTHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, err)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

// NewRouter wires the REST and websocket endpoints. metrics may be nil.
func NewRouter(service *app.AttemptService, log *zap.Logger, metrics http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	rest := NewRESTHandler(service, log)
	ws := NewWSHandler(service, log)

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/quizzes/{quizId}", rest.GetQuiz).Methods(http.MethodGet)
	v1.HandleFunc("/quizzes/{quizId}/leaderboard", rest.Leaderboard).Methods(http.MethodGet)
	v1.HandleFunc("/users/{userId}/results", rest.UserResults).Methods(http.MethodGet)

	v1.HandleFunc("/attempts", rest.StartAttempt).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{attemptId}", rest.GetAttempt).Methods(http.MethodGet)
	v1.HandleFunc("/attempts/{attemptId}", rest.AbandonAttempt).Methods(http.MethodDelete)
	v1.HandleFunc("/attempts/{attemptId}/answer", rest.Answer).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{attemptId}/next", rest.Next).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{attemptId}/previous", rest.Previous).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{attemptId}/goto", rest.GoTo).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{attemptId}/submit", rest.Submit).Methods(http.MethodPost)
	v1.HandleFunc("/attempts/{attemptId}/ws", ws.ServeWS).Methods(http.MethodGet)

	return r
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorPayload{Message: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPreconditionViolation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

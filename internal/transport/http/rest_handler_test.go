package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
)

func TestRESTAttemptLifecycle(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), nil, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/quizzes/quiz-1")
	require.NoError(t, err)
	var quiz map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quiz))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	question := quiz["questions"].([]any)[0].(map[string]any)
	require.NotContains(t, question, "correctOption")

	resp = postJSON(t, server.URL+"/v1/attempts", map[string]string{"quizId": "quiz-1", "userId": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view app.AttemptView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()

	base := server.URL + "/v1/attempts/" + view.AttemptID
	resp = postJSON(t, base+"/answer", map[string]int{"option": 5, "elapsed": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, base+"/goto", map[string]int{"index": 5})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, base+"/answer", map[string]int{"option": 1, "elapsed": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, base+"/next", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, base+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result domain.SubmissionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	require.Equal(t, 100, result.Percentage)
	require.Equal(t, 7, result.TimeSpentTotal)

	resp = postJSON(t, base+"/previous", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/v1/users/alice/results")
	require.NoError(t, err)
	var results struct {
		Results []domain.AttemptRecord `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	resp.Body.Close()
	require.Len(t, results.Results, 1)
	require.Equal(t, view.AttemptID, results.Results[0].AttemptID)

	resp, err = http.Get(server.URL + "/v1/quizzes/quiz-1/leaderboard?limit=5")
	require.NoError(t, err)
	var board struct {
		Entries []domain.LeaderboardEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&board))
	resp.Body.Close()
	require.Len(t, board.Entries, 1)
	require.Equal(t, "alice", board.Entries[0].UserID)
}

func TestRESTNotFound(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), nil, nil))
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/quizzes/missing")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, server.URL+"/v1/attempts", map[string]string{"quizId": "missing", "userId": "alice"})
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/v1/attempts/nope", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidInput))
	require.Equal(t, http.StatusConflict, statusFor(domain.ErrPreconditionViolation))
	require.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

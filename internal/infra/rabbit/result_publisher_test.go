package rabbit

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"quiz-attempt-service/internal/domain"
)

func TestEncodeSubmitted(t *testing.T) {
	submitted := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	record := domain.AttemptRecord{
		AttemptID:   "attempt-1",
		QuizID:      "quiz-1",
		UserID:      "alice",
		Result:      domain.SubmissionResult{PointsEarned: 2, PointsPossible: 3, Percentage: 67},
		SubmittedAt: submitted,
	}

	msg, err := encodeSubmitted(record)
	require.NoError(t, err)
	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, amqp.Persistent, msg.DeliveryMode)
	require.Equal(t, "attempt-1", msg.MessageId)
	require.Equal(t, submitted, msg.Timestamp)

	var decoded domain.AttemptRecord
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	require.Equal(t, 67, decoded.Result.Percentage)
	require.Equal(t, "alice", decoded.UserID)
}

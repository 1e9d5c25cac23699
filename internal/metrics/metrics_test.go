package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorderCountsSubmissionsByKind(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.Submitted(false, 100)
	r.Submitted(true, 0)
	r.Submitted(true, 50)

	require.Equal(t, 1.0, testutil.ToFloat64(r.submissions.WithLabelValues(KindManual)))
	require.Equal(t, 2.0, testutil.ToFloat64(r.submissions.WithLabelValues(KindTimeout)))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.AttemptStarted("quiz-1")
	r.AnswerRecorded()
	r.Submitted(true, 10)
	r.PersistFailed()
	r.InFlight(3)
}

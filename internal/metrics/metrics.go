package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Submission kinds used as label values.
const (
	KindManual  = "manual"
	KindTimeout = "timeout"
)

// Recorder groups the attempt collectors. A nil *Recorder records nothing.
type Recorder struct {
	attemptsStarted  *prometheus.CounterVec
	answersRecorded  prometheus.Counter
	submissions      *prometheus.CounterVec
	scorePercentage  prometheus.Histogram
	persistFailures  prometheus.Counter
	attemptsInFlight prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attemptsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_started_total",
				Help: "Total number of quiz attempts started",
			},
			[]string{"quiz_id"},
		),
		answersRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_answers_recorded_total",
			Help: "Total number of answers recorded, including changed answers",
		}),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Total number of scored attempts by submission kind",
			},
			[]string{"kind"},
		),
		scorePercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_score_percentage",
			Help:    "Distribution of submitted scores",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_result_persist_failures_total",
			Help: "Total number of failed attempts to persist a result",
		}),
		attemptsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_attempts_in_flight",
			Help: "Attempts currently held by this instance",
		}),
	}
	reg.MustRegister(
		r.attemptsStarted,
		r.answersRecorded,
		r.submissions,
		r.scorePercentage,
		r.persistFailures,
		r.attemptsInFlight,
	)
	return r
}

func (r *Recorder) AttemptStarted(quizID string) {
	if r == nil {
		return
	}
	r.attemptsStarted.WithLabelValues(quizID).Inc()
}

func (r *Recorder) AnswerRecorded() {
	if r == nil {
		return
	}
	r.answersRecorded.Inc()
}

func (r *Recorder) Submitted(timedOut bool, percentage int) {
	if r == nil {
		return
	}
	kind := KindManual
	if timedOut {
		kind = KindTimeout
	}
	r.submissions.WithLabelValues(kind).Inc()
	r.scorePercentage.Observe(float64(percentage))
}

func (r *Recorder) PersistFailed() {
	if r == nil {
		return
	}
	r.persistFailures.Inc()
}

func (r *Recorder) InFlight(n int) {
	if r == nil {
		return
	}
	r.attemptsInFlight.Set(float64(n))
}

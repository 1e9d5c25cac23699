package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/session"
)

type fixture struct {
	service  *app.AttemptService
	attempts *countingAttempts
	results  *flakyResults
	events   *recordingSink
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		attempts: &countingAttempts{AttemptStore: memory.NewAttemptStore()},
		results:  &flakyResults{ResultStore: memory.NewResultStore()},
		events:   &recordingSink{},
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	ids := 0
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {
			ID:        "quiz-1",
			Title:     "Basics",
			TimeLimit: 5,
			Questions: []domain.Question{
				{ID: "q1", Prompt: "2 + 2?", Options: []string{"3", "4"}, CorrectOption: 1, Points: 1},
				{ID: "q2", Prompt: "Capital of France?", Options: []string{"Paris", "Rome", "Oslo"}, CorrectOption: 0, Points: 2},
			},
		},
		"quiz-untimed": {
			ID:    "quiz-untimed",
			Title: "Practice",
			Questions: []domain.Question{
				{ID: "p1", Prompt: "1 + 1?", Options: []string{"2", "3"}, CorrectOption: 0},
			},
		},
	}), time.Minute)
	f.service = app.NewAttemptService(quizRepo, f.attempts, f.results,
		app.WithClock(func() time.Time { return f.now }),
		app.WithIDGenerator(func() string { ids++; return fmt.Sprintf("attempt-%d", ids) }),
		app.WithRetention(time.Minute),
		app.WithPublishers(f.events),
	)
	return f
}

func TestStartAnswerSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	view, err := f.service.Start(ctx, "quiz-1", "alice")
	require.NoError(t, err)
	require.Equal(t, "attempt-1", view.AttemptID)
	require.Equal(t, session.Active, view.Phase)
	require.Equal(t, 5, view.TimeRemaining)
	require.NotNil(t, view.Quiz)
	require.Len(t, view.Quiz.Questions, 2)

	_, err = f.service.Answer(ctx, view.AttemptID, 1, 2)
	require.NoError(t, err)
	_, err = f.service.Next(ctx, view.AttemptID)
	require.NoError(t, err)
	view, err = f.service.Answer(ctx, view.AttemptID, 1, 3)
	require.NoError(t, err)
	require.Len(t, view.Answers, 2)

	result, err := f.service.Submit(ctx, view.AttemptID)
	require.NoError(t, err)
	require.Equal(t, 1, result.PointsEarned)
	require.Equal(t, 3, result.PointsPossible)
	require.Equal(t, 33, result.Percentage)
	require.Equal(t, 5, result.TimeSpentTotal)

	again, err := f.service.Submit(ctx, view.AttemptID)
	require.NoError(t, err)
	require.Equal(t, result, again)

	records, err := f.service.Results(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, result, records[0].Result)
	require.Equal(t, 1, f.results.persistCalls())
	require.Len(t, f.events.records(), 1)
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service.Start(ctx, "missing", "alice")
	require.ErrorIs(t, err, domain.ErrQuizNotFound)
	_, err = f.service.Start(ctx, "quiz-1", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.service.Answer(ctx, "nope", 0, 0)
	require.ErrorIs(t, err, domain.ErrAttemptNotFound)
}

func TestRejectedOperationLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-1", "alice")
	require.NoError(t, err)

	after, err := f.service.GoTo(ctx, view.AttemptID, 5)
	require.ErrorIs(t, err, domain.ErrOutOfRange)
	require.Equal(t, 0, after.CurrentIndex)

	after, err = f.service.Answer(ctx, view.AttemptID, 2, 10)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Empty(t, after.Answers)
}

func TestTimerSubmitsOnTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-1", "bob")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		f.service.TickAll(ctx, 1)
	}
	current, err := f.service.Get(ctx, view.AttemptID)
	require.NoError(t, err)
	require.Equal(t, session.Active, current.Phase)
	require.Equal(t, 1, current.TimeRemaining)

	f.service.TickAll(ctx, 1)
	current, err = f.service.Get(ctx, view.AttemptID)
	require.NoError(t, err)
	require.Equal(t, session.Submitted, current.Phase)
	require.NotNil(t, current.Result)
	require.True(t, current.Result.TimedOut)
	require.Equal(t, 0, current.Result.Percentage)

	records, err := f.service.Results(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, records, 1)

	// A late manual submit gets the timeout result and does not persist again.
	result, err := f.service.Submit(ctx, view.AttemptID)
	require.NoError(t, err)
	require.True(t, result.TimedOut)
	require.Equal(t, 1, f.results.persistCalls())

	_, err = f.service.Next(ctx, view.AttemptID)
	require.ErrorIs(t, err, domain.ErrPreconditionViolation)
}

func TestPersistFailureIsRetriedByTimer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-1", "carol")
	require.NoError(t, err)

	f.results.failNext(errors.New("db down"))
	result, err := f.service.Submit(ctx, view.AttemptID)
	require.Error(t, err)
	require.Equal(t, 3, result.PointsPossible)

	records, err := f.service.Results(ctx, "carol")
	require.NoError(t, err)
	require.Empty(t, records)

	f.service.TickAll(ctx, 1)
	records, err = f.service.Results(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestSubmittedAttemptsAreEvictedAfterRetention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-1", "dave")
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, view.AttemptID)
	require.NoError(t, err)

	f.service.TickAll(ctx, 1)
	_, err = f.service.Get(ctx, view.AttemptID)
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Minute)
	f.service.TickAll(ctx, 1)
	_, err = f.service.Get(ctx, view.AttemptID)
	require.ErrorIs(t, err, domain.ErrAttemptNotFound)
}

func TestAbandonDropsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-1", "erin")
	require.NoError(t, err)

	require.NoError(t, f.service.Abandon(ctx, view.AttemptID))
	_, err = f.service.Get(ctx, view.AttemptID)
	require.ErrorIs(t, err, domain.ErrAttemptNotFound)
	require.Equal(t, 0, f.results.persistCalls())
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-1", "frank")
	require.NoError(t, err)

	ch, cancel, err := f.service.Subscribe(ctx, view.AttemptID)
	require.NoError(t, err)
	defer cancel()

	initial := <-ch
	require.Equal(t, 0, initial.CurrentIndex)

	_, err = f.service.Next(ctx, view.AttemptID)
	require.NoError(t, err)
	update := <-ch
	require.Equal(t, 1, update.CurrentIndex)

	f.service.TickAll(ctx, 2)
	update = <-ch
	require.Equal(t, 3, update.TimeRemaining)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, user := range []string{"alice", "bob"} {
		view, err := f.service.Start(ctx, "quiz-1", user)
		require.NoError(t, err)
		if user == "bob" {
			_, err = f.service.Answer(ctx, view.AttemptID, 1, 1)
			require.NoError(t, err)
		}
		_, err = f.service.Submit(ctx, view.AttemptID)
		require.NoError(t, err)
	}

	board, err := f.service.Leaderboard(ctx, "quiz-1", 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	require.Equal(t, "bob", board[0].UserID)
	require.Equal(t, 33, board[0].Percentage)
}

func TestTickLeavesUntimedAttemptsAlone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	view, err := f.service.Start(ctx, "quiz-untimed", "gina")
	require.NoError(t, err)
	require.Equal(t, 0, view.TimeRemaining)

	ch, cancel, err := f.service.Subscribe(ctx, view.AttemptID)
	require.NoError(t, err)
	defer cancel()
	<-ch

	saves := f.attempts.saveCalls()
	for i := 0; i < 3; i++ {
		f.service.TickAll(ctx, 1)
	}
	require.Equal(t, saves, f.attempts.saveCalls())
	select {
	case update := <-ch:
		t.Fatalf("unexpected update %+v", update)
	default:
	}

	current, err := f.service.Get(ctx, view.AttemptID)
	require.NoError(t, err)
	require.Equal(t, session.Active, current.Phase)
}

type flakyResults struct {
	*memory.ResultStore
	mu    sync.Mutex
	calls int
	err   error
}

func (r *flakyResults) failNext(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *flakyResults) persistCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *flakyResults) PersistResult(ctx context.Context, record domain.AttemptRecord) error {
	r.mu.Lock()
	r.calls++
	err := r.err
	r.err = nil
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.ResultStore.PersistResult(ctx, record)
}

type countingAttempts struct {
	*memory.AttemptStore
	mu    sync.Mutex
	saves int
}

func (s *countingAttempts) Save(ctx context.Context, attempt *app.Attempt) error {
	s.mu.Lock()
	s.saves++
	s.mu.Unlock()
	return s.AttemptStore.Save(ctx, attempt)
}

func (s *countingAttempts) saveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type recordingSink struct {
	mu   sync.Mutex
	seen []domain.AttemptRecord
}

func (s *recordingSink) PersistResult(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	s.seen = append(s.seen, record)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) records() []domain.AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AttemptRecord(nil), s.seen...)
}

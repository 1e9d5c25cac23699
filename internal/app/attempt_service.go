package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/metrics"
	"quiz-attempt-service/internal/session"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore abstracts where live attempts are kept (in-memory, Redis, etc).
type AttemptStore interface {
	Save(ctx context.Context, attempt *Attempt) error
	Get(ctx context.Context, attemptID string) (*Attempt, bool)
	Delete(ctx context.Context, attemptID string)
	All() []*Attempt
}

// ResultSink receives scored attempts. It is called by the service after the
// session has been submitted, never by the session itself.
type ResultSink interface {
	PersistResult(ctx context.Context, record domain.AttemptRecord) error
}

// ResultStore is a sink that can also answer score queries.
type ResultStore interface {
	ResultSink
	ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptRecord, error)
	Leaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error)
}

// AttemptService contains the quiz-taking use cases.
type AttemptService struct {
	quizzes    QuizRepository
	attempts   AttemptStore
	results    ResultStore
	publishers []ResultSink
	log        *zap.Logger
	metrics    *metrics.Recorder
	now        func() time.Time
	newID      func() string
	retention  time.Duration
}

// Option customizes an AttemptService.
type Option func(*AttemptService)

func WithLogger(log *zap.Logger) Option {
	return func(s *AttemptService) { s.log = log }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *AttemptService) { s.metrics = m }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AttemptService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *AttemptService) { s.newID = newID }
}

// WithRetention sets how long submitted attempts stay readable before eviction.
func WithRetention(d time.Duration) Option {
	return func(s *AttemptService) { s.retention = d }
}

// WithPublishers adds best-effort sinks notified after a result is stored.
func WithPublishers(sinks ...ResultSink) Option {
	return func(s *AttemptService) { s.publishers = append(s.publishers, sinks...) }
}

func NewAttemptService(quizzes QuizRepository, attempts AttemptStore, results ResultStore, opts ...Option) *AttemptService {
	s := &AttemptService{
		quizzes:   quizzes,
		attempts:  attempts,
		results:   results,
		log:       zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		retention: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quiz returns the player view of a quiz, without the answer key.
func (s *AttemptService) Quiz(ctx context.Context, quizID string) (domain.PublicQuiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.PublicQuiz{}, err
	}
	return quiz.Public(), nil
}

// Start opens a new attempt of quizID for userID.
func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (AttemptView, error) {
	if quizID == "" || userID == "" {
		return AttemptView{}, fmt.Errorf("%w: quiz and user are required", domain.ErrInvalidInput)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return AttemptView{}, err
	}

	sess := session.New()
	if err := sess.Start(quiz); err != nil {
		return AttemptView{}, err
	}
	attempt := newAttempt(s.newID(), quizID, userID, s.now(), sess)
	if err := s.attempts.Save(ctx, attempt); err != nil {
		return AttemptView{}, fmt.Errorf("save attempt: %w", err)
	}

	s.metrics.AttemptStarted(quizID)
	s.log.Info("attempt started",
		zap.String("attempt_id", attempt.id),
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID),
		zap.Int("time_limit", quiz.TimeLimit),
	)
	return attempt.View(), nil
}

// Get returns the current view of an attempt.
func (s *AttemptService) Get(ctx context.Context, attemptID string) (AttemptView, error) {
	attempt, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return AttemptView{}, domain.ErrAttemptNotFound
	}
	return attempt.View(), nil
}

// Answer records the selected option for the attempt's current question.
func (s *AttemptService) Answer(ctx context.Context, attemptID string, option, elapsed int) (AttemptView, error) {
	view, err := s.mutate(ctx, attemptID, func(sess *session.Session) error {
		return sess.RecordAnswer(option, elapsed)
	})
	if err == nil {
		s.metrics.AnswerRecorded()
	}
	return view, err
}

func (s *AttemptService) Next(ctx context.Context, attemptID string) (AttemptView, error) {
	return s.mutate(ctx, attemptID, (*session.Session).Next)
}

func (s *AttemptService) Previous(ctx context.Context, attemptID string) (AttemptView, error) {
	return s.mutate(ctx, attemptID, (*session.Session).Previous)
}

func (s *AttemptService) GoTo(ctx context.Context, attemptID string, index int) (AttemptView, error) {
	return s.mutate(ctx, attemptID, func(sess *session.Session) error {
		return sess.GoTo(index)
	})
}

// Submit scores the attempt and persists the result once. Repeated submits
// return the same result without storing it again.
func (s *AttemptService) Submit(ctx context.Context, attemptID string) (domain.SubmissionResult, error) {
	attempt, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return domain.SubmissionResult{}, domain.ErrAttemptNotFound
	}

	attempt.mu.Lock()
	result, err := attempt.session.Submit()
	if err != nil {
		attempt.mu.Unlock()
		return domain.SubmissionResult{}, err
	}
	attempt.broadcastLocked()
	attempt.mu.Unlock()

	if err := s.finalize(ctx, attempt); err != nil {
		return result, err
	}
	return result, nil
}

// Abandon resets the attempt and forgets it. Nothing is persisted.
func (s *AttemptService) Abandon(ctx context.Context, attemptID string) error {
	attempt, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return domain.ErrAttemptNotFound
	}
	attempt.mu.Lock()
	attempt.session.Reset()
	attempt.broadcastLocked()
	attempt.mu.Unlock()

	s.attempts.Delete(ctx, attemptID)
	s.log.Info("attempt abandoned", zap.String("attempt_id", attemptID))
	return nil
}

// Subscribe returns a channel that receives a view after every change to the attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(ctx context.Context, attemptID string) (<-chan AttemptView, func(), error) {
	attempt, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return nil, nil, domain.ErrAttemptNotFound
	}
	ch, cancel := attempt.subscribe()
	return ch, cancel, nil
}

// Results lists the persisted attempts of a user, newest first.
func (s *AttemptService) Results(ctx context.Context, userID string) ([]domain.AttemptRecord, error) {
	return s.results.ResultsByUser(ctx, userID)
}

// Leaderboard lists the best score per user for a quiz.
func (s *AttemptService) Leaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.results.Leaderboard(ctx, quizID, limit)
}

func (s *AttemptService) mutate(ctx context.Context, attemptID string, fn func(*session.Session) error) (AttemptView, error) {
	attempt, ok := s.attempts.Get(ctx, attemptID)
	if !ok {
		return AttemptView{}, domain.ErrAttemptNotFound
	}

	attempt.mu.Lock()
	if err := fn(attempt.session); err != nil {
		view := attempt.viewLocked()
		attempt.mu.Unlock()
		return view, err
	}
	view := attempt.broadcastLocked()
	attempt.mu.Unlock()

	if err := s.attempts.Save(ctx, attempt); err != nil {
		return view, fmt.Errorf("save attempt: %w", err)
	}
	return view, nil
}

// finalize persists a submitted attempt exactly once. On failure the claim is
// released so the timer loop can try again.
func (s *AttemptService) finalize(ctx context.Context, attempt *Attempt) error {
	attempt.mu.Lock()
	result, ok := attempt.session.Result()
	if !ok || attempt.persisted {
		attempt.mu.Unlock()
		return nil
	}
	attempt.persisted = true
	if attempt.submittedAt.IsZero() {
		attempt.submittedAt = s.now()
	}
	record := domain.AttemptRecord{
		AttemptID:   attempt.id,
		QuizID:      attempt.quizID,
		UserID:      attempt.userID,
		Result:      result,
		StartedAt:   attempt.startedAt,
		SubmittedAt: attempt.submittedAt,
	}
	attempt.mu.Unlock()

	if err := s.results.PersistResult(ctx, record); err != nil {
		attempt.mu.Lock()
		attempt.persisted = false
		attempt.mu.Unlock()
		s.metrics.PersistFailed()
		s.log.Error("persist result failed", zap.String("attempt_id", record.AttemptID), zap.Error(err))
		return fmt.Errorf("persist result: %w", err)
	}
	if err := s.attempts.Save(ctx, attempt); err != nil {
		s.log.Warn("save submitted attempt failed", zap.String("attempt_id", record.AttemptID), zap.Error(err))
	}

	for _, publisher := range s.publishers {
		if err := publisher.PersistResult(ctx, record); err != nil {
			s.log.Warn("publish result failed", zap.String("attempt_id", record.AttemptID), zap.Error(err))
		}
	}

	s.metrics.Submitted(result.TimedOut, result.Percentage)
	s.log.Info("attempt submitted",
		zap.String("attempt_id", record.AttemptID),
		zap.String("quiz_id", record.QuizID),
		zap.String("user_id", record.UserID),
		zap.Int("points_earned", result.PointsEarned),
		zap.Int("points_possible", result.PointsPossible),
		zap.Int("percentage", result.Percentage),
		zap.Bool("timed_out", result.TimedOut),
	)
	return nil
}

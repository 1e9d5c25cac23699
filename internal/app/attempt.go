package app

import (
	"sync"
	"time"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/session"
)

// Attempt binds a session to the user taking it. The session itself is not
// safe for concurrent use, so every access goes through mu.
type Attempt struct {
	id        string
	quizID    string
	userID    string
	startedAt time.Time

	mu          sync.Mutex
	session     *session.Session
	submittedAt time.Time
	persisted   bool
	subscribers map[chan AttemptView]struct{}
}

// AttemptView is the client-facing snapshot of an attempt.
type AttemptView struct {
	AttemptID     string                   `json:"attemptId"`
	QuizID        string                   `json:"quizId"`
	UserID        string                   `json:"userId"`
	Phase         session.Phase            `json:"phase"`
	Quiz          *domain.PublicQuiz       `json:"quiz,omitempty"`
	CurrentIndex  int                      `json:"currentIndex"`
	Answers       map[int]domain.Answer    `json:"answers"`
	TimeRemaining int                      `json:"timeRemaining"`
	Result        *domain.SubmissionResult `json:"result,omitempty"`
	StartedAt     time.Time                `json:"startedAt"`
}

// AttemptSnapshot is the persisted form of an attempt.
type AttemptSnapshot struct {
	ID          string        `json:"id"`
	QuizID      string        `json:"quizId"`
	UserID      string        `json:"userId"`
	StartedAt   time.Time     `json:"startedAt"`
	SubmittedAt time.Time     `json:"submittedAt"`
	Persisted   bool          `json:"persisted"`
	Session     session.State `json:"session"`
}

func newAttempt(id, quizID, userID string, startedAt time.Time, s *session.Session) *Attempt {
	return &Attempt{
		id:          id,
		quizID:      quizID,
		userID:      userID,
		startedAt:   startedAt,
		session:     s,
		subscribers: make(map[chan AttemptView]struct{}),
	}
}

// RestoreAttempt rebuilds an attempt from its snapshot.
func RestoreAttempt(snap AttemptSnapshot) (*Attempt, error) {
	s, err := session.Restore(snap.Session)
	if err != nil {
		return nil, err
	}
	a := newAttempt(snap.ID, snap.QuizID, snap.UserID, snap.StartedAt, s)
	a.submittedAt = snap.SubmittedAt
	a.persisted = snap.Persisted
	return a, nil
}

// ID returns the attempt identifier.
func (a *Attempt) ID() string {
	return a.id
}

// Snapshot captures the attempt for storage.
func (a *Attempt) Snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AttemptSnapshot{
		ID:          a.id,
		QuizID:      a.quizID,
		UserID:      a.userID,
		StartedAt:   a.startedAt,
		SubmittedAt: a.submittedAt,
		Persisted:   a.persisted,
		Session:     a.session.Snapshot(),
	}
}

// View returns the current client-facing state.
func (a *Attempt) View() AttemptView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked()
}

func (a *Attempt) viewLocked() AttemptView {
	st := a.session.Snapshot()
	view := AttemptView{
		AttemptID:     a.id,
		QuizID:        a.quizID,
		UserID:        a.userID,
		Phase:         st.Phase,
		CurrentIndex:  st.CurrentIndex,
		Answers:       st.Answers,
		TimeRemaining: st.TimeRemaining,
		Result:        st.Result,
		StartedAt:     a.startedAt,
	}
	if st.Phase != session.Idle {
		public := st.Quiz.Public()
		view.Quiz = &public
	}
	return view
}

func (a *Attempt) subscribe() (<-chan AttemptView, func()) {
	ch := make(chan AttemptView, 8)

	a.mu.Lock()
	a.subscribers[ch] = struct{}{}
	ch <- a.viewLocked()
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) broadcastLocked() AttemptView {
	view := a.viewLocked()
	for ch := range a.subscribers {
		select {
		case ch <- view:
		default:
			// Slow subscriber: drop the stale view so the latest one fits.
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}

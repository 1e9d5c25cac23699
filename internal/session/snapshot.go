package session

import (
	"fmt"

	"quiz-attempt-service/internal/domain"
)

// State is a detached copy of a session, suitable for encoding.
type State struct {
	Phase         Phase                    `json:"phase"`
	Quiz          domain.Quiz              `json:"quiz"`
	CurrentIndex  int                      `json:"currentIndex"`
	Answers       map[int]domain.Answer    `json:"answers"`
	TimeRemaining int                      `json:"timeRemaining"`
	Result        *domain.SubmissionResult `json:"result,omitempty"`
}

// Snapshot copies the session state; mutating the copy does not affect s.
func (s *Session) Snapshot() State {
	if s.phase == Idle {
		return State{Phase: Idle}
	}
	st := State{
		Phase:         s.phase,
		Quiz:          cloneQuiz(s.quiz),
		CurrentIndex:  s.currentIndex,
		Answers:       make(map[int]domain.Answer, len(s.answers)),
		TimeRemaining: s.timeRemaining,
	}
	for pos, answer := range s.answers {
		st.Answers[pos] = answer
	}
	if s.result != nil {
		result := cloneResult(*s.result)
		st.Result = &result
	}
	return st
}

// Restore rebuilds a session from a snapshot, rejecting states that break
// the session invariants.
func Restore(st State) (*Session, error) {
	switch st.Phase {
	case Idle:
		return New(), nil
	case Active, Submitted:
	default:
		return nil, fmt.Errorf("%w: unknown phase %d", domain.ErrInvalidInput, int(st.Phase))
	}
	if err := st.Quiz.Validate(); err != nil {
		return nil, err
	}
	questions := st.Quiz.Questions
	if st.CurrentIndex < 0 || st.CurrentIndex >= len(questions) {
		return nil, fmt.Errorf("%w: restored index %d", domain.ErrOutOfRange, st.CurrentIndex)
	}
	if st.TimeRemaining < 0 || st.TimeRemaining > st.Quiz.TimeLimit {
		return nil, fmt.Errorf("%w: restored time remaining %d", domain.ErrInvalidInput, st.TimeRemaining)
	}
	if st.Phase == Active && st.Quiz.TimeLimit > 0 && st.TimeRemaining == 0 {
		return nil, fmt.Errorf("%w: active session with expired timer", domain.ErrPreconditionViolation)
	}
	if (st.Phase == Submitted) != (st.Result != nil) {
		return nil, fmt.Errorf("%w: result present only after submission", domain.ErrPreconditionViolation)
	}

	s := &Session{
		phase:         st.Phase,
		quiz:          cloneQuiz(st.Quiz),
		currentIndex:  st.CurrentIndex,
		answers:       make(map[int]domain.Answer, len(st.Answers)),
		timeRemaining: st.TimeRemaining,
	}
	for pos, answer := range st.Answers {
		if pos < 0 || pos >= len(questions) {
			return nil, fmt.Errorf("%w: answer for position %d", domain.ErrOutOfRange, pos)
		}
		question := questions[pos]
		if answer.QuestionID != question.ID || answer.SelectedOption < 0 || answer.SelectedOption >= len(question.Options) || answer.TimeSpent < 0 {
			return nil, fmt.Errorf("%w: answer for position %d", domain.ErrInvalidInput, pos)
		}
		s.answers[pos] = answer
	}
	if st.Result != nil {
		result := cloneResult(*st.Result)
		s.result = &result
	}
	return s, nil
}

// Package session implements the lifecycle of a single quiz attempt as a
// plain state machine: Idle -> Active -> Submitted.
//
// A Session performs no I/O, reads no clock and holds no locks. Time only
// moves when the owner calls Tick, and exactly one owner may drive a Session.
package session

import (
	"fmt"

	"quiz-attempt-service/internal/domain"
)

// Session is one user's attempt at one quiz. The zero value is an Idle session.
type Session struct {
	phase         Phase
	quiz          domain.Quiz
	currentIndex  int
	answers       map[int]domain.Answer
	timeRemaining int
	result        *domain.SubmissionResult
}

// New returns an Idle session.
func New() *Session {
	return &Session{}
}

// Phase reports where the session is in its lifecycle.
func (s *Session) Phase() Phase {
	return s.phase
}

// Start begins an attempt at quiz, replacing every field of any previous attempt.
func (s *Session) Start(quiz domain.Quiz) error {
	if err := quiz.Validate(); err != nil {
		return err
	}
	*s = Session{
		phase:         Active,
		quiz:          cloneQuiz(quiz),
		answers:       make(map[int]domain.Answer),
		timeRemaining: quiz.TimeLimit,
	}
	return nil
}

// Current returns the question at the current index.
func (s *Session) Current() (domain.Question, error) {
	if s.phase == Idle {
		return domain.Question{}, notActive("current", s.phase)
	}
	return s.quiz.Questions[s.currentIndex], nil
}

// CurrentIndex returns the position of the displayed question.
func (s *Session) CurrentIndex() int {
	return s.currentIndex
}

// TimeRemaining returns the countdown in seconds.
func (s *Session) TimeRemaining() int {
	return s.timeRemaining
}

// RecordAnswer stores the selection for the current question. A later call for
// the same position replaces the earlier one.
func (s *Session) RecordAnswer(option, elapsed int) error {
	if s.phase != Active {
		return notActive("record answer", s.phase)
	}
	question := s.quiz.Questions[s.currentIndex]
	if option < 0 || option >= len(question.Options) {
		return fmt.Errorf("%w: option %d not in [0, %d) for question %q", domain.ErrInvalidInput, option, len(question.Options), question.ID)
	}
	if elapsed < 0 {
		return fmt.Errorf("%w: negative elapsed time %d", domain.ErrInvalidInput, elapsed)
	}
	s.answers[s.currentIndex] = domain.Answer{
		QuestionID:     question.ID,
		SelectedOption: option,
		TimeSpent:      elapsed,
	}
	return nil
}

// GoTo moves to the question at index.
func (s *Session) GoTo(index int) error {
	if s.phase != Active {
		return notActive("go to", s.phase)
	}
	if index < 0 || index >= len(s.quiz.Questions) {
		return fmt.Errorf("%w: %d not in [0, %d)", domain.ErrOutOfRange, index, len(s.quiz.Questions))
	}
	s.currentIndex = index
	return nil
}

// Next advances one question; it does nothing on the last question.
func (s *Session) Next() error {
	if s.phase != Active {
		return notActive("next", s.phase)
	}
	if s.currentIndex < len(s.quiz.Questions)-1 {
		s.currentIndex++
	}
	return nil
}

// Previous goes back one question; it does nothing on the first question.
func (s *Session) Previous() error {
	if s.phase != Active {
		return notActive("previous", s.phase)
	}
	if s.currentIndex > 0 {
		s.currentIndex--
	}
	return nil
}

// Tick counts the timer down by seconds, floored at zero. When the countdown
// reaches zero the attempt is submitted and the result is returned; otherwise
// the returned result is nil. Untimed quizzes never count down.
func (s *Session) Tick(seconds int) (*domain.SubmissionResult, error) {
	if s.phase != Active {
		return nil, notActive("tick", s.phase)
	}
	if seconds < 0 {
		return nil, fmt.Errorf("%w: negative tick %d", domain.ErrInvalidInput, seconds)
	}
	if s.quiz.TimeLimit == 0 {
		return nil, nil
	}
	s.timeRemaining -= seconds
	if s.timeRemaining > 0 {
		return nil, nil
	}
	s.timeRemaining = 0
	result := s.finish(true)
	return &result, nil
}

// Submit scores the attempt. Submitting an already submitted session returns
// the stored result again without rescoring.
func (s *Session) Submit() (domain.SubmissionResult, error) {
	switch s.phase {
	case Submitted:
		return cloneResult(*s.result), nil
	case Active:
		return s.finish(false), nil
	default:
		return domain.SubmissionResult{}, notActive("submit", s.phase)
	}
}

// Result returns the scored result once the session has been submitted.
func (s *Session) Result() (domain.SubmissionResult, bool) {
	if s.result == nil {
		return domain.SubmissionResult{}, false
	}
	return cloneResult(*s.result), true
}

// Reset drops the attempt and returns to Idle.
func (s *Session) Reset() {
	*s = Session{}
}

func (s *Session) finish(timedOut bool) domain.SubmissionResult {
	result := score(s.quiz, s.answers)
	result.TimedOut = timedOut
	s.result = &result
	s.phase = Submitted
	return cloneResult(result)
}

func notActive(op string, phase Phase) error {
	return fmt.Errorf("%w: cannot %s while %s", domain.ErrPreconditionViolation, op, phase)
}

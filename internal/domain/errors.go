package domain

import "errors"

var (
	// ErrInvalidInput is returned when an argument is malformed, e.g. an option index outside the current question.
	ErrInvalidInput = errors.New("invalid input")
	// ErrOutOfRange is returned when navigation targets a question that does not exist.
	ErrOutOfRange = errors.New("question index out of range")
	// ErrPreconditionViolation is returned when an operation is not legal in the current session phase.
	ErrPreconditionViolation = errors.New("precondition violation")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when an attempt ID is unknown or expired.
	ErrAttemptNotFound = errors.New("attempt not found")
)

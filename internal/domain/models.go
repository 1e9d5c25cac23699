package domain

import (
	"fmt"
	"time"
)

// Question models a multiple-choice question with exactly one correct option.
type Question struct {
	ID            string   `json:"id" bson:"id"`
	Prompt        string   `json:"prompt" bson:"prompt"`
	Options       []string `json:"options" bson:"options"`
	CorrectOption int      `json:"correctOption" bson:"correctOption"`
	Points        int      `json:"points" bson:"points"` // defaults to 1 if zero
	Explanation   string   `json:"explanation,omitempty" bson:"explanation,omitempty"`
}

// Value returns the point value used for scoring.
func (q Question) Value() int {
	if q.Points == 0 {
		return 1
	}
	return q.Points
}

// Quiz is an ordered collection of questions with a total time limit in seconds.
type Quiz struct {
	ID        string     `json:"id" bson:"_id"`
	Title     string     `json:"title" bson:"title"`
	Questions []Question `json:"questions" bson:"questions"`
	// TimeLimit is the countdown in seconds. 0 disables the countdown: the
	// attempt never times out and ends only on an explicit submit.
	TimeLimit int `json:"timeLimit" bson:"timeLimit"`
}

// Validate checks the structural rules every playable quiz must satisfy.
// An empty question list is reported separately as a precondition violation.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %q has no questions", ErrPreconditionViolation, q.ID)
	}
	if q.TimeLimit < 0 {
		return fmt.Errorf("%w: negative time limit %d", ErrInvalidInput, q.TimeLimit)
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidInput, question.ID)
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidInput, i)
		}
		if question.CorrectOption < 0 || question.CorrectOption >= len(question.Options) {
			return fmt.Errorf("%w: question %d correct option %d out of range", ErrInvalidInput, i, question.CorrectOption)
		}
		if question.Points < 0 {
			return fmt.Errorf("%w: question %d has negative points", ErrInvalidInput, i)
		}
	}
	return nil
}

// PublicQuestion is a question as shown to a player: no answer key.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// PublicQuiz is the client-facing view of a quiz.
type PublicQuiz struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Questions []PublicQuestion `json:"questions"`
	TimeLimit int              `json:"timeLimit"`
}

// Public strips correct answers and explanations.
func (q Quiz) Public() PublicQuiz {
	out := PublicQuiz{
		ID:        q.ID,
		Title:     q.Title,
		TimeLimit: q.TimeLimit,
		Questions: make([]PublicQuestion, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		out.Questions = append(out.Questions, PublicQuestion{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Options: append([]string(nil), question.Options...),
			Points:  question.Value(),
		})
	}
	return out
}

// Answer is the recorded selection for one question position.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	TimeSpent      int    `json:"timeSpent"`
}

// QuestionResult is the per-question line of a scored submission.
// SelectedOption is nil when the question was left unanswered.
type QuestionResult struct {
	QuestionID     string `json:"questionId" bson:"questionId"`
	SelectedOption *int   `json:"selectedOption" bson:"selectedOption"`
	Correct        bool   `json:"correct" bson:"correct"`
	CorrectOption  int    `json:"correctOption" bson:"correctOption"`
}

// SubmissionResult summarizes a submitted attempt.
type SubmissionResult struct {
	PointsEarned   int              `json:"pointsEarned" bson:"pointsEarned"`
	PointsPossible int              `json:"pointsPossible" bson:"pointsPossible"`
	Percentage     int              `json:"percentage" bson:"percentage"`
	PerQuestion    []QuestionResult `json:"perQuestion" bson:"perQuestion"`
	TimeSpentTotal int              `json:"timeSpentTotal" bson:"timeSpentTotal"`
	TimedOut       bool             `json:"timedOut" bson:"timedOut"`
}

// AttemptRecord is what gets persisted once an attempt has been scored.
type AttemptRecord struct {
	AttemptID   string           `json:"attemptId" bson:"_id"`
	QuizID      string           `json:"quizId" bson:"quizId"`
	UserID      string           `json:"userId" bson:"userId"`
	Result      SubmissionResult `json:"result" bson:"result"`
	StartedAt   time.Time        `json:"startedAt" bson:"startedAt"`
	SubmittedAt time.Time        `json:"submittedAt" bson:"submittedAt"`
}

// LeaderboardEntry is one row of the per-quiz best scores table.
type LeaderboardEntry struct {
	UserID       string    `json:"userId"`
	Percentage   int       `json:"percentage"`
	PointsEarned int       `json:"pointsEarned"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

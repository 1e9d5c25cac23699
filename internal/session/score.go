package session

import "quiz-attempt-service/internal/domain"

// score grades every question all-or-nothing, weighted by its point value.
// Unanswered questions are incorrect.
func score(quiz domain.Quiz, answers map[int]domain.Answer) domain.SubmissionResult {
	result := domain.SubmissionResult{
		PerQuestion: make([]domain.QuestionResult, 0, len(quiz.Questions)),
	}
	for i, question := range quiz.Questions {
		line := domain.QuestionResult{
			QuestionID:    question.ID,
			CorrectOption: question.CorrectOption,
		}
		result.PointsPossible += question.Value()
		if answer, ok := answers[i]; ok {
			selected := answer.SelectedOption
			line.SelectedOption = &selected
			line.Correct = selected == question.CorrectOption
			result.TimeSpentTotal += answer.TimeSpent
		}
		if line.Correct {
			result.PointsEarned += question.Value()
		}
		result.PerQuestion = append(result.PerQuestion, line)
	}
	result.Percentage = percentage(result.PointsEarned, result.PointsPossible)
	return result
}

// percentage rounds 100*earned/possible half up, so 87.5 becomes 88.
func percentage(earned, possible int) int {
	if possible <= 0 {
		return 0
	}
	return (200*earned + possible) / (2 * possible)
}

func cloneResult(r domain.SubmissionResult) domain.SubmissionResult {
	out := r
	out.PerQuestion = make([]domain.QuestionResult, len(r.PerQuestion))
	for i, line := range r.PerQuestion {
		out.PerQuestion[i] = line
		if line.SelectedOption != nil {
			selected := *line.SelectedOption
			out.PerQuestion[i].SelectedOption = &selected
		}
	}
	return out
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		out.Questions[i] = question
		out.Questions[i].Options = append([]string(nil), question.Options...)
	}
	return out
}

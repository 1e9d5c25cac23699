package cli

import (
	"sort"

	"quiz-attempt-service/internal/domain"
)

// sampleQuizzes backs the static catalog and the seed command.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"go-basics": {
			ID:        "go-basics",
			Title:     "Go Basics",
			TimeLimit: 120,
			Questions: []domain.Question{
				{
					ID:            "go-basics-1",
					Prompt:        "Which keyword starts a goroutine?",
					Options:       []string{"async", "go", "spawn", "thread"},
					CorrectOption: 1,
					Points:        1,
					Explanation:   "A function call prefixed with go runs in a new goroutine.",
				},
				{
					ID:            "go-basics-2",
					Prompt:        "What is the zero value of a map?",
					Options:       []string{"an empty map", "nil", "0"},
					CorrectOption: 1,
					Points:        2,
					Explanation:   "An uninitialized map is nil; reads work but writes panic.",
				},
				{
					ID:            "go-basics-3",
					Prompt:        "Which statement runs a call when the surrounding function returns?",
					Options:       []string{"finally", "defer", "ensure", "after"},
					CorrectOption: 1,
					Points:        1,
				},
				{
					ID:            "go-basics-4",
					Prompt:        "How many values does a two-value type assertion return?",
					Options:       []string{"1", "2", "3"},
					CorrectOption: 1,
					Points:        1,
					Explanation:   "v, ok := x.(T) yields the value and a success flag.",
				},
			},
		},
		"world-capitals": {
			ID:        "world-capitals",
			Title:     "World Capitals",
			TimeLimit: 60,
			Questions: []domain.Question{
				{ID: "capitals-1", Prompt: "Capital of Australia?", Options: []string{"Sydney", "Canberra", "Melbourne"}, CorrectOption: 1, Points: 1},
				{ID: "capitals-2", Prompt: "Capital of Canada?", Options: []string{"Toronto", "Vancouver", "Ottawa"}, CorrectOption: 2, Points: 1},
				{ID: "capitals-3", Prompt: "Capital of Japan?", Options: []string{"Tokyo", "Osaka", "Kyoto"}, CorrectOption: 0, Points: 1},
			},
		},
		"english-vocab": {
			ID:    "english-vocab",
			Title: "English Vocabulary (untimed)",
			Questions: []domain.Question{
				{
					ID:            "vocab-1",
					Prompt:        "Choose the synonym of \"brief\".",
					Options:       []string{"short", "heavy", "bright"},
					CorrectOption: 0,
					Points:        1,
				},
				{
					ID:            "vocab-2",
					Prompt:        "Choose the antonym of \"scarce\".",
					Options:       []string{"rare", "plentiful", "small", "quiet"},
					CorrectOption: 1,
					Points:        2,
					Explanation:   "Scarce means in short supply; plentiful is its opposite.",
				},
			},
		},
	}
}

// quizList flattens the catalog in ID order.
func quizList(quizzes map[string]domain.Quiz) []domain.Quiz {
	list := make([]domain.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		list = append(list, quiz)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-attempt-service/internal/domain"
)

const selectQuiz = `SELECT title, time_limit, questions FROM quizzes WHERE id = $1`

// QuizLoader reads the quiz catalog table through a pgx pool.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

// LoadQuiz returns domain.ErrQuizNotFound when no row matches.
func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz := domain.Quiz{ID: quizID}
	var questions []byte
	err := l.pool.QueryRow(ctx, selectQuiz, quizID).Scan(&quiz.Title, &quiz.TimeLimit, &questions)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("select quiz %q: %w", quizID, err)
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode questions of %q: %w", quizID, err)
	}
	return quiz, nil
}

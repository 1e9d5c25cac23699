package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-attempt-service/internal/domain"
)

// QuizCatalog reads and seeds quiz documents in the "quizzes" collection.
type QuizCatalog struct {
	collection *mongo.Collection
}

func NewQuizCatalog(db *mongo.Database) *QuizCatalog {
	return &QuizCatalog{collection: db.Collection("quizzes")}
}

func (c *QuizCatalog) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := c.collection.FindOne(ctx, bson.M{"_id": quizID}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

// SeedQuizzes replaces (or inserts) each quiz document by ID.
func (c *QuizCatalog) SeedQuizzes(ctx context.Context, quizzes []domain.Quiz) error {
	for _, quiz := range quizzes {
		if err := quiz.Validate(); err != nil {
			return fmt.Errorf("seed quiz %q: %w", quiz.ID, err)
		}
		_, err := c.collection.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, quiz, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("upsert quiz %q: %w", quiz.ID, err)
		}
	}
	return nil
}

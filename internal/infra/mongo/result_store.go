package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-attempt-service/internal/domain"
)

// ResultStore keeps scored attempts in the "results" collection, one document per attempt.
type ResultStore struct {
	collection *mongo.Collection
}

func NewResultStore(db *mongo.Database) *ResultStore {
	return &ResultStore{collection: db.Collection("results")}
}

// EnsureIndexes creates the indexes used by the score queries.
func (s *ResultStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "submittedAt", Value: -1}}},
		{Keys: bson.D{{Key: "quizId", Value: 1}, {Key: "result.percentage", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create result indexes: %w", err)
	}
	return nil
}

// PersistResult inserts the record; a duplicate attempt ID is not an error.
func (s *ResultStore) PersistResult(ctx context.Context, record domain.AttemptRecord) error {
	_, err := s.collection.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find results: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]domain.AttemptRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return records, nil
}

type leaderboardDoc struct {
	UserID       string    `bson:"_id"`
	Percentage   int       `bson:"percentage"`
	PointsEarned int       `bson:"pointsEarned"`
	SubmittedAt  time.Time `bson:"submittedAt"`
}

// Leaderboard groups attempts by user keeping the best one, then ranks them.
func (s *ResultStore) Leaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"quizId": quizID}}},
		{{Key: "$sort", Value: bson.D{{Key: "result.percentage", Value: -1}, {Key: "submittedAt", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$userId"},
			{Key: "percentage", Value: bson.M{"$first": "$result.percentage"}},
			{Key: "pointsEarned", Value: bson.M{"$first": "$result.pointsEarned"}},
			{Key: "submittedAt", Value: bson.M{"$first": "$submittedAt"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "percentage", Value: -1}, {Key: "submittedAt", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate leaderboard: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []leaderboardDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.LeaderboardEntry{
			UserID:       doc.UserID,
			Percentage:   doc.Percentage,
			PointsEarned: doc.PointsEarned,
			SubmittedAt:  doc.SubmittedAt.UTC(),
		})
	}
	return out, nil
}

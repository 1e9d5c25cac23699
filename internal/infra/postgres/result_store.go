package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quiz-attempt-service/internal/domain"
)

type attemptResultRow struct {
	bun.BaseModel `bun:"table:attempt_results"`

	AttemptID      string                  `bun:"attempt_id,pk"`
	QuizID         string                  `bun:"quiz_id,notnull"`
	UserID         string                  `bun:"user_id,notnull"`
	PointsEarned   int                     `bun:"points_earned"`
	PointsPossible int                     `bun:"points_possible"`
	Percentage     int                     `bun:"percentage"`
	TimeSpentTotal int                     `bun:"time_spent_total"`
	TimedOut       bool                    `bun:"timed_out"`
	PerQuestion    []domain.QuestionResult `bun:"per_question,type:jsonb"`
	StartedAt      time.Time               `bun:"started_at"`
	SubmittedAt    time.Time               `bun:"submitted_at"`
}

func rowFromRecord(record domain.AttemptRecord) attemptResultRow {
	return attemptResultRow{
		AttemptID:      record.AttemptID,
		QuizID:         record.QuizID,
		UserID:         record.UserID,
		PointsEarned:   record.Result.PointsEarned,
		PointsPossible: record.Result.PointsPossible,
		Percentage:     record.Result.Percentage,
		TimeSpentTotal: record.Result.TimeSpentTotal,
		TimedOut:       record.Result.TimedOut,
		PerQuestion:    record.Result.PerQuestion,
		StartedAt:      record.StartedAt,
		SubmittedAt:    record.SubmittedAt,
	}
}

func (r attemptResultRow) record() domain.AttemptRecord {
	return domain.AttemptRecord{
		AttemptID: r.AttemptID,
		QuizID:    r.QuizID,
		UserID:    r.UserID,
		Result: domain.SubmissionResult{
			PointsEarned:   r.PointsEarned,
			PointsPossible: r.PointsPossible,
			Percentage:     r.Percentage,
			PerQuestion:    r.PerQuestion,
			TimeSpentTotal: r.TimeSpentTotal,
			TimedOut:       r.TimedOut,
		},
		StartedAt:   r.StartedAt,
		SubmittedAt: r.SubmittedAt,
	}
}

// ResultStore persists scored attempts in the attempt_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

// PersistResult inserts the record; a second write for the same attempt is ignored.
func (s *ResultStore) PersistResult(ctx context.Context, record domain.AttemptRecord) error {
	row := rowFromRecord(record)
	if _, err := s.db.NewInsert().Model(&row).On("CONFLICT (attempt_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("insert attempt result: %w", err)
	}
	return nil
}

func (s *ResultStore) ResultsByUser(ctx context.Context, userID string) ([]domain.AttemptRecord, error) {
	var rows []attemptResultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select attempt results: %w", err)
	}
	out := make([]domain.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

type leaderboardRow struct {
	UserID       string    `bun:"user_id"`
	Percentage   int       `bun:"percentage"`
	PointsEarned int       `bun:"points_earned"`
	SubmittedAt  time.Time `bun:"submitted_at"`
}

const leaderboardQuery = `
SELECT user_id, percentage, points_earned, submitted_at FROM (
    SELECT DISTINCT ON (user_id) user_id, percentage, points_earned, submitted_at
    FROM attempt_results
    WHERE quiz_id = ?
    ORDER BY user_id, percentage DESC, submitted_at ASC
) best
ORDER BY percentage DESC, submitted_at ASC, user_id ASC
LIMIT ?`

// Leaderboard returns each user's best attempt, highest percentage first and
// earlier submissions ahead on ties.
func (s *ResultStore) Leaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, leaderboardQuery, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var best []leaderboardRow
	if err := s.db.ScanRows(ctx, rows, &best); err != nil {
		return nil, fmt.Errorf("scan leaderboard: %w", err)
	}
	out := make([]domain.LeaderboardEntry, 0, len(best))
	for _, row := range best {
		out = append(out, domain.LeaderboardEntry{
			UserID:       row.UserID,
			Percentage:   row.Percentage,
			PointsEarned: row.PointsEarned,
			SubmittedAt:  row.SubmittedAt,
		})
	}
	return out, nil
}

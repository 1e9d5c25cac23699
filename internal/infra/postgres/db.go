package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/postgres/migrations"
)

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending migration and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return group, nil
}

// SeedQuizzes upserts quizzes into the catalog table.
func SeedQuizzes(ctx context.Context, db *bun.DB, quizzes []domain.Quiz) error {
	for _, quiz := range quizzes {
		if err := quiz.Validate(); err != nil {
			return fmt.Errorf("seed quiz %q: %w", quiz.ID, err)
		}
		questions, err := json.Marshal(quiz.Questions)
		if err != nil {
			return fmt.Errorf("marshal quiz %q: %w", quiz.ID, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO quizzes (id, title, time_limit, questions) VALUES (?, ?, ?, ?::jsonb)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, time_limit=EXCLUDED.time_limit,
			questions=EXCLUDED.questions, updated_at=now()`,
			quiz.ID, quiz.Title, quiz.TimeLimit, string(questions),
		); err != nil {
			return fmt.Errorf("upsert quiz %q: %w", quiz.ID, err)
		}
	}
	return nil
}

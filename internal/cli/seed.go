package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/infra/mongo"
	"quiz-attempt-service/internal/infra/postgres"
)

// NewSeedCmd loads the sample quizzes into the configured catalog.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample quizzes into the catalog database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runSeed(cmd.Context(), cfg, log)
		},
	}
}

func runSeed(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	quizzes := sampleQuizzes()
	list := make([]string, 0, len(quizzes))
	for id := range quizzes {
		list = append(list, id)
	}

	switch backend := config.Backend(cfg.Quiz.Catalog, catalogStatic); backend {
	case catalogPostgres:
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		if err := postgres.SeedQuizzes(ctx, db, quizList(quizzes)); err != nil {
			return err
		}
	case catalogMongo:
		client, err := mongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		catalog := mongo.NewQuizCatalog(client.Database(mongoDatabase(cfg)))
		if err := catalog.SeedQuizzes(ctx, quizList(quizzes)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("catalog %q cannot be seeded", backend)
	}
	log.Info("quizzes seeded", zap.Strings("quiz_ids", list))
	return nil
}

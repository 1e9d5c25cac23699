package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/infra/mongo"
	"quiz-attempt-service/internal/infra/postgres"
	"quiz-attempt-service/internal/infra/rabbit"
	redisinfra "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/logging"
	"quiz-attempt-service/internal/metrics"
	transport "quiz-attempt-service/internal/transport/http"
)

const (
	catalogStatic   = "static"
	catalogPostgres = "postgres"
	catalogMongo    = "mongo"

	storeMemory = "memory"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServer(cmd.Context(), cfg, log, *port)
		},
	}
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return cfg, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// resources collects everything that must be closed on shutdown.
type resources struct {
	closers []func()
}

func (r *resources) add(fn func()) {
	r.closers = append(r.closers, fn)
}

func (r *resources) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func runServer(ctx context.Context, cfg config.Config, log *zap.Logger, portFlag string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res := &resources{}
	defer res.close()

	if usesPostgres(cfg) {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		res.add(func() { _ = redisClient.Close() })
	}

	loader, err := buildCatalog(ctx, cfg, res)
	if err != nil {
		return err
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, loader, quizTTL, log)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var attempts app.AttemptStore
	if redisClient != nil {
		store := redisinfra.NewAttemptStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour), log)
		loaded, err := store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load attempts: %w", err)
		}
		log.Info("attempts restored from redis", zap.Int("count", loaded))
		attempts = store
	} else {
		attempts = memory.NewAttemptStore()
	}

	results, err := buildResults(ctx, cfg, res)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	opts := []app.Option{
		app.WithLogger(log),
		app.WithMetrics(metrics.New(registry)),
		app.WithRetention(config.TTLDuration(cfg.Attempts.Retention, 30*time.Minute)),
	}
	if cfg.Rabbit.URL != "" {
		exchange := config.Backend(cfg.Rabbit.Exchange, "quiz.events")
		publisher, err := rabbit.NewResultPublisher(cfg.Rabbit.URL, exchange)
		if err != nil {
			return err
		}
		res.add(func() { _ = publisher.Close() })
		opts = append(opts, app.WithPublishers(publisher))
	}
	service := app.NewAttemptService(quizRepo, attempts, results, opts...)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, log, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting quiz attempt service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return service.RunTimer(gctx, config.TTLDuration(cfg.Attempts.TickInterval, time.Second))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildCatalog(ctx context.Context, cfg config.Config, res *resources) (memory.QuizLoader, error) {
	switch backend := config.Backend(cfg.Quiz.Catalog, catalogStatic); backend {
	case catalogStatic:
		return memory.NewStaticQuizLoader(sampleQuizzes()), nil
	case catalogPostgres:
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		res.add(pool.Close)
		return postgres.NewQuizLoader(pool), nil
	case catalogMongo:
		client, err := mongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		res.add(func() { _ = client.Disconnect(context.Background()) })
		return mongo.NewQuizCatalog(client.Database(mongoDatabase(cfg))), nil
	default:
		return nil, fmt.Errorf("unknown quiz catalog %q", backend)
	}
}

func buildResults(ctx context.Context, cfg config.Config, res *resources) (app.ResultStore, error) {
	switch backend := config.Backend(cfg.Results.Store, storeMemory); backend {
	case storeMemory:
		return memory.NewResultStore(), nil
	case catalogPostgres:
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("postgres url not configured")
		}
		db := postgres.OpenDB(cfg.Postgres.URL)
		res.add(func() { _ = db.Close() })
		return postgres.NewResultStore(db), nil
	case catalogMongo:
		client, err := mongo.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		res.add(func() { _ = client.Disconnect(context.Background()) })
		store := mongo.NewResultStore(client.Database(mongoDatabase(cfg)))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown result store %q", backend)
	}
}

// usesPostgres reports whether the catalog or the result store lives in Postgres.
func usesPostgres(cfg config.Config) bool {
	return config.Backend(cfg.Quiz.Catalog, catalogStatic) == catalogPostgres ||
		config.Backend(cfg.Results.Store, storeMemory) == catalogPostgres
}

func mongoDatabase(cfg config.Config) string {
	return config.Backend(cfg.Mongo.Database, "quizapp")
}

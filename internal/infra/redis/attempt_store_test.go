package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/domain"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/session"
)

func TestAttemptStoreRestoresAfterRestart(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	results := memory.NewResultStore()

	first := app.NewAttemptService(quizzes, NewAttemptStore(newClient(mr), time.Hour, nil), results)
	view, err := first.Start(ctx, "quiz-1", "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := first.Answer(ctx, view.AttemptID, 1, 4); err != nil {
		t.Fatalf("answer: %v", err)
	}
	first.TickAll(ctx, 10)
	if !mr.Exists("quiz:attempt:" + view.AttemptID) {
		t.Fatalf("expected attempt snapshot in redis")
	}

	// A fresh store over the same redis plays the part of a restarted process.
	second := app.NewAttemptService(quizzes, NewAttemptStore(newClient(mr), time.Hour, nil), results)
	restored, err := second.Get(ctx, view.AttemptID)
	if err != nil {
		t.Fatalf("get restored: %v", err)
	}
	if restored.Phase != session.Active || restored.TimeRemaining != 20 || len(restored.Answers) != 1 {
		t.Fatalf("unexpected restored view: %+v", restored)
	}

	result, err := second.Submit(ctx, view.AttemptID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Percentage != 100 {
		t.Fatalf("expected 100%%, got %d", result.Percentage)
	}
}

func TestAttemptStoreDeleteClearsKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewAttemptStore(newClient(mr), time.Minute, nil)
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	service := app.NewAttemptService(quizzes, store, memory.NewResultStore())

	view, err := service.Start(ctx, "quiz-1", "bob")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := service.Abandon(ctx, view.AttemptID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if mr.Exists("quiz:attempt:" + view.AttemptID) {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get(ctx, view.AttemptID); ok {
		t.Fatalf("expected attempt gone")
	}
}

func TestAttemptStoreExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	service := app.NewAttemptService(quizzes, NewAttemptStore(newClient(mr), time.Minute, nil), memory.NewResultStore())
	view, err := service.Start(ctx, "quiz-1", "carol")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	fresh := NewAttemptStore(newClient(mr), time.Minute, nil)
	if _, ok := fresh.Get(ctx, view.AttemptID); ok {
		t.Fatalf("expected expired attempt to be gone")
	}
}

func TestLoadedAttemptTimesOutWithoutClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)
	results := memory.NewResultStore()

	first := app.NewAttemptService(quizzes, NewAttemptStore(newClient(mr), time.Hour, nil), results)
	view, err := first.Start(ctx, "quiz-1", "dana")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	first.TickAll(ctx, 10)

	// The player is gone; only the restarted process's timer touches the attempt.
	store := NewAttemptStore(newClient(mr), time.Hour, nil)
	loaded, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != 1 || len(store.All()) != 1 {
		t.Fatalf("expected one adopted attempt, got %d", loaded)
	}
	if again, err := store.Load(ctx); err != nil || again != 0 {
		t.Fatalf("expected second load to adopt nothing, got %d, %v", again, err)
	}

	second := app.NewAttemptService(quizzes, store, results)
	second.TickAll(ctx, 20)

	records, err := results.ResultsByUser(ctx, "dana")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(records) != 1 || records[0].AttemptID != view.AttemptID || !records[0].Result.TimedOut {
		t.Fatalf("expected one timed out record, got %+v", records)
	}
}

func TestLoadSkipsUnreadableSnapshots(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	if err := mr.Set("quiz:attempt:broken", "{not json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	store := NewAttemptStore(newClient(mr), time.Hour, nil)
	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != 0 || len(store.All()) != 0 {
		t.Fatalf("expected nothing adopted, got %d", loaded)
	}
}

package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-attempt-service/internal/domain"
)

// ResultStore keeps scored attempts in process memory.
type ResultStore struct {
	mu      sync.RWMutex
	records map[string]domain.AttemptRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{records: make(map[string]domain.AttemptRecord)}
}

// PersistResult stores the record; writing the same attempt twice keeps the first copy.
func (s *ResultStore) PersistResult(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.AttemptID]; !ok {
		s.records[record.AttemptID] = record
	}
	return nil
}

func (s *ResultStore) ResultsByUser(_ context.Context, userID string) ([]domain.AttemptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptRecord, 0)
	for _, record := range s.records {
		if record.UserID == userID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// Leaderboard keeps each user's best attempt: highest percentage, then the
// earliest submission.
func (s *ResultStore) Leaderboard(_ context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	best := make(map[string]domain.LeaderboardEntry)
	for _, record := range s.records {
		if record.QuizID != quizID {
			continue
		}
		entry := domain.LeaderboardEntry{
			UserID:       record.UserID,
			Percentage:   record.Result.Percentage,
			PointsEarned: record.Result.PointsEarned,
			SubmittedAt:  record.SubmittedAt,
		}
		if current, ok := best[record.UserID]; !ok || ranksBefore(entry, current) {
			best[record.UserID] = entry
		}
	}
	s.mu.RUnlock()

	entries := make([]domain.LeaderboardEntry, 0, len(best))
	for _, entry := range best {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return ranksBefore(entries[i], entries[j])
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func ranksBefore(a, b domain.LeaderboardEntry) bool {
	if a.Percentage != b.Percentage {
		return a.Percentage > b.Percentage
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.UserID < b.UserID
}

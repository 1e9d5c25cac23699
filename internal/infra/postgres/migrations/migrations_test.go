package migrations

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreNamedAfterTheirFiles(t *testing.T) {
	sorted := Migrations.Sorted()
	names := make([]string, 0, len(sorted))
	comments := make([]string, 0, len(sorted))
	for _, m := range sorted {
		names = append(names, m.Name)
		comments = append(comments, m.Comment)
	}
	require.Equal(t, []string{"2024112201", "2024120501"}, names)
	require.Equal(t, []string{"create_quizzes", "create_attempt_results"}, comments)
}

func TestDDLIsEmbedded(t *testing.T) {
	require.Contains(t, quizzesDDL, "CREATE TABLE IF NOT EXISTS quizzes")
	require.Contains(t, attemptResultsDDL, "CREATE TABLE IF NOT EXISTS attempt_results")
}

package migrations

import _ "embed"

//go:embed 2024120501_create_attempt_results.sql
var attemptResultsDDL string

func init() {
	Migrations.MustRegister(execDDL("attempt_results", attemptResultsDDL), dropTable("attempt_results"))
}

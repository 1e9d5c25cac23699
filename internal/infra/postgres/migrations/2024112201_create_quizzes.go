package migrations

import _ "embed"

//go:embed 2024112201_create_quizzes.sql
var quizzesDDL string

func init() {
	Migrations.MustRegister(execDDL("quizzes", quizzesDDL), dropTable("quizzes"))
}

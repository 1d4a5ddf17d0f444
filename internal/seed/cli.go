package seed

import "os"

// ShowHelp prints usage information for the seeder.
func ShowHelp() {
	os.Stdout.WriteString(`almog season seeder
===================

Generates a synthetic season of GPS session records and loads it into a
running service or directly into a SQL store.

Usage:
  go run ./cmd/seed [options]

Options:
  -url string
        Base URL of a running service; rows are POSTed to /sessions
  -driver string
        Store driver when -url is empty: sqlite or postgres (default "sqlite")
  -dsn string
        Store DSN when -url is empty (default "almog.db")
  -table string
        Sessions table name (default "sessions")
  -players int
        Players per team (default 18)
  -teams string
        Comma-separated team names (default "First Team,U21")
  -start string
        First day of the season, YYYY-MM-DD (default 12 weeks ago)
  -weeks int
        Number of weeks (default 12)
  -sessions int
        Training sessions per player per week, plus one match (default 4)
  -seed int
        Random seed (default 1)
  -batch int
        Rows per insert or POST (default 500)
  -workers int
        Concurrent POST workers (default 4)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Also write the generated rows to this JSON file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Seed a local sqlite file
  go run ./cmd/seed -dsn almog.db

  # Upload a season to a running service
  go run ./cmd/seed -url http://localhost:9080 -weeks 20
`)
}

// Command migrate applies schema migrations for both backing stores: the
// Postgres entity/notification schema and the ClickHouse analytics event
// table.
package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

// Exit codes for the migrate command.
const (
	exitSuccess = 0
	exitFailure = 1
)

// Relative paths to the per-database migration directories.
const (
	postgresMigrations   = "file://migrations/postgres"
	clickhouseMigrations = "file://migrations/clickhouse"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: migrate <up|down>")
		return exitFailure
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction: %q (must be \"up\" or \"down\")\n", direction)
		return exitFailure
	}

	_ = godotenv.Load()

	pgURL := os.Getenv("DATABASE_URL")
	if pgURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		return exitFailure
	}

	chURL, err := buildClickHouseURL()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build ClickHouse URL: %v\n", err)
		return exitFailure
	}

	if err := runMigration(postgresMigrations, pgURL, direction); err != nil {
		fmt.Fprintf(os.Stderr, "Postgres migration %s failed: %v\n", direction, err)
		return exitFailure
	}
	if err := runMigration(clickhouseMigrations, chURL, direction); err != nil {
		fmt.Fprintf(os.Stderr, "ClickHouse migration %s failed: %v\n", direction, err)
		return exitFailure
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return exitSuccess
}

// buildClickHouseURL constructs the migrate DSN from the same environment
// variables the API server uses for its native connection.
func buildClickHouseURL() (string, error) {
	host := os.Getenv("CLICKHOUSE_HOST")
	port := os.Getenv("CLICKHOUSE_NATIVE_PORT")
	dbName := os.Getenv("CLICKHOUSE_DB_NAME")
	if host == "" || port == "" || dbName == "" {
		return "", errors.New("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT, and CLICKHOUSE_DB_NAME are required")
	}

	q := url.Values{}
	q.Set("database", dbName)
	q.Set("username", os.Getenv("CLICKHOUSE_USERNAME"))
	q.Set("password", os.Getenv("CLICKHOUSE_PASSWORD"))
	q.Set("x-multi-statement", "true")

	return fmt.Sprintf("clickhouse://%s:%s?%s", host, port, q.Encode()), nil
}

// runMigration executes one source/database pair in the given direction.
func runMigration(sourceURL, databaseURL, direction string) error {
	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens a SQLite database at the given path and runs migrations.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// VerifyRoles checks that every required role marker was provisioned by the
// migrations. The policy layer assumes these exist, so a missing role is a
// deployment error and the process should fail at startup, not at request time.
func VerifyRoles(db *sql.DB, roles ...string) error {
	for _, role := range roles {
		var name string
		err := db.QueryRow(`SELECT name FROM roles WHERE name = ?`, role).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("role %q is not provisioned", role)
		}
		if err != nil {
			return fmt.Errorf("verify role %q: %w", role, err)
		}
	}
	return nil
}

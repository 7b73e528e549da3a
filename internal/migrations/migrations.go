// Package migrations owns the schema for the game document tables
// (games, players, rounds, player_sessions). The SQL files are
// embedded so a deployed binary migrates its own database at startup.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var migrationsFS embed.FS

// Run applies all pending migrations, bringing the game tables up to
// the latest schema. Safe to call on every startup; goose tracks the
// applied version in the database itself.
func Run(db *sql.DB) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("applying game table migrations: %w", err)
	}
	return nil
}

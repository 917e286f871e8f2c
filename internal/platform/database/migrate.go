package database

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Migrate applies every embedded migration for direction. Up runs in file
// order, down in reverse. Statements are idempotent so re-running is safe.
func Migrate(db *sql.DB, direction string) error {
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("invalid migration direction %q: must be up or down", direction)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*."+direction+".sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	if direction == DirectionDown {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	for _, name := range names {
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		log.Debug().Str("migration", strings.TrimPrefix(name, "migrations/")).Msg("applying migration")
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", name, err)
		}
	}
	return nil
}

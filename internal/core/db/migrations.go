package db

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/mmdsgate/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string     `db:"migration_id"`
	Checksum    string     `db:"checksum"`
	Applied     bool       `db:"-"`
	AppliedAt   *time.Time `db:"applied_at"`
	ExecutionMs int64      `db:"execution_ms"`
}

// migration is one parsed .sql file.
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// Both drivers accept TIMESTAMP; go-sqlite3 parses it back into time.Time.
const createMigrationsTableSQL = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL,
		execution_ms INTEGER NOT NULL
	)
`

// MigrateUp applies every pending embedded migration for the connected driver.
// Already-applied migrations are checksum-verified first; a mismatch aborts before any change.
func MigrateUp(db *sqlx.DB) error {
	pending, err := loadMigrations(db)
	if err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	if err := verifyChecksums(pending, applied); err != nil {
		return fmt.Errorf("migration checksum validation failed: %w", err)
	}

	for _, m := range pending {
		if _, ok := applied[m.ID]; ok {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateStatus lists embedded migrations in order with their applied state.
func MigrateStatus(db *sqlx.DB) ([]MigrationStatus, error) {
	migrations, err := loadMigrations(db)
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{ID: m.ID, Checksum: m.Checksum})
	}
	return statuses, nil
}

// loadMigrations ensures the tracking table exists and parses the driver's migration set.
func loadMigrations(db *sqlx.DB) ([]migration, error) {
	var fsys fs.FS
	switch db.DriverName() {
	case DriverSQLite:
		fsys = embeddedmigrations.SqliteMigrations
	case DriverPostgres:
		fsys = embeddedmigrations.PostgresMigrations
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	if _, err := db.Exec(createMigrationsTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}
	return migrations, nil
}

// parseMigrationFiles reads every *.sql file at any depth, ordered by file name.
func parseMigrationFiles(fsys fs.FS) ([]migration, error) {
	var migrations []migration
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".sql" {
			return nil
		}
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}
		migrations = append(migrations, migration{
			ID:       path.Base(p),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].ID < migrations[j].ID })
	return migrations, nil
}

func appliedMigrations(db *sqlx.DB) (map[string]MigrationStatus, error) {
	var rows []MigrationStatus
	if err := db.Select(&rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM schema_migrations"); err != nil {
		return nil, err
	}
	applied := make(map[string]MigrationStatus, len(rows))
	for _, r := range rows {
		r.Applied = true
		applied[r.ID] = r
	}
	return applied, nil
}

func verifyChecksums(embedded []migration, applied map[string]MigrationStatus) error {
	known := make(map[string]string, len(embedded))
	for _, m := range embedded {
		known[m.ID] = m.Checksum
	}
	for id, s := range applied {
		want, ok := known[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if s.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, want, s.Checksum)
		}
	}
	return nil
}

// applyMigration runs one migration and records it in the same transaction.
// Statements are split on ';' because lib/pq rejects multi-statement Exec.
func applyMigration(db *sqlx.DB, m migration) error {
	start := time.Now()
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(m.SQL, ";") {
		stmt = stripComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}
	}

	_, err = tx.Exec(
		tx.Rebind("INSERT INTO schema_migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.ID, m.Checksum, time.Now().UTC(), time.Since(start).Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
	}
	return nil
}

// stripComments drops full-line "--" comments and surrounding whitespace.
func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

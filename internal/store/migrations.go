package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const recordMigration = `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`

// migration is one numbered schema change, read from migrations/NNNN_name.sql.
type migration struct {
	version int
	name    string
	sql     string
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.version, m.name)
}

// migrator applies embedded migrations to a SQLite database.
type migrator struct {
	db     *sql.DB
	source fs.FS
}

func newMigrator(db *sql.DB) *migrator {
	return &migrator{db: db, source: migrationsFS}
}

// up applies every migration not yet recorded in schema_migrations.
func (m *migrator) up() error {
	if _, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	all, err := m.load()
	if err != nil {
		return err
	}
	if err := m.baseline(all); err != nil {
		return err
	}

	done, err := m.applied()
	if err != nil {
		return err
	}
	for _, mg := range all {
		if done[mg.version] {
			continue
		}
		if err := m.apply(mg); err != nil {
			return err
		}
	}
	return nil
}

// load reads and orders the migration files.
func (m *migrator) load() ([]migration, error) {
	files, err := fs.Glob(m.source, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := make(map[int]migration, len(files))
	for _, file := range files {
		version, name, err := parseMigrationFilename(path.Base(file))
		if err != nil {
			return nil, err
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d (%s)", version, prev)
		}

		content, err := fs.ReadFile(m.source, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		byVersion[version] = migration{version: version, name: name, sql: string(content)}
	}

	out := make([]migration, 0, len(byVersion))
	for _, mg := range byVersion {
		out = append(out, mg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// parseMigrationFilename splits "0001_create_tasks.sql" into 1 and "create_tasks".
func parseMigrationFilename(filename string) (int, string, error) {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	num, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", fmt.Errorf("invalid migration filename %q: expected '<version>_<name>.sql'", filename)
	}

	version, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", fmt.Errorf("invalid migration version in %q: %w", filename, err)
	}
	return version, name, nil
}

func (m *migrator) applied() (map[int]bool, error) {
	rows, err := m.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		done[v] = true
	}
	return done, rows.Err()
}

// apply runs one migration and records it in the same transaction.
func (m *migrator) apply(mg migration) error {
	return m.inTx(mg.String(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(mg.sql); err != nil {
			return err
		}
		_, err := tx.Exec(recordMigration, mg.version, mg.name)
		return err
	})
}

// baseline records migrations as applied for a tasks table created before
// schema_migrations existed, so they are not replayed on top of it.
func (m *migrator) baseline(all []migration) error {
	var count int
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count existing migrations: %w", err)
	}
	if count > 0 {
		return nil
	}

	hasTasks, err := m.hasObject("table", "tasks")
	if err != nil || !hasTasks {
		return err
	}

	hasText, err := m.hasColumn("tasks", "text")
	if err != nil {
		return err
	}
	if !hasText {
		return errors.New("existing tasks table has an incompatible schema (missing text column)")
	}

	upTo := 1
	if ok, err := m.hasObject("index", "idx_tasks_created_at"); err != nil {
		return err
	} else if ok {
		upTo = 2
	}

	return m.inTx("baseline", func(tx *sql.Tx) error {
		for _, mg := range all {
			if mg.version > upTo {
				break
			}
			if _, err := tx.Exec(recordMigration, mg.version, mg.name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *migrator) inTx(label string, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", label, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("failed to apply migration %s: %w", label, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", label, err)
	}
	return nil
}

// hasObject reports whether sqlite_master holds an object of kind ("table", "index") named name.
func (m *migrator) hasObject(kind, name string) (bool, error) {
	var found string
	err := m.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = ? AND name = ?`, kind, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s %s: %w", kind, name, err)
	}
	return true, nil
}

func (m *migrator) hasColumn(table, column string) (bool, error) {
	var n int
	err := m.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	return n > 0, nil
}

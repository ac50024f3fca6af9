package datastore

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Sqlite3Adapter provides support for SQLite3 databases.
type Sqlite3Adapter struct{}

func (s Sqlite3Adapter) EnsureVersionTableExists(db *sqlx.DB) (err error) {
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS "schema_migrations" ("version" INTEGER PRIMARY KEY NOT NULL)`)
	if err != nil {
		return err
	}

	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`)
	if err != nil {
		return err
	}
	switch {
	case count == 0:
		_, err = db.Exec(`INSERT INTO schema_migrations (version) VALUES (0)`)
	case count > 1:
		err = errors.New("too many rows in schema_migrations table")
	}

	return err
}

func (s Sqlite3Adapter) PostCreate(db *sqlx.DB) (err error) {
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return err
	}
	// Faster than using default journal file
	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return err
	}
	// Default (full) is slower
	_, err = db.Exec("PRAGMA synchronous = NORMAL")
	if err != nil {
		return err
	}

	return nil
}

func (s Sqlite3Adapter) up() []string {
	return []string{
		// 1
		`
CREATE TABLE "project" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "name" TEXT NOT NULL,
    "source_lang" TEXT NOT NULL,
    "target_lang" TEXT NOT NULL,
    "status" TEXT NOT NULL DEFAULT 'active',
    "translator_id" INTEGER,
    "reviewer_id" INTEGER,
    "settings" TEXT
);
CREATE TABLE "segment" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "project_id" INTEGER NOT NULL REFERENCES "project"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "segment_number" INTEGER NOT NULL,
    "source_text" TEXT NOT NULL,
    "target_text" TEXT NOT NULL DEFAULT '',
    "status" TEXT NOT NULL DEFAULT 'untranslated',
    "qa_flags" TEXT NOT NULL DEFAULT '',
    "review_comment" TEXT NOT NULL DEFAULT '',
    "updated_at" INTEGER NOT NULL
);
CREATE UNIQUE INDEX "project_segment_number" ON "segment" ("project_id","segment_number");
CREATE INDEX "segment_project_id" ON "segment" ("project_id");
CREATE TABLE "tm_entry" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "source_text" TEXT NOT NULL,
    "normalized_source" TEXT NOT NULL,
    "target_text" TEXT NOT NULL,
    "source_lang" TEXT NOT NULL,
    "target_lang" TEXT NOT NULL,
    "updated_at" INTEGER NOT NULL
);
CREATE UNIQUE INDEX "tm_key" ON "tm_entry" ("normalized_source","source_lang","target_lang");
CREATE INDEX "tm_lang_pair" ON "tm_entry" ("source_lang","target_lang");
CREATE TABLE "glossary_term" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "term" TEXT NOT NULL,
    "translation" TEXT NOT NULL,
    "source_lang" TEXT NOT NULL,
    "target_lang" TEXT NOT NULL,
    "description" TEXT
);
CREATE INDEX "glossary_lang_pair" ON "glossary_term" ("source_lang","target_lang");
`,
	}
}

func (s Sqlite3Adapter) down() []string {
	return []string{
		// 1
		`
DROP TABLE glossary_term;
DROP TABLE tm_entry;
DROP TABLE segment;
DROP TABLE project;
`,
	}
}

func (s Sqlite3Adapter) MigrateUp(db *sqlx.DB) (version int64, err error) {
	startVer, err := s.version(db)
	if err != nil {
		return version, err
	}

	for i, query := range s.up() {
		migTo := int64(i + 1)
		if migTo <= startVer {
			version = migTo
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = s.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (s Sqlite3Adapter) MigrateDown(db *sqlx.DB) (version int64, err error) {
	startVer, err := s.version(db)
	if err != nil {
		return version, err
	}

	down := s.down()
	for i := len(down) - 1; i >= 0; i-- {
		query := down[i]
		migVer := int64(i + 1) // The version of the Down migration we will apply
		migTo := int64(i)      // The version we will end up at

		// Skip migrations for newer versions
		if migVer > startVer {
			version = startVer
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = s.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (s Sqlite3Adapter) SupportsLastInsertId() bool {
	return true
}

func (s Sqlite3Adapter) CreateProjectQuery() string {
	return "INSERT INTO project (name, source_lang, target_lang, status, translator_id, reviewer_id, settings) VALUES (?, ?, ?, ?, ?, ?, ?)"
}

func (s Sqlite3Adapter) GetSingleProjectQuery() string {
	return "SELECT id, name, source_lang, target_lang, status, translator_id, reviewer_id, settings FROM project WHERE id = ?"
}

func (s Sqlite3Adapter) GetAllProjectsQuery() string {
	return "SELECT id, name, source_lang, target_lang, status, translator_id, reviewer_id, settings FROM project ORDER BY id"
}

func (s Sqlite3Adapter) UpdateProjectStatusQuery() string {
	return "UPDATE project SET status = ? WHERE id = ?"
}

func (s Sqlite3Adapter) CreateSegmentQuery() string {
	return "INSERT INTO segment (project_id, segment_number, source_text, target_text, status, qa_flags, review_comment, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
}

func (s Sqlite3Adapter) GetSingleSegmentQuery() string {
	return "SELECT id, project_id, segment_number, source_text, target_text, status, qa_flags, review_comment, updated_at FROM segment WHERE id = ?"
}

func (s Sqlite3Adapter) GetProjectSegmentsQuery() string {
	return "SELECT id, project_id, segment_number, source_text, target_text, status, qa_flags, review_comment, updated_at FROM segment WHERE project_id = ? ORDER BY segment_number"
}

func (s Sqlite3Adapter) GetStatusCountsQuery() string {
	return "SELECT status, COUNT(*) AS n FROM segment WHERE project_id = ? GROUP BY status"
}

func (s Sqlite3Adapter) UpdateSegmentQuery() string {
	return "UPDATE segment SET target_text = ?, status = ?, qa_flags = ?, review_comment = ?, updated_at = ? WHERE id = ? AND updated_at = ?"
}

func (s Sqlite3Adapter) CreateTMEntryQuery() string {
	return "INSERT INTO tm_entry (source_text, normalized_source, target_text, source_lang, target_lang, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
}

func (s Sqlite3Adapter) GetSingleTMEntryIdQuery() string {
	return "SELECT id FROM tm_entry WHERE normalized_source = ? AND source_lang = ? AND target_lang = ?"
}

func (s Sqlite3Adapter) GetTMEntriesQuery() string {
	return "SELECT id, source_text, target_text, source_lang, target_lang, updated_at FROM tm_entry WHERE source_lang = ? AND target_lang = ? ORDER BY updated_at DESC"
}

func (s Sqlite3Adapter) UpdateTMEntryQuery() string {
	return "UPDATE tm_entry SET source_text = ?, target_text = ?, updated_at = ? WHERE id = ?"
}

func (s Sqlite3Adapter) CreateGlossaryTermQuery() string {
	return "INSERT INTO glossary_term (term, translation, source_lang, target_lang, description) VALUES (?, ?, ?, ?, ?)"
}

func (s Sqlite3Adapter) GetGlossaryTermsQuery() string {
	return "SELECT id, term, translation, source_lang, target_lang, description FROM glossary_term WHERE source_lang = ? AND target_lang = ? ORDER BY term"
}

func (s Sqlite3Adapter) version(db *sqlx.DB) (version int64, err error) {
	row := db.QueryRow("SELECT version FROM schema_migrations")
	err = row.Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, err
	default:
		return version, nil
	}
}

func (s Sqlite3Adapter) updateVersion(version int64, db *sqlx.DB) (err error) {
	_, err = db.Exec("UPDATE schema_migrations SET version = ?", int64(version))

	return err
}

package datastore

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// PostgresAdapter provides support for PostgreSQL databases.
type PostgresAdapter struct{}

func (a PostgresAdapter) EnsureVersionTableExists(db *sqlx.DB) (err error) {
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version integer PRIMARY KEY NOT NULL)`)
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

func (a PostgresAdapter) PostCreate(db *sqlx.DB) (err error) {
	return nil
}

func (a PostgresAdapter) up() []string {
	return []string{
		// 1
		`
CREATE TABLE project (
    id bigserial PRIMARY KEY,
    name text NOT NULL,
    source_lang text NOT NULL,
    target_lang text NOT NULL,
    status text NOT NULL DEFAULT 'active',
    translator_id bigint,
    reviewer_id bigint,
    settings text
);
CREATE TABLE segment (
    id bigserial PRIMARY KEY,
    project_id bigint NOT NULL REFERENCES project (id) ON UPDATE CASCADE ON DELETE CASCADE,
    segment_number integer NOT NULL,
    source_text text NOT NULL,
    target_text text NOT NULL DEFAULT '',
    status text NOT NULL DEFAULT 'untranslated',
    qa_flags text NOT NULL DEFAULT '',
    review_comment text NOT NULL DEFAULT '',
    updated_at bigint NOT NULL
);
CREATE UNIQUE INDEX project_segment_number ON segment (project_id, segment_number);
CREATE INDEX segment_project_id ON segment (project_id);
CREATE TABLE tm_entry (
    id bigserial PRIMARY KEY,
    source_text text NOT NULL,
    normalized_source text NOT NULL,
    target_text text NOT NULL,
    source_lang text NOT NULL,
    target_lang text NOT NULL,
    updated_at bigint NOT NULL
);
CREATE UNIQUE INDEX tm_key ON tm_entry (normalized_source, source_lang, target_lang);
CREATE INDEX tm_lang_pair ON tm_entry (source_lang, target_lang);
CREATE TABLE glossary_term (
    id bigserial PRIMARY KEY,
    term text NOT NULL,
    translation text NOT NULL,
    source_lang text NOT NULL,
    target_lang text NOT NULL,
    description text
);
CREATE INDEX glossary_lang_pair ON glossary_term (source_lang, target_lang);
`,
	}
}

func (a PostgresAdapter) down() []string {
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

func (a PostgresAdapter) MigrateUp(db *sqlx.DB) (version int64, err error) {
	startVer, err := a.version(db)
	if err != nil {
		return version, err
	}

	for i, query := range a.up() {
		migTo := int64(i + 1)
		if migTo <= startVer {
			version = migTo
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = a.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (a PostgresAdapter) MigrateDown(db *sqlx.DB) (version int64, err error) {
	startVer, err := a.version(db)
	if err != nil {
		return version, err
	}

	down := a.down()
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

		err = a.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (a PostgresAdapter) SupportsLastInsertId() bool {
	return false
}

func (a PostgresAdapter) CreateProjectQuery() string {
	return "INSERT INTO project (name, source_lang, target_lang, status, translator_id, reviewer_id, settings) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id"
}

func (a PostgresAdapter) GetSingleProjectQuery() string {
	return "SELECT id, name, source_lang, target_lang, status, translator_id, reviewer_id, settings FROM project WHERE id = $1"
}

func (a PostgresAdapter) GetAllProjectsQuery() string {
	return "SELECT id, name, source_lang, target_lang, status, translator_id, reviewer_id, settings FROM project ORDER BY id"
}

func (a PostgresAdapter) UpdateProjectStatusQuery() string {
	return "UPDATE project SET status = $1 WHERE id = $2"
}

func (a PostgresAdapter) CreateSegmentQuery() string {
	return "INSERT INTO segment (project_id, segment_number, source_text, target_text, status, qa_flags, review_comment, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id"
}

func (a PostgresAdapter) GetSingleSegmentQuery() string {
	return "SELECT id, project_id, segment_number, source_text, target_text, status, qa_flags, review_comment, updated_at FROM segment WHERE id = $1"
}

func (a PostgresAdapter) GetProjectSegmentsQuery() string {
	return "SELECT id, project_id, segment_number, source_text, target_text, status, qa_flags, review_comment, updated_at FROM segment WHERE project_id = $1 ORDER BY segment_number"
}

func (a PostgresAdapter) GetStatusCountsQuery() string {
	return "SELECT status, COUNT(*) AS n FROM segment WHERE project_id = $1 GROUP BY status"
}

func (a PostgresAdapter) UpdateSegmentQuery() string {
	return "UPDATE segment SET target_text = $1, status = $2, qa_flags = $3, review_comment = $4, updated_at = $5 WHERE id = $6 AND updated_at = $7"
}

func (a PostgresAdapter) CreateTMEntryQuery() string {
	return "INSERT INTO tm_entry (source_text, normalized_source, target_text, source_lang, target_lang, updated_at) VALUES ($1, $2, $3, $4, $5, $6)"
}

func (a PostgresAdapter) GetSingleTMEntryIdQuery() string {
	return "SELECT id FROM tm_entry WHERE normalized_source = $1 AND source_lang = $2 AND target_lang = $3"
}

func (a PostgresAdapter) GetTMEntriesQuery() string {
	return "SELECT id, source_text, target_text, source_lang, target_lang, updated_at FROM tm_entry WHERE source_lang = $1 AND target_lang = $2 ORDER BY updated_at DESC"
}

func (a PostgresAdapter) UpdateTMEntryQuery() string {
	return "UPDATE tm_entry SET source_text = $1, target_text = $2, updated_at = $3 WHERE id = $4"
}

func (a PostgresAdapter) CreateGlossaryTermQuery() string {
	return "INSERT INTO glossary_term (term, translation, source_lang, target_lang, description) VALUES ($1, $2, $3, $4, $5) RETURNING id"
}

func (a PostgresAdapter) GetGlossaryTermsQuery() string {
	return "SELECT id, term, translation, source_lang, target_lang, description FROM glossary_term WHERE source_lang = $1 AND target_lang = $2 ORDER BY term"
}

func (a PostgresAdapter) version(db *sqlx.DB) (version int64, err error) {
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

func (a PostgresAdapter) updateVersion(version int64, db *sqlx.DB) (err error) {
	_, err = db.Exec("UPDATE schema_migrations SET version = $1", int64(version))

	return err
}

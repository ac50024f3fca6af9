package datastore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rmali83/Glossa/cat"
	"github.com/rmali83/Glossa/config"
)

// Adapter provides database-driver-specific query strings, etc.
type Adapter interface {
	PostCreate(*sqlx.DB) error
	SupportsLastInsertId() bool
	EnsureVersionTableExists(*sqlx.DB) error
	MigrateUp(*sqlx.DB) (int64, error)
	MigrateDown(*sqlx.DB) (int64, error)

	CreateProjectQuery() string
	GetSingleProjectQuery() string
	GetAllProjectsQuery() string
	UpdateProjectStatusQuery() string

	CreateSegmentQuery() string
	GetSingleSegmentQuery() string
	GetProjectSegmentsQuery() string
	GetStatusCountsQuery() string
	UpdateSegmentQuery() string

	CreateTMEntryQuery() string
	GetSingleTMEntryIdQuery() string
	GetTMEntriesQuery() string
	UpdateTMEntryQuery() string

	CreateGlossaryTermQuery() string
	GetGlossaryTermsQuery() string
}

type DataStore struct {
	adapter Adapter
	db      *sqlx.DB
	Stats   Stats

	notifier *notifier
}

type Stats map[StatKey]StatItem

type StatKey struct {
	Name   string
	Action string
}

type StatItem struct {
	Duration time.Duration
	Count    int
}

func (s Stats) Log(name, action string, d time.Duration) {
	item := s[StatKey{Name: name, Action: action}]
	item.Count++
	item.Duration += d
	s[StatKey{Name: name, Action: action}] = item
}

func (s Stats) String() (out string) {
	for k, v := range s {
		out += fmt.Sprintf("%v  %v '%v' actions took %v total, %v avg\n", v.Count, k.Name, k.Action, v.Duration, v.Duration/time.Duration(v.Count))
	}

	return out
}

// Creates a new datastore using the given database connection. The driver parameter is used to
// select the appropriate database adapter, and should be one of the config.DbDriver* constants.
func New(db *sqlx.DB, driver string) (ds *DataStore, err error) {
	adp, err := newAdapter(driver)
	if err != nil {
		return &DataStore{}, err
	}

	ds = &DataStore{
		adapter:  adp,
		db:       db,
		Stats:    make(map[StatKey]StatItem),
		notifier: newNotifier(),
	}

	err = ds.adapter.PostCreate(ds.db)
	if err != nil {
		return ds, err
	}

	return ds, nil
}

func newAdapter(driver string) (adp Adapter, err error) {
	switch driver {
	case config.DbDriverSqlite3:
		adp = &Sqlite3Adapter{}
	case config.DbDriverPostgresql:
		adp = &PostgresAdapter{}
	}

	if adp == nil {
		return nil, fmt.Errorf("no adapter available for database driver '%v'", driver)
	}

	return adp, nil
}

// MigrateUp brings the database schema up to the latest version.
func (ds *DataStore) MigrateUp() (version int64, err error) {
	if err = ds.adapter.EnsureVersionTableExists(ds.db); err != nil {
		return 0, err
	}
	return ds.adapter.MigrateUp(ds.db)
}

// MigrateDown reverts all schema migrations.
func (ds *DataStore) MigrateDown() (version int64, err error) {
	if err = ds.adapter.EnsureVersionTableExists(ds.db); err != nil {
		return 0, err
	}
	return ds.adapter.MigrateDown(ds.db)
}

// wrapDbError converts driver-level failures to the workflow error
// taxonomy. Missing rows are NotFound; anything else is treated as a
// transient backend failure for the autosave retry path.
func wrapDbError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return cat.ErrNotFound
	}
	return cat.Errorf(cat.ErrBackendUnavailable, "%v", err)
}

// Timestamps are stored as integer nanoseconds so the optimistic
// concurrency token compares identically on every driver.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n)
}

// nextToken returns a timestamp strictly after prev, so repeated
// writes within clock resolution still produce a monotonic token.
func nextToken(prev time.Time) time.Time {
	now := time.Now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

// createRow runs an insert and returns the new row's id. The postgres
// driver has no LastInsertId; its create queries end in RETURNING id
// and go through QueryRow instead.
func (ds *DataStore) createRow(query string, args ...interface{}) (id int64, err error) {
	if ds.adapter.SupportsLastInsertId() {
		result, err := ds.db.Exec(query, args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	err = ds.db.QueryRow(query, args...).Scan(&id)
	return id, err
}

type projectRow struct {
	Id           int64          `db:"id"`
	Name         string         `db:"name"`
	SourceLang   string         `db:"source_lang"`
	TargetLang   string         `db:"target_lang"`
	Status       string         `db:"status"`
	TranslatorId sql.NullInt64  `db:"translator_id"`
	ReviewerId   sql.NullInt64  `db:"reviewer_id"`
	Settings     sql.NullString `db:"settings"`
}

func (r projectRow) toProject() (p cat.Project, err error) {
	status, err := cat.ParseProjectStatus(r.Status)
	if err != nil {
		return p, err
	}
	p = cat.Project{
		ID:         r.Id,
		Name:       r.Name,
		SourceLang: r.SourceLang,
		TargetLang: r.TargetLang,
		Status:     status,
		Settings:   r.Settings.String,
	}
	if r.TranslatorId.Valid {
		id := r.TranslatorId.Int64
		p.TranslatorID = &id
	}
	if r.ReviewerId.Valid {
		id := r.ReviewerId.Int64
		p.ReviewerID = &id
	}
	return p, nil
}

type segmentRow struct {
	Id            int64  `db:"id"`
	ProjectId     int64  `db:"project_id"`
	SegmentNumber int    `db:"segment_number"`
	SourceText    string `db:"source_text"`
	TargetText    string `db:"target_text"`
	Status        string `db:"status"`
	QaFlags       string `db:"qa_flags"`
	ReviewComment string `db:"review_comment"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r segmentRow) toSegment() (s cat.Segment, err error) {
	status, err := cat.ParseSegmentStatus(r.Status)
	if err != nil {
		return s, err
	}
	return cat.Segment{
		ID:            r.Id,
		ProjectID:     r.ProjectId,
		SegmentNumber: r.SegmentNumber,
		SourceText:    r.SourceText,
		TargetText:    r.TargetText,
		Status:        status,
		QAFlags:       cat.SplitQAFlags(r.QaFlags),
		ReviewComment: r.ReviewComment,
		UpdatedAt:     fromNanos(r.UpdatedAt),
	}, nil
}

// CreateProject inserts a new project in Active status and returns it.
func (ds *DataStore) CreateProject(p cat.Project) (created cat.Project, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("project", "insert", time.Since(start)) }()

	var translatorId, reviewerId interface{}
	if p.TranslatorID != nil {
		translatorId = *p.TranslatorID
	}
	if p.ReviewerID != nil {
		reviewerId = *p.ReviewerID
	}

	id, err := ds.createRow(ds.adapter.CreateProjectQuery(),
		p.Name, p.SourceLang, p.TargetLang, cat.ProjectActive.String(), translatorId, reviewerId, p.Settings)
	if err != nil {
		return created, wrapDbError(err)
	}

	p.ID = id
	p.Status = cat.ProjectActive
	return p, nil
}

// GetProject fetches a single project by id.
func (ds *DataStore) GetProject(id int64) (p cat.Project, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("project", "get", time.Since(start)) }()

	var row projectRow
	err = ds.db.Get(&row, ds.adapter.GetSingleProjectQuery(), id)
	if err != nil {
		return p, wrapDbError(err)
	}

	return row.toProject()
}

// GetProjectList fetches all projects.
func (ds *DataStore) GetProjectList() (projects []cat.Project, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("project", "get", time.Since(start)) }()

	var rows []projectRow
	err = ds.db.Select(&rows, ds.adapter.GetAllProjectsQuery())
	if err != nil {
		return nil, wrapDbError(err)
	}

	projects = make([]cat.Project, 0, len(rows))
	for _, r := range rows {
		p, err := r.toProject()
		if err != nil {
			return projects, err
		}
		projects = append(projects, p)
	}

	return projects, nil
}

// UpdateProjectStatus writes a project's derived status and notifies
// subscribers of the change.
func (ds *DataStore) UpdateProjectStatus(id int64, status cat.ProjectStatus) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("project", "update", time.Since(start)) }()

	result, err := ds.db.Exec(ds.adapter.UpdateProjectStatusQuery(), status.String(), id)
	if err != nil {
		return wrapDbError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapDbError(err)
	}
	if n == 0 {
		return cat.Errorf(cat.ErrNotFound, "project %v does not exist", id)
	}

	if p, err := ds.GetProject(id); err == nil {
		ds.notifier.publish(ChangeEvent{Table: TableProject, Event: EventUpdate, ProjectID: id, Project: &p})
	}

	return nil
}

// CreateSegment inserts one segment. Segments are created in bulk when
// a project is dispatched; segment numbers are assigned then and never
// reused.
func (ds *DataStore) CreateSegment(projectID int64, segmentNumber int, sourceText string) (s cat.Segment, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("segment", "insert", time.Since(start)) }()

	now := time.Now()
	id, err := ds.createRow(ds.adapter.CreateSegmentQuery(),
		projectID, segmentNumber, sourceText, "", cat.StatusUntranslated.String(), "", "", toNanos(now))
	if err != nil {
		return s, wrapDbError(err)
	}

	return cat.Segment{
		ID:            id,
		ProjectID:     projectID,
		SegmentNumber: segmentNumber,
		SourceText:    sourceText,
		Status:        cat.StatusUntranslated,
		UpdatedAt:     now,
	}, nil
}

// GetSegment fetches a single segment by id.
func (ds *DataStore) GetSegment(id int64) (s cat.Segment, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("segment", "get", time.Since(start)) }()

	var row segmentRow
	err = ds.db.Get(&row, ds.adapter.GetSingleSegmentQuery(), id)
	if err != nil {
		return s, wrapDbError(err)
	}

	return row.toSegment()
}

// GetProjectSegments fetches all of a project's segments in canonical
// order (segment number ascending).
func (ds *DataStore) GetProjectSegments(projectID int64) (segments []cat.Segment, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("segment", "get", time.Since(start)) }()

	var rows []segmentRow
	err = ds.db.Select(&rows, ds.adapter.GetProjectSegmentsQuery(), projectID)
	if err != nil {
		return nil, wrapDbError(err)
	}

	segments = make([]cat.Segment, 0, len(rows))
	for _, r := range rows {
		s, err := r.toSegment()
		if err != nil {
			return segments, err
		}
		segments = append(segments, s)
	}

	return segments, nil
}

// GetStatusCounts tallies a project's segments by status.
func (ds *DataStore) GetStatusCounts(projectID int64) (counts cat.StatusCounts, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("segment", "get", time.Since(start)) }()

	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	err = ds.db.Select(&rows, ds.adapter.GetStatusCountsQuery(), projectID)
	if err != nil {
		return nil, wrapDbError(err)
	}

	counts = make(cat.StatusCounts)
	for _, r := range rows {
		status, err := cat.ParseSegmentStatus(r.Status)
		if err != nil {
			return counts, err
		}
		counts[status] = r.N
	}

	return counts, nil
}

// UpdateSegment writes a segment's mutable fields. The token is the
// updated_at value the writer read at edit start; if another writer
// has landed since, no row matches and the update fails with
// ConcurrencyConflict instead of silently overwriting. Source text is
// deliberately not updatable.
func (ds *DataStore) UpdateSegment(s cat.Segment, token time.Time) (updated cat.Segment, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("segment", "update", time.Since(start)) }()

	newStamp := nextToken(s.UpdatedAt)
	result, err := ds.db.Exec(ds.adapter.UpdateSegmentQuery(),
		s.TargetText, s.Status.String(), cat.JoinQAFlags(s.QAFlags), s.ReviewComment, toNanos(newStamp),
		s.ID, toNanos(token))
	if err != nil {
		return updated, wrapDbError(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return updated, wrapDbError(err)
	}
	if n == 0 {
		// Either the segment is gone or somebody else wrote first.
		if _, getErr := ds.GetSegment(s.ID); getErr != nil {
			return updated, getErr
		}
		return updated, cat.Errorf(cat.ErrConcurrencyConflict, "segment %v was modified since it was read", s.ID)
	}

	s.UpdatedAt = newStamp
	ds.notifier.publish(ChangeEvent{Table: TableSegment, Event: EventUpdate, ProjectID: s.ProjectID, Segment: &s})

	return s, nil
}

// UpsertTMEntry creates or updates the translation-memory entry for
// the given normalized source key and language pair. Last write wins
// on the target text.
func (ds *DataStore) UpsertTMEntry(e cat.TMEntry, normalizedSource string) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("tm_entry", "upsert", time.Since(start)) }()

	now := time.Now()

	var id int64
	row := ds.db.QueryRow(ds.adapter.GetSingleTMEntryIdQuery(), normalizedSource, e.SourceLang, e.TargetLang)
	err = row.Scan(&id)
	if err == sql.ErrNoRows {
		_, err = ds.db.Exec(ds.adapter.CreateTMEntryQuery(),
			e.SourceText, normalizedSource, e.TargetText, e.SourceLang, e.TargetLang, toNanos(now))
		return wrapDbError(err)
	}
	if err != nil {
		return wrapDbError(err)
	}

	_, err = ds.db.Exec(ds.adapter.UpdateTMEntryQuery(), e.SourceText, e.TargetText, toNanos(now), id)
	return wrapDbError(err)
}

// GetTMEntries fetches every translation-memory entry for a language
// pair, most recently updated first. The matcher ranks them in memory.
func (ds *DataStore) GetTMEntries(sourceLang, targetLang string) (entries []cat.TMEntry, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("tm_entry", "get", time.Since(start)) }()

	var rows []struct {
		Id         int64  `db:"id"`
		SourceText string `db:"source_text"`
		TargetText string `db:"target_text"`
		SourceLang string `db:"source_lang"`
		TargetLang string `db:"target_lang"`
		UpdatedAt  int64  `db:"updated_at"`
	}
	err = ds.db.Select(&rows, ds.adapter.GetTMEntriesQuery(), sourceLang, targetLang)
	if err != nil {
		return nil, wrapDbError(err)
	}

	entries = make([]cat.TMEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, cat.TMEntry{
			ID:         r.Id,
			SourceText: r.SourceText,
			TargetText: r.TargetText,
			SourceLang: r.SourceLang,
			TargetLang: r.TargetLang,
			UpdatedAt:  fromNanos(r.UpdatedAt),
		})
	}

	return entries, nil
}

// CreateGlossaryTerm inserts a controlled terminology entry.
// Terminology management is the write path; the core only reads.
func (ds *DataStore) CreateGlossaryTerm(t cat.GlossaryTerm) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("glossary_term", "insert", time.Since(start)) }()

	id, err = ds.createRow(ds.adapter.CreateGlossaryTermQuery(),
		t.Term, t.Translation, t.SourceLang, t.TargetLang, t.Description)
	if err != nil {
		return 0, wrapDbError(err)
	}
	return id, nil
}

// GetGlossaryTerms fetches all terminology for a language pair.
func (ds *DataStore) GetGlossaryTerms(sourceLang, targetLang string) (terms []cat.GlossaryTerm, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("glossary_term", "get", time.Since(start)) }()

	var rows []struct {
		Id          int64          `db:"id"`
		Term        string         `db:"term"`
		Translation string         `db:"translation"`
		SourceLang  string         `db:"source_lang"`
		TargetLang  string         `db:"target_lang"`
		Description sql.NullString `db:"description"`
	}
	err = ds.db.Select(&rows, ds.adapter.GetGlossaryTermsQuery(), sourceLang, targetLang)
	if err != nil {
		return nil, wrapDbError(err)
	}

	terms = make([]cat.GlossaryTerm, 0, len(rows))
	for _, r := range rows {
		terms = append(terms, cat.GlossaryTerm{
			ID:          r.Id,
			Term:        r.Term,
			Translation: r.Translation,
			SourceLang:  r.SourceLang,
			TargetLang:  r.TargetLang,
			Description: r.Description.String,
		})
	}

	return terms, nil
}

package datastore

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rmali83/Glossa/cat"
)

func newTestStore(t *testing.T) *DataStore {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	// One connection, or every pool conn gets its own empty :memory: db.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ds, err := New(db, "sqlite3")
	if err != nil {
		t.Fatalf("could not create datastore: %v", err)
	}
	if _, err := ds.MigrateUp(); err != nil {
		t.Fatalf("could not migrate: %v", err)
	}

	return ds
}

func newTestProject(t *testing.T, ds *DataStore, sources ...string) (cat.Project, []cat.Segment) {
	t.Helper()

	translator := int64(1)
	reviewer := int64(2)
	project, err := ds.CreateProject(cat.Project{
		Name:         "Manual",
		SourceLang:   "en",
		TargetLang:   "es",
		TranslatorID: &translator,
		ReviewerID:   &reviewer,
	})
	if err != nil {
		t.Fatalf("could not create project: %v", err)
	}

	segments := make([]cat.Segment, len(sources))
	for i, src := range sources {
		seg, err := ds.CreateSegment(project.ID, i+1, src)
		if err != nil {
			t.Fatalf("could not create segment: %v", err)
		}
		segments[i] = seg
	}

	return project, segments
}

// ---------------------------------------------------------------------------
// Projects and segments
// ---------------------------------------------------------------------------

func TestCreateAndGetProject(t *testing.T) {
	ds := newTestStore(t)
	project, _ := newTestProject(t, ds, "Hello world.")

	got, err := ds.GetProject(project.ID)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got.Name != "Manual" || got.Status != cat.ProjectActive {
		t.Errorf("got %+v, want active project 'Manual'", got)
	}
	if got.TranslatorID == nil || *got.TranslatorID != 1 {
		t.Errorf("translator assignment lost: %+v", got.TranslatorID)
	}
}

func TestGetProject_Missing(t *testing.T) {
	ds := newTestStore(t)

	_, err := ds.GetProject(12345)
	if !errors.Is(err, cat.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetProjectSegments_CanonicalOrder(t *testing.T) {
	ds := newTestStore(t)
	project, _ := newTestProject(t, ds, "One.", "Two.", "Three.")

	segments, err := ds.GetProjectSegments(project.ID)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("got %d segments, want 3", len(segments))
	}
	for i, seg := range segments {
		if seg.SegmentNumber != i+1 {
			t.Errorf("position %d has segment number %d", i, seg.SegmentNumber)
		}
		if seg.Status != cat.StatusUntranslated {
			t.Errorf("new segment has status %v, want untranslated", seg.Status)
		}
	}
}

func TestUpdateSegment_PersistsFields(t *testing.T) {
	ds := newTestStore(t)
	_, segments := newTestProject(t, ds, "Hello world.")

	seg := segments[0]
	seg.TargetText = "Hola mundo."
	seg.Status = cat.StatusDraft
	seg.QAFlags = []cat.QAFlag{cat.QAMissingPunctuation}

	updated, err := ds.UpdateSegment(seg, seg.UpdatedAt)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if !updated.UpdatedAt.After(segments[0].UpdatedAt) {
		t.Error("updated_at did not advance")
	}

	got, err := ds.GetSegment(seg.ID)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got.TargetText != "Hola mundo." || got.Status != cat.StatusDraft {
		t.Errorf("got %+v, want draft with target text", got)
	}
	if len(got.QAFlags) != 1 || got.QAFlags[0] != cat.QAMissingPunctuation {
		t.Errorf("qa flags lost: %v", got.QAFlags)
	}
}

func TestUpdateSegment_StaleTokenRejected(t *testing.T) {
	ds := newTestStore(t)
	_, segments := newTestProject(t, ds, "Hello world.")

	seg := segments[0]
	staleToken := seg.UpdatedAt

	// First writer lands.
	seg.TargetText = "Hola mundo."
	seg.Status = cat.StatusDraft
	if _, err := ds.UpdateSegment(seg, staleToken); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	// Second writer still holds the original token.
	seg.TargetText = "Bonjour le monde."
	_, err := ds.UpdateSegment(seg, staleToken)
	if !errors.Is(err, cat.ErrConcurrencyConflict) {
		t.Errorf("got %v, want ErrConcurrencyConflict: stale writes must not merge silently", err)
	}

	// The first write survives.
	got, err := ds.GetSegment(seg.ID)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if got.TargetText != "Hola mundo." {
		t.Errorf("got %q, want the first writer's text", got.TargetText)
	}
}

func TestUpdateSegment_MissingSegmentIsNotFound(t *testing.T) {
	ds := newTestStore(t)
	newTestProject(t, ds, "Hello world.")

	_, err := ds.UpdateSegment(cat.Segment{ID: 999, Status: cat.StatusDraft}, time.Now())
	if !errors.Is(err, cat.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestGetStatusCounts(t *testing.T) {
	ds := newTestStore(t)
	project, segments := newTestProject(t, ds, "One.", "Two.", "Three.")

	for _, seg := range segments[:2] {
		seg.TargetText = "x."
		seg.Status = cat.StatusConfirmed
		if _, err := ds.UpdateSegment(seg, seg.UpdatedAt); err != nil {
			t.Fatalf("error: %v", err)
		}
	}

	counts, err := ds.GetStatusCounts(project.ID)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if counts[cat.StatusConfirmed] != 2 || counts[cat.StatusUntranslated] != 1 {
		t.Errorf("got %v, want 2 confirmed + 1 untranslated", counts)
	}
	if counts.Total() != 3 {
		t.Errorf("got total %d, want 3", counts.Total())
	}
}

// ---------------------------------------------------------------------------
// Translation memory
// ---------------------------------------------------------------------------

func TestUpsertTMEntry_LastWriteWins(t *testing.T) {
	ds := newTestStore(t)

	entry := cat.TMEntry{SourceText: "Hello world.", TargetText: "Hola mundo.", SourceLang: "en", TargetLang: "es"}
	if err := ds.UpsertTMEntry(entry, "hello world."); err != nil {
		t.Fatalf("error: %v", err)
	}

	entry.TargetText = "Hola, mundo."
	if err := ds.UpsertTMEntry(entry, "hello world."); err != nil {
		t.Fatalf("error: %v", err)
	}

	entries, err := ds.GetTMEntries("en", "es")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].TargetText != "Hola, mundo." {
		t.Errorf("got %q, want the later translation", entries[0].TargetText)
	}
}

func TestGetTMEntries_FiltersLanguagePair(t *testing.T) {
	ds := newTestStore(t)

	if err := ds.UpsertTMEntry(cat.TMEntry{SourceText: "Hello.", TargetText: "Hola.", SourceLang: "en", TargetLang: "es"}, "hello."); err != nil {
		t.Fatalf("error: %v", err)
	}
	if err := ds.UpsertTMEntry(cat.TMEntry{SourceText: "Hello.", TargetText: "Bonjour.", SourceLang: "en", TargetLang: "fr"}, "hello."); err != nil {
		t.Fatalf("error: %v", err)
	}

	entries, err := ds.GetTMEntries("en", "es")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(entries) != 1 || entries[0].TargetText != "Hola." {
		t.Errorf("got %v, want only the en->es entry", entries)
	}
}

// ---------------------------------------------------------------------------
// Glossary
// ---------------------------------------------------------------------------

func TestGlossaryTerms(t *testing.T) {
	ds := newTestStore(t)

	if _, err := ds.CreateGlossaryTerm(cat.GlossaryTerm{Term: "efficiency", Translation: "eficiencia", SourceLang: "en", TargetLang: "es", Description: "preferred"}); err != nil {
		t.Fatalf("error: %v", err)
	}

	terms, err := ds.GetGlossaryTerms("en", "es")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if len(terms) != 1 || terms[0].Translation != "eficiencia" || terms[0].Description != "preferred" {
		t.Errorf("got %v", terms)
	}
}

// ---------------------------------------------------------------------------
// Adapters
// ---------------------------------------------------------------------------

func TestPostgresAdapter_CreateQueriesReturnId(t *testing.T) {
	// lib/pq cannot do LastInsertId, so the postgres adapter must
	// declare that and hand back the new id via RETURNING instead.
	a := PostgresAdapter{}
	if a.SupportsLastInsertId() {
		t.Fatal("postgres adapter claims LastInsertId support")
	}

	queries := map[string]string{
		"project":       a.CreateProjectQuery(),
		"segment":       a.CreateSegmentQuery(),
		"glossary_term": a.CreateGlossaryTermQuery(),
	}
	for table, q := range queries {
		if !strings.HasSuffix(q, "RETURNING id") {
			t.Errorf("%v create query does not return the id: %q", table, q)
		}
	}
}

func TestSqlite3Adapter_SupportsLastInsertId(t *testing.T) {
	if !(Sqlite3Adapter{}).SupportsLastInsertId() {
		t.Error("sqlite3 adapter should use LastInsertId")
	}
}

// ---------------------------------------------------------------------------
// Change notifications
// ---------------------------------------------------------------------------

func TestSubscribe_ReceivesSegmentUpdates(t *testing.T) {
	ds := newTestStore(t)
	project, segments := newTestProject(t, ds, "Hello world.")

	events, cancel := ds.Subscribe(project.ID)
	defer cancel()

	seg := segments[0]
	seg.TargetText = "Hola mundo."
	seg.Status = cat.StatusDraft
	if _, err := ds.UpdateSegment(seg, seg.UpdatedAt); err != nil {
		t.Fatalf("error: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Table != TableSegment || ev.Event != EventUpdate {
			t.Errorf("got %v/%v, want segment/update", ev.Table, ev.Event)
		}
		if ev.Segment == nil || ev.Segment.TargetText != "Hola mundo." {
			t.Errorf("event does not carry the updated row: %+v", ev.Segment)
		}
	case <-time.After(time.Second):
		t.Fatal("no change event received")
	}
}

func TestSubscribe_ScopedToProject(t *testing.T) {
	ds := newTestStore(t)
	_, segments := newTestProject(t, ds, "Hello world.")
	other, _ := newTestProject(t, ds, "Other.")

	events, cancel := ds.Subscribe(other.ID)
	defer cancel()

	seg := segments[0]
	seg.TargetText = "Hola."
	seg.Status = cat.StatusDraft
	if _, err := ds.UpdateSegment(seg, seg.UpdatedAt); err != nil {
		t.Fatalf("error: %v", err)
	}

	select {
	case ev := <-events:
		t.Errorf("received foreign project's event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

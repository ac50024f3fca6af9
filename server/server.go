package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"

	"github.com/rmali83/Glossa/autosave"
	"github.com/rmali83/Glossa/cat"
	"github.com/rmali83/Glossa/config"
	"github.com/rmali83/Glossa/datastore"
	"github.com/rmali83/Glossa/export"
	"github.com/rmali83/Glossa/glossary"
	"github.com/rmali83/Glossa/notify"
	"github.com/rmali83/Glossa/tm"
	"github.com/rmali83/Glossa/workflow"
)

// services bundles everything a request handler needs.
type services struct {
	ds       *datastore.DataStore
	flow     *workflow.Service
	matcher  *tm.Matcher
	resolver *glossary.Resolver
	sessions *autosave.Sessions
}

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// httpStatus maps the workflow error taxonomy onto response codes.
func httpStatus(e error) int {
	switch {
	case errors.Is(e, cat.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(e, cat.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(e, cat.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(e, cat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(e, cat.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func checkHttpWithStatus(e error, w http.ResponseWriter, status int) (hadError bool) {
	if e != nil {
		w.WriteHeader(status)

		jsonErr := struct {
			Error string `json:"error"`
		}{
			Error: e.Error(),
		}
		enc := json.NewEncoder(w)
		enc.Encode(jsonErr)

		return true
	}
	return false
}

func checkHttp(e error, w http.ResponseWriter) (hadError bool) {
	if e == nil {
		return false
	}
	return checkHttpWithStatus(e, w, httpStatus(e))
}

// handleWith injects the service bundle into a request handler.
func handleWith(svcs *services, f func(http.ResponseWriter, *http.Request, *services)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f(w, r, svcs)
	}
}

func setJsonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h.ServeHTTP(w, r)
	})
}

// actorFromRequest reads the authenticated actor the auth layer in
// front of this service established. The core treats it as an opaque
// "current actor with a role" fact.
func actorFromRequest(r *http.Request) (a cat.Actor, err error) {
	id, err := strconv.ParseInt(r.Header.Get("X-Actor-Id"), 10, 64)
	if err != nil {
		return a, cat.Errorf(cat.ErrPermissionDenied, "missing or invalid X-Actor-Id header")
	}
	role, err := cat.ParseRole(r.Header.Get("X-Actor-Role"))
	if err != nil {
		return a, cat.Errorf(cat.ErrPermissionDenied, "missing or invalid X-Actor-Role header")
	}
	return cat.Actor{ID: id, Role: role}, nil
}

func pathId(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, cat.Errorf(cat.ErrNotFound, "invalid %v '%v'", name, mux.Vars(r)[name])
	}
	return id, nil
}

func writeOk(w http.ResponseWriter) {
	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Gets list of projects
func getProjectsHandler(w http.ResponseWriter, r *http.Request, s *services) {
	projects, err := s.ds.GetProjectList()
	if checkHttp(err, w) {
		return
	}

	views := make([]projectView, len(projects))
	for i, p := range projects {
		views[i] = newProjectView(p)
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(views), w)
}

// Creates a project together with its segments. Dispatch is the one
// moment segments come into existence; their numbers are assigned here
// and never reused.
func createProjectHandler(w http.ResponseWriter, r *http.Request, s *services) {
	var content struct {
		Name         string   `json:"name"`
		SourceLang   string   `json:"sourceLanguage"`
		TargetLang   string   `json:"targetLanguage"`
		TranslatorId *int64   `json:"translatorId"`
		ReviewerId   *int64   `json:"reviewerId"`
		Settings     string   `json:"settings"`
		Segments     []string `json:"segments"`
	}

	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&content)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	project, err := s.ds.CreateProject(cat.Project{
		Name:         content.Name,
		SourceLang:   content.SourceLang,
		TargetLang:   content.TargetLang,
		TranslatorID: content.TranslatorId,
		ReviewerID:   content.ReviewerId,
		Settings:     content.Settings,
	})
	if checkHttp(err, w) {
		return
	}

	for i, sourceText := range content.Segments {
		if _, err := s.ds.CreateSegment(project.ID, i+1, sourceText); checkHttp(err, w) {
			return
		}
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(newProjectView(project)), w)
}

// Gets a single project
func getProjectHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	project, err := s.ds.GetProject(id)
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(newProjectView(project)), w)
}

// Gets a project's segments, optionally filtered by status and by a
// source-text search term
func getSegmentsHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	var statusFilter *cat.SegmentStatus
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := cat.ParseSegmentStatus(v)
		if checkHttpWithStatus(err, w, http.StatusBadRequest) {
			return
		}
		statusFilter = &status
	}

	segments, err := s.flow.ListSegments(id, statusFilter, r.URL.Query().Get("q"))
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(newSegmentViews(segments)), w)
}

// Gets a project's progress tally
func getProgressHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	progress, err := s.flow.ProjectProgress(id)
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(progress), w)
}

// Updates a segment's target text. The request carries the updatedAt
// token the client read; a stale token comes back as 409 and the
// client re-fetches.
func editSegmentHandler(w http.ResponseWriter, r *http.Request, s *services) {
	actor, err := actorFromRequest(r)
	if checkHttp(err, w) {
		return
	}
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	var content struct {
		Content string `json:"content"`
		Token   int64  `json:"token"`
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&content); err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	segment, err := s.flow.EditSegment(actor, id, content.Content, time.Unix(0, content.Token))
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(newSegmentView(segment)), w)
}

// segmentAction wraps the explicit per-segment workflow actions.
func segmentAction(f func(cat.Actor, int64) (cat.Segment, error)) func(http.ResponseWriter, *http.Request, *services) {
	return func(w http.ResponseWriter, r *http.Request, s *services) {
		actor, err := actorFromRequest(r)
		if checkHttp(err, w) {
			return
		}
		id, err := pathId(r, "id")
		if checkHttp(err, w) {
			return
		}

		segment, err := f(actor, id)
		if checkHttp(err, w) {
			return
		}

		enc := json.NewEncoder(w)
		checkHttp(enc.Encode(newSegmentView(segment)), w)
	}
}

// Rejects a segment back to the translator, with an optional comment
func rejectSegmentHandler(w http.ResponseWriter, r *http.Request, s *services) {
	actor, err := actorFromRequest(r)
	if checkHttp(err, w) {
		return
	}
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	var content struct {
		Comment string `json:"comment"`
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&content); err != nil && err != io.EOF {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	segment, err := s.flow.RejectSegment(actor, id, content.Comment)
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(newSegmentView(segment)), w)
}

// projectAction wraps the project-level workflow transitions.
func projectAction(f func(cat.Actor, int64) (cat.Project, error)) func(http.ResponseWriter, *http.Request, *services) {
	return func(w http.ResponseWriter, r *http.Request, s *services) {
		actor, err := actorFromRequest(r)
		if checkHttp(err, w) {
			return
		}
		id, err := pathId(r, "id")
		if checkHttp(err, w) {
			return
		}

		project, err := f(actor, id)
		if checkHttp(err, w) {
			return
		}

		enc := json.NewEncoder(w)
		checkHttp(enc.Encode(newProjectView(project)), w)
	}
}

// Gets translation-memory matches for a segment's source text. A
// lookup failure degrades to an empty list; suggestions never block
// editing.
func getMatchesHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	segment, err := s.ds.GetSegment(id)
	if checkHttp(err, w) {
		return
	}
	project, err := s.ds.GetProject(segment.ProjectID)
	if checkHttp(err, w) {
		return
	}

	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	matches, err := s.matcher.FindMatches(segment.SourceText, project.SourceLang, project.TargetLang, limit)
	if err != nil {
		matches = []tm.Match{}
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(matches), w)
}

// Gets glossary terms occurring in a segment's source text. Degrades
// to an empty list on lookup failure, like the TM panel.
func getTermsHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	segment, err := s.ds.GetSegment(id)
	if checkHttp(err, w) {
		return
	}
	project, err := s.ds.GetProject(segment.ProjectID)
	if checkHttp(err, w) {
		return
	}

	terms, err := s.resolver.ResolveTerms(segment.SourceText, project.SourceLang, project.TargetLang)
	if err != nil {
		terms = nil
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(newTermViews(terms)), w)
}

// Opens (or re-enters) the actor's editing session on a project. The
// session debounces target-text keystrokes and reconciles changes
// other actors land while it is open.
func openSessionHandler(w http.ResponseWriter, r *http.Request, s *services) {
	actor, err := actorFromRequest(r)
	if checkHttp(err, w) {
		return
	}
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	project, err := s.ds.GetProject(id)
	if checkHttp(err, w) {
		return
	}
	segments, err := s.ds.GetProjectSegments(id)
	if checkHttp(err, w) {
		return
	}

	s.sessions.Open(actor, project, segments)
	writeOk(w)
}

// Closes an editing session, flushing any pending edits first.
func closeSessionHandler(w http.ResponseWriter, r *http.Request, s *services) {
	actor, err := actorFromRequest(r)
	if checkHttp(err, w) {
		return
	}
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	s.sessions.Close(actor, id)
	writeOk(w)
}

// sessionCoordinator looks up the actor's open session for the project
// owning a segment.
func sessionCoordinator(r *http.Request, s *services, segmentID int64) (*autosave.Coordinator, cat.Actor, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return nil, actor, err
	}

	seg, err := s.ds.GetSegment(segmentID)
	if err != nil {
		return nil, actor, err
	}

	coord, ok := s.sessions.Get(actor, seg.ProjectID)
	if !ok {
		return nil, actor, cat.Errorf(cat.ErrPreconditionFailed, "no open editing session for project %v", seg.ProjectID)
	}
	return coord, actor, nil
}

// draftView is a segment plus its session conflict indicator.
type draftView struct {
	segmentView
	Conflicted bool `json:"conflicted"`
}

// Applies a debounced draft edit through the actor's editing session.
// The edit is acknowledged immediately; persistence follows once the
// typing pause exceeds the configured debounce.
func draftSegmentHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	coord, _, err := sessionCoordinator(r, s, id)
	if checkHttp(err, w) {
		return
	}

	var content struct {
		Content string `json:"content"`
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&content); err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	segment, err := coord.Edit(id, content.Content)
	if checkHttp(err, w) {
		return
	}
	_, conflicted, _ := coord.Segment(id)

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(draftView{segmentView: newSegmentView(segment), Conflicted: conflicted}), w)
}

// Accepts the remote copy of a conflicted segment, discarding the
// session's local keystrokes.
func resolveSegmentHandler(w http.ResponseWriter, r *http.Request, s *services) {
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	coord, _, err := sessionCoordinator(r, s, id)
	if checkHttp(err, w) {
		return
	}

	coord.Resolve(id)
	segment, conflicted, ok := coord.Segment(id)
	if !ok {
		checkHttp(cat.Errorf(cat.ErrNotFound, "segment %v is not tracked by this session", id), w)
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(draftView{segmentView: newSegmentView(segment), Conflicted: conflicted}), w)
}

// exportHandler serves a serialized project in the requested format.
func exportHandler(render func(cat.Project, []cat.Segment) export.File) func(http.ResponseWriter, *http.Request, *services) {
	return func(w http.ResponseWriter, r *http.Request, s *services) {
		id, err := pathId(r, "id")
		if checkHttp(err, w) {
			return
		}

		project, err := s.ds.GetProject(id)
		if checkHttp(err, w) {
			return
		}
		segments, err := s.ds.GetProjectSegments(id)
		if checkHttp(err, w) {
			return
		}

		file := render(project, segments)
		w.Header().Set("Content-Type", file.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		w.Write(file.Content)
	}
}

// Re-imports an XLIFF file, updating the target text of matching
// segment numbers through the normal edit path.
func importHandler(w http.ResponseWriter, r *http.Request, s *services) {
	actor, err := actorFromRequest(r)
	if checkHttp(err, w) {
		return
	}
	id, err := pathId(r, "id")
	if checkHttp(err, w) {
		return
	}

	data, err := io.ReadAll(r.Body)
	if checkHttpWithStatus(err, w, http.StatusBadRequest) {
		return
	}

	_, _, units, err := export.ParseXLIFF(data)
	if checkHttpWithStatus(err, w, http.StatusBadRequest) {
		return
	}

	segments, err := s.ds.GetProjectSegments(id)
	if checkHttp(err, w) {
		return
	}
	byNumber := make(map[int]cat.Segment, len(segments))
	for _, seg := range segments {
		byNumber[seg.SegmentNumber] = seg
	}

	var imported int
	for _, u := range units {
		seg, ok := byNumber[u.SegmentNumber]
		if !ok || u.TargetText == "" || u.TargetText == seg.TargetText {
			continue
		}
		if _, err := s.flow.EditSegment(actor, seg.ID, u.TargetText, seg.UpdatedAt); checkHttp(err, w) {
			return
		}
		imported++
	}

	result := struct {
		Imported int `json:"imported"`
	}{Imported: imported}
	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(result), w)
}

func Serve(c config.Config) {
	var db *sqlx.DB
	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)

	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)

	matcher := tm.New(ds)
	flow := workflow.New(ds, matcher, notify.LogNotifier{})
	svcs := &services{
		ds:       ds,
		flow:     flow,
		matcher:  matcher,
		resolver: glossary.New(ds),
		sessions: autosave.NewSessions(flow, ds, ds, c.Autosave),
	}

	r := newRouter(svcs)

	rWithMiddleWares := handlers.CombinedLoggingHandler(os.Stdout, setJsonHeaders(r))

	fmt.Printf("Listening on port %v\n", c.Server.Port)
	http.ListenAndServe(fmt.Sprintf(":%v", c.Server.Port), rWithMiddleWares)
}

func newRouter(svcs *services) *mux.Router {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/projects", handleWith(svcs, getProjectsHandler)).Methods("GET")
	r.HandleFunc("/projects", handleWith(svcs, createProjectHandler)).Methods("POST")
	r.HandleFunc("/projects/{id}", handleWith(svcs, getProjectHandler)).Methods("GET")
	r.HandleFunc("/projects/{id}/segments", handleWith(svcs, getSegmentsHandler)).Methods("GET")
	r.HandleFunc("/projects/{id}/progress", handleWith(svcs, getProgressHandler)).Methods("GET")
	r.HandleFunc("/projects/{id}/complete-translation", handleWith(svcs, projectAction(svcs.flow.CompleteTranslation))).Methods("POST")
	r.HandleFunc("/projects/{id}/complete", handleWith(svcs, projectAction(svcs.flow.CompleteProject))).Methods("POST")
	r.HandleFunc("/projects/{id}/require-revision", handleWith(svcs, projectAction(svcs.flow.RequireRevision))).Methods("POST")
	r.HandleFunc("/projects/{id}/reopen", handleWith(svcs, projectAction(svcs.flow.ReopenProject))).Methods("POST")
	r.HandleFunc("/projects/{id}/export/txt", handleWith(svcs, exportHandler(export.PlainText))).Methods("GET")
	r.HandleFunc("/projects/{id}/export/xliff", handleWith(svcs, exportHandler(export.XLIFF))).Methods("GET")
	r.HandleFunc("/projects/{id}/import", handleWith(svcs, importHandler)).Methods("POST")
	r.HandleFunc("/projects/{id}/session", handleWith(svcs, openSessionHandler)).Methods("POST")
	r.HandleFunc("/projects/{id}/session", handleWith(svcs, closeSessionHandler)).Methods("DELETE")
	r.HandleFunc("/segments/{id}/target", handleWith(svcs, editSegmentHandler)).Methods("PUT")
	r.HandleFunc("/segments/{id}/draft", handleWith(svcs, draftSegmentHandler)).Methods("PUT")
	r.HandleFunc("/segments/{id}/resolve", handleWith(svcs, resolveSegmentHandler)).Methods("POST")
	r.HandleFunc("/segments/{id}/confirm", handleWith(svcs, segmentAction(svcs.flow.ConfirmSegment))).Methods("POST")
	r.HandleFunc("/segments/{id}/approve", handleWith(svcs, segmentAction(svcs.flow.ApproveSegment))).Methods("POST")
	r.HandleFunc("/segments/{id}/reject", handleWith(svcs, rejectSegmentHandler)).Methods("POST")
	r.HandleFunc("/segments/{id}/revert", handleWith(svcs, segmentAction(svcs.flow.RevertSegment))).Methods("POST")
	r.HandleFunc("/segments/{id}/matches", handleWith(svcs, getMatchesHandler)).Methods("GET")
	r.HandleFunc("/segments/{id}/terms", handleWith(svcs, getTermsHandler)).Methods("GET")

	return r
}

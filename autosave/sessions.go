package autosave

import (
	"sync"

	"github.com/rmali83/Glossa/cat"
	"github.com/rmali83/Glossa/config"
	"github.com/rmali83/Glossa/datastore"
)

// Watcher hands out per-project change subscriptions. The datastore
// satisfies it.
type Watcher interface {
	Subscribe(projectID int64) (<-chan datastore.ChangeEvent, func())
}

// FromConfig builds a coordinator tuned by the [autosave] config
// section.
func FromConfig(p Persister, f Fetcher, actor cat.Actor, project cat.Project, c config.AutosaveConfig) *Coordinator {
	return New(p, f, actor, project, c.Debounce(), c.MaxRetries, c.RetryBackoff())
}

type sessionKey struct {
	actorID   int64
	projectID int64
}

type session struct {
	coord  *Coordinator
	cancel func()
}

// Sessions manages open editing sessions, one coordinator per actor
// and project. Every coordinator it hands out carries the configured
// debounce and retry tuning and is fed by the project's change events.
type Sessions struct {
	persister Persister
	fetcher   Fetcher
	watcher   Watcher
	conf      config.AutosaveConfig

	mu   sync.Mutex
	open map[sessionKey]*session
}

func NewSessions(p Persister, f Fetcher, w Watcher, c config.AutosaveConfig) *Sessions {
	return &Sessions{
		persister: p,
		fetcher:   f,
		watcher:   w,
		conf:      c,
		open:      make(map[sessionKey]*session),
	}
}

// Open starts the actor's editing session on a project, seeded with
// the project's segments. Opening an already-open session returns the
// existing coordinator with its local edits intact.
func (s *Sessions) Open(actor cat.Actor, project cat.Project, segments []cat.Segment) *Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey{actorID: actor.ID, projectID: project.ID}
	if existing, ok := s.open[key]; ok {
		return existing.coord
	}

	coord := FromConfig(s.persister, s.fetcher, actor, project, s.conf)
	for _, seg := range segments {
		coord.Track(seg)
	}

	events, cancel := s.watcher.Subscribe(project.ID)
	go coord.Watch(events)

	s.open[key] = &session{coord: coord, cancel: cancel}
	return coord
}

// Get returns the actor's open session on a project.
func (s *Sessions) Get(actor cat.Actor, projectID int64) (*Coordinator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.open[sessionKey{actorID: actor.ID, projectID: projectID}]
	if !ok {
		return nil, false
	}
	return sess.coord, true
}

// Close flushes a session's pending edits and stops its event feed.
func (s *Sessions) Close(actor cat.Actor, projectID int64) {
	s.mu.Lock()
	key := sessionKey{actorID: actor.ID, projectID: projectID}
	sess, ok := s.open[key]
	if ok {
		delete(s.open, key)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	sess.cancel()
	sess.coord.FlushAll()
}

package datastore

import (
	"sync"

	"github.com/rmali83/Glossa/cat"
)

// Change notification fan-out. Subscribers get {table, event, row}
// events scoped to a project, which is how remote edits reach the
// autosave coordinator's reconciliation path.

const (
	TableProject = "project"
	TableSegment = "segment"

	EventUpdate = "update"
)

// ChangeEvent describes one row change. Exactly one of Project or
// Segment is set, matching Table.
type ChangeEvent struct {
	Table     string
	Event     string
	ProjectID int64
	Project   *cat.Project
	Segment   *cat.Segment
}

type subscriber struct {
	projectID int64
	ch        chan ChangeEvent
}

type notifier struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]*subscriber)}
}

// Subscribe returns a channel of change events for the given project
// and a cancel function. Slow consumers drop events rather than
// blocking writers; a consumer that falls behind re-fetches.
func (ds *DataStore) Subscribe(projectID int64) (<-chan ChangeEvent, func()) {
	n := ds.notifier

	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	sub := &subscriber{projectID: projectID, ch: make(chan ChangeEvent, 64)}
	n.subs[id] = sub

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if s, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(s.ch)
		}
	}

	return sub.ch, cancel
}

func (n *notifier) publish(ev ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		if sub.projectID != ev.ProjectID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

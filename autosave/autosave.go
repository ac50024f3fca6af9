/*
Package autosave turns keystroke-level edits into periodic, safe
persistence. Each edited segment gets a debounce timer; when it fires
with no further edits the current text and status are persisted with
the optimistic-concurrency token read at edit start. Remote changes
arriving over the datastore's notification channel either replace the
local copy (segment not being edited) or raise a conflict indicator
(segment has unsaved keystrokes).
*/
package autosave

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/rmali83/Glossa/cat"
	"github.com/rmali83/Glossa/datastore"
)

// Persister is the save path, satisfied by the workflow service. The
// persist runs the full edit validation server-side, so a stale token
// or a revoked permission surfaces here.
type Persister interface {
	EditSegment(actor cat.Actor, segmentID int64, targetText string, token time.Time) (cat.Segment, error)
}

// Fetcher re-reads a segment after a conflict. The datastore
// satisfies it.
type Fetcher interface {
	GetSegment(id int64) (cat.Segment, error)
}

type local struct {
	seg        cat.Segment
	token      time.Time // updated_at read when the current edit burst began
	timer      *time.Timer
	gen        uint64 // bumped on every edit; detects edits during a persist
	dirty      bool
	inFlight   bool
	conflicted bool
	remote     *cat.Segment // the newer server copy, when conflicted
}

// Coordinator manages one actor's editing session on one project.
type Coordinator struct {
	persister Persister
	fetcher   Fetcher
	actor     cat.Actor
	project   cat.Project

	debounce   time.Duration
	maxRetries int
	backoff    time.Duration

	mu       sync.Mutex
	segments map[int64]*local
	wg       sync.WaitGroup
}

func New(persister Persister, fetcher Fetcher, actor cat.Actor, project cat.Project, debounce time.Duration, maxRetries int, backoff time.Duration) *Coordinator {
	return &Coordinator{
		persister:  persister,
		fetcher:    fetcher,
		actor:      actor,
		project:    project,
		debounce:   debounce,
		maxRetries: maxRetries,
		backoff:    backoff,
		segments:   make(map[int64]*local),
	}
}

// Track seeds the coordinator's local view with a segment, normally
// the full segment list loaded when the editor opens.
func (c *Coordinator) Track(seg cat.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments[seg.ID] = &local{seg: seg, token: seg.UpdatedAt}
}

// Segment returns the local copy of a tracked segment and whether it
// currently carries a conflict indicator.
func (c *Coordinator) Segment(segmentID int64) (seg cat.Segment, conflicted bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.segments[segmentID]
	if !ok {
		return seg, false, false
	}
	return l.seg, l.conflicted, true
}

// Edit applies a local edit immediately, runs the status transition,
// and (re)starts the segment's debounce timer. The edit is visible to
// the caller at once; persistence happens when the timer fires.
func (c *Coordinator) Edit(segmentID int64, targetText string) (cat.Segment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.segments[segmentID]
	if !ok {
		return cat.Segment{}, cat.Errorf(cat.ErrNotFound, "segment %v is not tracked by this session", segmentID)
	}

	next, err := cat.EditTransition(c.actor, &c.project, l.seg.Status)
	if err != nil {
		return l.seg, err
	}

	if !l.dirty {
		// First keystroke of a burst: remember the token we read.
		l.token = l.seg.UpdatedAt
	}
	l.seg.TargetText = targetText
	l.seg.Status = next
	l.seg.QAFlags = cat.CheckQuality(l.seg.SourceText, targetText)
	l.seg.ReviewComment = ""
	l.dirty = true
	l.gen++

	if l.timer != nil {
		l.timer.Stop()
	}
	id := segmentID
	l.timer = time.AfterFunc(c.debounce, func() { c.persist(id) })

	return l.seg, nil
}

// Flush persists a segment's pending edit now instead of waiting for
// the debounce timer. Used when the editor navigates away.
func (c *Coordinator) Flush(segmentID int64) {
	c.mu.Lock()
	l, ok := c.segments[segmentID]
	if !ok || !l.dirty {
		c.mu.Unlock()
		return
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	c.mu.Unlock()

	c.persist(segmentID)
}

// FlushAll persists every pending edit and waits for in-flight
// persists to finish. Losing a debounced-but-unsaved edit on close is
// not acceptable.
func (c *Coordinator) FlushAll() {
	c.mu.Lock()
	var ids []int64
	for id, l := range c.segments {
		if l.dirty && !l.inFlight {
			if l.timer != nil {
				l.timer.Stop()
			}
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.persist(id)
	}
	c.wg.Wait()
}

// persist writes one segment's pending edit. At most one persist per
// segment is in flight; an edit arriving mid-flight bumps the
// generation so the result does not mark the newer text clean.
func (c *Coordinator) persist(segmentID int64) {
	c.mu.Lock()
	l, ok := c.segments[segmentID]
	if !ok || !l.dirty || l.inFlight {
		c.mu.Unlock()
		return
	}
	l.inFlight = true
	gen := l.gen
	text := l.seg.TargetText
	token := l.token
	c.mu.Unlock()

	c.wg.Add(1)
	defer c.wg.Done()

	updated, err := c.save(segmentID, text, token)

	c.mu.Lock()
	defer c.mu.Unlock()
	l.inFlight = false

	switch {
	case err == nil:
		if l.gen == gen {
			l.seg = updated
			l.token = updated.UpdatedAt
			l.dirty = false
			l.conflicted = false
		} else {
			// Newer keystrokes arrived while the write was in
			// flight; carry the fresh token forward so their
			// debounce persists against the row we just wrote.
			l.token = updated.UpdatedAt
		}

	case errors.Is(err, cat.ErrConcurrencyConflict):
		// Another actor wrote first. Re-fetch their version and show
		// the conflict; never overwrite unsaved keystrokes silently.
		if remote, fetchErr := c.fetcher.GetSegment(segmentID); fetchErr == nil {
			l.remote = &remote
		}
		l.conflicted = true

	default:
		log.Printf("autosave: persist of segment %v failed: %v", segmentID, err)
	}
}

// save retries transient backend failures with doubling backoff.
// Permission and state-machine failures are not retried.
func (c *Coordinator) save(segmentID int64, text string, token time.Time) (cat.Segment, error) {
	delay := c.backoff
	var updated cat.Segment
	var err error
	for attempt := 0; ; attempt++ {
		updated, err = c.persister.EditSegment(c.actor, segmentID, text, token)
		if err == nil || !errors.Is(err, cat.ErrBackendUnavailable) || attempt >= c.maxRetries {
			return updated, err
		}
		time.Sleep(delay)
		delay *= 2
	}
}

// Resolve accepts the remote version of a conflicted segment,
// discarding the local keystrokes.
func (c *Coordinator) Resolve(segmentID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.segments[segmentID]
	if !ok || !l.conflicted {
		return
	}
	if l.remote != nil {
		l.seg = *l.remote
		l.token = l.remote.UpdatedAt
		l.remote = nil
	}
	l.conflicted = false
	l.dirty = false
	if l.timer != nil {
		l.timer.Stop()
	}
}

// Watch consumes the datastore's change notifications until the
// channel closes. Remote updates to segments without local edits
// replace the local copy outright; updates to a segment being edited
// raise the conflict indicator instead of overwriting.
func (c *Coordinator) Watch(events <-chan datastore.ChangeEvent) {
	for ev := range events {
		if ev.Table != datastore.TableSegment || ev.Segment == nil {
			continue
		}
		c.applyRemote(*ev.Segment)
	}
}

func (c *Coordinator) applyRemote(remote cat.Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.segments[remote.ID]
	if !ok {
		c.segments[remote.ID] = &local{seg: remote, token: remote.UpdatedAt}
		return
	}

	if l.dirty || l.inFlight {
		// Our own persist also comes back over the channel; a remote
		// copy matching what we are writing is not a conflict.
		if remote.UpdatedAt.After(l.token) && remote.TargetText != l.seg.TargetText {
			r := remote
			l.remote = &r
			l.conflicted = true
		}
		return
	}

	l.seg = remote
	l.token = remote.UpdatedAt
}

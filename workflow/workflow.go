/*
Package workflow orchestrates the segment and project state machines
over the datastore: edits, confirmation, review actions, project-level
status transitions and the side effects they carry (translation-memory
growth, reviewer notifications, QA annotation).
*/
package workflow

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rmali83/Glossa/cat"
	"github.com/rmali83/Glossa/notify"
	"github.com/rmali83/Glossa/tm"
)

// Store is the persistence surface the workflow needs. The datastore
// satisfies it; tests may substitute a fake.
type Store interface {
	GetProject(id int64) (cat.Project, error)
	UpdateProjectStatus(id int64, status cat.ProjectStatus) error
	GetSegment(id int64) (cat.Segment, error)
	GetProjectSegments(projectID int64) ([]cat.Segment, error)
	GetStatusCounts(projectID int64) (cat.StatusCounts, error)
	UpdateSegment(s cat.Segment, token time.Time) (cat.Segment, error)
}

type Service struct {
	store    Store
	matcher  *tm.Matcher
	notifier notify.Notifier
}

func New(store Store, matcher *tm.Matcher, notifier notify.Notifier) *Service {
	return &Service{store: store, matcher: matcher, notifier: notifier}
}

// load fetches a segment together with its owning project.
func (s *Service) load(segmentID int64) (seg cat.Segment, proj cat.Project, err error) {
	seg, err = s.store.GetSegment(segmentID)
	if err != nil {
		return seg, proj, err
	}
	proj, err = s.store.GetProject(seg.ProjectID)
	return seg, proj, err
}

// EditSegment applies a target-text edit. The token is the updated_at
// value the editor read when the edit began; a stale token fails with
// ConcurrencyConflict rather than overwriting a newer write. Editing
// recomputes the advisory QA flags, clears any reviewer comment, and
// reopens a revision-required project.
func (s *Service) EditSegment(actor cat.Actor, segmentID int64, targetText string, token time.Time) (cat.Segment, error) {
	seg, proj, err := s.load(segmentID)
	if err != nil {
		return seg, err
	}

	next, err := cat.EditTransition(actor, &proj, seg.Status)
	if err != nil {
		return seg, err
	}

	seg.TargetText = targetText
	seg.Status = next
	seg.QAFlags = cat.CheckQuality(seg.SourceText, targetText)
	seg.ReviewComment = ""

	updated, err := s.store.UpdateSegment(seg, token)
	if err != nil {
		return seg, err
	}

	// The translator resuming work reopens a sent-back project.
	if proj.Status == cat.ProjectRevisionRequired {
		if _, err := cat.ReopenTransition(actor, &proj); err == nil {
			if err := s.store.UpdateProjectStatus(proj.ID, cat.ProjectActive); err != nil {
				log.Printf("workflow: could not reopen project %v: %v", proj.ID, err)
			}
		}
	}

	return updated, nil
}

// ConfirmSegment is the explicit confirm action. On success the
// source/target pair is recorded in the translation memory; a TM
// failure is logged, not surfaced, since the confirmation itself has
// already been persisted.
func (s *Service) ConfirmSegment(actor cat.Actor, segmentID int64) (cat.Segment, error) {
	seg, proj, err := s.load(segmentID)
	if err != nil {
		return seg, err
	}

	next, err := cat.ConfirmTransition(actor, &proj, seg.Status, seg.TargetText)
	if err != nil {
		return seg, err
	}

	seg.Status = next
	updated, err := s.store.UpdateSegment(seg, seg.UpdatedAt)
	if err != nil {
		return seg, err
	}

	s.recordTM(updated, proj)

	return updated, nil
}

// ApproveSegment is the reviewer approval action.
func (s *Service) ApproveSegment(actor cat.Actor, segmentID int64) (cat.Segment, error) {
	seg, proj, err := s.load(segmentID)
	if err != nil {
		return seg, err
	}

	next, err := cat.ApproveTransition(actor, &proj, seg.Status)
	if err != nil {
		return seg, err
	}

	seg.Status = next
	updated, err := s.store.UpdateSegment(seg, seg.UpdatedAt)
	if err != nil {
		return seg, err
	}

	s.recordTM(updated, proj)

	return updated, nil
}

// RejectSegment is the reviewer rejection action. It returns the
// segment to the translator with an optional comment, which the next
// edit clears.
func (s *Service) RejectSegment(actor cat.Actor, segmentID int64, comment string) (cat.Segment, error) {
	seg, proj, err := s.load(segmentID)
	if err != nil {
		return seg, err
	}

	next, err := cat.RejectTransition(actor, &proj, seg.Status)
	if err != nil {
		return seg, err
	}

	seg.Status = next
	seg.ReviewComment = comment
	return s.store.UpdateSegment(seg, seg.UpdatedAt)
}

// RevertSegment is the explicit revert-to-draft action on a confirmed
// segment.
func (s *Service) RevertSegment(actor cat.Actor, segmentID int64) (cat.Segment, error) {
	seg, proj, err := s.load(segmentID)
	if err != nil {
		return seg, err
	}

	next, err := cat.RevertTransition(actor, &proj, seg.Status)
	if err != nil {
		return seg, err
	}

	seg.Status = next
	return s.store.UpdateSegment(seg, seg.UpdatedAt)
}

func (s *Service) recordTM(seg cat.Segment, proj cat.Project) {
	err := s.matcher.Record(cat.TMEntry{
		SourceText: seg.SourceText,
		TargetText: seg.TargetText,
		SourceLang: proj.SourceLang,
		TargetLang: proj.TargetLang,
	})
	if err != nil {
		log.Printf("workflow: could not record TM entry for segment %v: %v", seg.ID, err)
	}
}

// CompleteTranslation hands a project to review. Every segment must
// be at least Confirmed; the assigned reviewer is notified.
func (s *Service) CompleteTranslation(actor cat.Actor, projectID int64) (cat.Project, error) {
	proj, err := s.store.GetProject(projectID)
	if err != nil {
		return proj, err
	}

	counts, err := s.store.GetStatusCounts(projectID)
	if err != nil {
		return proj, err
	}

	next, err := cat.CompleteTranslationTransition(actor, &proj, counts)
	if err != nil {
		return proj, err
	}

	if err := s.store.UpdateProjectStatus(projectID, next); err != nil {
		return proj, err
	}
	proj.Status = next

	if proj.ReviewerID != nil {
		s.send(notify.Notification{
			RecipientID: *proj.ReviewerID,
			Title:       "Translation completed",
			Message:     fmt.Sprintf("Project '%v' is ready for review.", proj.Name),
			Link:        fmt.Sprintf("/dashboard/cat/%v", proj.ID),
		})
	}

	return proj, nil
}

// CompleteProject closes a fully approved project.
func (s *Service) CompleteProject(actor cat.Actor, projectID int64) (cat.Project, error) {
	proj, err := s.store.GetProject(projectID)
	if err != nil {
		return proj, err
	}

	counts, err := s.store.GetStatusCounts(projectID)
	if err != nil {
		return proj, err
	}

	next, err := cat.CompleteProjectTransition(actor, &proj, counts)
	if err != nil {
		return proj, err
	}

	if err := s.store.UpdateProjectStatus(projectID, next); err != nil {
		return proj, err
	}
	proj.Status = next

	if proj.TranslatorID != nil {
		s.send(notify.Notification{
			RecipientID: *proj.TranslatorID,
			Title:       "Project completed",
			Message:     fmt.Sprintf("Project '%v' has been approved and closed.", proj.Name),
			Link:        fmt.Sprintf("/dashboard/cat/%v", proj.ID),
		})
	}

	return proj, nil
}

// RequireRevision sends the whole batch back to the translator. It is
// allowed at any point during translation or review.
func (s *Service) RequireRevision(actor cat.Actor, projectID int64) (cat.Project, error) {
	proj, err := s.store.GetProject(projectID)
	if err != nil {
		return proj, err
	}

	next, err := cat.RequireRevisionTransition(actor, &proj)
	if err != nil {
		return proj, err
	}

	if err := s.store.UpdateProjectStatus(projectID, next); err != nil {
		return proj, err
	}
	proj.Status = next

	if proj.TranslatorID != nil {
		s.send(notify.Notification{
			RecipientID: *proj.TranslatorID,
			Title:       "Revision required",
			Message:     fmt.Sprintf("Project '%v' was sent back for revision.", proj.Name),
			Link:        fmt.Sprintf("/dashboard/cat/%v", proj.ID),
		})
	}

	return proj, nil
}

// ReopenProject is the explicit RevisionRequired→Active action.
func (s *Service) ReopenProject(actor cat.Actor, projectID int64) (cat.Project, error) {
	proj, err := s.store.GetProject(projectID)
	if err != nil {
		return proj, err
	}

	next, err := cat.ReopenTransition(actor, &proj)
	if err != nil {
		return proj, err
	}

	if err := s.store.UpdateProjectStatus(projectID, next); err != nil {
		return proj, err
	}
	proj.Status = next

	return proj, nil
}

func (s *Service) send(n notify.Notification) {
	if err := s.notifier.Send(n); err != nil {
		log.Printf("workflow: notification to user %v failed: %v", n.RecipientID, err)
	}
}

// Progress is a project's segment tally for the editor's progress bar.
type Progress struct {
	Total         int `json:"total"`
	Untranslated  int `json:"untranslated"`
	Draft         int `json:"draft"`
	Confirmed     int `json:"confirmed"`
	Approved      int `json:"approved"`
	NeedsRevision int `json:"needsRevision"`
	PercentDone   int `json:"percentDone"`
}

// ProjectProgress tallies a project's segments by status. A segment
// counts as done once it is at least Confirmed.
func (s *Service) ProjectProgress(projectID int64) (Progress, error) {
	counts, err := s.store.GetStatusCounts(projectID)
	if err != nil {
		return Progress{}, err
	}

	p := Progress{
		Total:         counts.Total(),
		Untranslated:  counts[cat.StatusUntranslated],
		Draft:         counts[cat.StatusDraft],
		Confirmed:     counts[cat.StatusConfirmed],
		Approved:      counts[cat.StatusApproved],
		NeedsRevision: counts[cat.StatusNeedsRevision],
	}
	if p.Total > 0 {
		p.PercentDone = 100 * (p.Confirmed + p.Approved) / p.Total
	}
	return p, nil
}

// ListSegments returns a project's segments in canonical order,
// optionally filtered by status and by a case-insensitive source-text
// search.
func (s *Service) ListSegments(projectID int64, status *cat.SegmentStatus, search string) ([]cat.Segment, error) {
	segments, err := s.store.GetProjectSegments(projectID)
	if err != nil {
		return nil, err
	}

	if status == nil && search == "" {
		return segments, nil
	}

	search = strings.ToLower(search)
	filtered := make([]cat.Segment, 0, len(segments))
	for _, seg := range segments {
		if status != nil && seg.Status != *status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(seg.SourceText), search) {
			continue
		}
		filtered = append(filtered, seg)
	}

	return filtered, nil
}

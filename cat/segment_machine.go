package cat

// The segment status state machine. All transitions are pure: they
// inspect the acting actor, the owning project and the segment's
// current status, and either return the next status or an error from
// the taxonomy in errors.go. Persisting the result is the caller's
// concern.

// canTranslate reports whether the actor may write targetText on the
// given project. Reviewers act only through approve and reject; they
// never hold edit focus.
func canTranslate(a Actor, p *Project) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleTranslator:
		return p.TranslatorID != nil && *p.TranslatorID == a.ID
	case RoleReviewer:
		return false
	}
	return false
}

// canReview reports whether the actor may perform review actions
// (approve, reject) on the given project.
func canReview(a Actor, p *Project) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleReviewer:
		return p.ReviewerID != nil && *p.ReviewerID == a.ID
	case RoleTranslator:
		return false
	}
	return false
}

// EditTransition returns the status a segment moves to when the actor
// edits its targetText. Editing an untranslated or rejected segment
// opens it to Draft; editing a confirmed segment reopens it to Draft
// (confirmation is not sticky across edits). Approved segments cannot
// be edited until a reviewer sends them back via NeedsRevision.
func EditTransition(a Actor, p *Project, current SegmentStatus) (SegmentStatus, error) {
	if !canTranslate(a, p) {
		return current, Errorf(ErrPermissionDenied, "%v %v cannot edit segments of project %v", a.Role, a.ID, p.ID)
	}

	switch current {
	case StatusUntranslated, StatusNeedsRevision, StatusConfirmed:
		return StatusDraft, nil
	case StatusDraft:
		return StatusDraft, nil
	case StatusApproved:
		return current, Errorf(ErrPreconditionFailed, "segment is approved; request revision before editing")
	}
	return current, Errorf(ErrPreconditionFailed, "segment in unknown status %v", current)
}

// ConfirmTransition validates the explicit confirm action. The target
// text must be non-empty and the segment must be in Draft.
func ConfirmTransition(a Actor, p *Project, current SegmentStatus, targetText string) (SegmentStatus, error) {
	if !canTranslate(a, p) {
		return current, Errorf(ErrPermissionDenied, "%v %v cannot confirm segments of project %v", a.Role, a.ID, p.ID)
	}
	if current != StatusDraft {
		return current, Errorf(ErrPreconditionFailed, "only draft segments can be confirmed, segment is %v", current)
	}
	if targetText == "" {
		return current, Errorf(ErrPreconditionFailed, "cannot confirm a segment with empty target text")
	}
	return StatusConfirmed, nil
}

// RevertTransition validates the explicit revert-to-draft action on a
// confirmed segment.
func RevertTransition(a Actor, p *Project, current SegmentStatus) (SegmentStatus, error) {
	if !canTranslate(a, p) {
		return current, Errorf(ErrPermissionDenied, "%v %v cannot revert segments of project %v", a.Role, a.ID, p.ID)
	}
	if current != StatusConfirmed {
		return current, Errorf(ErrPreconditionFailed, "only confirmed segments can revert to draft, segment is %v", current)
	}
	return StatusDraft, nil
}

// ApproveTransition validates the reviewer approval action.
func ApproveTransition(a Actor, p *Project, current SegmentStatus) (SegmentStatus, error) {
	if !canReview(a, p) {
		return current, Errorf(ErrPermissionDenied, "%v %v cannot approve segments of project %v", a.Role, a.ID, p.ID)
	}
	if current != StatusConfirmed {
		return current, Errorf(ErrPreconditionFailed, "only confirmed segments can be approved, segment is %v", current)
	}
	return StatusApproved, nil
}

// RejectTransition validates the reviewer rejection action, which
// clears any approval and returns ownership to the translator.
func RejectTransition(a Actor, p *Project, current SegmentStatus) (SegmentStatus, error) {
	if !canReview(a, p) {
		return current, Errorf(ErrPermissionDenied, "%v %v cannot reject segments of project %v", a.Role, a.ID, p.ID)
	}
	if current != StatusConfirmed && current != StatusApproved {
		return current, Errorf(ErrPreconditionFailed, "only confirmed or approved segments can be rejected, segment is %v", current)
	}
	return StatusNeedsRevision, nil
}

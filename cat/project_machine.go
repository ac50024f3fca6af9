package cat

// The project status state machine. Aggregate preconditions are
// expressed over a StatusCounts snapshot so the transitions stay pure
// and the datastore can supply counts from a single query.

// StatusCounts is a tally of a project's segments by status.
type StatusCounts map[SegmentStatus]int

// Total returns the number of segments counted.
func (c StatusCounts) Total() (n int) {
	for _, v := range c {
		n += v
	}
	return n
}

// unfinished returns how many segments are not yet at least Confirmed.
func (c StatusCounts) unfinished() int {
	return c[StatusUntranslated] + c[StatusDraft] + c[StatusNeedsRevision]
}

// unapproved returns how many segments are not Approved.
func (c StatusCounts) unapproved() int {
	return c.Total() - c[StatusApproved]
}

// CompleteTranslationTransition validates Active→TranslationCompleted:
// the assigned translator (or an admin) hands the batch to review once
// every segment is at least Confirmed.
func CompleteTranslationTransition(a Actor, p *Project, counts StatusCounts) (ProjectStatus, error) {
	if !canTranslate(a, p) {
		return p.Status, Errorf(ErrPermissionDenied, "%v %v cannot complete translation of project %v", a.Role, a.ID, p.ID)
	}
	if p.Status != ProjectActive {
		return p.Status, Errorf(ErrPreconditionFailed, "project is %v, not active", p.Status)
	}
	if n := counts.unfinished(); n > 0 {
		return p.Status, Errorf(ErrPreconditionFailed, "%v segment(s) are not yet confirmed", n)
	}
	return ProjectTranslationCompleted, nil
}

// CompleteProjectTransition validates TranslationCompleted→Completed:
// the reviewer (or an admin) closes the project once every segment is
// Approved.
func CompleteProjectTransition(a Actor, p *Project, counts StatusCounts) (ProjectStatus, error) {
	if !canReview(a, p) {
		return p.Status, Errorf(ErrPermissionDenied, "%v %v cannot complete project %v", a.Role, a.ID, p.ID)
	}
	if p.Status != ProjectTranslationCompleted {
		return p.Status, Errorf(ErrPreconditionFailed, "project is %v, not translation_completed", p.Status)
	}
	if n := counts.unapproved(); n > 0 {
		return p.Status, Errorf(ErrPreconditionFailed, "%v segment(s) are not yet approved", n)
	}
	return ProjectCompleted, nil
}

// RequireRevisionTransition validates the reviewer sending the whole
// batch back. Allowed from Active or TranslationCompleted at any time;
// it does not require every segment to have been reviewed.
func RequireRevisionTransition(a Actor, p *Project) (ProjectStatus, error) {
	if !canReview(a, p) {
		return p.Status, Errorf(ErrPermissionDenied, "%v %v cannot request revision of project %v", a.Role, a.ID, p.ID)
	}
	if p.Status != ProjectActive && p.Status != ProjectTranslationCompleted {
		return p.Status, Errorf(ErrPreconditionFailed, "cannot request revision while project is %v", p.Status)
	}
	return ProjectRevisionRequired, nil
}

// ReopenTransition validates RevisionRequired→Active. It fires
// automatically when the translator resumes editing, or explicitly.
func ReopenTransition(a Actor, p *Project) (ProjectStatus, error) {
	if !canTranslate(a, p) {
		return p.Status, Errorf(ErrPermissionDenied, "%v %v cannot reopen project %v", a.Role, a.ID, p.ID)
	}
	if p.Status != ProjectRevisionRequired {
		return p.Status, Errorf(ErrPreconditionFailed, "project is %v, not revision_required", p.Status)
	}
	return ProjectActive, nil
}

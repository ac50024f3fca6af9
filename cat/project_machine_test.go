package cat

import (
	"errors"
	"testing"
)

func counts(untranslated, draft, confirmed, approved, needsRevision int) StatusCounts {
	return StatusCounts{
		StatusUntranslated:  untranslated,
		StatusDraft:         draft,
		StatusConfirmed:     confirmed,
		StatusApproved:      approved,
		StatusNeedsRevision: needsRevision,
	}
}

// ---------------------------------------------------------------------------
// CompleteTranslationTransition
// ---------------------------------------------------------------------------

func TestCompleteTranslation_AllConfirmed(t *testing.T) {
	next, err := CompleteTranslationTransition(translator, testProject(), counts(0, 0, 2, 1, 0))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != ProjectTranslationCompleted {
		t.Errorf("got %v, want translation_completed", next)
	}
}

func TestCompleteTranslation_DraftRemains(t *testing.T) {
	// 2 confirmed + 1 draft must not hand over to review.
	_, err := CompleteTranslationTransition(translator, testProject(), counts(0, 1, 2, 0, 0))
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestCompleteTranslation_ReviewerDenied(t *testing.T) {
	_, err := CompleteTranslationTransition(reviewer, testProject(), counts(0, 0, 3, 0, 0))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestCompleteTranslation_RequiresActive(t *testing.T) {
	p := testProject()
	p.Status = ProjectCompleted
	_, err := CompleteTranslationTransition(translator, p, counts(0, 0, 3, 0, 0))
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

// ---------------------------------------------------------------------------
// CompleteProjectTransition
// ---------------------------------------------------------------------------

func TestCompleteProject_RequiresAllApproved(t *testing.T) {
	p := testProject()
	p.Status = ProjectTranslationCompleted

	_, err := CompleteProjectTransition(reviewer, p, counts(0, 0, 1, 2, 0))
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed: a confirmed segment is not approved", err)
	}

	next, err := CompleteProjectTransition(reviewer, p, counts(0, 0, 0, 3, 0))
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != ProjectCompleted {
		t.Errorf("got %v, want completed", next)
	}
}

func TestCompleteProject_TranslatorDenied(t *testing.T) {
	p := testProject()
	p.Status = ProjectTranslationCompleted
	_, err := CompleteProjectTransition(translator, p, counts(0, 0, 0, 3, 0))
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

// ---------------------------------------------------------------------------
// RequireRevision / Reopen
// ---------------------------------------------------------------------------

func TestRequireRevision_AllowedMidReview(t *testing.T) {
	// Sending the whole batch back never requires all segments reviewed.
	for _, status := range []ProjectStatus{ProjectActive, ProjectTranslationCompleted} {
		p := testProject()
		p.Status = status
		next, err := RequireRevisionTransition(reviewer, p)
		if err != nil {
			t.Fatalf("%v: error: %v", status, err)
		}
		if next != ProjectRevisionRequired {
			t.Errorf("%v: got %v, want revision_required", status, next)
		}
	}
}

func TestRequireRevision_NotFromCompleted(t *testing.T) {
	p := testProject()
	p.Status = ProjectCompleted
	_, err := RequireRevisionTransition(reviewer, p)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestReopen_FromRevisionRequired(t *testing.T) {
	p := testProject()
	p.Status = ProjectRevisionRequired
	next, err := ReopenTransition(translator, p)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != ProjectActive {
		t.Errorf("got %v, want active", next)
	}
}

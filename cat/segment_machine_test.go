package cat

import (
	"errors"
	"testing"
)

func testProject() *Project {
	translator := int64(1)
	reviewer := int64(2)
	return &Project{
		ID:           10,
		Name:         "Manual",
		SourceLang:   "en",
		TargetLang:   "es",
		Status:       ProjectActive,
		TranslatorID: &translator,
		ReviewerID:   &reviewer,
	}
}

var (
	translator = Actor{ID: 1, Role: RoleTranslator}
	reviewer   = Actor{ID: 2, Role: RoleReviewer}
	admin      = Actor{ID: 3, Role: RoleAdmin}
	stranger   = Actor{ID: 99, Role: RoleTranslator}
)

// ---------------------------------------------------------------------------
// EditTransition
// ---------------------------------------------------------------------------

func TestEditTransition_OpensUntranslatedToDraft(t *testing.T) {
	next, err := EditTransition(translator, testProject(), StatusUntranslated)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusDraft {
		t.Errorf("got %v, want draft", next)
	}
}

func TestEditTransition_ReopensConfirmedToDraft(t *testing.T) {
	next, err := EditTransition(translator, testProject(), StatusConfirmed)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusDraft {
		t.Errorf("got %v, want draft: confirmation must not be sticky across edits", next)
	}
}

func TestEditTransition_ReopensNeedsRevisionToDraft(t *testing.T) {
	next, err := EditTransition(translator, testProject(), StatusNeedsRevision)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusDraft {
		t.Errorf("got %v, want draft", next)
	}
}

func TestEditTransition_RejectsApproved(t *testing.T) {
	_, err := EditTransition(translator, testProject(), StatusApproved)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestEditTransition_RejectsReviewer(t *testing.T) {
	_, err := EditTransition(reviewer, testProject(), StatusDraft)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestEditTransition_RejectsUnassignedTranslator(t *testing.T) {
	_, err := EditTransition(stranger, testProject(), StatusDraft)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

func TestEditTransition_AllowsAdmin(t *testing.T) {
	next, err := EditTransition(admin, testProject(), StatusUntranslated)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusDraft {
		t.Errorf("got %v, want draft", next)
	}
}

// ---------------------------------------------------------------------------
// ConfirmTransition
// ---------------------------------------------------------------------------

func TestConfirmTransition_RequiresNonEmptyTarget(t *testing.T) {
	_, err := ConfirmTransition(translator, testProject(), StatusDraft, "")
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestConfirmTransition_RequiresDraft(t *testing.T) {
	for _, status := range []SegmentStatus{StatusUntranslated, StatusConfirmed, StatusApproved, StatusNeedsRevision} {
		_, err := ConfirmTransition(translator, testProject(), status, "Hola.")
		if !errors.Is(err, ErrPreconditionFailed) {
			t.Errorf("%v: got %v, want ErrPreconditionFailed", status, err)
		}
	}
}

func TestConfirmTransition_Succeeds(t *testing.T) {
	next, err := ConfirmTransition(translator, testProject(), StatusDraft, "Hola mundo.")
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusConfirmed {
		t.Errorf("got %v, want confirmed", next)
	}
}

// ---------------------------------------------------------------------------
// Approve / Reject / Revert
// ---------------------------------------------------------------------------

func TestApproveTransition_ReviewerOnly(t *testing.T) {
	if _, err := ApproveTransition(translator, testProject(), StatusConfirmed); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("translator approve: got %v, want ErrPermissionDenied", err)
	}

	next, err := ApproveTransition(reviewer, testProject(), StatusConfirmed)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusApproved {
		t.Errorf("got %v, want approved", next)
	}
}

func TestApproveTransition_RequiresConfirmed(t *testing.T) {
	_, err := ApproveTransition(reviewer, testProject(), StatusDraft)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestRejectTransition_FromConfirmedAndApproved(t *testing.T) {
	for _, status := range []SegmentStatus{StatusConfirmed, StatusApproved} {
		next, err := RejectTransition(reviewer, testProject(), status)
		if err != nil {
			t.Fatalf("%v: error: %v", status, err)
		}
		if next != StatusNeedsRevision {
			t.Errorf("%v: got %v, want needs_revision", status, next)
		}
	}
}

func TestRejectTransition_RequiresReviewableStatus(t *testing.T) {
	_, err := RejectTransition(reviewer, testProject(), StatusDraft)
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("got %v, want ErrPreconditionFailed", err)
	}
}

func TestRevertTransition_ConfirmedOnly(t *testing.T) {
	next, err := RevertTransition(translator, testProject(), StatusConfirmed)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if next != StatusDraft {
		t.Errorf("got %v, want draft", next)
	}

	if _, err := RevertTransition(translator, testProject(), StatusApproved); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("approved revert: got %v, want ErrPreconditionFailed", err)
	}
}

func TestRejectTransition_UnassignedReviewerDenied(t *testing.T) {
	other := Actor{ID: 42, Role: RoleReviewer}
	_, err := RejectTransition(other, testProject(), StatusConfirmed)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("got %v, want ErrPermissionDenied", err)
	}
}

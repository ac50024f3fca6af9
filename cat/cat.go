/*
Package cat contains the shared domain types for the Glossa CAT
translation workflow: projects, segments, translation-memory entries,
glossary terms, actor roles and the status state machines that govern
them.
*/
package cat

import (
	"time"
)

// Role is the closed set of actor roles known to the workflow.
type Role int

const (
	RoleTranslator Role = iota
	RoleReviewer
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleTranslator:
		return "translator"
	case RoleReviewer:
		return "reviewer"
	case RoleAdmin:
		return "admin"
	}
	return "unknown"
}

// ParseRole converts a role name to a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "translator":
		return RoleTranslator, nil
	case "reviewer":
		return RoleReviewer, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleTranslator, Errorf(ErrPreconditionFailed, "unknown role '%v'", s)
}

// Actor identifies who is performing an operation. Every gated call
// takes an Actor explicitly; there is no ambient session state.
type Actor struct {
	ID   int64
	Role Role
}

// SegmentStatus is a segment's position in the translation cycle.
type SegmentStatus int

const (
	StatusUntranslated SegmentStatus = iota
	StatusDraft
	StatusConfirmed
	StatusApproved
	StatusNeedsRevision
)

func (s SegmentStatus) String() string {
	switch s {
	case StatusUntranslated:
		return "untranslated"
	case StatusDraft:
		return "draft"
	case StatusConfirmed:
		return "confirmed"
	case StatusApproved:
		return "approved"
	case StatusNeedsRevision:
		return "needs_revision"
	}
	return "unknown"
}

// ParseSegmentStatus converts a stored status name to a SegmentStatus.
func ParseSegmentStatus(s string) (SegmentStatus, error) {
	switch s {
	case "untranslated":
		return StatusUntranslated, nil
	case "draft":
		return StatusDraft, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "approved":
		return StatusApproved, nil
	case "needs_revision":
		return StatusNeedsRevision, nil
	}
	return StatusUntranslated, Errorf(ErrPreconditionFailed, "unknown segment status '%v'", s)
}

// ProjectStatus is a project's position in the delivery cycle.
type ProjectStatus int

const (
	ProjectActive ProjectStatus = iota
	ProjectTranslationCompleted
	ProjectRevisionRequired
	ProjectCompleted
)

func (s ProjectStatus) String() string {
	switch s {
	case ProjectActive:
		return "active"
	case ProjectTranslationCompleted:
		return "translation_completed"
	case ProjectRevisionRequired:
		return "revision_required"
	case ProjectCompleted:
		return "completed"
	}
	return "unknown"
}

// ParseProjectStatus converts a stored status name to a ProjectStatus.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch s {
	case "active":
		return ProjectActive, nil
	case "translation_completed":
		return ProjectTranslationCompleted, nil
	case "revision_required":
		return ProjectRevisionRequired, nil
	case "completed":
		return ProjectCompleted, nil
	}
	return ProjectActive, Errorf(ErrPreconditionFailed, "unknown project status '%v'", s)
}

// Project is the unit of dispatched work. Settings (word count,
// budget, deadline) are carried opaquely for the surrounding pages;
// the core only reads and writes Status.
type Project struct {
	ID           int64
	Name         string
	SourceLang   string
	TargetLang   string
	Status       ProjectStatus
	TranslatorID *int64
	ReviewerID   *int64
	Settings     string
}

// Segment is the atomic unit of translation work. SourceText is
// immutable after creation; TargetText is owned by whichever actor
// currently holds edit focus. UpdatedAt doubles as the optimistic
// concurrency token for autosave.
type Segment struct {
	ID            int64
	ProjectID     int64
	SegmentNumber int
	SourceText    string
	TargetText    string
	Status        SegmentStatus
	QAFlags       []QAFlag
	ReviewComment string
	UpdatedAt     time.Time
}

// TMEntry is one previously translated pair in the translation
// memory. Entries are keyed by the normalized source text and the
// language pair; the corpus only ever grows.
type TMEntry struct {
	ID         int64
	SourceText string
	TargetText string
	SourceLang string
	TargetLang string
	UpdatedAt  time.Time
}

// GlossaryTerm is a controlled source-term to target-term mapping.
// Terminology management owns these rows; the core only reads them.
type GlossaryTerm struct {
	ID          int64
	Term        string
	Translation string
	SourceLang  string
	TargetLang  string
	Description string
}

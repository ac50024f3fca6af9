package server

import (
	"github.com/rmali83/Glossa/cat"
)

// JSON views of the domain types. Timestamps travel as integer
// nanoseconds because the segment's updatedAt doubles as the
// optimistic-concurrency token clients must echo back unchanged.

type projectView struct {
	Id           int64  `json:"id"`
	Name         string `json:"name"`
	SourceLang   string `json:"sourceLanguage"`
	TargetLang   string `json:"targetLanguage"`
	Status       string `json:"status"`
	TranslatorId *int64 `json:"translatorId"`
	ReviewerId   *int64 `json:"reviewerId"`
	Settings     string `json:"settings,omitempty"`
}

func newProjectView(p cat.Project) projectView {
	return projectView{
		Id:           p.ID,
		Name:         p.Name,
		SourceLang:   p.SourceLang,
		TargetLang:   p.TargetLang,
		Status:       p.Status.String(),
		TranslatorId: p.TranslatorID,
		ReviewerId:   p.ReviewerID,
		Settings:     p.Settings,
	}
}

type segmentView struct {
	Id            int64    `json:"id"`
	ProjectId     int64    `json:"projectId"`
	SegmentNumber int      `json:"segmentNumber"`
	SourceText    string   `json:"sourceText"`
	TargetText    string   `json:"targetText"`
	Status        string   `json:"status"`
	QaFlags       []string `json:"qaFlags"`
	QaScore       int      `json:"qaScore"`
	ReviewComment string   `json:"reviewComment,omitempty"`
	UpdatedAt     int64    `json:"updatedAt"`
}

func newSegmentView(s cat.Segment) segmentView {
	flags := make([]string, len(s.QAFlags))
	for i, f := range s.QAFlags {
		flags[i] = string(f)
	}
	return segmentView{
		Id:            s.ID,
		ProjectId:     s.ProjectID,
		SegmentNumber: s.SegmentNumber,
		SourceText:    s.SourceText,
		TargetText:    s.TargetText,
		Status:        s.Status.String(),
		QaFlags:       flags,
		QaScore:       cat.QualityScore(s.QAFlags),
		ReviewComment: s.ReviewComment,
		UpdatedAt:     s.UpdatedAt.UnixNano(),
	}
}

func newSegmentViews(segments []cat.Segment) []segmentView {
	views := make([]segmentView, len(segments))
	for i, s := range segments {
		views[i] = newSegmentView(s)
	}
	return views
}

type termView struct {
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Description string `json:"description,omitempty"`
}

func newTermViews(terms []cat.GlossaryTerm) []termView {
	views := make([]termView, len(terms))
	for i, t := range terms {
		views[i] = termView{Term: t.Term, Translation: t.Translation, Description: t.Description}
	}
	return views
}

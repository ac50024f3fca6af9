package cat

import (
	"strings"
)

// QAFlag is an advisory annotation on a segment. Flags never gate a
// status transition; they only feed the editor's warning surface.
type QAFlag string

const (
	QAMissingPunctuation QAFlag = "missing_punctuation"
	QALengthMismatch     QAFlag = "length_mismatch"
	QAUntranslated       QAFlag = "untranslated"
)

// endsWithSentencePunctuation reports whether s ends in '.', '!' or '?'.
func endsWithSentencePunctuation(s string) bool {
	s = strings.TrimRight(s, " \t")
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// CheckQuality runs the advisory quality checks on a source/target
// pair. An empty target produces no flags; an untranslated segment is
// not a quality problem, it is just unstarted work.
func CheckQuality(sourceText, targetText string) []QAFlag {
	if targetText == "" {
		return nil
	}

	var flags []QAFlag

	if endsWithSentencePunctuation(sourceText) && !endsWithSentencePunctuation(targetText) {
		flags = append(flags, QAMissingPunctuation)
	}

	// Rough heuristic: translations between languages rarely shrink
	// below a third or grow beyond triple the source length.
	if len(sourceText) > 0 {
		ratio := float64(len(targetText)) / float64(len(sourceText))
		if ratio < 0.3 || ratio > 3 {
			flags = append(flags, QALengthMismatch)
		}
	}

	if strings.EqualFold(strings.TrimSpace(sourceText), strings.TrimSpace(targetText)) {
		flags = append(flags, QAUntranslated)
	}

	return flags
}

// QualityScore converts a flag set to the 0-100 advisory score shown
// next to the editor. Each flag costs 20 points.
func QualityScore(flags []QAFlag) int {
	score := 100 - 20*len(flags)
	if score < 0 {
		score = 0
	}
	return score
}

// JoinQAFlags serializes a flag set for storage.
func JoinQAFlags(flags []QAFlag) string {
	if len(flags) == 0 {
		return ""
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// SplitQAFlags parses a stored flag set.
func SplitQAFlags(s string) []QAFlag {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	flags := make([]QAFlag, len(parts))
	for i, p := range parts {
		flags[i] = QAFlag(p)
	}
	return flags
}

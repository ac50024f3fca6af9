/*
Package export serializes a project's segments into interchange
formats (plain text and XLIFF 1.2) and parses XLIFF files back for
re-import. Output is deterministic: segments always appear in segment
number order, and the XLIFF escape and unescape functions are exact
inverses so embedded markup survives a round trip byte for byte.
*/
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rmali83/Glossa/cat"
)

// File is the product handed to the export consumer: content bytes, a
// suggested filename and a MIME type. Writing it anywhere is the
// consumer's concern.
type File struct {
	Content  []byte
	Filename string
	MimeType string
}

// byNumber returns the segments sorted by segment number ascending,
// the canonical export order.
func byNumber(segments []cat.Segment) []cat.Segment {
	sorted := make([]cat.Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SegmentNumber < sorted[j].SegmentNumber
	})
	return sorted
}

// filenameBase derives a filesystem-friendly name from the project.
func filenameBase(p cat.Project) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, p.Name)
	if name == "" {
		name = fmt.Sprintf("project_%v", p.ID)
	}
	return fmt.Sprintf("%v.%v", name, p.TargetLang)
}

// PlainText renders the target texts joined by blank lines, in
// segment order. Untranslated segments contribute an empty line so
// every segment keeps its position for re-import.
func PlainText(p cat.Project, segments []cat.Segment) File {
	targets := make([]string, len(segments))
	for i, seg := range byNumber(segments) {
		targets[i] = seg.TargetText
	}

	return File{
		Content:  []byte(strings.Join(targets, "\n\n")),
		Filename: filenameBase(p) + ".txt",
		MimeType: "text/plain; charset=utf-8",
	}
}

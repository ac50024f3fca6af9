package export

import (
	"strings"
	"testing"

	"github.com/rmali83/Glossa/cat"
)

func testSegments() (cat.Project, []cat.Segment) {
	p := cat.Project{ID: 1, Name: "Manual", SourceLang: "en", TargetLang: "es"}
	segments := []cat.Segment{
		// Deliberately out of order: export must sort by segment number.
		{SegmentNumber: 3, SourceText: "Third.", TargetText: "Tercero."},
		{SegmentNumber: 1, SourceText: "First.", TargetText: "Primero."},
		{SegmentNumber: 2, SourceText: "Second.", TargetText: ""},
	}
	return p, segments
}

// ---------------------------------------------------------------------------
// Plain text
// ---------------------------------------------------------------------------

func TestPlainText_OrderAndEmptyLines(t *testing.T) {
	p, segments := testSegments()
	file := PlainText(p, segments)

	want := "Primero.\n\n\n\nTercero."
	if string(file.Content) != want {
		t.Errorf("got %q, want %q: untranslated segments keep their position", string(file.Content), want)
	}
	if file.MimeType != "text/plain; charset=utf-8" {
		t.Errorf("got mime %q", file.MimeType)
	}
	if !strings.HasSuffix(file.Filename, ".es.txt") {
		t.Errorf("got filename %q, want .es.txt suffix", file.Filename)
	}
}

// ---------------------------------------------------------------------------
// Escaping
// ---------------------------------------------------------------------------

func TestEscape_SpecialCharacters(t *testing.T) {
	got := Escape(`Data < 5 & valid > "ok"`)
	want := "Data &lt; 5 &amp; valid &gt; &quot;ok&quot;"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscapeUnescape_AreExactInverses(t *testing.T) {
	cases := []string{
		`Data < 5 & valid > "ok"`,
		"Plain text without specials",
		"<b>bold</b> inline markup",
		"&amp; already-escaped text",
		`it's a "mixed" <case> & more`,
		"",
	}
	for _, in := range cases {
		if got := Unescape(Escape(in)); got != in {
			t.Errorf("round trip of %q gave %q", in, got)
		}
	}
}

// ---------------------------------------------------------------------------
// XLIFF
// ---------------------------------------------------------------------------

func TestXLIFF_EscapesAndKeysByNumber(t *testing.T) {
	p := cat.Project{ID: 1, Name: "Manual", SourceLang: "en", TargetLang: "es"}
	segments := []cat.Segment{
		{SegmentNumber: 1, SourceText: `Data < 5 & valid > "ok"`, TargetText: "Datos"},
	}

	out := string(XLIFF(p, segments).Content)

	if !strings.Contains(out, `<source>Data &lt; 5 &amp; valid &gt; &quot;ok&quot;</source>`) {
		t.Errorf("source not escaped as expected:\n%v", out)
	}
	if !strings.Contains(out, `<trans-unit id="1">`) {
		t.Errorf("trans-unit not keyed by segment number:\n%v", out)
	}
	if !strings.Contains(out, `source-language="en"`) || !strings.Contains(out, `target-language="es"`) {
		t.Errorf("language pair missing:\n%v", out)
	}
}

func TestXLIFF_InlineMarkupStaysLiteral(t *testing.T) {
	p := cat.Project{ID: 1, Name: "Manual", SourceLang: "en", TargetLang: "es"}
	segments := []cat.Segment{
		{SegmentNumber: 1, SourceText: "Fast <b>for all translators</b>.", TargetText: "Rápida <b>para todos</b>."},
	}

	out := string(XLIFF(p, segments).Content)
	if strings.Contains(out, "<b>") {
		t.Errorf("inline markup leaked as XML structure:\n%v", out)
	}
	if !strings.Contains(out, "&lt;b&gt;") {
		t.Errorf("inline markup not preserved as escaped text:\n%v", out)
	}
}

func TestXLIFF_RoundTripsThroughParse(t *testing.T) {
	p, segments := testSegments()
	segments[0].SourceText = `Mixed <b>markup</b> & "quotes" with 'apostrophes'`
	segments[0].TargetText = `target < with > specials & such`

	file := XLIFF(p, segments)
	sourceLang, targetLang, units, err := ParseXLIFF(file.Content)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if sourceLang != "en" || targetLang != "es" {
		t.Errorf("got language pair %v->%v, want en->es", sourceLang, targetLang)
	}
	if len(units) != len(segments) {
		t.Fatalf("got %d units, want %d", len(units), len(segments))
	}

	// Parsed units come back in segment number order.
	byNumber := make(map[int]Unit)
	for _, u := range units {
		byNumber[u.SegmentNumber] = u
	}
	for _, seg := range segments {
		u, ok := byNumber[seg.SegmentNumber]
		if !ok {
			t.Fatalf("segment %d missing from parse", seg.SegmentNumber)
		}
		if u.SourceText != seg.SourceText {
			t.Errorf("segment %d source: got %q, want %q", seg.SegmentNumber, u.SourceText, seg.SourceText)
		}
		if u.TargetText != seg.TargetText {
			t.Errorf("segment %d target: got %q, want %q", seg.SegmentNumber, u.TargetText, seg.TargetText)
		}
	}
}

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/rmali83/Glossa/cat"
)

// Escape replaces the five XML special characters with entities.
// Ampersand goes first so already-escaped text is never escaped twice.
// Inline markup embedded in segment text (a literal "<b>" span) comes
// out as escaped text, not XML structure.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

// Unescape is the exact inverse of Escape: same replacements in
// reverse order, ampersand last.
func Unescape(s string) string {
	s = strings.ReplaceAll(s, "&apos;", "'")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// XLIFF renders an XLIFF 1.2 document with one trans-unit per
// segment, keyed by segment number. The document is emitted by hand
// so the escape sequence and attribute order stay deterministic and
// the Escape/Unescape pair governs exactly what lands in the file.
func XLIFF(p cat.Project, segments []cat.Segment) File {
	var b bytes.Buffer

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<xliff version="1.2" xmlns="urn:oasis:names:tc:xliff:document:1.2">` + "\n")
	fmt.Fprintf(&b, `  <file original="%v" source-language="%v" target-language="%v" datatype="plaintext">`+"\n",
		Escape(p.Name), Escape(p.SourceLang), Escape(p.TargetLang))
	b.WriteString("    <body>\n")

	for _, seg := range byNumber(segments) {
		fmt.Fprintf(&b, `      <trans-unit id="%v">`+"\n", seg.SegmentNumber)
		fmt.Fprintf(&b, "        <source>%v</source>\n", Escape(seg.SourceText))
		fmt.Fprintf(&b, "        <target>%v</target>\n", Escape(seg.TargetText))
		b.WriteString("      </trans-unit>\n")
	}

	b.WriteString("    </body>\n")
	b.WriteString("  </file>\n")
	b.WriteString("</xliff>\n")

	return File{
		Content:  b.Bytes(),
		Filename: filenameBase(p) + ".xliff",
		MimeType: "application/xml",
	}
}

// Unit is one parsed trans-unit from an imported XLIFF file.
type Unit struct {
	SegmentNumber int
	SourceText    string
	TargetText    string
}

type xliffDoc struct {
	XMLName xml.Name  `xml:"xliff"`
	Version string    `xml:"version,attr"`
	File    xliffFile `xml:"file"`
}

type xliffFile struct {
	Original   string      `xml:"original,attr"`
	SourceLang string      `xml:"source-language,attr"`
	TargetLang string      `xml:"target-language,attr"`
	Units      []xliffUnit `xml:"body>trans-unit"`
}

type xliffUnit struct {
	Id     string `xml:"id,attr"`
	Source string `xml:"source"`
	Target string `xml:"target"`
}

// ParseXLIFF reads an exported document back into units keyed by
// segment number. The XML decoder applies the entity decoding that
// mirrors Escape, so source and target round-trip byte for byte.
func ParseXLIFF(data []byte) (sourceLang, targetLang string, units []Unit, err error) {
	var doc xliffDoc
	if err = xml.Unmarshal(data, &doc); err != nil {
		return "", "", nil, err
	}

	units = make([]Unit, 0, len(doc.File.Units))
	for _, u := range doc.File.Units {
		n, convErr := strconv.Atoi(u.Id)
		if convErr != nil {
			return "", "", nil, fmt.Errorf("trans-unit id '%v' is not a segment number", u.Id)
		}
		units = append(units, Unit{
			SegmentNumber: n,
			SourceText:    u.Source,
			TargetText:    u.Target,
		})
	}

	return doc.File.SourceLang, doc.File.TargetLang, units, nil
}

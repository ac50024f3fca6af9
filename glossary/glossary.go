/*
Package glossary resolves controlled terminology occurring in a
segment's source text. Terminology rows are maintained elsewhere; the
resolver only reads them to populate the editor's suggestion surface.
*/
package glossary

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rmali83/Glossa/cat"
)

// Store is the backing store for glossary terms. The datastore
// satisfies it.
type Store interface {
	GetGlossaryTerms(sourceLang, targetLang string) ([]cat.GlossaryTerm, error)
}

type Resolver struct {
	store Store
}

func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// occursIn reports whether term occurs in text as a case-insensitive
// whole-word match. "art" does not match inside "particle".
func occursIn(term, text string) bool {
	term = strings.ToLower(term)
	text = strings.ToLower(text)

	for start := 0; ; {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start

		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		before := i == 0 || isBoundary(prev)
		end := i + len(term)
		next, _ := utf8.DecodeRuneInString(text[end:])
		after := end == len(text) || isBoundary(next)
		if before && after {
			return true
		}

		start = i + 1
	}
}

func isBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ResolveTerms returns every glossary term for the language pair whose
// source term occurs in the given text. The scan is linear over the
// pair's terminology; glossaries are small.
func (r *Resolver) ResolveTerms(sourceText, sourceLang, targetLang string) ([]cat.GlossaryTerm, error) {
	terms, err := r.store.GetGlossaryTerms(sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	var found []cat.GlossaryTerm
	for _, t := range terms {
		if t.Term == "" {
			continue
		}
		if occursIn(t.Term, sourceText) {
			found = append(found, t)
		}
	}

	return found, nil
}

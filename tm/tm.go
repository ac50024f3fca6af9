/*
Package tm implements the translation-memory matcher: given a source
text and a language pair it returns prior translations ranked by
similarity of their normalized source texts.
*/
package tm

import (
	"sort"
	"strings"

	"github.com/rmali83/Glossa/cat"
)

// Corpus is the backing store for translation-memory entries. The
// datastore satisfies it; tests use an in-memory fake.
type Corpus interface {
	GetTMEntries(sourceLang, targetLang string) ([]cat.TMEntry, error)
	UpsertTMEntry(e cat.TMEntry, normalizedSource string) error
}

// Match is one ranked suggestion. Score is 100 for an exact normalized
// match, otherwise a token-overlap percentage below 100.
type Match struct {
	SourceText string `json:"sourceText"`
	TargetText string `json:"targetText"`
	Score      int    `json:"score"`
}

type Matcher struct {
	corpus Corpus
}

func New(corpus Corpus) *Matcher {
	return &Matcher{corpus: corpus}
}

// Normalize case-folds a source text and collapses whitespace runs so
// that texts differing only in casing or spacing share a corpus key.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// score rates the similarity of two normalized texts as a percentage.
// Identical texts score 100; anything else lands below 100 via the
// Dice coefficient over their token sets.
func score(a, b string) int {
	if a == b {
		return 100
	}

	at := tokenSet(a)
	bt := tokenSet(b)
	if len(at) == 0 || len(bt) == 0 {
		return 0
	}

	var common int
	for tok := range at {
		if _, ok := bt[tok]; ok {
			common++
		}
	}

	pct := int(2 * 100 * float64(common) / float64(len(at)+len(bt)))
	if pct >= 100 {
		// Same token set in a different order is close, not exact.
		pct = 99
	}
	return pct
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// FindMatches returns up to limit prior translations for the given
// source text and language pair, best first. Ties are broken by most
// recently updated entry; an empty corpus yields an empty list, which
// is the normal condition for a new language pair.
func (m *Matcher) FindMatches(sourceText, sourceLang, targetLang string, limit int) ([]Match, error) {
	entries, err := m.corpus.GetTMEntries(sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	query := Normalize(sourceText)

	type scored struct {
		entry cat.TMEntry
		score int
	}
	candidates := make([]scored, 0, len(entries))
	for _, e := range entries {
		s := score(query, Normalize(e.SourceText))
		if s == 0 {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: s})
	}

	// Entries arrive most-recently-updated first, so a stable sort on
	// score alone preserves the tie-break order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{
			SourceText: c.entry.SourceText,
			TargetText: c.entry.TargetText,
			Score:      c.score,
		}
	}

	return matches, nil
}

// Record upserts a completed source/target pair into the corpus,
// keyed by the normalized source text and language pair. The last
// write wins on the target text.
func (m *Matcher) Record(e cat.TMEntry) error {
	return m.corpus.UpsertTMEntry(e, Normalize(e.SourceText))
}

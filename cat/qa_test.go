package cat

import (
	"testing"
)

func hasFlag(flags []QAFlag, want QAFlag) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func TestCheckQuality_EmptyTargetHasNoFlags(t *testing.T) {
	flags := CheckQuality("Hello world.", "")
	if len(flags) != 0 {
		t.Errorf("got %v, want none: unstarted work is not a quality problem", flags)
	}
}

func TestCheckQuality_MissingPunctuation(t *testing.T) {
	flags := CheckQuality("Hello world.", "Hola mundo")
	if !hasFlag(flags, QAMissingPunctuation) {
		t.Errorf("got %v, want missing_punctuation", flags)
	}

	flags = CheckQuality("Hello world.", "Hola mundo.")
	if hasFlag(flags, QAMissingPunctuation) {
		t.Errorf("got %v, want no missing_punctuation", flags)
	}
}

func TestCheckQuality_LengthMismatch(t *testing.T) {
	flags := CheckQuality("This is a reasonably long source sentence for the check.", "No.")
	if !hasFlag(flags, QALengthMismatch) {
		t.Errorf("got %v, want length_mismatch", flags)
	}
}

func TestCheckQuality_Untranslated(t *testing.T) {
	flags := CheckQuality("Hello world.", "hello world.")
	if !hasFlag(flags, QAUntranslated) {
		t.Errorf("got %v, want untranslated", flags)
	}
}

func TestCheckQuality_CleanTranslation(t *testing.T) {
	flags := CheckQuality("Hello world.", "Hola mundo.")
	if len(flags) != 0 {
		t.Errorf("got %v, want none", flags)
	}
}

func TestQualityScore(t *testing.T) {
	if got := QualityScore(nil); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
	if got := QualityScore([]QAFlag{QAUntranslated, QALengthMismatch}); got != 60 {
		t.Errorf("got %d, want 60", got)
	}
	if got := QualityScore(make([]QAFlag, 6)); got != 0 {
		t.Errorf("got %d, want 0: score never goes negative", got)
	}
}

func TestQAFlagsRoundTrip(t *testing.T) {
	flags := []QAFlag{QAMissingPunctuation, QAUntranslated}
	got := SplitQAFlags(JoinQAFlags(flags))
	if len(got) != 2 || got[0] != QAMissingPunctuation || got[1] != QAUntranslated {
		t.Errorf("got %v, want %v", got, flags)
	}

	if got := SplitQAFlags(""); got != nil {
		t.Errorf("got %v, want nil for empty input", got)
	}
}

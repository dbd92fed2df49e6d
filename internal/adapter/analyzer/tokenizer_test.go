package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenizeCollapsesCitations(t *testing.T) {
	tok := NewTokenizer()

	cases := []struct {
		text string
		want []string
	}{
		{"liability under § 230(c)", []string{"liability", "under", "sec230c"}},
		{"see Section 512 takedown", []string{"see", "sec512", "takedown"}},
		{"Sec. 1681 disclosures", []string{"sec1681", "disclosures"}},
		{"Article 17 erasure", []string{"art17", "erasure"}},
		{"Art. 6(1)(a) consent", []string{"art61a", "consent"}},
		{"§§ 1681-1681x apply", []string{"sec16811681x", "apply"}},
	}

	for _, tc := range cases {
		got := tok.Tokenize(tc.text)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestTokenizeCitationMatchesAcrossTypography(t *testing.T) {
	tok := NewTokenizer()

	query := tok.Tokenize("section 230(c)")
	statute := tok.Tokenize("Protection under § 230(c) of this title")

	if len(query) == 0 {
		t.Fatal("query produced no tokens")
	}
	found := false
	for _, s := range statute {
		if s == query[0] {
			found = true
		}
	}
	if !found {
		t.Errorf("query token %q not found in statute tokens %v", query[0], statute)
	}
}

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	tok := NewTokenizer()

	got := tok.Tokenize("the operator shall, pursuant to an order, act in good faith")
	want := []string{"operator", "order", "act", "good", "faith"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeLowercasesAndSplitsPunctuation(t *testing.T) {
	tok := NewTokenizer()

	got := tok.Tokenize("Personal-Data; PROCESSING (lawful)")
	want := []string{"personal", "data", "processing", "lawful"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	tok := NewTokenizer()
	if got := tok.Tokenize("  \n\t "); len(got) != 0 {
		t.Errorf("Tokenize on whitespace = %v, want none", got)
	}
}

package stellartrace

import (
	"reflect"
	"testing"
)

func TestTokenize_SplitsOnNonAlphanumeric(t *testing.T) {
	got := tokenize("hello-world, user@email.com")
	want := []string{"hello", "world", "user", "email", "com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize() = %v, want %v", got, want)
	}
}

func TestTokenize_DropsDigitsOnlyTokens(t *testing.T) {
	got := Tokenize("price: 9.99 dollars")
	for _, tok := range got {
		for _, c := range tok {
			if c >= '0' && c <= '9' {
				t.Errorf("token %q contains a digit, want letters only", tok)
			}
		}
	}
}

func TestTokenize_BuildStopwordsRemoved(t *testing.T) {
	got := Tokenize("the quick fox is in a hole")
	want := []string{"quick", "fox", "hole"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestTokenizeQuery_UsesDistinctStopwordSet(t *testing.T) {
	// "with" and "by" are query-time stopwords but not build-time ones.
	got := TokenizeQuery("results with experiments by alice")
	want := []string{"results", "experiments", "alice"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenizeQuery() = %v, want %v", got, want)
	}
}

func TestTokenizeQuery_AllStopwords(t *testing.T) {
	got := TokenizeQuery("the of is")
	if len(got) != 0 {
		t.Errorf("TokenizeQuery() = %v, want empty", got)
	}
}

func TestTokenize_Idempotent(t *testing.T) {
	text := "Quantum Entanglement and Neural Networks"
	first := Tokenize(text)
	second := Tokenize(joinTokens(first))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("tokenize not idempotent on normalized input: %v vs %v", first, second)
	}
}

func TestStemmerFilter_OptionalExtension(t *testing.T) {
	got := stemmerFilter([]string{"running", "quickly", "foxes"})
	want := []string{"run", "quick", "fox"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("stemmerFilter() = %v, want %v", got, want)
	}
}

func joinTokens(tokens []string) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += " "
		}
		out += tok
	}
	return out
}

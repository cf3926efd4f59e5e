package stellartrace

import (
	"os"
	"path/filepath"
	"testing"
)

// buildTestIndex runs the full offline pipeline over a literal corpus and
// returns the components Search needs.
func buildTestIndex(t *testing.T, corpus string) (*Lexicon, *BarrelStore, *DocMap, string) {
	t.Helper()
	dir := t.TempDir()

	corpusPath := filepath.Join(dir, "corpus.jsonl")
	if err := os.WriteFile(corpusPath, []byte(corpus), 0o644); err != nil {
		t.Fatal(err)
	}

	lexPath := filepath.Join(dir, "lexicon.txt")
	lex, err := BuildLexicon(corpusPath, lexPath)
	if err != nil {
		t.Fatalf("BuildLexicon: %v", err)
	}

	fwdPath := filepath.Join(dir, "forward.txt")
	if err := BuildForwardIndex(corpusPath, fwdPath, lex); err != nil {
		t.Fatalf("BuildForwardIndex: %v", err)
	}

	n := len(splitNonEmptyLines(corpus))

	invPath := filepath.Join(dir, "inverted.txt")
	if err := BuildInvertedIndex(fwdPath, invPath, n); err != nil {
		t.Fatalf("BuildInvertedIndex: %v", err)
	}

	barrelDir := filepath.Join(dir, "barrels")
	if err := BuildBarrels(invPath, barrelDir); err != nil {
		t.Fatalf("BuildBarrels: %v", err)
	}
	bs, err := LoadBarrelStore(barrelDir)
	if err != nil {
		t.Fatalf("LoadBarrelStore: %v", err)
	}

	dm, err := BuildAUC(corpusPath, filepath.Join(dir, "auc.csv"))
	if err != nil {
		t.Fatalf("BuildAUC: %v", err)
	}

	return lex, bs, dm, corpusPath
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// TestSearch_SingleTermHit exercises spec §8 scenario 1's corpus and query.
// The literal worked score of 11.0 in the scenario text assumes per-field
// contributions for a single term in one document; that contradicts the
// forward-index invariant that a WID appears at most once per document
// (merged, max mask) — see DESIGN.md's Open Question decision. With the
// merged posting (tf=2, mask=title, idf=0) the score is 2*0 + 10 = 10.0.
func TestSearch_SingleTermHit(t *testing.T) {
	corpus := `{"id":"p1","title":"quantum entanglement","abstract":"We study quantum systems.","submitter":"Alice","authors_parsed":[["Doe","Alice"]]}` + "\n"
	lex, bs, dm, corpusPath := buildTestIndex(t, corpus)

	results, err := Search("quantum", lex, bs, dm, corpusPath, QueryOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search(quantum) = %d results, want 1", len(results))
	}
	if results[0]["id"] != "p1" {
		t.Errorf("result id = %v, want p1", results[0]["id"])
	}
	score, ok := results[0]["relevance_score"].(float64)
	if !ok {
		t.Fatalf("relevance_score missing or wrong type: %+v", results[0])
	}
	if score != 10.0 {
		t.Errorf("relevance_score = %v, want 10.0", score)
	}
}

// TestSearch_StopwordQuery exercises spec §8 scenario 2.
func TestSearch_StopwordQuery(t *testing.T) {
	corpus := `{"id":"p1","title":"anything","abstract":"anything","submitter":"x","authors_parsed":[]}` + "\n"
	lex, bs, dm, corpusPath := buildTestIndex(t, corpus)

	results, err := Search("the of is", lex, bs, dm, corpusPath, QueryOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search(the of is) = %v, want []", results)
	}
}

// TestSearch_Relaxation exercises spec §8 scenario 3: the three-term AND
// is empty, the term that empties it ("network", tied rarest with
// "graph") is dropped, and the surviving terms return the document that
// has both.
func TestSearch_Relaxation(t *testing.T) {
	corpus := `{"id":"p1","title":"graph neural","abstract":"x","submitter":"x","authors_parsed":[]}
{"id":"p2","title":"neural network","abstract":"x","submitter":"x","authors_parsed":[]}
`
	lex, bs, dm, corpusPath := buildTestIndex(t, corpus)

	results, err := Search("graph neural network", lex, bs, dm, corpusPath, QueryOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search(graph neural network) = %d results, want 1", len(results))
	}
	if results[0]["id"] != "p1" {
		t.Errorf("result id = %v, want p1", results[0]["id"])
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	corpus := `{"id":"p1","title":"x","abstract":"x","submitter":"x","authors_parsed":[]}` + "\n"
	lex, bs, dm, corpusPath := buildTestIndex(t, corpus)

	results, err := Search("", lex, bs, dm, corpusPath, QueryOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search(\"\") = %v, want []", results)
	}
}

func TestSearch_TermNotInLexicon(t *testing.T) {
	corpus := `{"id":"p1","title":"quantum","abstract":"x","submitter":"x","authors_parsed":[]}` + "\n"
	lex, bs, dm, corpusPath := buildTestIndex(t, corpus)

	results, err := Search("nonexistentword", lex, bs, dm, corpusPath, QueryOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search(nonexistentword) = %v, want []", results)
	}
}

// TestSearch_RelaxationDropsToSingleTerm covers two terms that never
// co-occur: relaxation drops the term that empties the intersection and
// returns the survivor's own hits, rather than relaxing all the way to [].
func TestSearch_RelaxationDropsToSingleTerm(t *testing.T) {
	corpus := `{"id":"p1","title":"alpha","abstract":"x","submitter":"x","authors_parsed":[]}
{"id":"p2","title":"beta","abstract":"x","submitter":"x","authors_parsed":[]}
`
	lex, bs, dm, corpusPath := buildTestIndex(t, corpus)

	results, err := Search("alpha beta", lex, bs, dm, corpusPath, QueryOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0]["id"] != "p1" {
		t.Errorf("Search(alpha beta) = %v, want one result p1 (alpha survives as the rarer/first term)", results)
	}
}

// TestIntersectWithRelaxation_AllTermsEmpty covers spec §8's boundary: if
// every term's own doc-id set is empty, relaxation drops terms down to
// none and returns no winners.
func TestIntersectWithRelaxation_AllTermsEmpty(t *testing.T) {
	terms := []termCandidate{
		{word: "a", wid: 1, posting: &invertedPosting{wid: 1}},
		{word: "b", wid: 2, posting: &invertedPosting{wid: 2}},
	}
	winners := intersectWithRelaxation(terms)
	if len(winners) != 0 {
		t.Errorf("intersectWithRelaxation with all-empty postings = %v, want none", winners)
	}
}

func TestEditDistanceAtMostOne(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"quantum", "quantum", true},
		{"quantum", "quantim", true},
		{"quantum", "quantu", true},
		{"quantum", "quantums", true},
		{"quantum", "quant", false},
		{"quantum", "qxantxm", false},
	}
	for _, c := range cases {
		if got := editDistanceAtMostOne(c.a, c.b); got != c.want {
			t.Errorf("editDistanceAtMostOne(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

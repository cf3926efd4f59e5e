package stellartrace

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// MaxResults is the top-K cutoff for search results (spec §4.7 step 6).
const MaxResults = 10

// MaxDocsPerTerm truncates the candidate docset seeded from the rarest
// term (spec §4.7 step 4).
const MaxDocsPerTerm = 200000

// positionWeight returns the score contribution for a term occurring in
// the given field, independent of tf*idf (spec §4.7 step 5).
func positionWeight(mask Field) float64 {
	switch mask {
	case FieldTitle:
		return 10
	case FieldAuthor:
		return 5
	default:
		return 1
	}
}

// QueryOptions controls optional stages of the query pipeline.
type QueryOptions struct {
	// EnableFallback turns on the spelling/semantic fallback
	// (resolveFallback) before a term absent from the lexicon is dropped.
	// Off by default, keeping §8's documented primary-path semantics
	// intact (spec §9 Optional extensions; original_source/semanticsearch.hpp).
	EnableFallback bool
}

// termCandidate is one surviving query term, resolved to a WID and its
// fetched posting list.
type termCandidate struct {
	word    string
	wid     uint32
	posting *invertedPosting
}

// SearchResult is one hydrated document, augmented with its relevance
// score (spec §4.7 contract).
type SearchResult map[string]any

// Search implements the full query pipeline of spec §4.7: tokenize,
// parallel fetch, order by rarity, strict AND with relaxation, score,
// top-K, hydrate.
func Search(queryString string, lex *Lexicon, bs *BarrelStore, dm *DocMap, corpusPath string, opts QueryOptions) ([]SearchResult, error) {
	terms := TokenizeQuery(queryString)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}

	candidates := resolveCandidates(terms, lex, opts)
	if len(candidates) == 0 {
		return []SearchResult{}, nil
	}

	fetched := parallelFetch(candidates, bs)
	if len(fetched) == 0 {
		return []SearchResult{}, nil
	}

	sort.SliceStable(fetched, func(i, j int) bool {
		return len(fetched[i].posting.docs) < len(fetched[j].posting.docs)
	})

	winners := intersectWithRelaxation(fetched)
	if len(winners) == 0 {
		return []SearchResult{}, nil
	}

	ranked := topK(winners, MaxResults)
	return hydrate(ranked, dm, corpusPath)
}

// resolveCandidates looks up each query term's WID in the lexicon,
// optionally attempting the spelling/semantic fallback before dropping a
// term absent from the lexicon (spec §4.7 step 1, §9).
func resolveCandidates(terms []string, lex *Lexicon, opts QueryOptions) []termCandidate {
	candidates := make([]termCandidate, 0, len(terms))
	for _, term := range terms {
		wid, ok := lex.Lookup(term)
		if !ok && opts.EnableFallback {
			if resolved, fbOK := resolveFallback(term, lex); fbOK {
				wid, ok = resolved, true
			}
		}
		if !ok {
			continue
		}
		candidates = append(candidates, termCandidate{word: term, wid: wid})
	}
	return candidates
}

// parallelFetch invokes FetchPostings concurrently for every candidate,
// joining before returning (spec §4.7 step 2, §5).
func parallelFetch(candidates []termCandidate, bs *BarrelStore) []termCandidate {
	var wg sync.WaitGroup
	results := make([]termCandidate, len(candidates))

	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c termCandidate) {
			defer wg.Done()
			posting, err := bs.FetchPostings(c.wid)
			if err != nil {
				slog.Warn("term contributes no postings", slog.String("word", c.word), slog.String("error", err.Error()))
				return
			}
			c.posting = posting
			results[i] = c
		}(i, c)
	}
	wg.Wait()

	fetched := make([]termCandidate, 0, len(candidates))
	for _, r := range results {
		if r.posting != nil {
			fetched = append(fetched, r)
		}
	}
	return fetched
}

// winningDoc is one document surviving the intersection, with its
// accumulated score.
type winningDoc struct {
	edid  string
	score float64
}

// intersectWithRelaxation attempts a strict AND across all surviving
// terms (already sorted ascending by df, rarest first), seeded from the
// rarest term's doc-ids truncated to MaxDocsPerTerm. Terms are ANDed in
// that order; the moment the running intersection goes empty, the term
// that just emptied it is dropped and the whole attempt restarts from a
// fresh seed over the shortened term list. The dropped term is not
// necessarily the most common remaining one: terms sorted after it (with
// equal or larger df) are kept for the retry. Scores accumulate across
// every term that survives into the final intersection (step 5).
func intersectWithRelaxation(fetched []termCandidate) []winningDoc {
	terms := append([]termCandidate(nil), fetched...)

	for len(terms) > 0 {
		edidToID := make(map[string]uint32)
		idToEDID := make(map[uint32]string)

		candidateSet := seedCandidateSet(terms[0], edidToID, idToEDID)
		scores := make(map[uint32]float64)
		accumulateScores(terms[0], edidToID, scores)

		offender := -1
		for i := 1; i < len(terms); i++ {
			termSet := termDocSet(terms[i], edidToID, idToEDID)
			next := roaring.And(candidateSet, termSet)
			if next.IsEmpty() {
				offender = i
				break
			}
			candidateSet = next
			accumulateScores(terms[i], edidToID, scores)
		}

		if offender == -1 && !candidateSet.IsEmpty() {
			return collectWinners(candidateSet, idToEDID, scores)
		}
		if offender == -1 {
			// Single remaining term whose own doc-id set is empty.
			offender = 0
		}

		slog.Info("relaxing query: dropping term that emptied the intersection", slog.String("word", terms[offender].word))
		terms = append(terms[:offender], terms[offender+1:]...)
	}

	return nil
}

// seedCandidateSet builds the initial bitmap from the rarest term's
// doc-ids, truncated to MaxDocsPerTerm, minting a stable synthetic id per
// EDID (roaring bitmaps hold uint32s, EDIDs are strings).
func seedCandidateSet(term termCandidate, edidToID map[string]uint32, idToEDID map[uint32]string) *roaring.Bitmap {
	bm := roaring.New()
	limit := len(term.posting.docs)
	if limit > MaxDocsPerTerm {
		limit = MaxDocsPerTerm
	}
	for i := 0; i < limit; i++ {
		id := internEDID(term.posting.docs[i].edid, edidToID, idToEDID)
		bm.Add(id)
	}
	return bm
}

// termDocSet converts a later term's postings into the same synthetic id
// space established by seedCandidateSet, minting new ids for EDIDs not yet
// seen (they will simply never intersect, which is correct).
func termDocSet(term termCandidate, edidToID map[string]uint32, idToEDID map[uint32]string) *roaring.Bitmap {
	bm := roaring.New()
	for _, d := range term.posting.docs {
		bm.Add(internEDID(d.edid, edidToID, idToEDID))
	}
	return bm
}

func internEDID(edid string, edidToID map[string]uint32, idToEDID map[uint32]string) uint32 {
	id, ok := edidToID[edid]
	if !ok {
		id = uint32(len(edidToID))
		edidToID[edid] = id
		idToEDID[id] = edid
	}
	return id
}

func accumulateScores(term termCandidate, edidToID map[string]uint32, scores map[uint32]float64) {
	for _, d := range term.posting.docs {
		id, ok := edidToID[d.edid]
		if !ok {
			continue
		}
		scores[id] += float64(d.tf)*term.posting.idf + positionWeight(d.mask)
	}
}

func collectWinners(bm *roaring.Bitmap, idToEDID map[uint32]string, scores map[uint32]float64) []winningDoc {
	winners := make([]winningDoc, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		id := it.Next()
		winners = append(winners, winningDoc{edid: idToEDID[id], score: scores[id]})
	}
	return winners
}

// topK sorts all docs by descending score and takes the first k.
func topK(docs []winningDoc, k int) []winningDoc {
	sort.Slice(docs, func(i, j int) bool { return docs[i].score > docs[j].score })
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs
}

// hydrate re-reads each winning document's raw JSON from the corpus via
// its DocMap offset/length and injects the computed relevance_score
// (spec §4.7 step 7).
func hydrate(docs []winningDoc, dm *DocMap, corpusPath string) ([]SearchResult, error) {
	f, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	results := make([]SearchResult, 0, len(docs))
	for _, d := range docs {
		_, offset, length, ok := dm.Lookup(d.edid)
		if !ok {
			slog.Warn("docmap entry missing for winning document", slog.String("edid", d.edid))
			continue
		}

		buf := make([]byte, length)
		if _, err := f.ReadAt(buf, int64(offset)); err != nil {
			slog.Warn("corpus read failed during hydrate", slog.String("edid", d.edid), slog.String("error", err.Error()))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(buf, &obj); err != nil {
			slog.Warn("corpus record failed to parse during hydrate", slog.String("edid", d.edid))
			continue
		}
		obj["relevance_score"] = d.score
		results = append(results, SearchResult(obj))
	}
	return results, nil
}

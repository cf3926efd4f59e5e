package stellartrace

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Lexicon holds the bidirectional word<->WID mapping. It is appended-to at
// build time and at every ingestion, never rewritten (spec §3 Lifecycle).
// mu guards words/byWID/nextWordID/pending: GetOrInsert runs under the
// dynamic indexer's own serialization, but Lookup is called concurrently
// from query workers with no other synchronization (spec §5), so the map
// itself needs its own lock against a concurrent writer.
type Lexicon struct {
	mu         sync.RWMutex
	words      map[string]uint32
	byWID      map[uint32]string
	nextWordID uint32

	pending []lexiconEntry // queued inserts awaiting flushAppends
}

type lexiconEntry struct {
	word string
	wid  uint32
}

// NewLexicon returns an empty lexicon with the counter at zero.
func NewLexicon() *Lexicon {
	return &Lexicon{
		words: make(map[string]uint32),
		byWID: make(map[uint32]string),
	}
}

// LoadLexicon reads a lexicon file of whitespace-separated "word WID" lines
// and sets nextWordID to the maximum WID seen. A missing file yields an
// empty lexicon with counter zero — this is not an error (spec §7, missing
// file at load time).
func LoadLexicon(path string) (*Lexicon, error) {
	lex := NewLexicon()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Warn("lexicon file missing, starting empty", slog.String("path", path))
		return lex, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lineNo int
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			slog.Warn("skipping malformed lexicon line", slog.Int("line", lineNo))
			continue
		}
		wid64, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			slog.Warn("skipping malformed lexicon line", slog.Int("line", lineNo))
			continue
		}
		wid := uint32(wid64)
		lex.words[fields[0]] = wid
		lex.byWID[wid] = fields[0]
		if wid > lex.nextWordID {
			lex.nextWordID = wid
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slog.Info("lexicon loaded", slog.Int("words", len(lex.words)), slog.String("path", path))
	return lex, nil
}

// Lookup returns the WID for word and whether it is present.
func (l *Lexicon) Lookup(word string) (uint32, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wid, ok := l.words[word]
	return wid, ok
}

// Word returns the word for a WID and whether it is present.
func (l *Lexicon) Word(wid uint32) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.byWID[wid]
	return w, ok
}

// Len returns the number of distinct words in the lexicon.
func (l *Lexicon) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.words)
}

// FindByEditDistance scans the full vocabulary for a word within one edit
// of candidate, returning its WID. Used by the query fallback path
// (fallback.go), which otherwise has no way to range over the lexicon's
// words map without racing GetOrInsert.
func (l *Lexicon) FindByEditDistance(candidate string) (uint32, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for word, wid := range l.words {
		if editDistanceAtMostOne(candidate, word) {
			return wid, true
		}
	}
	return 0, false
}

// Words returns a snapshot of every word currently in the lexicon, safe to
// range over even while GetOrInsert runs concurrently on another goroutine.
// Used by BuildAutocomplete, which otherwise has no way to enumerate the
// vocabulary without racing the dynamic indexer.
func (l *Lexicon) Words() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	words := make([]string, 0, len(l.words))
	for word := range l.words {
		words = append(words, word)
	}
	return words
}

// GetOrInsert returns the existing WID for word, or assigns the next
// monotonic WID and queues (word, wid) for the next flushAppends call.
func (l *Lexicon) GetOrInsert(word string) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if wid, ok := l.words[word]; ok {
		return wid
	}
	l.nextWordID++
	wid := l.nextWordID
	l.words[word] = wid
	l.byWID[wid] = word
	l.pending = append(l.pending, lexiconEntry{word: word, wid: wid})
	return wid
}

// FlushAppends appends all queued (word, wid) pairs to path and clears the
// queue. Must be called after a batch of GetOrInsert calls before any
// consumer can observe the new WIDs on disk (spec §4.2).
func (l *Lexicon) FlushAppends(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("stellartrace: open lexicon for append: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range l.pending {
		if _, err := fmt.Fprintf(w, "%s %d\n", e.word, e.wid); err != nil {
			return fmt.Errorf("stellartrace: write lexicon append: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	l.pending = l.pending[:0]
	return nil
}

// BuildLexicon performs a single linear scan of the JSONL corpus,
// tokenizing title/abstract/submitter/authors_parsed with the build-time
// stopword set, and writes the resulting word->WID map to outPath.
func BuildLexicon(corpusPath, outPath string) (*Lexicon, error) {
	lex := NewLexicon()

	f, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			continue
		}
		for _, tok := range Tokenize(rec.fieldText()) {
			lex.GetOrInsert(tok)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if err := lex.FlushAppends(outPath); err != nil {
		return nil, err
	}
	slog.Info("lexicon built", slog.Int("words", lex.Len()), slog.String("path", outPath))
	return lex, nil
}

// MergeLexiconFiles merges several independently-built lexicon files into
// one, assigning fresh sequential WIDs in first-seen order and dropping
// duplicate words. Supplemented from original_source/Lexiconfolder.hpp —
// see DESIGN.md.
func MergeLexiconFiles(paths []string, outPath string) (*Lexicon, error) {
	merged := NewLexicon()

	for _, p := range paths {
		src, err := LoadLexicon(p)
		if err != nil {
			return nil, err
		}
		// Iterate words ordered by their original WID so merge order is
		// stable across runs rather than Go's randomized map order.
		wids := make([]uint32, 0, len(src.byWID))
		for wid := range src.byWID {
			wids = append(wids, wid)
		}
		sort.Slice(wids, func(i, j int) bool { return wids[i] < wids[j] })
		for _, wid := range wids {
			merged.GetOrInsert(src.byWID[wid])
		}
	}

	if err := merged.FlushAppends(outPath); err != nil {
		return nil, err
	}
	slog.Info("lexicons merged", slog.Int("sources", len(paths)), slog.Int("words", merged.Len()))
	return merged, nil
}

package stellartrace

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
)

// invertedDoc is one (edid, tf, mask) triple inside an inverted posting.
type invertedDoc struct {
	edid string
	tf   uint32
	mask Field
}

// invertedPosting is one (wid, idf, docs) record, spec §3.
type invertedPosting struct {
	wid  uint32
	idf  float64
	docs []invertedDoc
}

// BuildInvertedIndex performs a single streaming pass over the
// forward-index file, inverting it into a WID-keyed posting map. N is the
// total number of documents indexed, used to compute
// idf = ln(N/df). Output is written sorted by ascending WID — a required
// output property (spec §4.5).
func BuildInvertedIndex(forwardPath, outPath string, n int) error {
	in, err := os.Open(forwardPath)
	if err != nil {
		// An unreadable input file yields an empty output file; not fatal
		// above this component (spec §4.5).
		slog.Warn("inverted index build: forward index unreadable, writing empty output", slog.String("error", err.Error()))
		return os.WriteFile(outPath, nil, 0o644)
	}
	defer in.Close()

	postings := make(map[uint32][]invertedDoc)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var processed int
	for scanner.Scan() {
		line := scanner.Text()
		edid, entries, ok := parseForwardLine(line)
		if !ok {
			continue
		}
		for _, e := range entries {
			postings[e.wid] = append(postings[e.wid], invertedDoc{edid: edid, tf: e.tf, mask: e.mask})
		}
		processed++
		if processed%100000 == 0 {
			slog.Info("inverted index build progress", slog.Int("documents processed", processed))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	wids := make([]uint32, 0, len(postings))
	for wid := range postings {
		wids = append(wids, wid)
	}
	sort.Slice(wids, func(i, j int) bool { return wids[i] < wids[j] })

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)

	for _, wid := range wids {
		docs := postings[wid]
		idf := computeIDF(n, len(docs))
		if err := writeInvertedLine(w, wid, idf, docs); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	slog.Info("inverted index built", slog.Int("terms", len(wids)), slog.String("path", outPath))
	return nil
}

// computeIDF returns ln(N/df), or 0.0 if df is 0 (spec §4.5).
func computeIDF(n, df int) float64 {
	if df <= 0 {
		return 0.0
	}
	return math.Log(float64(n) / float64(df))
}

// writeInvertedLine renders "<WID> <IDF> : <EDID>(<TF>,<MASK>) ...\n".
func writeInvertedLine(w *bufio.Writer, wid uint32, idf float64, docs []invertedDoc) error {
	if _, err := fmt.Fprintf(w, "%d %g :", wid, idf); err != nil {
		return err
	}
	for _, d := range docs {
		if _, err := fmt.Fprintf(w, " %s(%d,%d)", d.edid, d.tf, d.mask); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

// parseInvertedLine parses one inverted-index (or barrel text) line back
// into an invertedPosting.
func parseInvertedLine(line string) (*invertedPosting, bool) {
	sepIdx := strings.Index(line, " : ")
	if sepIdx < 0 {
		return nil, false
	}
	head := line[:sepIdx]
	rest := line[sepIdx+3:]

	var widU uint64
	var idf float64
	if _, err := fmt.Sscanf(head, "%d %g", &widU, &idf); err != nil {
		return nil, false
	}

	p := &invertedPosting{wid: uint32(widU), idf: idf}
	for _, tok := range strings.Fields(rest) {
		d, ok := parseInvertedDocToken(tok)
		if !ok {
			continue
		}
		p.docs = append(p.docs, d)
	}
	return p, true
}

func parseInvertedDocToken(tok string) (invertedDoc, bool) {
	open := strings.IndexByte(tok, '(')
	closeP := strings.IndexByte(tok, ')')
	if open < 0 || closeP < 0 || open > closeP {
		return invertedDoc{}, false
	}
	edid := tok[:open]
	inner := tok[open+1 : closeP]
	commaIdx := strings.IndexByte(inner, ',')
	if commaIdx < 0 {
		return invertedDoc{}, false
	}
	var tf, mask uint64
	if _, err := fmt.Sscanf(inner[:commaIdx], "%d", &tf); err != nil {
		return invertedDoc{}, false
	}
	if _, err := fmt.Sscanf(inner[commaIdx+1:], "%d", &mask); err != nil {
		return invertedDoc{}, false
	}
	return invertedDoc{edid: edid, tf: uint32(tf), mask: Field(mask)}, true
}

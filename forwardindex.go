package stellartrace

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// forwardEntry is one (wid, tf, mask) triple belonging to a single
// document's forward posting.
type forwardEntry struct {
	wid  uint32
	tf   uint32
	mask Field
}

// BuildForwardIndex streams corpusPath, tokenizes title/abstract/
// submitter/authors_parsed with field tags, accumulates per-document
// (wid, tf, mask) with mask retaining the maximum field number on
// collision, and writes one line per document to outPath in the form
// "<EDID> : <WID>(<TF>,<MASK>) ...". Documents whose JSON fails to parse
// are skipped silently; documents missing id get a synthesized
// "Unassigned<k>" external id, distinct from the dynamic indexer's
// "new<k>" scheme (spec §4.4).
func BuildForwardIndex(corpusPath, outPath string, lex *Lexicon) error {
	in, err := os.Open(corpusPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var unassigned uint64
	var docs int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			continue
		}

		edid := rec.ID
		if edid == "" {
			unassigned++
			edid = fmt.Sprintf("Unassigned%d", unassigned)
		}

		entries := buildDocumentBag(rec, lex)
		if err := writeForwardLine(w, edid, entries); err != nil {
			return err
		}
		docs++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	slog.Info("forward index built", slog.Int("documents", docs), slog.String("path", outPath))
	return nil
}

// buildDocumentBag tokenizes every field of rec, assigns WIDs via lex
// (inserting new words), and accumulates tf/mask per wid.
func buildDocumentBag(rec *record, lex *Lexicon) []forwardEntry {
	tf := make(map[uint32]uint32)
	mask := make(map[uint32]Field)
	order := make([]uint32, 0)

	for _, tagged := range rec.taggedTokens() {
		wid := lex.GetOrInsert(tagged.token)
		if _, seen := tf[wid]; !seen {
			order = append(order, wid)
		}
		tf[wid]++
		if tagged.field > mask[wid] {
			mask[wid] = tagged.field
		}
	}

	entries := make([]forwardEntry, 0, len(order))
	for _, wid := range order {
		entries = append(entries, forwardEntry{wid: wid, tf: tf[wid], mask: mask[wid]})
	}
	return entries
}

// writeForwardLine renders "<EDID> : <WID>(<TF>,<MASK>) ...\n".
func writeForwardLine(w *bufio.Writer, edid string, entries []forwardEntry) error {
	if _, err := fmt.Fprintf(w, "%s :", edid); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, " %d(%d,%d)", e.wid, e.tf, e.mask); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

// parseForwardLine parses one forward-index line back into its EDID and
// entries. Malformed tokens (missing '(', ',', or ')') are skipped; the
// containing line continues (spec §4.5 failure modes).
func parseForwardLine(line string) (edid string, entries []forwardEntry, ok bool) {
	sepIdx := strings.Index(line, " : ")
	if sepIdx < 0 {
		return "", nil, false
	}
	edid = line[:sepIdx]
	rest := strings.TrimSpace(line[sepIdx+3:])
	if rest == "" {
		return edid, nil, true
	}

	for _, tok := range strings.Fields(rest) {
		e, parseErr := parsePostingToken(tok)
		if parseErr != nil {
			continue
		}
		entries = append(entries, e)
	}
	return edid, entries, true
}

// parsePostingToken parses "<WID>(<TF>,<MASK>)" into a forwardEntry.
func parsePostingToken(tok string) (forwardEntry, error) {
	open := strings.IndexByte(tok, '(')
	comma := strings.IndexByte(tok, ',')
	closeP := strings.IndexByte(tok, ')')
	if open < 0 || comma < 0 || closeP < 0 || open > comma || comma > closeP {
		return forwardEntry{}, ErrMalformedPosting
	}

	var wid, tf, mask uint64
	if _, err := fmt.Sscanf(tok[:open], "%d", &wid); err != nil {
		return forwardEntry{}, ErrMalformedPosting
	}
	if _, err := fmt.Sscanf(tok[open+1:comma], "%d", &tf); err != nil {
		return forwardEntry{}, ErrMalformedPosting
	}
	if _, err := fmt.Sscanf(tok[comma+1:closeP], "%d", &mask); err != nil {
		return forwardEntry{}, ErrMalformedPosting
	}

	return forwardEntry{wid: uint32(wid), tf: uint32(tf), mask: Field(mask)}, nil
}

package stellartrace

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

// docMapHeader is the literal first line written to AUC.csv. It uses
// commas even though every data line uses pipes — an intentional on-disk
// quirk carried over from astronomicalunitc.hpp; readers MUST ignore its
// contents (spec §6).
const docMapHeader = "internal_doc_id,original_doc_id,start_offset,length"

// docEntry is one DocMap record: EDID <-> (IDID, offset, length) in the
// raw corpus.
type docEntry struct {
	idid   uint32
	edid   string
	offset uint64
	length uint64
}

// DocMap is the external-id <-> (internal-id, byte-offset, byte-length)
// index over the raw corpus (spec §4.3). mu guards byEDID/byIDID/nextIDID
// against the dynamic indexer's Append running concurrently with query
// workers' Lookup (spec §5: these structures are shared freely across
// query workers, but "read-only after startup" no longer holds once
// ingestion is live).
type DocMap struct {
	mu     sync.RWMutex
	byEDID map[string]docEntry
	byIDID map[uint32]docEntry

	nextIDID uint32
}

// NewDocMap returns an empty DocMap.
func NewDocMap() *DocMap {
	return &DocMap{
		byEDID: make(map[string]docEntry),
		byIDID: make(map[uint32]docEntry),
	}
}

// Lookup returns the DocMap entry for an external document id.
func (m *DocMap) Lookup(edid string) (idid uint32, offset, length uint64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byEDID[edid]
	if !ok {
		return 0, 0, 0, false
	}
	return e.idid, e.offset, e.length, true
}

// Len returns the number of documents tracked.
func (m *DocMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byEDID)
}

func (m *DocMap) insert(e docEntry) {
	m.byEDID[e.edid] = e
	m.byIDID[e.idid] = e
	if e.idid >= m.nextIDID {
		m.nextIDID = e.idid + 1
	}
}

// BuildAUC performs one linear scan of corpusPath, recording each line's
// starting byte offset and length (not including the trailing newline)
// and extracting id, writing the result to outPath in AUC.csv form.
// Named to match original_source/astronomicalunitc.hpp's AUC class.
func BuildAUC(corpusPath, outPath string) (*DocMap, error) {
	m := NewDocMap()

	in, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if _, err := w.WriteString(docMapHeader + "\n"); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var offset uint64
	var idid uint32 = 1
	for scanner.Scan() {
		line := scanner.Bytes()
		length := uint64(len(line))

		rec, err := parseRecord(line)
		if err != nil {
			slog.Warn("skipping malformed corpus line while building docmap", slog.Uint64("offset", offset))
			offset += length + 1
			continue
		}
		edid := rec.ID

		if _, err := fmt.Fprintf(w, "%d|%s|%d|%d\n", idid, edid, offset, length); err != nil {
			return nil, err
		}
		m.insert(docEntry{idid: idid, edid: edid, offset: offset, length: length})

		offset += length + 1
		idid++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	slog.Info("docmap built", slog.Int("documents", m.Len()), slog.String("path", outPath))
	return m, nil
}

// LoadDocMap parses an AUC.csv file, skipping the header line. A missing
// file yields an empty DocMap (spec §7, missing file at load time).
func LoadDocMap(path string) (*DocMap, error) {
	m := NewDocMap()

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		slog.Warn("docmap file missing, starting empty", slog.String("path", path))
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue // header, ignore contents per spec §6
		}
		if line == "" {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 4 {
			slog.Warn("skipping malformed docmap line")
			continue
		}
		idid64, err1 := strconv.ParseUint(parts[0], 10, 32)
		offset, err2 := strconv.ParseUint(parts[2], 10, 64)
		length, err3 := strconv.ParseUint(parts[3], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			slog.Warn("skipping malformed docmap line")
			continue
		}
		m.insert(docEntry{idid: uint32(idid64), edid: parts[1], offset: offset, length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slog.Info("docmap loaded", slog.Int("documents", m.Len()), slog.String("path", path))
	return m, nil
}

// Append extends both the in-memory DocMap and the on-disk AUC.csv file
// with a new entry, assigning the next monotonic IDID.
func (m *DocMap) Append(path, edid string, offset, length uint64) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idid := m.nextIDID
	if idid == 0 {
		idid = 1
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("stellartrace: open docmap for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d|%s|%d|%d\n", idid, edid, offset, length); err != nil {
		return 0, fmt.Errorf("stellartrace: write docmap append: %w", err)
	}

	m.insert(docEntry{idid: idid, edid: edid, offset: offset, length: length})
	return idid, nil
}

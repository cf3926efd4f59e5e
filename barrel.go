package stellartrace

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// NBarrels is the fixed partition count: barrel(wid) = wid mod NBarrels
// (spec §4.6).
const NBarrels = 100

func barrelOf(wid uint32) int {
	return int(wid % NBarrels)
}

// BarrelStore owns the N_BARRELS text/idx file pairs that make up the
// disk-resident inverted index. Offset indices and existence bitmaps
// would be read-only after engine startup in a static deployment, but
// the dynamic indexer (spec §4.8) appends to offsets/Stats at runtime, so
// mu guards both against concurrent query-worker reads (spec §5); text/
// idx files themselves are opened fresh per access.
type BarrelStore struct {
	mu      sync.RWMutex
	dir     string
	offsets [NBarrels]*SkipList
	// Stats holds, per barrel, the bitmap of WIDs it contains — a cheap
	// existence check built on the already-wired roaring dependency, used
	// by hasWID to skip a disk fetch for a WID the barrel store has never
	// seen, before parallelFetch opens the barrel text file.
	Stats [NBarrels]*roaring.Bitmap
}

func textPath(dir string, b int) string { return filepath.Join(dir, fmt.Sprintf("barrel_%d.txt", b)) }
func idxPath(dir string, b int) string  { return filepath.Join(dir, fmt.Sprintf("barrel_%d.idx", b)) }

// BuildBarrels streams the inverted-index file line by line, partitions
// each posting by barrel(wid), and writes the text + idx files. All
// 2*NBarrels output handles are held open for the duration of the build
// (spec §4.6, §5).
func BuildBarrels(invertedPath, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	in, err := os.Open(invertedPath)
	if err != nil {
		return err
	}
	defer in.Close()

	textFiles := make([]*os.File, NBarrels)
	idxFiles := make([]*os.File, NBarrels)
	textWriters := make([]*bufio.Writer, NBarrels)
	idxWriters := make([]*bufio.Writer, NBarrels)
	offsets := make([]uint64, NBarrels)

	for b := 0; b < NBarrels; b++ {
		tf, err := os.Create(textPath(dir, b))
		if err != nil {
			return err
		}
		defer tf.Close()
		xf, err := os.Create(idxPath(dir, b))
		if err != nil {
			return err
		}
		defer xf.Close()
		textFiles[b], idxFiles[b] = tf, xf
		textWriters[b] = bufio.NewWriter(tf)
		idxWriters[b] = bufio.NewWriter(xf)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var processed int
	for scanner.Scan() {
		line := scanner.Text()
		posting, ok := parseInvertedLine(line)
		if !ok {
			continue
		}
		b := barrelOf(posting.wid)

		pos := offsets[b]
		if _, err := textWriters[b].WriteString(line + "\n"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(idxWriters[b], "%d %d\n", posting.wid, pos); err != nil {
			return err
		}
		offsets[b] += uint64(len(line)) + 1

		processed++
		if processed%100000 == 0 {
			slog.Info("barrel build progress", slog.Int("postings processed", processed))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for b := 0; b < NBarrels; b++ {
		if err := textWriters[b].Flush(); err != nil {
			return err
		}
		if err := idxWriters[b].Flush(); err != nil {
			return err
		}
	}

	slog.Info("barrels built", slog.Int("barrels", NBarrels), slog.Int("postings", processed), slog.String("dir", dir))
	return nil
}

// LoadBarrelStore loads every barrel's `.idx` file into an in-memory skip
// list and builds the per-barrel WID bitmap. Missing idx files yield an
// empty offset index for that barrel — not a fatal condition (spec §7).
func LoadBarrelStore(dir string) (*BarrelStore, error) {
	bs := &BarrelStore{dir: dir}

	for b := 0; b < NBarrels; b++ {
		sl := NewSkipList()
		bitmap := roaring.New()

		f, err := os.Open(idxPath(dir, b))
		if os.IsNotExist(err) {
			bs.offsets[b] = sl
			bs.Stats[b] = bitmap
			continue
		}
		if err != nil {
			return nil, err
		}

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) != 2 {
				continue
			}
			wid, err1 := strconv.ParseUint(fields[0], 10, 32)
			offset, err2 := strconv.ParseUint(fields[1], 10, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			sl.Insert(WordOffset{WID: float64(wid), ByteOffset: float64(offset)})
			bitmap.Add(uint32(wid))
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, err
		}

		bs.offsets[b] = sl
		bs.Stats[b] = bitmap
	}

	slog.Info("barrel store loaded", slog.String("dir", dir))
	return bs, nil
}

// hasWID reports whether barrel(wid) has ever recorded a posting for wid,
// per the Stats bitmap built at load time and maintained by AppendPosting.
// Lets callers skip a disk fetch entirely for a WID the store has never
// seen.
func (bs *BarrelStore) hasWID(wid uint32) bool {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	bm := bs.Stats[barrelOf(wid)]
	return bm != nil && bm.Contains(wid)
}

// FetchPostings implements spec §4.6's read path: seek to the indexed
// offset and verify the line starts with the expected WID; on mismatch or
// a missing offset entry, fall back to a linear scan and return the first
// matching line. Returns ErrPostingListMissing without touching disk if
// Stats says the barrel has never recorded wid.
func (bs *BarrelStore) FetchPostings(wid uint32) (*invertedPosting, error) {
	if !bs.hasWID(wid) {
		return nil, ErrPostingListMissing
	}

	b := barrelOf(wid)
	path := textPath(bs.dir, b)

	f, err := os.Open(path)
	if err != nil {
		return nil, ErrBarrelTextMissing
	}
	defer f.Close()

	bs.mu.RLock()
	offsetEntry, findErr := bs.offsets[b].Find(WordOffset{WID: float64(wid)})
	bs.mu.RUnlock()
	if findErr == nil {
		if posting, ok := readPostingAt(f, offsetEntry.GetByteOffset(), wid); ok {
			return posting, nil
		}
	}

	// Stale or missing offset entry: linear scan, first match wins.
	if posting, ok := linearScanForWID(path, wid); ok {
		return posting, nil
	}

	return nil, ErrPostingListMissing
}

func readPostingAt(f *os.File, offset uint64, wid uint32) (*invertedPosting, bool) {
	if _, err := f.Seek(int64(offset), 0); err != nil {
		return nil, false
	}
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return nil, false
	}
	posting, ok := parseInvertedLine(scanner.Text())
	if !ok || posting.wid != wid {
		return nil, false
	}
	return posting, true
}

func linearScanForWID(path string, wid uint32) (*invertedPosting, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		posting, ok := parseInvertedLine(scanner.Text())
		if !ok {
			continue
		}
		if posting.wid == wid {
			return posting, true
		}
	}
	return nil, false
}

// AppendPosting implements the dynamic indexer's per-(wid,doc) barrel
// write (spec §4.8 step 7): a new posting line with IDF recorded as 0,
// appended to barrel_b.txt, with its offset appended to barrel_b.idx.
func (bs *BarrelStore) AppendPosting(wid uint32, edid string, tf uint32, mask Field) error {
	b := barrelOf(wid)

	if err := os.MkdirAll(bs.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrIngestWriteFailed, err)
	}

	tf2, err := os.OpenFile(textPath(bs.dir, b), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestWriteFailed, err)
	}
	defer tf2.Close()

	info, err := tf2.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestWriteFailed, err)
	}
	pos := uint64(info.Size())

	line := fmt.Sprintf("%d 0 : %s(%d,%d)", wid, edid, tf, mask)
	if _, err := tf2.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrIngestWriteFailed, err)
	}

	xf, err := os.OpenFile(idxPath(bs.dir, b), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestWriteFailed, err)
	}
	defer xf.Close()
	if _, err := fmt.Fprintf(xf, "%d %d\n", wid, pos); err != nil {
		return fmt.Errorf("%w: %v", ErrIngestWriteFailed, err)
	}

	bs.mu.Lock()
	bs.offsets[b].Insert(WordOffset{WID: float64(wid), ByteOffset: float64(pos)})
	bs.Stats[b].Add(wid)
	bs.mu.Unlock()
	return nil
}

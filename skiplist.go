package stellartrace

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// MaxHeight bounds tower height for the offset skip list backing each
// barrel's in-memory index.
const MaxHeight = 32

var (
	EOF = math.Inf(1)
	BOF = math.Inf(-1)
)

var (
	ErrKeyNotFound    = errors.New("stellartrace: key not found")
	ErrNoElementFound = errors.New("stellartrace: no element found")
)

// WordOffset identifies a word's posting line inside a barrel text file:
// WID, then the byte offset pointing at the start of that line. Both
// fields are float64 so the BOF/EOF sentinels (+-Inf) compare cleanly
// against real values.
type WordOffset struct {
	WID        float64
	ByteOffset float64
}

var (
	BOFEntry = WordOffset{WID: BOF, ByteOffset: BOF}
	EOFEntry = WordOffset{WID: EOF, ByteOffset: EOF}
)

func (p *WordOffset) GetWID() uint32 {
	return uint32(p.WID)
}

func (p *WordOffset) GetByteOffset() uint64 {
	return uint64(p.ByteOffset)
}

func (p *WordOffset) IsBeginning() bool {
	return p.WID == BOF
}

func (p *WordOffset) IsEnd() bool {
	return p.WID == EOF
}

// IsBefore orders entries by WID (barrel offset indices are sparse per-WID
// maps, so offset never needs to break a tie within one barrel — a WID is
// unique per barrel text file at build time).
func (p *WordOffset) IsBefore(other WordOffset) bool {
	return p.WID < other.WID
}

func (p *WordOffset) IsAfter(other WordOffset) bool {
	return p.WID > other.WID
}

func (p *WordOffset) Equals(other WordOffset) bool {
	return p.WID == other.WID
}

type node struct {
	key   WordOffset
	tower [MaxHeight]*node
}

// SkipList is an ordered WID -> byte-offset structure. Each barrel keeps
// one, built from its `.idx` file, giving O(log n) point lookup without
// parsing the whole offset file into a sorted slice.
type SkipList struct {
	head   *node
	height int
}

func NewSkipList() *SkipList {
	return &SkipList{head: &node{}, height: 1}
}

func (sl *SkipList) Search(key WordOffset) (*node, [MaxHeight]*node) {
	var journey [MaxHeight]*node
	current := sl.head

	for level := sl.height - 1; level >= 0; level-- {
		current = sl.traverseLevel(current, key, level)
		journey[level] = current
	}

	next := current.tower[0]
	if next != nil && next.key.Equals(key) {
		return next, journey
	}
	return nil, journey
}

func (sl *SkipList) traverseLevel(start *node, target WordOffset, level int) *node {
	current := start
	next := current.tower[level]
	for next != nil && sl.shouldAdvance(next.key, target) {
		current = next
		next = current.tower[level]
	}
	return current
}

func (sl *SkipList) shouldAdvance(nodeKey, targetKey WordOffset) bool {
	if nodeKey.Equals(targetKey) {
		return false
	}
	return nodeKey.IsBefore(targetKey)
}

// Find returns the exact entry for a WID, or ErrKeyNotFound.
func (sl *SkipList) Find(key WordOffset) (WordOffset, error) {
	found, _ := sl.Search(key)
	if found == nil {
		return EOFEntry, ErrKeyNotFound
	}
	return found.key, nil
}

func (sl *SkipList) FindLessThan(key WordOffset) (WordOffset, error) {
	_, journey := sl.Search(key)
	predecessor := journey[0]
	if predecessor == nil || predecessor == sl.head {
		return BOFEntry, ErrNoElementFound
	}
	return predecessor.key, nil
}

func (sl *SkipList) FindGreaterThan(key WordOffset) (WordOffset, error) {
	found, journey := sl.Search(key)
	if found != nil {
		if found.tower[0] != nil {
			return found.tower[0].key, nil
		}
		return EOFEntry, ErrNoElementFound
	}
	predecessor := journey[0]
	if predecessor != nil && predecessor.tower[0] != nil {
		return predecessor.tower[0].key, nil
	}
	return EOFEntry, ErrNoElementFound
}

// Insert adds key, or overwrites the ByteOffset of an existing WID — this
// is how the dynamic indexer's "last write wins" offset semantics (§4.8
// consequences) is implemented at the skip-list layer.
func (sl *SkipList) Insert(key WordOffset) {
	found, journey := sl.Search(key)
	if found != nil {
		found.key = key
		return
	}

	height := sl.randomHeight()
	newNode := &node{key: key}
	sl.linkNode(newNode, journey, height)

	if height > sl.height {
		sl.height = height
	}
}

func (sl *SkipList) linkNode(n *node, journey [MaxHeight]*node, height int) {
	for level := 0; level < height; level++ {
		predecessor := journey[level]
		if predecessor == nil {
			predecessor = sl.head
		}
		n.tower[level] = predecessor.tower[level]
		predecessor.tower[level] = n
	}
}

func (sl *SkipList) Delete(key WordOffset) bool {
	found, journey := sl.Search(key)
	if found == nil {
		return false
	}

	for level := 0; level < sl.height; level++ {
		if journey[level].tower[level] != found {
			break
		}
		journey[level].tower[level] = found.tower[level]
	}

	sl.shrink()
	return true
}

func (sl *SkipList) Last() WordOffset {
	current := sl.head
	for next := current.tower[0]; next != nil; next = next.tower[0] {
		current = next
	}
	return current.key
}

func (sl *SkipList) shrink() {
	for level := sl.height - 1; level >= 0; level-- {
		if sl.head.tower[level] == nil {
			sl.height--
		} else {
			break
		}
	}
}

func (sl *SkipList) randomHeight() int {
	height := 1
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for rng.Float64() < 0.5 && height < MaxHeight {
		height++
	}
	return height
}

// Iterator walks a SkipList's entries in ascending WID order via level 0.
type Iterator struct {
	current *node
}

func (sl *SkipList) Iterator() *Iterator {
	return &Iterator{current: sl.head.tower[0]}
}

func (it *Iterator) HasNext() bool {
	return it.current != nil
}

func (it *Iterator) Next() WordOffset {
	if it.current == nil {
		return EOFEntry
	}
	key := it.current.key
	it.current = it.current.tower[0]
	return key
}

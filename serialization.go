package stellartrace

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Binary cache for a barrel's in-memory offset SkipList. LoadBarrelStore
// does not read or write this cache; it always parses the `.idx` text
// files. Format, adapted from the teacher's node-index-remapping scheme:
//
//	[entryCount: uint32]
//	[WID: uint32][ByteOffset: uint64] * entryCount    (ascending WID order)
//	[towerLen: uint32][target index: uint16]*         (head's own tower)
//	[towerLen: uint32][target index: uint16]*         (per node, same order)
//
// Tower targets are stored as 1-based sequential indices into the entry
// list (0 = nil) rather than pointers, since pointers are meaningless once
// decoded into a new process (teacher serialization.go's rationale,
// carried over unchanged). The head's own tower is encoded explicitly
// because it is the only node that can point directly into any level —
// without it a decoded list would only be searchable at level 0.
func EncodeBarrelOffsets(sl *SkipList) ([]byte, error) {
	buf := new(bytes.Buffer)

	nodes := collectNodesInOrder(sl)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(nodes))); err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if err := binary.Write(buf, binary.LittleEndian, n.key.GetWID()); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, n.key.GetByteOffset()); err != nil {
			return nil, err
		}
	}

	index := buildNodeIndexMap(nodes)
	if err := writeTower(buf, sl.head, index); err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if err := writeTower(buf, n, index); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeTower(buf *bytes.Buffer, n *node, index map[*node]int) error {
	targets := collectTowerIndices(n, index)
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(targets)*2)); err != nil {
		return err
	}
	for _, t := range targets {
		if err := binary.Write(buf, binary.LittleEndian, uint16(t)); err != nil {
			return err
		}
	}
	return nil
}

// DecodeBarrelOffsets reconstructs a SkipList from EncodeBarrelOffsets's
// output.
func DecodeBarrelOffsets(data []byte) (*SkipList, error) {
	r := bytes.NewReader(data)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("stellartrace: decode barrel offsets: %w", err)
	}

	nodes := make([]*node, count)
	for i := range nodes {
		var wid uint32
		var off uint64
		if err := binary.Read(r, binary.LittleEndian, &wid); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &off); err != nil {
			return nil, err
		}
		nodes[i] = &node{key: WordOffset{WID: float64(wid), ByteOffset: float64(off)}}
	}

	sl := NewSkipList()
	maxHeight := 1

	if err := readTower(r, sl.head, nodes, &maxHeight); err != nil {
		return nil, err
	}
	for i := range nodes {
		if err := readTower(r, nodes[i], nodes, &maxHeight); err != nil {
			return nil, err
		}
	}

	sl.height = maxHeight
	return sl, nil
}

func readTower(r *bytes.Reader, n *node, nodes []*node, maxHeight *int) error {
	var towerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &towerLen); err != nil {
		return err
	}
	numIndices := int(towerLen / 2)
	for level := 0; level < numIndices; level++ {
		var target uint16
		if err := binary.Read(r, binary.LittleEndian, &target); err != nil {
			return err
		}
		if target != 0 {
			n.tower[level] = nodes[target-1]
			if level+1 > *maxHeight {
				*maxHeight = level + 1
			}
		}
	}
	return nil
}

// collectNodesInOrder walks level 0 of sl, which is already sorted by WID
// (ascending — the skip list's own invariant).
func collectNodesInOrder(sl *SkipList) []*node {
	var nodes []*node
	for n := sl.head.tower[0]; n != nil; n = n.tower[0] {
		nodes = append(nodes, n)
	}
	return nodes
}

// buildNodeIndexMap assigns each node a stable 1-based sequential index so
// tower pointers can be re-expressed as indices instead of addresses.
func buildNodeIndexMap(nodes []*node) map[*node]int {
	m := make(map[*node]int, len(nodes))
	for i, n := range nodes {
		m[n] = i + 1
	}
	return m
}

// collectTowerIndices converts a node's tower pointers into stable
// indices, stopping at the first nil level.
func collectTowerIndices(n *node, index map[*node]int) []int {
	var indices []int
	for level := 0; level < MaxHeight; level++ {
		if n.tower[level] == nil {
			break
		}
		indices = append(indices, index[n.tower[level]])
	}
	return indices
}

package stellartrace

import "testing"

func wo(wid, offset uint64) WordOffset {
	return WordOffset{WID: float64(wid), ByteOffset: float64(offset)}
}

func TestSkipList_InsertAndFind(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(wo(5, 100))
	sl.Insert(wo(10, 200))
	sl.Insert(wo(15, 300))

	got, err := sl.Find(wo(10, 0))
	if err != nil {
		t.Fatalf("Find(10): %v", err)
	}
	if got.GetByteOffset() != 200 {
		t.Errorf("ByteOffset = %d, want 200", got.GetByteOffset())
	}
}

func TestSkipList_Find_NotFound(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(wo(5, 100))
	if _, err := sl.Find(wo(99, 0)); err != ErrKeyNotFound {
		t.Errorf("Find(99) err = %v, want ErrKeyNotFound", err)
	}
}

func TestSkipList_Insert_OverwritesOffsetForSameWID(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(wo(5, 100))
	sl.Insert(wo(5, 9999)) // dynamic indexer appended a second line for wid 5

	got, err := sl.Find(wo(5, 0))
	if err != nil {
		t.Fatalf("Find(5): %v", err)
	}
	if got.GetByteOffset() != 9999 {
		t.Errorf("ByteOffset = %d, want 9999 (last write wins)", got.GetByteOffset())
	}
}

func TestSkipList_FindLessThanAndGreaterThan(t *testing.T) {
	sl := NewSkipList()
	for _, wid := range []uint64{5, 10, 15, 20} {
		sl.Insert(wo(wid, wid*10))
	}

	lt, err := sl.FindLessThan(wo(17, 0))
	if err != nil || lt.GetWID() != 15 {
		t.Errorf("FindLessThan(17) = %v, %v, want wid 15", lt, err)
	}

	gt, err := sl.FindGreaterThan(wo(12, 0))
	if err != nil || gt.GetWID() != 15 {
		t.Errorf("FindGreaterThan(12) = %v, %v, want wid 15", gt, err)
	}
}

func TestSkipList_Iterator_AscendingOrder(t *testing.T) {
	sl := NewSkipList()
	for _, wid := range []uint64{30, 10, 20} {
		sl.Insert(wo(wid, 0))
	}

	var seen []uint32
	it := sl.Iterator()
	for it.HasNext() {
		seen = append(seen, it.Next().GetWID())
	}

	want := []uint32{10, 20, 30}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestSkipList_Delete(t *testing.T) {
	sl := NewSkipList()
	sl.Insert(wo(5, 100))
	sl.Insert(wo(10, 200))

	if !sl.Delete(wo(5, 0)) {
		t.Fatal("Delete(5) = false, want true")
	}
	if _, err := sl.Find(wo(5, 0)); err != ErrKeyNotFound {
		t.Errorf("Find(5) after delete err = %v, want ErrKeyNotFound", err)
	}
}

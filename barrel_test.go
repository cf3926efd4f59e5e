package stellartrace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBarrelOf_PartitioningScenario(t *testing.T) {
	// spec §8 scenario 5: WIDs 1..250 land in barrel wid%100.
	if barrelOf(100) != 0 || barrelOf(200) != 0 {
		t.Errorf("barrelOf(100/200) want barrel 0")
	}
	if barrelOf(1) != 1 || barrelOf(101) != 1 || barrelOf(201) != 1 {
		t.Errorf("barrelOf(1/101/201) want barrel 1")
	}
}

func TestBuildAndFetchPostings(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "inverted.txt")
	barrelDir := filepath.Join(dir, "barrels")

	lines := "1 0 : p1(2,1)\n101 0.693 : p2(1,0) p3(1,0)\n"
	if err := os.WriteFile(inv, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := BuildBarrels(inv, barrelDir); err != nil {
		t.Fatalf("BuildBarrels: %v", err)
	}

	bs, err := LoadBarrelStore(barrelDir)
	if err != nil {
		t.Fatalf("LoadBarrelStore: %v", err)
	}

	p, err := bs.FetchPostings(1)
	if err != nil {
		t.Fatalf("FetchPostings(1): %v", err)
	}
	if len(p.docs) != 1 || p.docs[0].edid != "p1" {
		t.Errorf("FetchPostings(1) = %+v, want one doc p1", p)
	}

	p2, err := bs.FetchPostings(101)
	if err != nil {
		t.Fatalf("FetchPostings(101): %v", err)
	}
	if len(p2.docs) != 2 {
		t.Errorf("FetchPostings(101) docs = %d, want 2", len(p2.docs))
	}

	// wid 1 and wid 101 both land in barrel 1.
	if barrelOf(1) != barrelOf(101) {
		t.Fatal("test setup assumption violated: wid 1 and 101 should share a barrel")
	}
}

func TestFetchPostings_MissingWID(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "inverted.txt")
	barrelDir := filepath.Join(dir, "barrels")
	os.WriteFile(inv, []byte("5 0 : p1(1,0)\n"), 0o644)

	if err := BuildBarrels(inv, barrelDir); err != nil {
		t.Fatal(err)
	}
	bs, err := LoadBarrelStore(barrelDir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := bs.FetchPostings(999); err != ErrPostingListMissing {
		t.Errorf("FetchPostings(999) err = %v, want ErrPostingListMissing", err)
	}
}

func TestAppendPosting_VisibleToSubsequentFetch(t *testing.T) {
	dir := t.TempDir()
	inv := filepath.Join(dir, "inverted.txt")
	barrelDir := filepath.Join(dir, "barrels")
	os.WriteFile(inv, []byte(""), 0o644)

	if err := BuildBarrels(inv, barrelDir); err != nil {
		t.Fatal(err)
	}
	bs, err := LoadBarrelStore(barrelDir)
	if err != nil {
		t.Fatal(err)
	}

	if err := bs.AppendPosting(7, "new1", 1, FieldTitle); err != nil {
		t.Fatalf("AppendPosting: %v", err)
	}

	p, err := bs.FetchPostings(7)
	if err != nil {
		t.Fatalf("FetchPostings(7) after append: %v", err)
	}
	if len(p.docs) != 1 || p.docs[0].edid != "new1" || p.idf != 0 {
		t.Errorf("FetchPostings(7) = %+v, want one doc new1 with idf 0", p)
	}
}

package stellartrace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLexicon_GetOrInsert_AssignsMonotonicWIDs(t *testing.T) {
	lex := NewLexicon()

	w1 := lex.GetOrInsert("quantum")
	w2 := lex.GetOrInsert("entanglement")
	w3 := lex.GetOrInsert("quantum") // repeat

	if w1 != 1 || w2 != 2 {
		t.Errorf("got wids %d, %d, want 1, 2", w1, w2)
	}
	if w3 != w1 {
		t.Errorf("repeat insert got new wid %d, want %d", w3, w1)
	}
}

func TestLexicon_FlushAndReload_StableWIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.txt")

	lex := NewLexicon()
	wid := lex.GetOrInsert("photon")
	if err := lex.FlushAppends(path); err != nil {
		t.Fatalf("FlushAppends: %v", err)
	}

	reloaded, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	got, ok := reloaded.Lookup("photon")
	if !ok || got != wid {
		t.Errorf("Lookup(photon) = %d, %v, want %d, true", got, ok, wid)
	}
	if reloaded.nextWordID != lex.nextWordID {
		t.Errorf("nextWordID = %d, want %d", reloaded.nextWordID, lex.nextWordID)
	}
}

func TestLoadLexicon_MissingFile_ReturnsEmpty(t *testing.T) {
	lex, err := LoadLexicon(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	if err != nil {
		t.Fatalf("LoadLexicon missing file returned error: %v", err)
	}
	if lex.Len() != 0 {
		t.Errorf("Len() = %d, want 0", lex.Len())
	}
}

func TestMergeLexiconFiles_DropsDuplicatesFreshIDs(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	out := filepath.Join(dir, "merged.txt")

	if err := os.WriteFile(a, []byte("quantum 1\nentanglement 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("entanglement 1\nphoton 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	merged, err := MergeLexiconFiles([]string{a, b}, out)
	if err != nil {
		t.Fatalf("MergeLexiconFiles: %v", err)
	}
	if merged.Len() != 3 {
		t.Errorf("merged Len() = %d, want 3", merged.Len())
	}
	if _, ok := merged.Lookup("entanglement"); !ok {
		t.Error("merged lexicon missing deduped word entanglement")
	}
}

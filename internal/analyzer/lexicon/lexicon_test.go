package lexicon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestParseDictionary(t *testing.T) {
	in := "中国 100\n\n人民\nbad abc\nzero 0\n  分词器   7  extra\r\n"
	entries, skipped, err := ParseDictionary(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseDictionary: %v", err)
	}
	want := []Entry{{"中国", 100}, {"人民", 1}, {"分词器", 7}}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestParseWordListSkipsOversizedLine(t *testing.T) {
	in := "Hello\n# comment\n\n  World  \n" + strings.Repeat("x", maxLineLen+10) + "\nlast"
	words, skipped, err := ParseWordList(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseWordList: %v", err)
	}
	if strings.Join(words, ",") != "hello,world,last" {
		t.Errorf("words = %v", words)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestRegistryStartsEmpty(t *testing.T) {
	r := NewRegistry()
	snap := r.Current()
	if snap == nil || snap.Generation != 0 || snap.Words() != 0 {
		t.Fatalf("initial snapshot = %+v", snap)
	}
	if _, _, ok := snap.Trie.LongestMatch([]byte("中国"), 0); ok {
		t.Error("empty snapshot should not match anything")
	}
}

func TestRegistryLoadMergesSources(t *testing.T) {
	dir := t.TempDir()
	src := Sources{
		Dictionaries: []string{
			writeFile(t, dir, "dict.txt", "中国 10\n人民 5\n"),
			writeFile(t, dir, "it.txt", "中国 20\n编程\n"),
			filepath.Join(dir, "missing.txt"),
		},
		Stop:      []string{writeFile(t, dir, "stop_en.txt", "The\na\n"), writeFile(t, dir, "stop_cn.txt", "的\n")},
		Sensitive: []string{writeFile(t, dir, "sensitive.txt", "Secret\n")},
	}

	r := NewRegistry()
	snap, err := r.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Generation != 1 || r.Current() != snap {
		t.Fatalf("generation = %d, current matches = %v", snap.Generation, r.Current() == snap)
	}
	if snap.Words() != 3 {
		t.Errorf("words = %d, want 3", snap.Words())
	}
	if got := snap.Trie.Freq("中国"); got != 20 {
		t.Errorf("later file should win, freq = %d", got)
	}
	if strings.Join(snap.Stop, ",") != "the,a,的" {
		t.Errorf("stop = %v", snap.Stop)
	}
	if strings.Join(snap.Sensitive, ",") != "secret" || len(snap.Redundant) != 0 {
		t.Errorf("sensitive = %v redundant = %v", snap.Sensitive, snap.Redundant)
	}
	if snap.Stats.Missing != 1 {
		t.Errorf("missing = %d, want 1", snap.Stats.Missing)
	}
}

func TestRefreshKeepsOldSnapshotIntact(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dict.txt", "旧词 1\n")
	r := NewRegistry()
	old, err := r.Load(context.Background(), Sources{Dictionaries: []string{path}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	writeFile(t, dir, "dict.txt", "新词 1\n")
	fresh, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if fresh.Generation != old.Generation+1 {
		t.Errorf("generation %d -> %d", old.Generation, fresh.Generation)
	}
	if old.Trie.Freq("旧词") != 1 || old.Trie.Freq("新词") != 0 {
		t.Error("old snapshot changed after refresh")
	}
	if r.Current().Trie.Freq("新词") != 1 {
		t.Error("current snapshot does not have the new word")
	}
}

func TestConcurrentReadersDuringRefresh(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dict.txt", "中国 1\n中国人 2\n")
	r := NewRegistry()
	if _, err := r.Load(context.Background(), Sources{Dictionaries: []string{path}}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf := []byte("中国人民")
	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := r.Current()
				n, _, ok := snap.Trie.LongestMatch(buf, 0)
				if !ok || n != len("中国人") {
					errs <- "reader saw a partial snapshot"
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Refresh(context.Background()); err != nil {
				errs <- err.Error()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
	if g := r.Current().Generation; g < 2 {
		t.Errorf("generation = %d, want at least 2", g)
	}
}

func TestBuildHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, Sources{Dictionaries: []string{"a", "b"}}); err == nil {
		t.Fatal("expected an error from a cancelled build")
	}
}

func TestChangedDetectsModification(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dict.txt", "词 1\n")
	snap, err := Build(context.Background(), Sources{Dictionaries: []string{path}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if Changed(snap) {
		t.Fatal("fresh snapshot reported as changed")
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if !Changed(snap) {
		t.Error("modification not detected")
	}
}

func TestReloadLoopRefreshesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dict.txt", "一 1\n")
	r := NewRegistry()
	if _, err := r.Load(context.Background(), Sources{Dictionaries: []string{path}}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan *Snapshot, 1)
	r.StartReloadLoop(ctx, 10*time.Millisecond, func(s *Snapshot, err error) {
		if err == nil {
			select {
			case reloaded <- s:
			default:
			}
		}
	})

	writeFile(t, dir, "dict.txt", "一 1\n二 1\n")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	select {
	case s := <-reloaded:
		if s.Words() != 2 {
			t.Errorf("reloaded words = %d, want 2", s.Words())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload loop did not refresh")
	}
}

func TestBuildSegmentsClassificationWords(t *testing.T) {
	dir := t.TempDir()
	src := Sources{
		Dictionaries: []string{writeFile(t, dir, "dict.txt", "诈骗 9\n")},
		Stop:         []string{writeFile(t, dir, "stop.txt", "的\n然后\n")},
		Sensitive:    []string{writeFile(t, dir, "sensitive.txt", "赌博\n诈骗\nsecret\n")},
	}
	snap, err := Build(context.Background(), src)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tests := []struct {
		word string
		freq int
	}{
		{"赌博", 1},
		{"然后", 1},
		{"诈骗", 9},
		{"的", 0},
		{"secret", 0},
	}
	for _, tt := range tests {
		if got := snap.Trie.Freq(tt.word); got != tt.freq {
			t.Errorf("freq(%q) = %d, want %d", tt.word, got, tt.freq)
		}
	}
	if snap.Stats.Words != 3 {
		t.Errorf("words = %d, want 3", snap.Stats.Words)
	}
}

func TestFingerprintTracksContent(t *testing.T) {
	dir := t.TempDir()
	dict := writeFile(t, dir, "dict.txt", "中国 10\n")
	build := func(src Sources) string {
		t.Helper()
		snap, err := Build(context.Background(), src)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return snap.Fingerprint
	}

	base := build(Sources{Dictionaries: []string{dict}})
	if base == "" {
		t.Fatal("empty fingerprint")
	}
	if again := build(Sources{Dictionaries: []string{dict}}); again != base {
		t.Error("fingerprint is not deterministic")
	}
	reordered := build(Sources{
		Dictionaries: []string{dict},
		Sensitive:    []string{writeFile(t, dir, "s1.txt", "alpha\nbeta\n")},
	})
	if reordered == base {
		t.Error("adding a sensitive list did not change the fingerprint")
	}
	if got := build(Sources{
		Dictionaries: []string{dict},
		Sensitive:    []string{writeFile(t, dir, "s2.txt", "beta\nalpha\n")},
	}); got != reordered {
		t.Error("list order changed the fingerprint")
	}
	if got := build(Sources{
		Dictionaries: []string{dict},
		Stop:         []string{writeFile(t, dir, "s3.txt", "alpha\nbeta\n")},
	}); got == reordered {
		t.Error("moving words between lists did not change the fingerprint")
	}
	if got := build(Sources{Dictionaries: []string{writeFile(t, dir, "dict2.txt", "中国 11\n")}}); got == base {
		t.Error("a frequency change did not change the fingerprint")
	}

	r1, r2 := NewRegistry(), NewRegistry()
	if _, err := r1.Load(context.Background(), Sources{Dictionaries: []string{dict}}); err != nil {
		t.Fatal(err)
	}
	if r1.Current().Fingerprint == r2.Current().Fingerprint {
		t.Error("loaded and empty registries share a fingerprint")
	}
}

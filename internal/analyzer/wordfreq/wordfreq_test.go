package wordfreq

import (
	"strings"
	"testing"
)

func TestInsertAndLookup(t *testing.T) {
	d := New()
	for _, w := range []string{"go", "rust", "go", "go", "zig"} {
		d.Insert(w)
	}
	if got := d.Lookup("go"); got != 3 {
		t.Errorf("Lookup(go) = %d, want 3", got)
	}
	if got := d.Lookup("python"); got != 0 {
		t.Errorf("Lookup(python) = %d, want 0", got)
	}
	if d.Unique() != 3 {
		t.Errorf("Unique = %d, want 3", d.Unique())
	}
	if d.Total() != 5 {
		t.Errorf("Total = %d, want 5", d.Total())
	}
	if !d.Contains("zig") || d.Contains("c") {
		t.Error("Contains returned the wrong answer")
	}
}

func TestInsertTruncatesLongWords(t *testing.T) {
	d := New()
	long := strings.Repeat("a", 100)
	d.Insert(long)
	if got := d.Lookup(strings.Repeat("a", MaxWordLen)); got != 1 {
		t.Fatalf("truncated key not found, got %d", got)
	}
	if got := d.Lookup(long); got != 1 {
		t.Fatalf("Lookup of the long word should hit the truncated key, got %d", got)
	}

	han := strings.Repeat("中", 30) // 90 bytes
	d.Insert(han)
	for w := range d.All() {
		if len(w) > MaxWordLen {
			t.Errorf("stored key of %d bytes", len(w))
		}
	}
	if got := d.Lookup(strings.Repeat("中", 21)); got != 1 {
		t.Errorf("expected 21 complete characters to be kept, got count %d", got)
	}
}

func TestTopKOrdering(t *testing.T) {
	d := New()
	for _, w := range []string{"b", "a", "c", "a", "b", "d", "a"} {
		d.Insert(w)
	}
	got := d.TopK(3)
	want := []WordFreq{{"a", 3}, {"b", 2}, {"c", 1}}
	if len(got) != len(want) {
		t.Fatalf("TopK len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("TopK[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestTopKTiesKeepFirstSeen(t *testing.T) {
	d := New()
	for _, w := range []string{"x", "y", "z", "w"} {
		d.Insert(w)
	}
	got := d.TopK(2)
	if len(got) != 2 || got[0].Word != "x" || got[1].Word != "y" {
		t.Errorf("TopK(2) = %+v, want x then y", got)
	}
}

func TestTopKBounds(t *testing.T) {
	d := New()
	if d.TopK(5) != nil {
		t.Error("TopK on an empty dict should be nil")
	}
	d.Insert("only")
	if got := d.TopK(10); len(got) != 1 {
		t.Errorf("TopK(10) len = %d, want 1", len(got))
	}
	if d.TopK(0) != nil || d.TopK(-1) != nil {
		t.Error("TopK with k <= 0 should be nil")
	}
}

func TestTopKMatchesFullSort(t *testing.T) {
	d := New()
	words := strings.Fields("the quick brown fox jumps over the lazy dog the fox and the dog")
	for _, w := range words {
		d.Insert(w)
	}
	top := d.TopK(d.Unique())
	if len(top) != d.Unique() {
		t.Fatalf("TopK(all) len = %d, want %d", len(top), d.Unique())
	}
	for i := 1; i < len(top); i++ {
		if top[i].Count > top[i-1].Count {
			t.Errorf("TopK not descending at %d: %+v", i, top)
		}
	}
	if top[0].Word != "the" || top[0].Count != 4 {
		t.Errorf("top[0] = %+v, want the:4", top[0])
	}
}

func TestAllVisitsEachEntryOnce(t *testing.T) {
	d := New()
	for _, w := range []string{"a", "b", "a", "c"} {
		d.Insert(w)
	}
	seen := map[string]int{}
	sum := 0
	for w, c := range d.All() {
		seen[w]++
		sum += c
	}
	if len(seen) != 3 || sum != d.Total() {
		t.Errorf("All visited %v with sum %d", seen, sum)
	}
	for w, n := range seen {
		if n != 1 {
			t.Errorf("%q visited %d times", w, n)
		}
	}

	n := 0
	for range d.All() {
		n++
		break
	}
	if n != 1 {
		t.Error("All did not stop on early break")
	}
}

func BenchmarkInsert(b *testing.B) {
	words := strings.Fields("lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		d := NewSize(len(words))
		for _, w := range words {
			d.Insert(w)
		}
	}
}

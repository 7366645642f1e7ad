// Package lexicon owns the process-wide segmentation dictionary and the
// classification word lists. A Registry publishes immutable snapshots;
// readers take the current one with a single atomic load and keep it for as
// long as they need, even while a refresh swaps in a newer generation.
package lexicon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/trie"
)

// Sources lists the files a snapshot is built from.
type Sources struct {
	Dictionaries []string `json:"dictionaries"`
	Stop         []string `json:"stop"`
	Sensitive    []string `json:"sensitive"`
	Redundant    []string `json:"redundant"`
}

func (s Sources) all() []string {
	out := make([]string, 0, len(s.Dictionaries)+len(s.Stop)+len(s.Sensitive)+len(s.Redundant))
	out = append(out, s.Dictionaries...)
	out = append(out, s.Stop...)
	out = append(out, s.Sensitive...)
	return append(out, s.Redundant...)
}

// FileStats reports what one source file contributed.
type FileStats struct {
	Path    string    `json:"path"`
	Words   int       `json:"words"`
	Skipped int       `json:"skipped"`
	Missing bool      `json:"missing,omitempty"`
	ModTime time.Time `json:"mod_time"`
}

// LoadStats summarizes a build.
type LoadStats struct {
	Words   int         `json:"words"`
	Skipped int         `json:"skipped"`
	Missing int         `json:"missing"`
	Files   []FileStats `json:"files"`
}

// Snapshot is one immutable generation of dictionary data. Nothing in it
// is modified after publication.
type Snapshot struct {
	Trie       *trie.Trie
	Stop       []string
	Sensitive  []string
	Redundant  []string
	Generation uint64
	Sources    Sources
	LoadedAt   time.Time
	Stats      LoadStats

	// Fingerprint is a hash of the dictionary entries and word lists. Two
	// snapshots with equal fingerprints classify every document alike,
	// whichever process or generation built them.
	Fingerprint string
}

// Words is the number of segmentation words in the snapshot.
func (s *Snapshot) Words() int {
	return s.Trie.Len()
}

// Registry holds the current Snapshot.
type Registry struct {
	current atomic.Pointer[Snapshot]
	group   singleflight.Group

	mu      sync.Mutex // serializes publication and guards sources
	sources Sources

	logger *slog.Logger
}

func NewRegistry() *Registry {
	r := &Registry{
		logger: slog.Default().With("component", "lexicon"),
	}
	empty := &Snapshot{Trie: trie.New()}
	empty.Fingerprint = fingerprint(empty)
	r.current.Store(empty)
	return r
}

// Current returns the published snapshot. It never returns nil.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Load builds a snapshot from src and publishes it, replacing the sources
// used by later Refresh calls. Missing or unreadable files are logged and
// contribute nothing.
func (r *Registry) Load(ctx context.Context, src Sources) (*Snapshot, error) {
	r.mu.Lock()
	r.sources = src
	r.mu.Unlock()
	return r.rebuild(ctx, src)
}

// Refresh rebuilds from the sources of the last Load. Concurrent callers
// share one rebuild.
func (r *Registry) Refresh(ctx context.Context) (*Snapshot, error) {
	r.mu.Lock()
	src := r.sources
	r.mu.Unlock()
	v, err, shared := r.group.Do("refresh", func() (any, error) {
		return r.rebuild(ctx, src)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("refresh coalesced with an in-flight rebuild")
	}
	return v.(*Snapshot), nil
}

// Sources returns the sources of the last Load.
func (r *Registry) Sources() Sources {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources
}

func (r *Registry) rebuild(ctx context.Context, src Sources) (*Snapshot, error) {
	start := time.Now()
	snap, err := Build(ctx, src)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	snap.Generation = r.current.Load().Generation + 1
	r.current.Store(snap)
	r.mu.Unlock()

	r.logger.Info("dictionary snapshot published",
		"generation", snap.Generation,
		"words", snap.Words(),
		"nodes", snap.Trie.Nodes(),
		"stop", len(snap.Stop),
		"sensitive", len(snap.Sensitive),
		"redundant", len(snap.Redundant),
		"skipped_lines", snap.Stats.Skipped,
		"missing_files", snap.Stats.Missing,
		"duration", time.Since(start),
	)
	return snap, nil
}

type parsed struct {
	entries []Entry
	words   []string
	stats   FileStats
}

// Build reads every source file in parallel and assembles an unpublished
// snapshot. Dictionary files are merged in order, so a word repeated in a
// later file takes the later frequency. Multi-character words from the stop,
// sensitive and redundant lists that start with a non-ASCII character are
// added to the trie at frequency 1 unless a dictionary already has them, so
// they segment as single tokens.
func Build(ctx context.Context, src Sources) (*Snapshot, error) {
	paths := src.all()
	results := make([]parsed, len(paths))
	nDict := len(src.Dictionaries)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := parseFile(path, i < nDict)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building dictionary snapshot: %w", err)
	}

	snap := &Snapshot{
		Trie:     trie.New(),
		Sources:  src,
		LoadedAt: time.Now().UTC(),
	}
	var lists [3][]string
	offsets := [4]int{
		nDict,
		nDict + len(src.Stop),
		nDict + len(src.Stop) + len(src.Sensitive),
		len(paths),
	}
	for i, res := range results {
		snap.Stats.Files = append(snap.Stats.Files, res.stats)
		snap.Stats.Skipped += res.stats.Skipped
		if res.stats.Missing {
			snap.Stats.Missing++
		}
		if i < nDict {
			for _, e := range res.entries {
				snap.Trie.Insert(e.Word, e.Freq)
			}
			continue
		}
		for k := 0; k < 3; k++ {
			if i < offsets[k+1] {
				lists[k] = append(lists[k], res.words...)
				break
			}
		}
	}
	snap.Stop, snap.Sensitive, snap.Redundant = lists[0], lists[1], lists[2]
	for _, list := range lists {
		for _, w := range list {
			if segmentable(w) && snap.Trie.Freq(w) == 0 {
				snap.Trie.Insert(w, 1)
			}
		}
	}
	snap.Stats.Words = snap.Trie.Len()
	snap.Fingerprint = fingerprint(snap)
	return snap, nil
}

// segmentable reports whether w needs a trie entry to be seen as one token.
// The scanner consults the trie only at non-ASCII bytes, and single
// characters are covered by the fallback path.
func segmentable(w string) bool {
	return w != "" && w[0] >= utf8.RuneSelf && utf8.RuneCountInString(w) >= 2
}

func fingerprint(snap *Snapshot) string {
	h := sha256.New()
	var line []byte
	snap.Trie.Walk(func(word string, freq int) bool {
		line = append(line[:0], word...)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(freq), 10)
		line = append(line, '\n')
		h.Write(line)
		return true
	})
	for i, list := range [][]string{snap.Stop, snap.Sensitive, snap.Redundant} {
		fmt.Fprintf(h, "\x00list=%d\n", i)
		sorted := slices.Clone(list)
		slices.Sort(sorted)
		for _, w := range slices.Compact(sorted) {
			h.Write([]byte(w))
			h.Write([]byte{'\n'})
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func parseFile(path string, dictionary bool) (parsed, error) {
	res := parsed{stats: FileStats{Path: path}}
	logger := slog.Default().With("component", "lexicon", "path", path)

	f, err := os.Open(path)
	if err != nil {
		res.stats.Missing = true
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("dictionary file not found, skipping")
		} else {
			logger.Error("dictionary file unreadable, skipping", "error", err)
		}
		return res, nil
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil {
		res.stats.ModTime = info.ModTime()
	}

	if dictionary {
		res.entries, res.stats.Skipped, err = ParseDictionary(f)
		res.stats.Words = len(res.entries)
	} else {
		res.words, res.stats.Skipped, err = ParseWordList(f)
		res.stats.Words = len(res.words)
	}
	if err != nil {
		// a read error part way through keeps whatever was parsed
		logger.Error("dictionary file read failed", "error", err, "parsed", res.stats.Words)
	}
	return res, nil
}

// Changed reports whether any source file of snap has a different
// modification time or presence than when snap was built.
func Changed(snap *Snapshot) bool {
	for _, fst := range snap.Stats.Files {
		info, err := os.Stat(fst.Path)
		if err != nil {
			if !fst.Missing {
				return true
			}
			continue
		}
		if fst.Missing || !info.ModTime().Equal(fst.ModTime) {
			return true
		}
	}
	return false
}

// StartReloadLoop polls the source files every interval and refreshes when
// one of them changed. It returns immediately; the loop stops with ctx.
func (r *Registry) StartReloadLoop(ctx context.Context, interval time.Duration, onReload func(*Snapshot, error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("dictionary reload loop stopping")
				return
			case <-ticker.C:
				if !Changed(r.Current()) {
					continue
				}
				r.logger.Info("dictionary sources changed, refreshing")
				snap, err := r.Refresh(ctx)
				if err != nil {
					r.logger.Error("periodic dictionary refresh failed", "error", err)
				}
				if onReload != nil {
					onReload(snap, err)
				}
			}
		}
	}()
}

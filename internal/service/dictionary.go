package service

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/pkg/config"
)

// DictionaryInfo describes the published dictionary snapshot.
type DictionaryInfo struct {
	Generation  uint64              `json:"generation"`
	Fingerprint string              `json:"fingerprint"`
	Words       int                 `json:"words"`
	Nodes       int                 `json:"trie_nodes"`
	Stop        int                 `json:"stop_words"`
	Sensitive   int                 `json:"sensitive_words"`
	Redundant   int                 `json:"redundant_words"`
	LoadedAt    time.Time           `json:"loaded_at"`
	Sources     lexicon.Sources     `json:"sources"`
	Files       []lexicon.FileStats `json:"files"`
}

// SourcesFromConfig maps the analyzer file settings to registry sources.
func SourcesFromConfig(cfg config.AnalyzerConfig) lexicon.Sources {
	return lexicon.Sources{
		Dictionaries: cfg.Dictionaries,
		Stop:         cfg.StopWords,
		Sensitive:    cfg.SensitiveWords,
		Redundant:    cfg.RedundantWords,
	}
}

// LoadDictionaries builds the first snapshot from the configured files.
func (a *Analyzer) LoadDictionaries(ctx context.Context) (*lexicon.Snapshot, error) {
	snap, err := a.registry.Load(ctx, SourcesFromConfig(a.cfg))
	a.observeReload(snap, err)
	return snap, err
}

// RefreshDictionaries rebuilds the snapshot from the same files. Reports
// computed against older generations stay valid under their own ids.
func (a *Analyzer) RefreshDictionaries(ctx context.Context) (*lexicon.Snapshot, error) {
	snap, err := a.registry.Refresh(ctx)
	a.observeReload(snap, err)
	return snap, err
}

// StartReloadLoop polls the dictionary files and refreshes when they
// change. It returns immediately.
func (a *Analyzer) StartReloadLoop(ctx context.Context) {
	a.registry.StartReloadLoop(ctx, a.cfg.ReloadInterval, a.observeReload)
	a.logger.Info("dictionary reload loop started", "interval", a.cfg.ReloadInterval)
}

func (a *Analyzer) observeReload(snap *lexicon.Snapshot, err error) {
	if a.metrics == nil {
		return
	}
	if err != nil {
		a.metrics.DictionaryReloads.WithLabelValues("error").Inc()
		return
	}
	a.metrics.DictionaryReloads.WithLabelValues("ok").Inc()
	a.metrics.DictionaryWords.Set(float64(snap.Words()))
	a.metrics.DictionaryGeneration.Set(float64(snap.Generation))
}

// Dictionary describes the current snapshot.
func (a *Analyzer) Dictionary() DictionaryInfo {
	snap := a.registry.Current()
	files := snap.Stats.Files
	if files == nil {
		files = []lexicon.FileStats{}
	}
	return DictionaryInfo{
		Generation:  snap.Generation,
		Fingerprint: snap.Fingerprint,
		Words:       snap.Words(),
		Nodes:       snap.Trie.Nodes(),
		Stop:        len(snap.Stop),
		Sensitive:   len(snap.Sensitive),
		Redundant:   len(snap.Redundant),
		LoadedAt:    snap.LoadedAt,
		Sources:     snap.Sources,
		Files:       files,
	}
}

// Ready reports whether a dictionary snapshot has been published.
func (a *Analyzer) Ready() bool {
	return a.registry.Current().Generation > 0
}

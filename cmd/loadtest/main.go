package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Top         int
	// Unique appends a per-request marker so every document misses the
	// report cache.
	Unique    bool
	Documents []Document
}

type Document struct {
	Name    string
	Format  string
	Content []byte
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64
	bytesSent     atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, cached bool, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}

	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
		if cached {
			s.cacheHits.Add(1)
		}
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

var builtinDocuments = []Document{
	{Name: "intro.md", Format: "markdown", Content: []byte("# 系统概述\n\n本系统提供中文分析与 text analysis 服务。\n\n## 功能\n\n分词 统计 敏感词 检测 secret token\n")},
	{Name: "notes.txt", Format: "text", Content: []byte("The quick brown fox jumps over the lazy dog. 中文分词测试，包含标点。\n")},
	{Name: "page.html", Format: "html", Content: []byte("<html><body><h1>报告</h1><p>distributed analysis of 文本 content</p><h2>附录</h2><p>more words here</p></body></html>")},
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the analysis service")
	concurrency := flag.IntP("concurrency", "c", 10, "number of concurrent workers")
	duration := flag.DurationP("duration", "d", 30*time.Second, "test duration")
	top := flag.Int("top", 10, "top-N requested per analysis")
	unique := flag.Bool("unique", false, "make every document unique to bypass the report cache")
	docsDir := flag.String("docs", "", "directory of documents to send instead of the built-in set")
	flag.Parse()

	docs := builtinDocuments
	if *docsDir != "" {
		loaded, err := loadDocuments(*docsDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading documents: %v\n", err)
			os.Exit(1)
		}
		docs = loaded
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Top:         *top,
		Unique:      *unique,
		Documents:   docs,
	}

	title := color.New(color.FgCyan, color.Bold)
	title.Println("=== Analysis Service Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Documents:   %d (unique=%t)\n", len(cfg.Documents), cfg.Unique)
	fmt.Println()

	stats := runLoadTest(cfg)
	if !printReport(stats, cfg.Duration) {
		os.Exit(1)
	}
}

// loadDocuments reads every regular file directly inside dir.
func loadDocuments(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var docs []Document
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{Name: e.Name(), Content: content})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents in %s", dir)
	}
	return docs, nil
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			docIdx := workerID
			seq := 0

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				doc := cfg.Documents[docIdx%len(cfg.Documents)]
				docIdx++
				body := doc.Content
				if cfg.Unique {
					seq++
					body = append(bytes.Clone(body), fmt.Sprintf("\nrun %d-%d\n", workerID, seq)...)
				}

				req, err := newAnalyzeRequest(ctx, cfg, doc, body)
				if err != nil {
					stats.RecordRequest(0, 0, false, err)
					continue
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)

				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.RecordRequest(elapsed, 0, false, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				stats.bytesSent.Add(int64(len(body)))
				stats.RecordRequest(elapsed, resp.StatusCode, resp.Header.Get("X-Cache") == "HIT", nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func newAnalyzeRequest(ctx context.Context, cfg Config, doc Document, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/api/v1/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	q := req.URL.Query()
	q.Set("top", strconv.Itoa(cfg.Top))
	q.Set("source", doc.Name)
	if doc.Format != "" {
		q.Set("format", doc.Format)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}

// printReport writes the summary and reports whether any request completed.
func printReport(stats *Stats, duration time.Duration) bool {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()
	heading := color.New(color.FgCyan, color.Bold)

	heading.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)
	fmt.Printf("Cache Hits:      %d\n", stats.cacheHits.Load())

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		rate := color.GreenString("%.2f%%", errorRate)
		if errorRate > 1 {
			rate = color.RedString("%.2f%%", errorRate)
		}
		fmt.Printf("Error Rate:      %s\n", rate)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
		fmt.Printf("KiB/sec sent:    %.2f\n", float64(stats.bytesSent.Load())/1024/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool {
			return latencies[i] < latencies[j]
		})

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		heading.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	fmt.Println()
	heading.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		color.Yellow("WARNING: No requests completed. Is the service running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

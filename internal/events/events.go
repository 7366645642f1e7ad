// Package events defines the messages exchanged over Kafka and a batching
// collector that publishes analysis completions.
package events

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Text-Analysis-Platform/internal/analyzer"
)

type EventType string

const (
	EventAnalysisRequested EventType = "analysis_requested"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventAnalysisFailed    EventType = "analysis_failed"
	EventDictionaryRefresh EventType = "dictionary_refresh"
)

// TypeHeader carries the EventType of every published message.
const TypeHeader = "event-type"

// AnalysisRequest asks a worker to analyze a document.
type AnalysisRequest struct {
	RequestID   string    `json:"request_id"`
	Source      string    `json:"source"`
	Format      string    `json:"format,omitempty"`
	TopN        int       `json:"top_n,omitempty"`
	Content     []byte    `json:"content"`
	RequestedAt time.Time `json:"requested_at"`
}

// AnalysisCompleted reports the outcome of one analysis.
type AnalysisCompleted struct {
	Type       EventType       `json:"type"`
	RequestID  string          `json:"request_id,omitempty"`
	ReportID   string          `json:"report_id,omitempty"`
	Source     string          `json:"source,omitempty"`
	Generation uint64          `json:"dictionary_generation"`
	Stats      *analyzer.Stats `json:"stats,omitempty"`
	Cached     bool            `json:"cached"`
	Error      string          `json:"error,omitempty"`
	LatencyMs  int64           `json:"latency_ms"`
	Timestamp  time.Time       `json:"timestamp"`
}

// DictionaryRefresh tells every worker to rebuild its dictionary snapshot.
type DictionaryRefresh struct {
	Type        EventType `json:"type"`
	RequestedBy string    `json:"requested_by,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

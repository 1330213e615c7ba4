package analytics

import "time"

type EventType string

const (
	EventSearch          EventType = "search"
	EventMatch           EventType = "match"
	EventDocumentAdded   EventType = "document_added"
	EventDocumentRemoved EventType = "document_removed"
)

// SearchEvent describes one find or match request served by the search
// server.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Policy    string    `json:"policy"`
	Status    string    `json:"status,omitempty"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// IndexEvent describes a document added to or removed from the index.
type IndexEvent struct {
	Type       EventType `json:"type"`
	DocumentID int       `json:"document_id"`
	WordCount  int       `json:"word_count,omitempty"`
	Policy     string    `json:"policy,omitempty"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// eventKey returns the partition key for an event.
func eventKey(event any) string {
	switch e := event.(type) {
	case SearchEvent:
		return string(e.Type)
	case IndexEvent:
		return string(e.Type)
	default:
		return "analytics"
	}
}

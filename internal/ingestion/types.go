// Package ingestion defines the document events that flow through the
// ingest topic. The search server rebuilds its in-memory index by replaying
// them.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-server/internal/indexer/index"
)

type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
)

// DocumentEvent asks the engine to add or remove one document. Text, Status
// and Ratings are only used by adds; Policy only by removes.
type DocumentEvent struct {
	Op          Op           `json:"op"`
	ID          int          `json:"id"`
	Text        string       `json:"text,omitempty"`
	Status      index.Status `json:"status"`
	Ratings     []int        `json:"ratings,omitempty"`
	Policy      string       `json:"policy,omitempty"`
	PublishedAt time.Time    `json:"published_at"`
}

// IngestResponse is returned once an event has been accepted for
// publishing.
type IngestResponse struct {
	DocumentID int    `json:"document_id"`
	Op         Op     `json:"op"`
	Status     string `json:"status"`
}

package kafka

import (
	"encoding/json"
	"time"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ScrapeCompletedMessage is the scraper's completion event that
// triggers a dedup run over the freshly ingested window
type ScrapeCompletedMessage struct {
	Type        string      `json:"type"` // "scrape.completed"
	Platform    string      `json:"platform"`
	ExecutionID string      `json:"execution_id"`
	Status      string      `json:"status"` // "success", "partial", "failed"
	Timestamp   time.Time   `json:"timestamp"`
	Stats       ScrapeStats `json:"stats,omitempty"`
}

// ScrapeStats contains statistics about the scrape execution
type ScrapeStats struct {
	ListingsSeen    int   `json:"listings_seen"`
	ListingsCreated int   `json:"listings_created"`
	ListingsUpdated int   `json:"listings_updated"`
	DurationMs      int64 `json:"duration_ms"`
}

// IsScrapeCompleted checks if the message is a scrape.completed event
func (m *IncomingMessage) IsScrapeCompleted() bool {
	// Check header first
	if msgType := m.Headers["type"]; msgType == "scrape.completed" {
		return true
	}

	var evt ScrapeCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err == nil {
		return evt.Type == "scrape.completed"
	}

	return false
}

// ParseScrapeCompleted parses the message as a scrape.completed event
func (m *IncomingMessage) ParseScrapeCompleted() (*ScrapeCompletedMessage, error) {
	var evt ScrapeCompletedMessage
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for structured messages published by marathon.
type Event struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	Source      string                 `json:"source"`
	ContentType string                 `json:"content_type"`
	Version     string                 `json:"version"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Subject     string                 `json:"subject,omitempty"`
}

// NewEvent builds an Event with a fresh id and the current time.
func NewEvent(eventType, source string, data map[string]interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Source:      source,
		ContentType: "application/json",
		Version:     "1.0",
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}

// Key returns the partition key: the subject when set, otherwise the id.
func (e Event) Key() string {
	if e.Subject != "" {
		return e.Subject
	}
	return e.ID
}

// ToJSON marshals the event to JSON.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

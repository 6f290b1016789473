package event

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Event is a fact about an expense report, published after the change is committed
type Event struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	VisitorID string            `json:"id_visiteur"`
	Month     string            `json:"mois"`
	Actor     string            `json:"actor,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// New creates an event for the report (visitorID, month)
func New(t Type, visitorID, month string) *Event {
	return &Event{
		ID:        generateID(),
		Type:      t,
		VisitorID: visitorID,
		Month:     month,
		Payload:   map[string]string{},
		Timestamp: time.Now(),
	}
}

// With returns a copy of e with key set in the payload
func (e *Event) With(key, value string) *Event {
	payload := make(map[string]string, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	cp := *e
	cp.Payload = payload
	return &cp
}

// By returns a copy of e attributed to actor
func (e *Event) By(actor string) *Event {
	cp := *e
	cp.Actor = actor
	return &cp
}

// Get returns a payload value, "" when absent
func (e *Event) Get(key string) string {
	return e.Payload[key]
}

func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

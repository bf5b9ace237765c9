package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the shop.
const (
	TypeCartUpdated       = "bookshop.cart.updated"
	TypeCartCleared       = "bookshop.cart.cleared"
	TypeCheckoutCompleted = "bookshop.checkout.completed"
	TypeCheckoutFailed    = "bookshop.checkout.failed"
)

// Topics the shop publishes to.
const (
	TopicCart     = "bookshop.cart"
	TopicCheckout = "bookshop.checkout"
)

// Event is the envelope for every message the shop publishes.
type Event struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// New creates an event with a generated ID and current timestamp. The
// aggregate ID is the session the cart belongs to.
func New(eventType, aggregateID, aggregateType string, data any) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		Timestamp:     time.Now().UTC(),
		Source:        "bookshop",
		Data:          dataBytes,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// CartUpdatedData is the payload for cart.updated events.
type CartUpdatedData struct {
	ProductID string `json:"product_id"`
	Variant   string `json:"variant"`
	Action    string `json:"action"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

// CheckoutData is the payload for checkout.completed and checkout.failed
// events.
type CheckoutData struct {
	Total   string `json:"total"`
	Items   int    `json:"items"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

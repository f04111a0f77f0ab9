package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType описывает тип события в Kafka
type EventType string

const (
	EventTypeQuoteCalculated EventType = "quote.calculated"
)

// Event представляет конверт события, публикуемого в Kafka
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// QuoteCalculatedData представляет полезную нагрузку события quote.calculated
type QuoteCalculatedData struct {
	QuoteID    uuid.UUID `json:"quote_id"`
	Subscribed bool      `json:"subscribed"`
	Coupon     bool      `json:"coupon"`
	FinalCost  Amount    `json:"final_cost"`
	Display    string    `json:"display"`
}

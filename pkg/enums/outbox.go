package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateIntervention  OutboxAggregateType = "intervention"
	AggregateInventoryItem OutboxAggregateType = "inventory_item"
	AggregateQuote         OutboxAggregateType = "quote"
	AggregateInvoice       OutboxAggregateType = "invoice"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateIntervention,
	AggregateInventoryItem,
	AggregateQuote,
	AggregateInvoice,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (a OutboxAggregateType) String() string {
	return string(a)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventInterventionSettled  OutboxEventType = "intervention.settled"
	EventInterventionReleased OutboxEventType = "intervention.released"
	EventStockReceived        OutboxEventType = "stock.received"
	EventStockShortfall       OutboxEventType = "stock.shortfall_confirmed"
	EventDocumentConverted    OutboxEventType = "document.converted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventInterventionSettled,
	EventInterventionReleased,
	EventStockReceived,
	EventStockShortfall,
	EventDocumentConverted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (e OutboxEventType) String() string {
	return string(e)
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

package enums

import "fmt"

// OrderEventType maps to the event_type attribute on SPIRAL order events.
// The checkout service is the producer; loyalty only consumes.
type OrderEventType string

const (
	EventOrderCreated   OrderEventType = "order_created"
	EventOrderCanceled  OrderEventType = "order_canceled"
	EventOrderDelivered OrderEventType = "order_delivered"
)

var validOrderEventTypes = []OrderEventType{
	EventOrderCreated,
	EventOrderCanceled,
	EventOrderDelivered,
}

// IsValid reports whether the value matches a known order event type.
func (e OrderEventType) IsValid() bool {
	for _, candidate := range validOrderEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOrderEventType converts raw input into OrderEventType.
func ParseOrderEventType(value string) (OrderEventType, error) {
	for _, candidate := range validOrderEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event type %q", value)
}

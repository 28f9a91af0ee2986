package bus

import "time"

// Event is a domain event carried by the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

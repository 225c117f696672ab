// Package logic contains the pure decision logic of the fridge controller.
// This package has NO external dependencies (no GPIO, MQTT, storage, OS, or
// time.Sleep). Time is always injected as monotonic millisecond ticks.
package logic

import "time"

// Chamber identifies one of the two regulated compartments.
type Chamber string

const (
	Fridge  Chamber = "fridge"
	Freezer Chamber = "freezer"
)

// State represents the logical state of a relay.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// StateOf converts a relay level to a State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// EventType represents an applied relay change.
type EventType string

const (
	EventCompressorOn  EventType = "COMPRESSOR_ON"
	EventCompressorOff EventType = "COMPRESSOR_OFF"
	EventDefrostOn     EventType = "DEFROST_ON"
	EventDefrostOff    EventType = "DEFROST_OFF"
)

// Event represents a relay transition to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Compressor  State
	Defrost     State
	FridgeTemp  int8
	FreezerTemp int8
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	CompressorOn  int
	CompressorOff int
	DefrostOn     int
	DefrostOff    int
}

// Add counts e.
func (c *EventCounts) Add(e Event) {
	switch e.Type {
	case EventCompressorOn:
		c.CompressorOn++
	case EventCompressorOff:
		c.CompressorOff++
	case EventDefrostOn:
		c.DefrostOn++
	case EventDefrostOff:
		c.DefrostOff++
	}
}

// Switch is a relay whose requested changes may be refused.
type Switch interface {
	// Set requests the relay state and reports whether it actually changed.
	Set(on bool) bool
	// Active reports the relay's current state.
	Active() bool
}

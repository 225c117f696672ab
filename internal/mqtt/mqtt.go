// Package mqtt provides MQTT publishing and settings input with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/fridge-controller/internal/logic"
)

// Topic is the MQTT topic for relay events.
const Topic = "home/fridge/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/fridge/system"

// TopicSettings receives settings change requests.
const TopicSettings = "home/fridge/settings/set"

// ClientID identifies the controller to the broker.
const ClientID = "fridge-controller"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a relay event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SettingsSubscriber delivers settings change requests. The handler runs on
// the client's goroutine and must only hand the settings over.
type SettingsSubscriber interface {
	SubscribeSettings(handler func(logic.Settings)) error
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Fridge FridgePayload `json:"fridge"`
}

// FridgePayload contains the relay event details.
type FridgePayload struct {
	Timestamp  string      `json:"timestamp"`
	Event      string      `json:"event"`
	Compressor RelayState  `json:"compressor"`
	Defrost    RelayState  `json:"defrost"`
	Temps      Temperature `json:"temps"`
}

// RelayState represents a single relay's state.
type RelayState struct {
	State string `json:"state"`
}

// Temperature holds both chamber readings at the time of the event.
type Temperature struct {
	Fridge  int8 `json:"fridge"`
	Freezer int8 `json:"freezer"`
}

// FormatPayload creates the JSON payload for a relay event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Fridge: FridgePayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Compressor: RelayState{State: string(event.Compressor)},
			Defrost:    RelayState{State: string(event.Defrost)},
			Temps:      Temperature{Fridge: event.FridgeTemp, Freezer: event.FreezerTemp},
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// settingsMessage mirrors logic.Settings with every field required.
type settingsMessage struct {
	FridgeTarget      *int8 `json:"fridge_target"`
	FridgeHysteresis  *int8 `json:"fridge_hysteresis"`
	FreezerTarget     *int8 `json:"freezer_target"`
	FreezerHysteresis *int8 `json:"freezer_hysteresis"`
	DefrostOnTemp     *int8 `json:"defrost_on_temp"`
	DefrostOffTemp    *int8 `json:"defrost_off_temp"`
}

// ParseSettings decodes a complete settings record. Range checks are left to
// the control loop.
func ParseSettings(payload []byte) (logic.Settings, error) {
	var msg settingsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return logic.Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	var s logic.Settings
	var errs []error
	fields := []struct {
		name string
		src  *int8
		dst  *int8
	}{
		{"fridge_target", msg.FridgeTarget, &s.FridgeTarget},
		{"fridge_hysteresis", msg.FridgeHysteresis, &s.FridgeHysteresis},
		{"freezer_target", msg.FreezerTarget, &s.FreezerTarget},
		{"freezer_hysteresis", msg.FreezerHysteresis, &s.FreezerHysteresis},
		{"defrost_on_temp", msg.DefrostOnTemp, &s.DefrostOnTemp},
		{"defrost_off_temp", msg.DefrostOffTemp, &s.DefrostOffTemp},
	}
	for _, f := range fields {
		if f.src == nil {
			errs = append(errs, fmt.Errorf("missing %s", f.name))
			continue
		}
		*f.dst = *f.src
	}
	if err := errors.Join(errs...); err != nil {
		return logic.Settings{}, err
	}
	return s, nil
}

// Discard is a Publisher that drops everything. It is used when no broker is
// configured.
type Discard struct{}

func (Discard) Publish(logic.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }

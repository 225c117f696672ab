package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fridge-controller/internal/logic"
	"github.com/sweeney/fridge-controller/internal/sensor"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	Ready         bool           `json:"ready"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	Fridge        ChamberJSON    `json:"fridge"`
	Freezer       ChamberJSON    `json:"freezer"`
	Compressor    CompressorJSON `json:"compressor"`
	Defrost       DefrostJSON    `json:"defrost"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// ChamberJSON reports one chamber.
type ChamberJSON struct {
	Temp       int8   `json:"temp"`
	Target     int8   `json:"target"`
	Hysteresis int8   `json:"hysteresis"`
	Cooling    bool   `json:"cooling"`
	Sensor     string `json:"sensor"`
}

// CompressorJSON reports the compressor relay.
type CompressorJSON struct {
	State      string `json:"state"`
	Resting    bool   `json:"resting"`
	Suppressed uint64 `json:"suppressed_changes"`
}

// DefrostJSON reports the defrost cycle.
type DefrostJSON struct {
	State     string `json:"state"`
	Phase     string `json:"phase"`
	Needed    bool   `json:"needed"`
	HoursLeft uint8  `json:"hours_left"`
	OnTemp    int8   `json:"on_temp"`
	OffTemp   int8   `json:"off_temp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	CompressorOn  int `json:"compressor_on"`
	CompressorOff int `json:"compressor_off"`
	DefrostOn     int `json:"defrost_on"`
	DefrostOff    int `json:"defrost_off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs            int64  `json:"poll_ms"`
	SensorMs          int64  `json:"sensor_ms"`
	HeartbeatMs       int64  `json:"heartbeat_ms"`
	CompressorGuardMs int64  `json:"compressor_guard_ms"`
	HeaterGuardMs     int64  `json:"heater_guard_ms"`
	DefrostMaxRunMs   int64  `json:"defrost_max_run_ms"`
	Broker            string `json:"broker"`
	HTTPPort          string `json:"http_port"`
}

func phaseString(p sensor.Phase) string {
	if p == "" {
		return "UNKNOWN"
	}
	return string(p)
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Control
	phase := string(c.DefrostPhase)
	if phase == "" {
		phase = string(logic.DefrostIdle)
	}

	return StatusInner{
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Fridge: ChamberJSON{
			Temp:       c.FridgeTemp,
			Target:     c.Settings.FridgeTarget,
			Hysteresis: c.Settings.FridgeHysteresis,
			Cooling:    c.NeedFridgeCooling,
			Sensor:     phaseString(c.FridgeSensor),
		},
		Freezer: ChamberJSON{
			Temp:       c.FreezerTemp,
			Target:     c.Settings.FreezerTarget,
			Hysteresis: c.Settings.FreezerHysteresis,
			Cooling:    c.NeedFreezerCooling,
			Sensor:     phaseString(c.FreezerSensor),
		},
		Compressor: CompressorJSON{
			State:      string(logic.StateOf(c.CompressorActive)),
			Resting:    c.CompressorResting,
			Suppressed: snap.Suppressed,
		},
		Defrost: DefrostJSON{
			State:     string(logic.StateOf(c.DefrostActive)),
			Phase:     phase,
			Needed:    c.NeedDefrost,
			HoursLeft: c.HoursLeft,
			OnTemp:    c.Settings.DefrostOnTemp,
			OffTemp:   c.Settings.DefrostOffTemp,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			CompressorOn:  snap.Counts.CompressorOn,
			CompressorOff: snap.Counts.CompressorOff,
			DefrostOn:     snap.Counts.DefrostOn,
			DefrostOff:    snap.Counts.DefrostOff,
		},
		Config: ConfigJSON{
			PollMs:            snap.Config.PollMs,
			SensorMs:          snap.Config.SensorMs,
			HeartbeatMs:       snap.Config.HeartbeatMs,
			CompressorGuardMs: snap.Config.CompressorGuardMs,
			HeaterGuardMs:     snap.Config.HeaterGuardMs,
			DefrostMaxRunMs:   snap.Config.DefrostMaxRunMs,
			Broker:            snap.Config.Broker,
			HTTPPort:          snap.Config.HTTPPort,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

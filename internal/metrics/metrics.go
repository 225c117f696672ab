// Package metrics exposes controller state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/fridge-controller/internal/logic"
	"github.com/sweeney/fridge-controller/internal/status"
)

// Source provides the state to export.
type Source interface {
	Snapshot() status.Snapshot
}

// Collector reads a status snapshot on every scrape.
type Collector struct {
	source Source

	temperature   *prometheus.GaugeVec
	target        *prometheus.GaugeVec
	cooling       *prometheus.GaugeVec
	relayOn       *prometheus.GaugeVec
	defrostNeeded prometheus.Gauge
	hoursLeft     prometheus.Gauge
	resting       prometheus.Gauge
	ready         prometheus.Gauge
	mqttUp        prometheus.Gauge
	uptime        prometheus.Gauge

	relayChanges   *prometheus.Desc
	suppressed     *prometheus.Desc
	sensorFailures *prometheus.Desc
}

// NewCollector creates a collector for source.
func NewCollector(source Source) *Collector {
	chamber := []string{"chamber"}
	return &Collector{
		source: source,
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fridge_temperature_celsius",
			Help: "Last known good chamber temperature (celsius)",
		}, chamber),
		target: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fridge_target_celsius",
			Help: "Configured chamber target temperature (celsius)",
		}, chamber),
		cooling: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fridge_cooling_demand",
			Help: "Whether the chamber needs cooling (1=yes, 0=no)",
		}, chamber),
		relayOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fridge_relay_on",
			Help: "Actual relay state (1=on, 0=off)",
		}, []string{"relay"}),
		defrostNeeded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fridge_defrost_needed",
			Help: "Whether a defrost cycle is demanded (1=yes, 0=no)",
		}),
		hoursLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fridge_defrost_hours_left",
			Help: "Hours until a defrost cycle is forced",
		}),
		resting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fridge_compressor_resting",
			Help: "Whether the compressor is in a forced rest (1=yes, 0=no)",
		}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fridge_ready",
			Help: "Whether the control loop is running (1=yes, 0=starting)",
		}),
		mqttUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fridge_mqtt_connected",
			Help: "MQTT broker connection state (1=up, 0=down)",
		}),
		uptime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fridge_uptime_seconds",
			Help: "Seconds since the controller started",
		}),
		relayChanges: prometheus.NewDesc(
			"fridge_relay_changes_total",
			"Relay changes applied since startup",
			[]string{"event"}, nil,
		),
		suppressed: prometheus.NewDesc(
			"fridge_relay_suppressed_total",
			"Compressor relay requests dropped by the minimum toggle interval",
			nil, nil,
		),
		sensorFailures: prometheus.NewDesc(
			"fridge_sensor_failures_total",
			"Failed sensor readings since startup",
			chamber, nil,
		),
	}
}

// Registry builds a registry holding c.
func Registry(c *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(c)
	return registry
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.temperature.Describe(ch)
	c.target.Describe(ch)
	c.cooling.Describe(ch)
	c.relayOn.Describe(ch)
	c.defrostNeeded.Describe(ch)
	c.hoursLeft.Describe(ch)
	c.resting.Describe(ch)
	c.ready.Describe(ch)
	c.mqttUp.Describe(ch)
	c.uptime.Describe(ch)
	ch <- c.relayChanges
	ch <- c.suppressed
	ch <- c.sensorFailures
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source.Snapshot()
	st := snap.Control

	c.temperature.WithLabelValues(string(logic.Fridge)).Set(float64(st.FridgeTemp))
	c.temperature.WithLabelValues(string(logic.Freezer)).Set(float64(st.FreezerTemp))
	c.target.WithLabelValues(string(logic.Fridge)).Set(float64(st.Settings.FridgeTarget))
	c.target.WithLabelValues(string(logic.Freezer)).Set(float64(st.Settings.FreezerTarget))
	c.cooling.WithLabelValues(string(logic.Fridge)).Set(boolFloat(st.NeedFridgeCooling))
	c.cooling.WithLabelValues(string(logic.Freezer)).Set(boolFloat(st.NeedFreezerCooling))
	c.relayOn.WithLabelValues("compressor").Set(boolFloat(st.CompressorActive))
	c.relayOn.WithLabelValues("defrost").Set(boolFloat(st.DefrostActive))
	c.defrostNeeded.Set(boolFloat(st.NeedDefrost))
	c.hoursLeft.Set(float64(st.HoursLeft))
	c.resting.Set(boolFloat(st.CompressorResting))
	c.ready.Set(boolFloat(snap.Ready))
	c.mqttUp.Set(boolFloat(snap.MQTTConnected))
	c.uptime.Set(snap.Uptime().Seconds())

	c.temperature.Collect(ch)
	c.target.Collect(ch)
	c.cooling.Collect(ch)
	c.relayOn.Collect(ch)
	c.defrostNeeded.Collect(ch)
	c.hoursLeft.Collect(ch)
	c.resting.Collect(ch)
	c.ready.Collect(ch)
	c.mqttUp.Collect(ch)
	c.uptime.Collect(ch)

	counts := map[logic.EventType]int{
		logic.EventCompressorOn:  snap.Counts.CompressorOn,
		logic.EventCompressorOff: snap.Counts.CompressorOff,
		logic.EventDefrostOn:     snap.Counts.DefrostOn,
		logic.EventDefrostOff:    snap.Counts.DefrostOff,
	}
	for event, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.relayChanges, prometheus.CounterValue, float64(n), string(event))
	}
	ch <- prometheus.MustNewConstMetric(c.suppressed, prometheus.CounterValue, float64(snap.Suppressed))
	ch <- prometheus.MustNewConstMetric(c.sensorFailures, prometheus.CounterValue, float64(st.FridgeFailures), string(logic.Fridge))
	ch <- prometheus.MustNewConstMetric(c.sensorFailures, prometheus.CounterValue, float64(st.FreezerFailures), string(logic.Freezer))
}

func boolFloat(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

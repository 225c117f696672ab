// Command fridge-controller runs a two-chamber refrigerator: it reads the
// chamber sensors, drives the compressor and defrost heater relays and
// publishes relay changes to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sweeney/fridge-controller/internal/config"
	"github.com/sweeney/fridge-controller/internal/control"
	"github.com/sweeney/fridge-controller/internal/gpio"
	"github.com/sweeney/fridge-controller/internal/logger"
	"github.com/sweeney/fridge-controller/internal/logic"
	"github.com/sweeney/fridge-controller/internal/metrics"
	"github.com/sweeney/fridge-controller/internal/mqtt"
	"github.com/sweeney/fridge-controller/internal/relay"
	"github.com/sweeney/fridge-controller/internal/sensor"
	"github.com/sweeney/fridge-controller/internal/status"
	"github.com/sweeney/fridge-controller/internal/store"
	"github.com/sweeney/fridge-controller/internal/timer"
	"github.com/sweeney/fridge-controller/internal/web"
)

// startupBlink is the LED blink period while waiting for a sensor.
const startupBlink uint16 = 500

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(cfg.LogLevel)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatalw("fatal", "err", err)
	}
}

func run(cfg config.Config, log *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	st := store.New(store.NewKV(db))

	settings, err := loadSettings(ctx, st, log)
	if err != nil {
		return err
	}
	hours, err := st.LoadHours(ctx)
	if err != nil {
		log.Warnw("hour counter unreadable, starting a full period", "err", err)
	}

	clock := timer.NewMillisClock()
	clock16 := timer.Narrow[uint16](clock)
	startupTimeout := uint16(timer.Millis(cfg.StartupTimeout))
	startupRetry := uint16(timer.Millis(cfg.StartupRetry))

	fridge := sensor.NewAcquisition(string(logic.Fridge), sensor.NewW1Sensor(cfg.SensorFridge), log)
	freezer := sensor.NewAcquisition(string(logic.Freezer), sensor.NewW1Sensor(cfg.SensorFreezer), log)

	// Print state mode
	if cfg.PrintState {
		for _, a := range []*sensor.Acquisition{fridge, freezer} {
			if err := a.Startup(ctx, clock16, startupTimeout, startupRetry, nil); err != nil {
				return fmt.Errorf("read sensor: %w", err)
			}
		}
		fmt.Printf("Fridge: %d°C (target %d ±%d), Freezer: %d°C (target %d ±%d), defrost in %dh\n",
			fridge.Temp(), settings.FridgeTarget, settings.FridgeHysteresis,
			freezer.Temp(), settings.FreezerTarget, settings.FreezerHysteresis, hours)
		return nil
	}

	outs, err := openOutputs(cfg)
	if err != nil {
		return err
	}
	defer outs.close(log)

	fridgeLED := gpio.NewLED(outs.ledFridge)
	freezerLED := gpio.NewLED(outs.ledFreezer)
	waitForSensor(ctx, fridge, fridgeLED, clock16, startupTimeout, startupRetry, log)
	waitForSensor(ctx, freezer, freezerLED, clock16, startupTimeout, startupRetry, log)
	if ctx.Err() != nil {
		return nil
	}

	mailbox := &control.Mailbox{}
	loop := control.NewLoop(control.Deps{
		Clock:      clock,
		Fridge:     fridge,
		Freezer:    freezer,
		Compressor: relay.NewGuard("compressor", outs.compressor, clock, timer.Millis(cfg.CompressorGuard), log),
		Heater:     relay.NewGuard("defrost", outs.heater, clock, timer.Millis(cfg.HeaterGuard), log),
		FridgeLED:  fridgeLED,
		FreezerLED: freezerLED,
		Defrost:    logic.NewDefrostController(timer.Millis(cfg.DefrostMaxRun)),
		Hours:      logic.NewHourCounter(clock, timer.Millis(cfg.DefrostHour), hours, st),
		Duty: logic.NewCompressorDuty(timer.Millis(cfg.CompressorMaxRun),
			timer.Millis(cfg.CompressorRest), timer.Millis(cfg.CompressorBreak)),
		Saver:   st,
		Mailbox: mailbox,
		Log:     log,
	}, settings, timer.Millis(cfg.SensorInterval))

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Broker != "" {
		rp := mqtt.NewRealPublisher(cfg.Broker, log)
		if err := rp.SubscribeSettings(mailbox.Post); err != nil {
			log.Warnw("settings subscription failed", "err", err)
		}
		publisher, mqttStatus = rp, rp
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:            cfg.Poll.Milliseconds(),
		SensorMs:          cfg.SensorInterval.Milliseconds(),
		HeartbeatMs:       cfg.Heartbeat.Milliseconds(),
		CompressorGuardMs: cfg.CompressorGuard.Milliseconds(),
		HeaterGuardMs:     cfg.HeaterGuard.Milliseconds(),
		DefrostMaxRunMs:   cfg.DefrostMaxRun.Milliseconds(),
		Broker:            cfg.Broker,
		HTTPPort:          cfg.HTTPAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(loop.State(), loop.EventCounts(), 0)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warnw("failed to publish startup event", "err", err)
	}

	// Start HTTP status server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, metrics.Registry(metrics.NewCollector(tracker)))
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", cfg.HTTPAddr)
	}

	log.Infow("started",
		"poll", cfg.Poll, "sensor_interval", cfg.SensorInterval,
		"broker", cfg.Broker, "heartbeat", cfg.Heartbeat,
		"settings", settings, "hours_left", hours)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	// From here on runLoop handles signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	stop()

	return runLoop(loop, publisher, mqttStatus, tracker, cfg.Heartbeat, time.Now, ticker.C, sigCh, log)
}

// loadSettings returns the persisted settings, falling back to the defaults
// when the stored record is out of range.
func loadSettings(ctx context.Context, st *store.Store, log *zap.SugaredLogger) (logic.Settings, error) {
	settings, err := st.LoadSettings(ctx)
	if err != nil {
		log.Warnw("settings unreadable, using defaults", "err", err)
		settings = logic.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		log.Warnw("stored settings invalid, restoring defaults", "settings", settings, "err", err)
		settings = logic.DefaultSettings()
		if err := st.SaveSettings(ctx, settings); err != nil {
			return settings, fmt.Errorf("restore default settings: %w", err)
		}
	}
	return settings, nil
}

// waitForSensor blocks until the first reading, blinking the chamber LED.
// A timeout is logged and the chamber starts at 0°C.
func waitForSensor(ctx context.Context, a *sensor.Acquisition, led *gpio.LED, clock timer.Clock[uint16], timeout, retry uint16, log *zap.SugaredLogger) {
	blink := func(now uint16) { led.Blink(now, startupBlink) }
	err := a.Startup(ctx, clock, timeout, retry, blink)
	led.Set(false)
	switch {
	case err == nil:
		log.Infow("sensor ready", "chamber", a.Name(), "temp", a.Temp())
	case errors.Is(err, context.Canceled):
	default:
		log.Warnw("sensor not ready, continuing without a reading", "chamber", a.Name(), "err", err)
	}
}

type outputs struct {
	compressor gpio.Output
	heater     gpio.Output
	ledFridge  gpio.Output
	ledFreezer gpio.Output
}

func openOutputs(cfg config.Config) (*outputs, error) {
	o := &outputs{}
	lines := []struct {
		dst       *gpio.Output
		pin       int
		activeLow bool
		name      string
	}{
		{&o.compressor, cfg.PinCompressor, cfg.ActiveLow, "compressor"},
		{&o.heater, cfg.PinHeater, cfg.ActiveLow, "defrost heater"},
		{&o.ledFridge, cfg.PinLEDFridge, false, "fridge LED"},
		{&o.ledFreezer, cfg.PinLEDFreezer, false, "freezer LED"},
	}
	for _, l := range lines {
		out, err := gpio.NewRealOutput(cfg.Chip, l.pin, l.activeLow)
		if err != nil {
			o.close(zap.NewNop().Sugar())
			return nil, fmt.Errorf("init gpio %s: %w", l.name, err)
		}
		*l.dst = out
	}
	return o, nil
}

func (o *outputs) close(log *zap.SugaredLogger) {
	for _, out := range []gpio.Output{o.compressor, o.heater, o.ledFridge, o.ledFreezer} {
		if out == nil {
			continue
		}
		if err := out.Close(); err != nil {
			log.Warnw("gpio close failed", "err", err)
		}
	}
}

func runLoop(loop *control.Loop, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *zap.SugaredLogger) error {
	lastHeartbeat := now()

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(loop.State(), loop.EventCounts(), loop.Compressor.Suppressed())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	for {
		select {
		case s := <-sig:
			log.Infow("shutting down", "signal", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh()
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warnw("failed to publish shutdown event", "err", err)
			}
			return nil

		case <-tick:
			t := now()
			events := loop.Tick(t)

			for _, event := range events {
				if err := publisher.Publish(event); err != nil {
					log.Warnw("publish error", "event", event.Type, "err", err)
					// Don't crash on publish failure
				}
			}

			refresh()

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t
			counts := loop.EventCounts()
			log.Infow("heartbeat",
				"compressor_on", counts.CompressorOn, "compressor_off", counts.CompressorOff,
				"defrost_on", counts.DefrostOn, "defrost_off", counts.DefrostOff)

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Warnw("heartbeat publish error", "err", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// Package config loads controller settings from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/fridge-controller/internal/gpio"
	"github.com/sweeney/fridge-controller/internal/logger"
)

// EnvPrefix prefixes environment overrides, e.g. FRIDGE_BROKER.
const EnvPrefix = "FRIDGE"

// Keys shared by flags, environment variables and the config file.
const (
	KeyConfig           = "config"
	KeyPoll             = "poll"
	KeySensorInterval   = "sensor-interval"
	KeyStartupTimeout   = "startup-timeout"
	KeyStartupRetry     = "startup-retry"
	KeyCompressorGuard  = "compressor-guard"
	KeyHeaterGuard      = "heater-guard"
	KeyDefrostMaxRun    = "defrost-max-run"
	KeyDefrostHour      = "defrost-hour"
	KeyCompressorMaxRun = "compressor-max-run"
	KeyCompressorRest   = "compressor-rest"
	KeyCompressorBreak  = "compressor-break"
	KeyDBPath           = "db"
	KeyChip             = "gpio-chip"
	KeyPinCompressor    = "pin-compressor"
	KeyPinHeater        = "pin-heater"
	KeyPinLEDFridge     = "pin-led-fridge"
	KeyPinLEDFreezer    = "pin-led-freezer"
	KeyActiveLow        = "active-low"
	KeySensorFridge     = "sensor-fridge"
	KeySensorFreezer    = "sensor-freezer"
	KeyBroker           = "broker"
	KeyHTTP             = "http"
	KeyHeartbeat        = "heartbeat"
	KeyLogLevel         = "log-level"
	KeyPrintState       = "print-state"
)

// Config is the resolved runtime configuration.
type Config struct {
	Poll           time.Duration
	SensorInterval time.Duration
	StartupTimeout time.Duration
	StartupRetry   time.Duration

	CompressorGuard  time.Duration
	HeaterGuard      time.Duration
	DefrostMaxRun    time.Duration
	DefrostHour      time.Duration
	CompressorMaxRun time.Duration
	CompressorRest   time.Duration
	CompressorBreak  time.Duration

	DBPath string

	Chip          string
	PinCompressor int
	PinHeater     int
	PinLEDFridge  int
	PinLEDFreezer int
	ActiveLow     bool

	SensorFridge  string
	SensorFreezer string

	Broker    string
	HTTPAddr  string
	Heartbeat time.Duration

	LogLevel   string
	PrintState bool
}

// NewFlagSet declares every option with its default.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String(KeyConfig, "", "YAML config file")
	fs.Duration(KeyPoll, time.Second, "Control loop interval")
	fs.Duration(KeySensorInterval, 5*time.Second, "Sensor polling interval")
	fs.Duration(KeyStartupTimeout, 50*time.Second, "Maximum wait for the first sensor reading")
	fs.Duration(KeyStartupRetry, time.Second, "Sensor request retry during startup")
	fs.Duration(KeyCompressorGuard, 10*time.Minute, "Minimum time between compressor relay changes")
	fs.Duration(KeyHeaterGuard, 5*time.Second, "Minimum time between defrost heater relay changes")
	fs.Duration(KeyDefrostMaxRun, 2*time.Hour, "Maximum defrost heater run time")
	fs.Duration(KeyDefrostHour, time.Hour, "Length of one defrost counter hour")
	fs.Duration(KeyCompressorMaxRun, 4*time.Hour, "Maximum continuous compressor run (0 to disable)")
	fs.Duration(KeyCompressorRest, 20*time.Minute, "Forced compressor rest after maximum run")
	fs.Duration(KeyCompressorBreak, 10*time.Minute, "Off period that counts as a compressor rest")
	fs.String(KeyDBPath, "/var/lib/fridge-controller/fridge.db", "SQLite database path")
	fs.String(KeyChip, gpio.DefaultChip, "GPIO character device")
	fs.Int(KeyPinCompressor, gpio.DefaultPinCompressor, "BCM pin for the compressor relay")
	fs.Int(KeyPinHeater, gpio.DefaultPinHeater, "BCM pin for the defrost heater relay")
	fs.Int(KeyPinLEDFridge, gpio.DefaultPinLEDFridge, "BCM pin for the fridge LED")
	fs.Int(KeyPinLEDFreezer, gpio.DefaultPinLEDFreezer, "BCM pin for the freezer LED")
	fs.Bool(KeyActiveLow, false, "Relay outputs are active-low")
	fs.String(KeySensorFridge, "", "One-wire ID of the fridge sensor (28-...)")
	fs.String(KeySensorFreezer, "", "One-wire ID of the freezer sensor (28-...)")
	fs.String(KeyBroker, "", "MQTT broker address (empty to disable)")
	fs.String(KeyHTTP, ":8080", "HTTP status address (empty to disable)")
	fs.Duration(KeyHeartbeat, 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.String(KeyLogLevel, logger.InfoLevel, "Log level (debug, info, warn, error)")
	fs.Bool(KeyPrintState, false, "Print current state and exit")
	return fs
}

// Load parses args and resolves each option from, in order of precedence,
// an explicit flag, a FRIDGE_ environment variable, the config file and the
// flag default.
func Load(args []string) (Config, error) {
	fs := NewFlagSet("fridge-controller")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Poll:             v.GetDuration(KeyPoll),
		SensorInterval:   v.GetDuration(KeySensorInterval),
		StartupTimeout:   v.GetDuration(KeyStartupTimeout),
		StartupRetry:     v.GetDuration(KeyStartupRetry),
		CompressorGuard:  v.GetDuration(KeyCompressorGuard),
		HeaterGuard:      v.GetDuration(KeyHeaterGuard),
		DefrostMaxRun:    v.GetDuration(KeyDefrostMaxRun),
		DefrostHour:      v.GetDuration(KeyDefrostHour),
		CompressorMaxRun: v.GetDuration(KeyCompressorMaxRun),
		CompressorRest:   v.GetDuration(KeyCompressorRest),
		CompressorBreak:  v.GetDuration(KeyCompressorBreak),
		DBPath:           v.GetString(KeyDBPath),
		Chip:             v.GetString(KeyChip),
		PinCompressor:    v.GetInt(KeyPinCompressor),
		PinHeater:        v.GetInt(KeyPinHeater),
		PinLEDFridge:     v.GetInt(KeyPinLEDFridge),
		PinLEDFreezer:    v.GetInt(KeyPinLEDFreezer),
		ActiveLow:        v.GetBool(KeyActiveLow),
		SensorFridge:     v.GetString(KeySensorFridge),
		SensorFreezer:    v.GetString(KeySensorFreezer),
		Broker:           v.GetString(KeyBroker),
		HTTPAddr:         v.GetString(KeyHTTP),
		Heartbeat:        v.GetDuration(KeyHeartbeat),
		LogLevel:         v.GetString(KeyLogLevel),
		PrintState:       v.GetBool(KeyPrintState),
	}
	return cfg, cfg.Validate()
}

// maxTicks is the longest duration the 32-bit millisecond clock can time.
const maxTicks = time.Duration(math.MaxUint32) * time.Millisecond

// Validate checks that every interval is usable by the control loop.
func (c Config) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		KeyPoll:            c.Poll,
		KeySensorInterval:  c.SensorInterval,
		KeyStartupTimeout:  c.StartupTimeout,
		KeyStartupRetry:    c.StartupRetry,
		KeyCompressorGuard: c.CompressorGuard,
		KeyHeaterGuard:     c.HeaterGuard,
		KeyDefrostMaxRun:   c.DefrostMaxRun,
		KeyDefrostHour:     c.DefrostHour,
	}
	for _, key := range slices.Sorted(maps.Keys(positive)) {
		d := positive[key]
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", key, d))
		} else if d > maxTicks {
			errs = append(errs, fmt.Errorf("%s must not exceed %v, got %v", key, maxTicks, d))
		}
	}
	if c.CompressorMaxRun < 0 || c.CompressorMaxRun > maxTicks {
		errs = append(errs, fmt.Errorf("%s out of range: %v", KeyCompressorMaxRun, c.CompressorMaxRun))
	}
	// Startup runs on the 16-bit clock.
	limit16 := time.Duration(math.MaxUint16) * time.Millisecond
	if c.StartupTimeout > limit16 || c.StartupRetry > limit16 {
		errs = append(errs, fmt.Errorf("%s and %s must not exceed %v", KeyStartupTimeout, KeyStartupRetry, limit16))
	}
	if c.SensorFridge == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeySensorFridge))
	}
	if c.SensorFreezer == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeySensorFreezer))
	}
	if c.DBPath == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyDBPath))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyHeartbeat))
	}
	return errors.Join(errs...)
}

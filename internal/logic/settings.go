package logic

import (
	"errors"
	"fmt"
)

// Settings ranges.
const (
	FridgeTargetMin  = -20
	FridgeTargetMax  = 20
	FreezerTargetMin = -40
	FreezerTargetMax = -10
	HysteresisMin    = 1
	HysteresisMax    = 10

	DefrostOnTempMin  = -20
	DefrostOnTempMax  = 5
	DefrostOffTempMin = -15
	DefrostOffTempMax = 20
)

// SettingsSize is the length of the encoded settings record.
const SettingsSize = 6

// Settings are the user-configurable, durable controller settings.
type Settings struct {
	FridgeTarget      int8 `json:"fridge_target"`
	FridgeHysteresis  int8 `json:"fridge_hysteresis"`
	FreezerTarget     int8 `json:"freezer_target"`
	FreezerHysteresis int8 `json:"freezer_hysteresis"`
	DefrostOnTemp     int8 `json:"defrost_on_temp"`
	DefrostOffTemp    int8 `json:"defrost_off_temp"`
}

// DefaultSettings returns the factory settings.
func DefaultSettings() Settings {
	return Settings{
		FridgeTarget:      5,
		FridgeHysteresis:  1,
		FreezerTarget:     -24,
		FreezerHysteresis: 1,
		DefrostOnTemp:     -15,
		DefrostOffTemp:    5,
	}
}

// Validate checks every field against its range and requires the defrost
// thresholds to form a band. All violations are reported.
func (s Settings) Validate() error {
	var errs []error
	check := func(name string, v int8, lo, hi int) {
		if int(v) < lo || int(v) > hi {
			errs = append(errs, fmt.Errorf("%s %d out of range [%d, %d]", name, v, lo, hi))
		}
	}
	check("fridge_target", s.FridgeTarget, FridgeTargetMin, FridgeTargetMax)
	check("fridge_hysteresis", s.FridgeHysteresis, HysteresisMin, HysteresisMax)
	check("freezer_target", s.FreezerTarget, FreezerTargetMin, FreezerTargetMax)
	check("freezer_hysteresis", s.FreezerHysteresis, HysteresisMin, HysteresisMax)
	check("defrost_on_temp", s.DefrostOnTemp, DefrostOnTempMin, DefrostOnTempMax)
	check("defrost_off_temp", s.DefrostOffTemp, DefrostOffTempMin, DefrostOffTempMax)
	if s.DefrostOnTemp >= s.DefrostOffTemp {
		errs = append(errs, fmt.Errorf("defrost_on_temp %d must be below defrost_off_temp %d", s.DefrostOnTemp, s.DefrostOffTemp))
	}
	return errors.Join(errs...)
}

// MarshalBinary encodes the settings as six two's complement bytes in field
// order.
func (s Settings) MarshalBinary() ([]byte, error) {
	return []byte{
		byte(s.FridgeTarget),
		byte(s.FridgeHysteresis),
		byte(s.FreezerTarget),
		byte(s.FreezerHysteresis),
		byte(s.DefrostOnTemp),
		byte(s.DefrostOffTemp),
	}, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (s *Settings) UnmarshalBinary(data []byte) error {
	if len(data) != SettingsSize {
		return fmt.Errorf("settings record: got %d bytes, want %d", len(data), SettingsSize)
	}
	s.FridgeTarget = int8(data[0])
	s.FridgeHysteresis = int8(data[1])
	s.FreezerTarget = int8(data[2])
	s.FreezerHysteresis = int8(data[3])
	s.DefrostOnTemp = int8(data[4])
	s.DefrostOffTemp = int8(data[5])
	return nil
}

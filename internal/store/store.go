package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/fridge-controller/internal/logic"
)

// Record keys.
const (
	KeySettings = "settings"
	KeyHours    = "nofrost_hours"
)

// writeTimeout bounds a single synchronous write from the control loop.
const writeTimeout = 2 * time.Second

// Store loads and saves the two durable records.
type Store struct {
	kv *KV
}

// New creates a Store over kv.
func New(kv *KV) *Store {
	return &Store{kv: kv}
}

// LoadSettings returns the saved settings. On first boot the defaults are
// written and returned.
func (s *Store) LoadSettings(ctx context.Context) (logic.Settings, error) {
	data, found, err := s.kv.Get(ctx, KeySettings)
	if err != nil {
		return logic.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		def := logic.DefaultSettings()
		if err := s.SaveSettings(ctx, def); err != nil {
			return def, err
		}
		return def, nil
	}

	var st logic.Settings
	if err := st.UnmarshalBinary(data); err != nil {
		return logic.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// SaveSettings writes the settings record.
func (s *Store) SaveSettings(ctx context.Context, st logic.Settings) error {
	data, err := st.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Put(ctx, KeySettings, data); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadHours returns the saved hour counter, or a full period on first boot.
func (s *Store) LoadHours(ctx context.Context) (uint8, error) {
	data, found, err := s.kv.Get(ctx, KeyHours)
	if err != nil {
		return logic.DefrostPeriodHours, fmt.Errorf("load hours: %w", err)
	}
	if !found {
		return logic.DefrostPeriodHours, nil
	}
	if len(data) != 1 {
		return logic.DefrostPeriodHours, fmt.Errorf("load hours: got %d bytes, want 1", len(data))
	}
	return data[0], nil
}

// SaveHours writes the hour counter. It satisfies logic.HourSaver.
func (s *Store) SaveHours(hours uint8) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.kv.Put(ctx, KeyHours, []byte{hours}); err != nil {
		return fmt.Errorf("save hours: %w", err)
	}
	return nil
}

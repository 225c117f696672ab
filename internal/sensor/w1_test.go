package sensor

import (
	"errors"
	"runtime"
	"testing"
	"testing/fstest"
	"time"
)

const w1Good = "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n"

func waitReady(t *testing.T, s *W1Sensor) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("sensor never became ready")
		}
		runtime.Gosched()
	}
}

func TestParseW1Slave(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr bool
	}{
		{"positive", w1Good, 23125, false},
		{"negative", "ff : crc=01 YES\nff t=-18500\n", -18500, false},
		{"crc failure", "ff : crc=01 NO\nff t=4000\n", 0, true},
		{"missing t", "ff : crc=01 YES\nff\n", 0, true},
		{"short", "ff : crc=01 YES\n", 0, true},
		{"reset value", "ff : crc=01 YES\nff t=85000\n", 0, true},
		{"out of range", "ff : crc=01 YES\nff t=127000\n", 0, true},
		{"garbage", "ff : crc=01 YES\nff t=abc\n", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseW1Slave([]byte(tc.data))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestW1SensorReadsAsynchronously(t *testing.T) {
	fsys := fstest.MapFS{
		"28-0001/w1_slave": {Data: []byte("ff : crc=01 YES\nff t=-18999\n")},
	}
	s := NewW1SensorFS(fsys, "28-0001")

	if s.Ready() {
		t.Fatal("should not be ready before a request")
	}
	if _, err := s.ReadTemp(); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}

	if err := s.RequestTemp(); err != nil {
		t.Fatalf("RequestTemp: %v", err)
	}
	waitReady(t, s)

	temp, err := s.ReadTemp()
	if err != nil {
		t.Fatalf("ReadTemp: %v", err)
	}
	if temp != -18 {
		t.Errorf("temp: got %d, want -18 (truncated toward zero)", temp)
	}
	if s.Ready() {
		t.Error("result should be consumed by ReadTemp")
	}
}

func TestW1SensorMissingDevice(t *testing.T) {
	s := NewW1SensorFS(fstest.MapFS{}, "28-dead")
	s.RequestTemp()
	waitReady(t, s)

	if _, err := s.ReadTemp(); !errors.Is(err, ErrReadFailed) {
		t.Errorf("expected ErrReadFailed, got %v", err)
	}
}

func TestW1SensorWithAcquisition(t *testing.T) {
	fsys := fstest.MapFS{
		"28-0002/w1_slave": {Data: []byte(w1Good)},
	}
	a := newTestAcquisition(NewW1SensorFS(fsys, "28-0002"))
	a.request()

	deadline := time.Now().Add(2 * time.Second)
	for !a.Poll() {
		if time.Now().After(deadline) {
			t.Fatal("acquisition never consumed a reading")
		}
		runtime.Gosched()
	}
	if a.Temp() != 23 {
		t.Errorf("Temp: got %d, want 23", a.Temp())
	}
}

package sensor

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
)

// W1DevicesDir is where the Linux one-wire bus exposes its devices.
const W1DevicesDir = "/sys/bus/w1/devices"

// DS18B20 limits in millidegrees. 85000 is the power-on reset value, which the
// device reports when a conversion never ran.
const (
	ds18b20MinMilli   = -55000
	ds18b20MaxMilli   = 125000
	ds18b20ResetMilli = 85000
)

type w1Result struct {
	data []byte
	err  error
}

// W1Sensor reads a DS18B20 through the kernel one-wire driver. Reading
// w1_slave blocks for the conversion time, so each request runs in its own
// goroutine and hands the result back through a one-slot channel.
type W1Sensor struct {
	fsys fs.FS
	id   string

	results  chan w1Result
	inFlight bool
	ready    *w1Result
}

// NewW1Sensor creates a sensor for the device id (e.g. "28-0316a2791cff")
// under W1DevicesDir.
func NewW1Sensor(id string) *W1Sensor {
	return NewW1SensorFS(os.DirFS(W1DevicesDir), id)
}

// NewW1SensorFS creates a sensor reading from fsys, for tests.
func NewW1SensorFS(fsys fs.FS, id string) *W1Sensor {
	return &W1Sensor{
		fsys:    fsys,
		id:      id,
		results: make(chan w1Result, 1),
	}
}

// RequestTemp starts a conversion unless one is already running. A
// completed but unread result is discarded.
func (s *W1Sensor) RequestTemp() error {
	if s.inFlight {
		return nil
	}
	s.ready = nil
	s.inFlight = true
	name := path.Join(s.id, "w1_slave")
	go func() {
		data, err := fs.ReadFile(s.fsys, name)
		s.results <- w1Result{data: data, err: err}
	}()
	return nil
}

// Ready reports whether the last conversion has finished.
func (s *W1Sensor) Ready() bool {
	if s.ready != nil {
		return true
	}
	select {
	case r := <-s.results:
		s.inFlight = false
		s.ready = &r
		return true
	default:
		return false
	}
}

// ReadTemp parses the finished conversion.
func (s *W1Sensor) ReadTemp() (int8, error) {
	if !s.Ready() {
		return 0, ErrNotReady
	}
	r := s.ready
	s.ready = nil
	if r.err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrReadFailed, s.id, r.err)
	}
	milli, err := parseW1Slave(r.data)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrReadFailed, s.id, err)
	}
	return int8(milli / 1000), nil
}

// parseW1Slave extracts millidegrees from w1_slave output:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(data []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return 0, fmt.Errorf("short w1_slave output (%d lines)", len(lines))
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return 0, fmt.Errorf("crc check failed: %q", lines[0])
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, fmt.Errorf("no temperature field: %q", lines[1])
	}
	milli, err := strconv.Atoi(lines[1][i+2:])
	if err != nil {
		return 0, fmt.Errorf("parse temperature: %w", err)
	}
	if milli == ds18b20ResetMilli {
		return 0, fmt.Errorf("power-on reset value")
	}
	if milli < ds18b20MinMilli || milli > ds18b20MaxMilli {
		return 0, fmt.Errorf("temperature %d out of sensor range", milli)
	}
	return milli, nil
}

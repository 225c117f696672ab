package sensor

// Reading is one scripted conversion result.
type Reading struct {
	Temp int8
	Err  error
	// Delay is the number of Ready calls that report false before this
	// reading becomes available.
	Delay int
}

// FakeSensor is a test double that returns scripted readings. Each request
// arms the next reading; when readings are exhausted the last one repeats.
type FakeSensor struct {
	Readings []Reading

	// NeverReady, if set, makes Ready always report false.
	NeverReady bool

	// RequestError, if set, will be returned by RequestTemp.
	RequestError error

	// Requests counts RequestTemp calls.
	Requests int

	index   int
	armed   bool
	current Reading
	waited  int
}

// NewFakeSensor creates a FakeSensor with the given readings.
func NewFakeSensor(readings ...Reading) *FakeSensor {
	return &FakeSensor{Readings: readings}
}

// RequestTemp arms the next scripted reading.
func (f *FakeSensor) RequestTemp() error {
	f.Requests++
	if f.RequestError != nil {
		return f.RequestError
	}
	if f.armed {
		return nil
	}
	if len(f.Readings) == 0 {
		return nil
	}
	f.current = f.Readings[f.index]
	if f.index < len(f.Readings)-1 {
		f.index++
	}
	f.armed = true
	f.waited = 0
	return nil
}

// Ready reports whether the armed reading is available.
func (f *FakeSensor) Ready() bool {
	if f.NeverReady || !f.armed {
		return false
	}
	if f.waited < f.current.Delay {
		f.waited++
		return false
	}
	return true
}

// ReadTemp consumes the armed reading.
func (f *FakeSensor) ReadTemp() (int8, error) {
	if !f.Ready() {
		return 0, ErrNotReady
	}
	f.armed = false
	if f.current.Err != nil {
		return 0, f.current.Err
	}
	return f.current.Temp, nil
}

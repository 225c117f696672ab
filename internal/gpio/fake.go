package gpio

// FakeOutput is a test double that records every level written to it.
type FakeOutput struct {
	// Writes contains every level passed to Set, in order.
	Writes []bool

	// Level is the last level successfully written.
	Level bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by Set and the level is not changed.
	SetError error
}

// NewFakeOutput creates a FakeOutput at the inactive level.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the level.
func (f *FakeOutput) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, on)
	f.Level = on
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.Writes = nil
	f.Level = false
	f.Closed = false
	f.SetError = nil
}

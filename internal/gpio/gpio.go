// Package gpio provides relay and LED outputs with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single digital output line.
type Output interface {
	// Set drives the line to the logical level on (active) or off.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultPinCompressor = 23
	DefaultPinHeater     = 24
	DefaultPinLEDFridge  = 5
	DefaultPinLEDFreezer = 6
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Package gpio defines the GPIO driver contract used for mode-select pins.
package gpio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPin indicates the pin doesn't exist.
	ErrInvalidPin = errors.New("invalid pin")
	// ErrUnsupported indicates the driver can't perform the operation.
	ErrUnsupported = errors.New("unsupported by driver")
)

// Level is the logic level of a pin.
type Level bool

// Logic levels.
const (
	Low  Level = false
	High Level = true
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Int returns 0 or 1.
func (l Level) Int() int {
	if l {
		return 1
	}
	return 0
}

// ParseLevel parses "low"/"high"/"0"/"1".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "low", "0":
		return Low, nil
	case "high", "1":
		return High, nil
	}
	return Low, fmt.Errorf("unknown level %q", s)
}

// Direction is the direction of a pin.
type Direction int

// Directions.
const (
	Input Direction = iota
	Output
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Pin is a claimed GPIO line.
type Pin interface {
	// Number returns the pin number.
	Number() int
	// SetDirection configures the pin as input or output.
	SetDirection(Direction) error
	// SetLevel drives an output pin.
	SetLevel(Level) error
	// Level reads back the current level.
	Level() (Level, error)
}

// Driver claims pins for digital I/O.
type Driver interface {
	Select(pin int) (Pin, error)
}

package bridge

import "fmt"

// Startup stages.
const (
	StageGPIO      = "gpio"
	StageInstall   = "install"
	StageConfigure = "configure"
	StagePins      = "pins"
	StageTimeout   = "timeout"
)

// StartupError is a fatal failure while preparing ports or pins.
// The bridge never forwards after one.
type StartupError struct {
	Stage  string
	Target string
	Err    error
}

// Error implements error.
func (e *StartupError) Error() string {
	return fmt.Sprintf("startup %s %s: %v", e.Stage, e.Target, e.Err)
}

// Unwrap returns the underlying error.
func (e *StartupError) Unwrap() error {
	return e.Err
}

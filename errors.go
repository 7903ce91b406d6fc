package softsense

import "fmt"

// Error taxonomy shared by the bus engine, the device drivers and the
// polling façade. Everything here is recoverable: ErrBusy means "try again
// on the next tick", bus-level failures are retried or cleared with a reset.
var (
	// ErrInvalidParameter marks a malformed call: nil handle, missing
	// capability table, zero-length read, zero clock rate.
	ErrInvalidParameter = fmt.Errorf("invalid parameter")

	// ErrNack is returned when the addressed peer did not acknowledge a
	// transferred byte.
	ErrNack = fmt.Errorf("peer did not acknowledge (NACK)")

	// ErrBusBusy signals that a bus transaction is already in flight on
	// this handle.
	ErrBusBusy = fmt.Errorf("bus busy (transaction not completed)")

	// ErrBusy signals that a device operation is outstanding, e.g. a
	// measurement was triggered and has not completed yet.
	ErrBusy = fmt.Errorf("device busy")

	// ErrNotReady is returned by the data getters before the first
	// successful read of the current measurement cycle.
	ErrNotReady = fmt.Errorf("no measurement ready")

	// ErrNotCalibrated is reported when initialization finds the device's
	// calibration bit unset.
	ErrNotCalibrated = fmt.Errorf("device reports uncalibrated state")

	// ErrAlreadyRegistered is reported when a sensor handle is registered
	// twice; the registry is left unchanged.
	ErrAlreadyRegistered = fmt.Errorf("sensor already registered")
)

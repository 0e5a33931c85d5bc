package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a DSN is not in the registry.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrPropertyNotFound is returned when a property name is not known for a device.
	ErrPropertyNotFound = errors.New("device: property not found")

	// ErrAckTimeout is returned when a datapoint was created but the device
	// never acknowledged it.
	ErrAckTimeout = errors.New("device: datapoint not acknowledged")
)

// Package actuator holds the cooling element drivers.
package actuator

// Driver writes a logical duty to the cooling element and can be shut down.
type Driver interface {
	SetDuty(duty int) error
	Close() error
}

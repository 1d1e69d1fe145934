//go:build !linux

package gpio

import "errors"

type RealLine struct{}

func NewRealLine(chipName string, offset int, activeHigh bool) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (r *RealLine) Set(active bool) error {
	return errors.New("gpio: not supported")
}

func (r *RealLine) Close() error {
	return nil
}

//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type RealLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLine requests offset on chip as an output, initially inactive.
func NewRealLine(chipName string, offset int, activeHigh bool) (*RealLine, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("brewfridge")}
	if !activeHigh {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := chip.RequestLine(offset, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request enable line %d: %w", offset, err)
	}

	return &RealLine{chip: chip, line: line}, nil
}

func (r *RealLine) Set(active bool) error {
	v := 0
	if active {
		v = 1
	}
	if err := r.line.SetValue(v); err != nil {
		return fmt.Errorf("set enable line: %w", err)
	}
	return nil
}

// Close drives the line inactive and returns it to an input so the module
// stays off while the process is down.
func (r *RealLine) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("deactivate enable line: %w", err))
		}
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure enable line: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close enable line: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

package actuator

// Fake records duties instead of touching hardware.
type Fake struct {
	Duties []int
	Closed bool
	Err    error
}

func (f *Fake) SetDuty(duty int) error {
	if f.Err != nil {
		return f.Err
	}
	f.Duties = append(f.Duties, duty)
	return nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}

// Duty returns the last written duty, or 0 if nothing was written.
func (f *Fake) Duty() int {
	if len(f.Duties) == 0 {
		return 0
	}
	return f.Duties[len(f.Duties)-1]
}

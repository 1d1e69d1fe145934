package gpio

// FakeLine records every level written to it.
type FakeLine struct {
	States []bool
	Closed bool
	SetErr error
}

func (f *FakeLine) Set(active bool) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.States = append(f.States, active)
	return nil
}

func (f *FakeLine) Close() error {
	f.Closed = true
	return nil
}

// Active reports the last level written.
func (f *FakeLine) Active() bool {
	return len(f.States) > 0 && f.States[len(f.States)-1]
}

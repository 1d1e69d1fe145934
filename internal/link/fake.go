package link

// Fake is a link whose state tests set directly.
type Fake struct {
	Connected    bool
	ConnectErr   error
	ConnectCalls int
	SignalDBm    int
}

func (f *Fake) Connect() error {
	f.ConnectCalls++
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	return nil
}

func (f *Fake) IsConnected() bool {
	return f.Connected
}

func (f *Fake) Signal() int {
	if !f.Connected {
		return 0
	}
	return f.SignalDBm
}

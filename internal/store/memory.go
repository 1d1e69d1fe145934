package store

// Memory is an in-process KV used by tests and dry runs.
type Memory struct {
	Values map[string]string
	Writes int
	PutErr error
}

func NewMemory() *Memory {
	return &Memory{Values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool, error) {
	v, ok := m.Values[key]
	return v, ok, nil
}

func (m *Memory) Put(key, value string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Values[key] = value
	m.Writes++
	return nil
}

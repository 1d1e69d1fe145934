package model

import "math"

type CommandName string

const (
	CmdSetActuator CommandName = "set_peltier"
	CmdSetTarget   CommandName = "set_target"
	CmdRestart     CommandName = "restart"
)

// ErrorCode is the coded failure reason carried by a failed acknowledgment.
type ErrorCode string

const (
	ErrInvalidValue ErrorCode = "invalid_value"
	ErrNotReady     ErrorCode = "not_ready"
	ErrInvalidCmd   ErrorCode = "invalid_cmd"
)

// PersistedConfig is the subset of state that survives a reboot.
type PersistedConfig struct {
	HasTarget            bool
	Target               float64
	ActuatorEnabled      bool
	LastRestartCommandID string
}

// DefaultPersistedConfig is used when the store holds no values yet.
func DefaultPersistedConfig() PersistedConfig {
	return PersistedConfig{
		HasTarget:       false,
		Target:          0,
		ActuatorEnabled: true,
	}
}

// CanonicalState is the single authoritative view of sensor, target and
// actuator status. Only the scheduler tick mutates it.
type CanonicalState struct {
	Temperature float64 // NaN until the first accepted reading
	Humidity    float64

	HasTarget bool
	Target    float64

	ActuatorEnabled bool
	OutputPercent   int

	Timestamp int64 // unix seconds
	UptimeSec int64

	LinkConnected bool
	LinkSignal    int
	BusConnected  bool
}

func NewCanonicalState(pc PersistedConfig) *CanonicalState {
	return &CanonicalState{
		Temperature:     math.NaN(),
		Humidity:        math.NaN(),
		HasTarget:       pc.HasTarget,
		Target:          pc.Target,
		ActuatorEnabled: pc.ActuatorEnabled,
	}
}

func (s *CanonicalState) HasTemperature() bool {
	return isFinite(s.Temperature)
}

func (s *CanonicalState) HasHumidity() bool {
	return isFinite(s.Humidity)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

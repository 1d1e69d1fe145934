package controller

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

type MockActuator struct {
	duties []int
}

func (m *MockActuator) SetDuty(duty int) error {
	m.duties = append(m.duties, duty)
	return nil
}

func (m *MockActuator) last() int {
	if len(m.duties) == 0 {
		return -1
	}
	return m.duties[len(m.duties)-1]
}

func testParams() Params {
	return Params{
		IntegralMin: -50,
		IntegralMax: 200,
		Deadband:    0.2,
		Period:      time.Second,
		StartOffset: 0.3,
		StopOffset:  -0.1,
		AbsMaxDuty:  216,
	}
}

func testGains() Gains {
	return Gains{Kp: 30, Ki: 0.5, Kd: 10}
}

func newTestState(target float64) *model.CanonicalState {
	st := model.NewCanonicalState(model.PersistedConfig{
		HasTarget:       true,
		Target:          target,
		ActuatorEnabled: true,
	})
	st.Humidity = 60
	return st
}

func TestCoolingCycleScenario(t *testing.T) {
	act := &MockActuator{}
	c := New(testParams(), testGains(), act)
	st := newTestState(4.0)
	start := time.Unix(1700000000, 0)

	st.Temperature = 4.5
	c.Step(start, st)
	assert.Equal(t, CoolingActive, c.Mode())
	assert.Equal(t, 32, c.Duty())
	assert.Equal(t, 15, st.OutputPercent)

	st.Temperature = 6.0
	c.Step(start.Add(time.Second), st)
	assert.Equal(t, CoolingActive, c.Mode())
	assert.Equal(t, 164, c.Duty())
	assert.Equal(t, 76, st.OutputPercent)

	st.Temperature = 3.8
	c.Step(start.Add(2*time.Second), st)
	assert.Equal(t, CoolingIdle, c.Mode())
	assert.Equal(t, 0, c.Duty())
	assert.Equal(t, 0, act.last())
	assert.Equal(t, 0, st.OutputPercent)
	assert.Equal(t, 0.0, c.Snapshot().Integral)
}

func TestIdleBelowStartThresholdNoWrites(t *testing.T) {
	act := &MockActuator{}
	c := New(testParams(), testGains(), act)
	st := newTestState(4.0)
	start := time.Unix(1700000000, 0)

	for i, temp := range []float64{4.0, 4.2, 4.3} {
		st.Temperature = temp
		c.Step(start.Add(time.Duration(i)*time.Second), st)
	}

	assert.Equal(t, CoolingIdle, c.Mode())
	assert.Empty(t, act.duties, "idle controller should not touch the actuator")
}

func TestHysteresisHoldsInsideBand(t *testing.T) {
	c := New(testParams(), testGains(), &MockActuator{})
	st := newTestState(4.0)
	start := time.Unix(1700000000, 0)

	st.Temperature = 5.0
	c.Step(start, st)
	require.Equal(t, CoolingActive, c.Mode())

	// error -0.05 is below zero but above the stop offset
	st.Temperature = 3.95
	c.Step(start.Add(time.Second), st)
	assert.Equal(t, CoolingActive, c.Mode())

	st.Temperature = 3.89
	c.Step(start.Add(2*time.Second), st)
	assert.Equal(t, CoolingIdle, c.Mode())
}

func TestPeriodGating(t *testing.T) {
	act := &MockActuator{}
	c := New(testParams(), testGains(), act)
	st := newTestState(4.0)
	start := time.Unix(1700000000, 0)

	st.Temperature = 6.0
	c.Step(start, st)
	c.Step(start.Add(300*time.Millisecond), st)
	c.Step(start.Add(999*time.Millisecond), st)
	assert.Len(t, act.duties, 1)

	c.Step(start.Add(time.Second), st)
	assert.Len(t, act.duties, 2)
}

func TestDeadbandSuspendsIntegral(t *testing.T) {
	c := New(testParams(), testGains(), &MockActuator{})
	st := newTestState(4.0)
	start := time.Unix(1700000000, 0)

	st.Temperature = 5.0
	c.Step(start, st)
	before := c.Snapshot().Integral
	assert.InDelta(t, 1.0, before, 1e-9)

	st.Temperature = 4.15
	c.Step(start.Add(time.Second), st)
	assert.InDelta(t, before, c.Snapshot().Integral, 1e-9)
}

func TestIntegralClamped(t *testing.T) {
	c := New(testParams(), testGains(), &MockActuator{})
	st := newTestState(2.0)
	start := time.Unix(1700000000, 0)

	st.Temperature = 30.0
	for i := 0; i < 20; i++ {
		c.Step(start.Add(time.Duration(i)*time.Second), st)
	}

	snap := c.Snapshot()
	assert.Equal(t, 200.0, snap.Integral)
	assert.Equal(t, 100.0, snap.OutputPercent)
	assert.Equal(t, 216, snap.Duty)
}

func TestDerivativeSuppressedAfterReset(t *testing.T) {
	gains := Gains{Kp: 0, Ki: 0, Kd: 10}
	c := New(testParams(), gains, &MockActuator{})
	st := newTestState(4.0)
	start := time.Unix(1700000000, 0)

	st.Temperature = 5.0
	c.Step(start, st)
	assert.Equal(t, 0.0, c.Snapshot().OutputPercent, "first sample has no derivative")

	st.Temperature = 6.0
	c.Step(start.Add(time.Second), st)
	assert.InDelta(t, 10.0, c.Snapshot().OutputPercent, 1e-9)

	c.SetGains(gains)
	st.Temperature = 7.0
	c.Step(start.Add(2*time.Second), st)
	assert.Equal(t, 0.0, c.Snapshot().OutputPercent, "gain change suppresses the next derivative")
}

func TestPreconditionsForceOff(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(st *model.CanonicalState)
	}{
		{"actuator disabled", func(st *model.CanonicalState) { st.ActuatorEnabled = false }},
		{"target cleared", func(st *model.CanonicalState) { st.HasTarget = false }},
		{"temperature lost", func(st *model.CanonicalState) { st.Temperature = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := &MockActuator{}
			c := New(testParams(), testGains(), act)
			st := newTestState(4.0)
			start := time.Unix(1700000000, 0)

			st.Temperature = 8.0
			c.Step(start, st)
			require.Equal(t, CoolingActive, c.Mode())
			require.Greater(t, c.Duty(), 0)

			tt.mutate(st)
			c.Step(start.Add(100*time.Millisecond), st)

			assert.Equal(t, CoolingIdle, c.Mode())
			assert.Equal(t, 0, c.Duty())
			assert.Equal(t, 0, act.last())
			assert.Equal(t, 0, st.OutputPercent)

			// idempotent once off
			writes := len(act.duties)
			c.Step(start.Add(200*time.Millisecond), st)
			assert.Len(t, act.duties, writes)
		})
	}
}

func TestSetGainsResetsIntegral(t *testing.T) {
	c := New(testParams(), testGains(), &MockActuator{})
	st := newTestState(4.0)
	st.Temperature = 8.0
	c.Step(time.Unix(1700000000, 0), st)
	require.NotZero(t, c.Snapshot().Integral)

	c.SetGains(Gains{Kp: 10, Ki: 1, Kd: 0})
	assert.Equal(t, Gains{Kp: 10, Ki: 1, Kd: 0}, c.Gains())
	assert.Zero(t, c.Snapshot().Integral)
	assert.Equal(t, CoolingActive, c.Mode(), "gain change keeps cooling state")
}

func TestBoundsHoldUnderRandomWalk(t *testing.T) {
	c := New(testParams(), testGains(), &MockActuator{})
	st := newTestState(4.0)
	rng := rand.New(rand.NewSource(42))
	start := time.Unix(1700000000, 0)

	temp := 4.0
	for i := 0; i < 2000; i++ {
		temp += rng.Float64()*2 - 1
		if temp < -10 {
			temp = -10
		}
		if temp > 40 {
			temp = 40
		}
		st.Temperature = temp
		c.Step(start.Add(time.Duration(i)*time.Second), st)

		snap := c.Snapshot()
		require.GreaterOrEqual(t, snap.Integral, -50.0)
		require.LessOrEqual(t, snap.Integral, 200.0)
		require.GreaterOrEqual(t, snap.Duty, 0)
		require.LessOrEqual(t, snap.Duty, 216)
		if snap.Cooling {
			require.True(t, st.ActuatorEnabled && st.HasTarget)
		}
	}
}

package controller

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

// Actuator drives the cooling element. Duty is in logical units 0..AbsMaxDuty.
type Actuator interface {
	SetDuty(duty int) error
}

type Mode string

const (
	CoolingIdle   Mode = "idle"
	CoolingActive Mode = "active"
)

type Gains struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
}

type Params struct {
	IntegralMin float64
	IntegralMax float64
	Deadband    float64
	Period      time.Duration
	StartOffset float64
	StopOffset  float64
	AbsMaxDuty  int
}

// Internals is a read-only view of the controller for status queries.
type Internals struct {
	Gains
	Integral      float64
	OutputPercent float64
	Duty          int
	Cooling       bool
}

type Controller struct {
	params   Params
	gains    Gains
	actuator Actuator

	integral  float64
	prevError float64
	firstRun  bool
	mode      Mode

	lastCompute time.Time
	computed    bool

	outputPct float64
	duty      int
}

func New(params Params, gains Gains, actuator Actuator) *Controller {
	return &Controller{
		params:   params,
		gains:    gains,
		actuator: actuator,
		firstRun: true,
		mode:     CoolingIdle,
	}
}

// Enforce checks the control preconditions and forces the controller off
// when any fails. It is a no-op once off, and reports whether control may run.
func (c *Controller) Enforce(st *model.CanonicalState) bool {
	if st.ActuatorEnabled && st.HasTarget && st.HasTemperature() {
		return true
	}
	if c.mode == CoolingActive || c.duty != 0 {
		log.Info().
			Bool("enabled", st.ActuatorEnabled).
			Bool("has_target", st.HasTarget).
			Bool("has_temp", st.HasTemperature()).
			Msg("Cooling off, preconditions not met")
		c.Off(st)
	}
	return false
}

// Step runs one control evaluation. Preconditions are checked on every call;
// the PID computation itself only runs once per period.
func (c *Controller) Step(now time.Time, st *model.CanonicalState) {
	if !c.Enforce(st) {
		return
	}

	if c.computed && now.Sub(c.lastCompute) < c.params.Period {
		return
	}
	c.computed = true
	c.lastCompute = now

	err := st.Temperature - st.Target

	switch c.mode {
	case CoolingIdle:
		if err <= c.params.StartOffset {
			if c.duty != 0 {
				c.Off(st)
			}
			return
		}
		c.mode = CoolingActive
		c.ResetIntegral()
		log.Info().
			Float64("temp", st.Temperature).
			Float64("target", st.Target).
			Float64("error", err).
			Msg("Cooling start")
	case CoolingActive:
		if err < c.params.StopOffset {
			log.Info().
				Float64("temp", st.Temperature).
				Float64("target", st.Target).
				Float64("error", err).
				Msg("Cooling stop")
			c.Off(st)
			return
		}
	}

	c.compute(err, st)
}

func (c *Controller) compute(err float64, st *model.CanonicalState) {
	dt := c.params.Period.Seconds()

	p := c.gains.Kp * err

	if math.Abs(err) > c.params.Deadband {
		c.integral += err * dt
	}
	c.integral = clamp(c.integral, c.params.IntegralMin, c.params.IntegralMax)
	i := c.gains.Ki * c.integral

	d := 0.0
	if !c.firstRun {
		d = c.gains.Kd * (err - c.prevError) / dt
	}
	c.prevError = err
	c.firstRun = false

	output := clamp(p+i+d, 0, 100)
	duty := int(output / 100 * float64(c.params.AbsMaxDuty))
	if duty > c.params.AbsMaxDuty {
		duty = c.params.AbsMaxDuty
	}
	if duty < 0 {
		duty = 0
	}

	c.outputPct = output
	c.duty = duty
	st.OutputPercent = int(output + 0.5)
	c.write(duty)

	log.Debug().
		Float64("temp", st.Temperature).
		Float64("target", st.Target).
		Float64("error", err).
		Float64("p", p).
		Float64("i", i).
		Float64("integral", c.integral).
		Float64("d", d).
		Float64("output_pct", output).
		Int("duty", duty).
		Msg("PID computed")
}

// Off forces the actuator to zero and fully resets controller state.
func (c *Controller) Off(st *model.CanonicalState) {
	c.write(0)
	c.duty = 0
	c.outputPct = 0
	c.integral = 0
	c.prevError = 0
	c.firstRun = true
	c.mode = CoolingIdle
	if st != nil {
		st.OutputPercent = 0
	}
}

// ResetIntegral discards accumulated history without touching the
// cooling state or the current output.
func (c *Controller) ResetIntegral() {
	c.integral = 0
	c.firstRun = true
}

// SetGains replaces the tuning and resets the integral.
func (c *Controller) SetGains(g Gains) {
	c.gains = g
	c.ResetIntegral()
	log.Info().
		Float64("kp", g.Kp).
		Float64("ki", g.Ki).
		Float64("kd", g.Kd).
		Msg("PID gains updated")
}

func (c *Controller) Gains() Gains {
	return c.gains
}

func (c *Controller) Mode() Mode {
	return c.mode
}

func (c *Controller) Duty() int {
	return c.duty
}

func (c *Controller) Snapshot() Internals {
	return Internals{
		Gains:         c.gains,
		Integral:      c.integral,
		OutputPercent: c.outputPct,
		Duty:          c.duty,
		Cooling:       c.mode == CoolingActive,
	}
}

func (c *Controller) write(duty int) {
	if c.actuator == nil {
		return
	}
	if err := c.actuator.SetDuty(duty); err != nil {
		log.Error().Err(err).Int("duty", duty).Msg("Failed to write actuator duty")
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package status

import (
	"math"
	"time"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

// Policy decides when a status broadcast is due: on the report interval,
// on a rapid temperature change, on the first available temperature, or
// when forced after a reconnect.
type Policy struct {
	interval   time.Duration
	rapidDelta float64

	published   bool
	lastPublish time.Time
	lastTemp    float64
	forced      bool
}

func NewPolicy(interval time.Duration, rapidDelta float64) *Policy {
	return &Policy{
		interval:   interval,
		rapidDelta: rapidDelta,
		lastTemp:   math.NaN(),
	}
}

func (p *Policy) ShouldPublish(now time.Time, st *model.CanonicalState) bool {
	if p.forced || !p.published {
		return true
	}
	if now.Sub(p.lastPublish) >= p.interval {
		return true
	}
	if !st.HasTemperature() {
		return false
	}
	if math.IsNaN(p.lastTemp) {
		return true
	}
	return math.Abs(st.Temperature-p.lastTemp) > p.rapidDelta
}

// MarkPublished records a successful broadcast.
func (p *Policy) MarkPublished(now time.Time, st *model.CanonicalState) {
	p.published = true
	p.lastPublish = now
	p.forced = false
	if st.HasTemperature() {
		p.lastTemp = st.Temperature
	}
}

// Force makes the next evaluation publish regardless of the interval.
func (p *Policy) Force() {
	p.forced = true
}

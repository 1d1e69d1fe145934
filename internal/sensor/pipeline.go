package sensor

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

// Reader performs one raw temperature/humidity read. A failed read may
// return an error or NaN values; both are rejected by the pipeline.
type Reader interface {
	Read() (temp, humidity float64, err error)
}

// Notifier delivers operator alerts without blocking the caller.
type Notifier interface {
	SendAsync(title, message string)
}

type Limits struct {
	TempMin       float64
	TempMax       float64
	HumidityMin   float64
	HumidityMax   float64
	TempMaxDelta  float64
	HumidityDelta float64
}

type Rejection string

const (
	Accepted    Rejection = ""
	RejectNaN   Rejection = "nan"
	RejectRange Rejection = "out_of_range"
	RejectSpike Rejection = "spike"
)

// Result describes a single poll of the pipeline.
type Result struct {
	Attempted   bool
	Rejection   Rejection
	Temperature float64
	Humidity    float64
}

func (r Result) Accepted() bool {
	return r.Attempted && r.Rejection == Accepted
}

type Pipeline struct {
	reader   Reader
	limits   Limits
	interval time.Duration

	lastRead  time.Time
	attempted bool

	faultStreak int
	alertAfter  int
	alerted     bool
	notifier    Notifier
}

func NewPipeline(reader Reader, limits Limits, interval time.Duration, alertAfter int, notifier Notifier) *Pipeline {
	return &Pipeline{
		reader:     reader,
		limits:     limits,
		interval:   interval,
		alertAfter: alertAfter,
		notifier:   notifier,
	}
}

// Validate runs the three rejection stages against the current canonical
// reading. The first accepted reading skips the spike check.
func Validate(temp, humidity float64, current *model.CanonicalState, l Limits) Rejection {
	if math.IsNaN(temp) || math.IsNaN(humidity) {
		return RejectNaN
	}

	if temp < l.TempMin || temp > l.TempMax || humidity < l.HumidityMin || humidity > l.HumidityMax {
		return RejectRange
	}

	if current.HasTemperature() && current.HasHumidity() {
		dT := math.Abs(temp - current.Temperature)
		dH := math.Abs(humidity - current.Humidity)
		if dT > l.TempMaxDelta || dH > l.HumidityDelta {
			return RejectSpike
		}
	}

	return Accepted
}

// Poll reads the sensor if the hardware interval has elapsed and, when the
// sample survives validation, overwrites the canonical temperature and
// humidity. This is the only write path for those fields.
func (p *Pipeline) Poll(now time.Time, st *model.CanonicalState) Result {
	if p.attempted && now.Sub(p.lastRead) < p.interval {
		return Result{}
	}
	p.attempted = true
	p.lastRead = now

	temp, humidity, err := p.reader.Read()
	if err != nil {
		log.Debug().Err(err).Msg("Sensor read failed")
		temp, humidity = math.NaN(), math.NaN()
	}

	res := Result{
		Attempted:   true,
		Rejection:   Validate(temp, humidity, st, p.limits),
		Temperature: temp,
		Humidity:    humidity,
	}

	if res.Rejection != Accepted {
		log.Warn().
			Str("reason", string(res.Rejection)).
			Float64("temp", temp).
			Float64("humidity", humidity).
			Msg("Sensor sample rejected")
		p.recordFault()
		return res
	}

	st.Temperature = temp
	st.Humidity = humidity
	p.recordRecovery(temp, humidity)

	log.Debug().
		Float64("temp", temp).
		Float64("humidity", humidity).
		Msg("Sensor sample accepted")

	return res
}

func (p *Pipeline) recordFault() {
	p.faultStreak++
	if p.alertAfter <= 0 || p.alerted || p.faultStreak < p.alertAfter {
		return
	}
	p.alerted = true
	log.Error().Int("consecutive_rejects", p.faultStreak).Msg("Sensor failing validation repeatedly")
	if p.notifier != nil {
		p.notifier.SendAsync("Fridge sensor fault",
			fmt.Sprintf("%d consecutive sensor samples rejected", p.faultStreak))
	}
}

func (p *Pipeline) recordRecovery(temp, humidity float64) {
	if p.alerted {
		log.Info().Int("rejected", p.faultStreak).Msg("Sensor recovered")
		if p.notifier != nil {
			p.notifier.SendAsync("Fridge sensor recovered",
				fmt.Sprintf("Sensor back online at %.1f°C / %.1f%%", temp, humidity))
		}
	}
	p.faultStreak = 0
	p.alerted = false
}

// FaultStreak is the number of consecutive rejected samples.
func (p *Pipeline) FaultStreak() int {
	return p.faultStreak
}

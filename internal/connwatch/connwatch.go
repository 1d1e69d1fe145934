// Package connwatch supervises an external connection from the scheduler
// tick. It never sleeps: each Supervise call either returns immediately or
// makes one bounded connect attempt.
package connwatch

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Dialer is a connection that can be (re)established on demand.
// Connect must return within a bounded timeout.
type Dialer interface {
	Connect() error
	IsConnected() bool
}

type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Status is the supervisor state, suitable for status queries.
type Status struct {
	Name      string        `json:"name"`
	Connected bool          `json:"connected"`
	Failures  int           `json:"failures"`
	NextRetry time.Duration `json:"next_retry"`
}

type Supervisor struct {
	name    string
	dialer  Dialer
	backoff Backoff

	// gate, when set, must report true before an attempt is made.
	gate func() bool
	// onConnect runs after every successful connect.
	onConnect func()

	failures    int
	attempted   bool
	lastAttempt time.Time
	connected   bool
}

func New(name string, dialer Dialer, backoff Backoff) *Supervisor {
	return &Supervisor{
		name:    name,
		dialer:  dialer,
		backoff: backoff,
	}
}

func (s *Supervisor) WithGate(gate func() bool) *Supervisor {
	s.gate = gate
	return s
}

func (s *Supervisor) OnConnect(fn func()) *Supervisor {
	s.onConnect = fn
	return s
}

// Supervise reports whether the connection is up after at most one attempt.
func (s *Supervisor) Supervise(now time.Time) bool {
	if s.dialer.IsConnected() {
		s.connected = true
		return true
	}

	if s.connected {
		s.connected = false
		log.Warn().Str("conn", s.name).Msg("Connection lost")
	}

	if s.gate != nil && !s.gate() {
		return false
	}

	if s.attempted && now.Sub(s.lastAttempt) < s.Delay() {
		return false
	}
	s.attempted = true
	s.lastAttempt = now

	if err := s.dialer.Connect(); err != nil {
		s.failures++
		log.Warn().
			Err(err).
			Str("conn", s.name).
			Int("failures", s.failures).
			Dur("next_retry", s.Delay()).
			Msg("Connect failed")
		return false
	}

	log.Info().
		Str("conn", s.name).
		Int("after_failures", s.failures).
		Msg("Connected")
	s.failures = 0
	s.connected = true

	if s.onConnect != nil {
		s.onConnect()
	}
	return true
}

// Delay is the minimum wait after the last attempt before the next one.
// It is zero until the first failure, then grows from Initial up to Max.
func (s *Supervisor) Delay() time.Duration {
	if s.failures == 0 {
		return 0
	}

	delay := s.backoff.Initial
	for i := 1; i < s.failures; i++ {
		delay = time.Duration(float64(delay) * s.backoff.Multiplier)
		if delay >= s.backoff.Max {
			return s.backoff.Max
		}
	}
	if delay > s.backoff.Max {
		delay = s.backoff.Max
	}
	return delay
}

func (s *Supervisor) Failures() int {
	return s.failures
}

func (s *Supervisor) Status() Status {
	return Status{
		Name:      s.name,
		Connected: s.connected,
		Failures:  s.failures,
		NextRetry: s.Delay(),
	}
}

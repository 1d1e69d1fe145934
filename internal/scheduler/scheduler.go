// Package scheduler owns the controller's state and drives every component
// from a single cooperative tick.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/actuator"
	"github.com/thatsimonsguy/brewfridge/internal/command"
	"github.com/thatsimonsguy/brewfridge/internal/connwatch"
	"github.com/thatsimonsguy/brewfridge/internal/controller"
	"github.com/thatsimonsguy/brewfridge/internal/link"
	"github.com/thatsimonsguy/brewfridge/internal/model"
	"github.com/thatsimonsguy/brewfridge/internal/mqtt"
	"github.com/thatsimonsguy/brewfridge/internal/sensor"
	"github.com/thatsimonsguy/brewfridge/internal/status"
)

type Metrics interface {
	Gauge(name string, value float64, tags ...string)
}

type Restarter interface {
	Restart()
}

type Topics struct {
	Status  string
	Command string
	Ack     string
}

type Deps struct {
	Link       link.Link
	Bus        mqtt.Bus
	Sensor     *sensor.Pipeline
	Controller *controller.Controller
	Actuator   actuator.Driver
	Processor  *command.Processor
	Metrics    Metrics
	Restarter  Restarter
}

type Options struct {
	Topics         Topics
	Backoff        connwatch.Backoff
	ReportInterval time.Duration
	RapidDelta     float64
	QueueSize      int
}

// query is a read or tuning request from another goroutine, run inside the
// tick so state keeps a single mutator.
type query struct {
	fn   func()
	done chan struct{}
}

type Scheduler struct {
	st     *model.CanonicalState
	deps   Deps
	topics Topics

	linkSup *connwatch.Supervisor
	busSup  *connwatch.Supervisor
	policy  *status.Policy

	queries chan query

	bootAt     time.Time
	now        time.Time
	restarting bool
}

// New takes ownership of st and forces the actuator off before the first tick.
func New(st *model.CanonicalState, deps Deps, opts Options, bootAt time.Time) *Scheduler {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}

	s := &Scheduler{
		st:      st,
		deps:    deps,
		topics:  opts.Topics,
		policy:  status.NewPolicy(opts.ReportInterval, opts.RapidDelta),
		queries: make(chan query, opts.QueueSize),
		bootAt:  bootAt,
		now:     bootAt,
	}

	s.linkSup = connwatch.New("link", deps.Link, opts.Backoff)
	s.busSup = connwatch.New("mqtt", deps.Bus, opts.Backoff).
		WithGate(func() bool { return s.st.LinkConnected }).
		OnConnect(s.onBusConnect)

	deps.Controller.Off(st)
	return s
}

// Run ticks at interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Scheduler started")
	s.Tick(time.Now())

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick runs one pass in fixed order: connection supervision, inbound
// commands, the sampling work when a sample is due, then queued queries.
func (s *Scheduler) Tick(now time.Time) {
	s.now = now
	s.updateClock(now)

	s.st.LinkConnected = s.linkSup.Supervise(now)
	s.st.BusConnected = s.busSup.Supervise(now)

	for _, msg := range s.deps.Bus.Drain() {
		if msg.Topic != s.topics.Command {
			continue
		}
		s.handleCommand(msg.Payload, now)
	}

	s.deps.Controller.Enforce(s.st)
	s.sample(now)

	s.serveQueries()
}

func (s *Scheduler) sample(now time.Time) {
	res := s.deps.Sensor.Poll(now, s.st)
	if !res.Attempted {
		return
	}

	s.st.LinkSignal = s.deps.Link.Signal()

	if res.Accepted() && !s.restarting {
		s.deps.Controller.Step(now, s.st)
	}

	s.emitMetrics()

	if s.st.BusConnected && s.policy.ShouldPublish(now, s.st) {
		s.publishStatus(now)
	}
}

func (s *Scheduler) updateClock(now time.Time) {
	s.st.UptimeSec = int64(now.Sub(s.bootAt) / time.Second)
	// before NTP sync the wall clock is meaningless
	if now.Year() >= 2020 {
		s.st.Timestamp = now.Unix()
	} else {
		s.st.Timestamp = 0
	}
}

func (s *Scheduler) handleCommand(payload []byte, now time.Time) {
	out := s.deps.Processor.Handle(payload, now, s.st)

	if out.Ack != nil {
		data, err := out.Ack.Encode()
		if err != nil {
			log.Error().Err(err).Str("id", out.Ack.ID).Msg("Failed to encode ack")
		} else if err := s.deps.Bus.Publish(s.topics.Ack, mqtt.QoSAck, false, data); err != nil {
			log.Warn().Err(err).Str("id", out.Ack.ID).Msg("Failed to publish ack")
		}
	}

	if out.Restart {
		s.restarting = true
		log.Warn().Msg("Restart requested, actuator held off")
		s.deps.Restarter.Restart()
	}
}

func (s *Scheduler) onBusConnect() {
	if err := s.deps.Bus.Subscribe(s.topics.Command, mqtt.QoSCommand); err != nil {
		log.Warn().Err(err).Str("topic", s.topics.Command).Msg("Failed to subscribe")
	}
	s.st.BusConnected = true
	s.policy.Force()
	s.publishStatus(s.now)
}

func (s *Scheduler) publishStatus(now time.Time) {
	data, err := encode(status.Build(s.st))
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode status")
		return
	}
	if err := s.deps.Bus.Publish(s.topics.Status, mqtt.QoSStatus, false, data); err != nil {
		log.Warn().Err(err).Msg("Failed to publish status")
		return
	}
	s.policy.MarkPublished(now, s.st)
	log.Debug().RawJSON("status", data).Msg("Status published")
}

func (s *Scheduler) emitMetrics() {
	m := s.deps.Metrics
	if m == nil {
		return
	}

	if s.st.HasTemperature() {
		m.Gauge("fridge.temperature", s.st.Temperature)
	}
	if s.st.HasHumidity() {
		m.Gauge("fridge.humidity", s.st.Humidity)
	}

	snap := s.deps.Controller.Snapshot()
	m.Gauge("fridge.output_pct", float64(s.st.OutputPercent))
	m.Gauge("fridge.duty", float64(snap.Duty))
	m.Gauge("fridge.integral", snap.Integral)
	m.Gauge("fridge.mqtt_connected", boolGauge(s.st.BusConnected))
	m.Gauge("fridge.link_connected", boolGauge(s.st.LinkConnected))
}

// Shutdown forces the actuator off, announces the offline sentinel and
// closes the bus. Call it after Run has returned.
func (s *Scheduler) Shutdown() {
	s.deps.Controller.Off(s.st)
	if err := s.deps.Actuator.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close actuator")
	}

	if s.deps.Bus.IsConnected() {
		if err := s.deps.Bus.Publish(s.topics.Status, mqtt.QoSStatus, true, status.Sentinel()); err != nil {
			log.Warn().Err(err).Msg("Failed to publish offline status")
		}
	}
	if err := s.deps.Bus.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close bus")
	}
	log.Info().Msg("Scheduler shut down")
}

// State exposes the canonical state to tests and the tick's own goroutine.
func (s *Scheduler) State() *model.CanonicalState {
	return s.st
}

func (s *Scheduler) Restarting() bool {
	return s.restarting
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

package scheduler

import (
	"context"
	"encoding/json"

	"github.com/thatsimonsguy/brewfridge/internal/api"
	"github.com/thatsimonsguy/brewfridge/internal/controller"
	"github.com/thatsimonsguy/brewfridge/internal/status"
)

func encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s *Scheduler) serveQueries() {
	for {
		select {
		case q := <-s.queries:
			q.fn()
			close(q.done)
		default:
			return
		}
	}
}

// do queues fn for the next tick and waits for it to run.
func (s *Scheduler) do(ctx context.Context, fn func()) error {
	q := query{fn: fn, done: make(chan struct{})}

	select {
	case s.queries <- q:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Status(ctx context.Context) (status.Extended, error) {
	var out status.Extended
	err := s.do(ctx, func() {
		out = status.BuildExtended(s.st, s.deps.Controller.Snapshot())
	})
	return out, err
}

func (s *Scheduler) Health(ctx context.Context) (api.Health, error) {
	var out api.Health
	err := s.do(ctx, func() {
		out = api.Health{
			OK:     s.st.HasTemperature() && s.st.HasHumidity(),
			Uptime: s.st.UptimeSec,
		}
	})
	return out, err
}

func (s *Scheduler) Gains(ctx context.Context) (controller.Gains, error) {
	var out controller.Gains
	err := s.do(ctx, func() {
		out = s.deps.Controller.Gains()
	})
	return out, err
}

func (s *Scheduler) SetGains(ctx context.Context, u api.GainsUpdate) (controller.Gains, error) {
	var out controller.Gains
	err := s.do(ctx, func() {
		g := s.deps.Controller.Gains()
		if u.Kp != nil {
			g.Kp = *u.Kp
		}
		if u.Ki != nil {
			g.Ki = *u.Ki
		}
		if u.Kd != nil {
			g.Kd = *u.Kd
		}
		s.deps.Controller.SetGains(g)
		out = g
	})
	return out, err
}

var _ api.Querier = (*Scheduler)(nil)

package shutdown

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Restarter ends the run loop a short while after a restart is requested so
// the acknowledgment can leave the broker client first. The service manager
// brings the process back up.
type Restarter struct {
	delay  time.Duration
	cancel context.CancelFunc

	once      sync.Once
	requested atomic.Bool
}

func NewRestarter(delay time.Duration, cancel context.CancelFunc) *Restarter {
	return &Restarter{delay: delay, cancel: cancel}
}

// Restart is idempotent. Only the first call schedules the stop.
func (r *Restarter) Restart() {
	r.once.Do(func() {
		r.requested.Store(true)
		log.Warn().Dur("delay", r.delay).Msg("Restart scheduled")
		time.AfterFunc(r.delay, r.cancel)
	})
}

func (r *Restarter) Requested() bool {
	return r.requested.Load()
}

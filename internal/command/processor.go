package command

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

// Store persists the state-changing side of each command.
type Store interface {
	SaveTarget(hasTarget bool, target float64) error
	SaveActuatorEnabled(enabled bool) error
	SaveRestartID(id string) error
}

// Controller is the part of the control loop commands are allowed to reset.
type Controller interface {
	Off(st *model.CanonicalState)
	ResetIntegral()
}

type Limits struct {
	TargetMin float64
	TargetMax float64
}

// Outcome is the result of one inbound message. Ack is nil when nothing must
// be sent: malformed payloads and duplicate restarts.
type Outcome struct {
	Ack     *Ack
	Restart bool
}

type Processor struct {
	store         Store
	ctrl          Controller
	limits        Limits
	lastRestartID string
}

func NewProcessor(store Store, ctrl Controller, limits Limits, lastRestartID string) *Processor {
	return &Processor{
		store:         store,
		ctrl:          ctrl,
		limits:        limits,
		lastRestartID: lastRestartID,
	}
}

func (p *Processor) Handle(payload []byte, now time.Time, st *model.CanonicalState) Outcome {
	cmd, err := Parse(payload)
	if err != nil {
		if errors.Is(err, ErrMalformed) {
			log.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping command")
		}
		return Outcome{}
	}

	out := p.dispatch(cmd, now.Unix(), st)
	switch {
	case out.Ack == nil:
	case out.Ack.Success:
		log.Info().Str("id", cmd.ID).Str("cmd", string(cmd.Name)).Msg("Command applied")
	default:
		log.Warn().
			Str("id", cmd.ID).
			Str("cmd", string(cmd.Name)).
			Str("error", string(*out.Ack.Error)).
			Msg("Command rejected")
	}
	return out
}

func (p *Processor) dispatch(cmd Command, ts int64, st *model.CanonicalState) Outcome {
	if cmd.Name == model.CmdSetActuator {
		return p.setActuator(cmd, ts, st)
	}

	if !st.ActuatorEnabled {
		return Outcome{Ack: failAck(cmd, ts, model.ErrNotReady)}
	}

	switch cmd.Name {
	case model.CmdSetTarget:
		return p.setTarget(cmd, ts, st)
	case model.CmdRestart:
		return p.restart(cmd, ts, st)
	default:
		return Outcome{Ack: failAck(cmd, ts, model.ErrInvalidCmd)}
	}
}

func (p *Processor) setActuator(cmd Command, ts int64, st *model.CanonicalState) Outcome {
	switch cmd.Value.Kind {
	case ValueBool:
	case ValueAbsent, ValueNull, ValueNumber, ValueOther:
		return Outcome{Ack: failAck(cmd, ts, model.ErrInvalidValue)}
	}

	enabled := cmd.Value.Bool
	st.ActuatorEnabled = enabled
	if err := p.store.SaveActuatorEnabled(enabled); err != nil {
		log.Error().Err(err).Msg("Failed to persist actuator enable")
	}
	if !enabled {
		p.ctrl.Off(st)
	}

	return Outcome{Ack: okAck(cmd, ts, boolValue(enabled))}
}

func (p *Processor) setTarget(cmd Command, ts int64, st *model.CanonicalState) Outcome {
	switch cmd.Value.Kind {
	case ValueNull:
		st.HasTarget = false
		st.Target = 0
		p.ctrl.Off(st)
		if err := p.store.SaveTarget(false, 0); err != nil {
			log.Error().Err(err).Msg("Failed to persist cleared target")
		}
		return Outcome{Ack: okAck(cmd, ts, nullValue)}
	case ValueNumber:
	case ValueAbsent, ValueBool, ValueOther:
		return Outcome{Ack: failAck(cmd, ts, model.ErrInvalidValue)}
	}

	v := cmd.Value.Number
	if v < p.limits.TargetMin || v > p.limits.TargetMax {
		return Outcome{Ack: failAck(cmd, ts, model.ErrInvalidValue)}
	}

	st.HasTarget = true
	st.Target = v
	if err := p.store.SaveTarget(true, v); err != nil {
		log.Error().Err(err).Msg("Failed to persist target")
	}
	p.ctrl.ResetIntegral()

	return Outcome{Ack: okAck(cmd, ts, numberValue(v))}
}

func (p *Processor) restart(cmd Command, ts int64, st *model.CanonicalState) Outcome {
	if p.lastRestartID != "" && cmd.ID == p.lastRestartID {
		log.Info().Str("id", cmd.ID).Msg("Ignoring duplicate restart")
		return Outcome{}
	}

	p.lastRestartID = cmd.ID
	if err := p.store.SaveRestartID(cmd.ID); err != nil {
		log.Error().Err(err).Msg("Failed to persist restart id")
	}
	p.ctrl.Off(st)

	return Outcome{Ack: okAck(cmd, ts, nil), Restart: true}
}

func (p *Processor) LastRestartID() string {
	return p.lastRestartID
}

package store

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/model"
)

const (
	KeyHasTarget       = "hasTarget"
	KeyTarget          = "target"
	KeyActuatorEnabled = "actuatorEnabled"
	KeyRestartID       = "lastProcessedRestartCommandId"
)

// KV is a durable, synchronous key/value store.
type KV interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

// Store maps PersistedConfig onto a KV. Writes happen only on
// state-changing commands.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func (s *Store) Load() (model.PersistedConfig, error) {
	pc := model.DefaultPersistedConfig()

	if v, ok, err := s.kv.Get(KeyHasTarget); err != nil {
		return pc, err
	} else if ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return pc, fmt.Errorf("parse %s: %w", KeyHasTarget, err)
		}
		pc.HasTarget = b
	}

	if v, ok, err := s.kv.Get(KeyTarget); err != nil {
		return pc, err
	} else if ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return pc, fmt.Errorf("parse %s: %w", KeyTarget, err)
		}
		pc.Target = f
	}

	if v, ok, err := s.kv.Get(KeyActuatorEnabled); err != nil {
		return pc, err
	} else if ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return pc, fmt.Errorf("parse %s: %w", KeyActuatorEnabled, err)
		}
		pc.ActuatorEnabled = b
	}

	if v, ok, err := s.kv.Get(KeyRestartID); err != nil {
		return pc, err
	} else if ok {
		pc.LastRestartCommandID = v
	}

	return pc, nil
}

func (s *Store) SaveTarget(hasTarget bool, target float64) error {
	if err := s.kv.Put(KeyHasTarget, strconv.FormatBool(hasTarget)); err != nil {
		return err
	}
	if err := s.kv.Put(KeyTarget, strconv.FormatFloat(target, 'f', -1, 64)); err != nil {
		return err
	}
	log.Debug().Bool("has_target", hasTarget).Float64("target", target).Msg("Persisted target")
	return nil
}

func (s *Store) SaveActuatorEnabled(enabled bool) error {
	if err := s.kv.Put(KeyActuatorEnabled, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	log.Debug().Bool("actuator_enabled", enabled).Msg("Persisted actuator enable")
	return nil
}

func (s *Store) SaveRestartID(id string) error {
	if err := s.kv.Put(KeyRestartID, id); err != nil {
		return err
	}
	log.Debug().Str("restart_id", id).Msg("Persisted restart command id")
	return nil
}

package actuator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/config"
	"github.com/thatsimonsguy/brewfridge/internal/gpio"
)

// SysfsPWM drives the cooling module through a Linux sysfs PWM channel.
// Logical duty runs 0..MaxDuty and is clamped to the safety ceiling.
type SysfsPWM struct {
	dir        string
	periodNs   int64
	maxDuty    int
	absMaxDuty int
	safeMode   bool

	enable       gpio.Line
	enableActive bool

	duty int
}

func NewSysfsPWM(cfg config.Actuator, enable gpio.Line) (*SysfsPWM, error) {
	p := &SysfsPWM{
		dir:        filepath.Join(cfg.PWMChip, fmt.Sprintf("pwm%d", cfg.PWMChannel)),
		periodNs:   int64(time.Second) / int64(cfg.FrequencyHz),
		maxDuty:    cfg.MaxDuty,
		absMaxDuty: cfg.AbsMaxDuty(),
		safeMode:   cfg.SafeMode,
		enable:     enable,
	}

	if p.safeMode {
		log.Warn().Str("pwm", p.dir).Msg("Actuator in safe mode, PWM writes suppressed")
		return p, nil
	}

	if _, err := os.Stat(p.dir); errors.Is(err, os.ErrNotExist) {
		if err := writeSysfs(filepath.Join(cfg.PWMChip, "export"), strconv.Itoa(cfg.PWMChannel)); err != nil {
			return nil, fmt.Errorf("failed to export pwm channel %d: %w", cfg.PWMChannel, err)
		}
	}

	// duty_cycle must not exceed period, so zero it before changing period
	if err := writeSysfs(filepath.Join(p.dir, "duty_cycle"), "0"); err != nil {
		return nil, err
	}
	if err := writeSysfs(filepath.Join(p.dir, "period"), strconv.FormatInt(p.periodNs, 10)); err != nil {
		return nil, err
	}
	if err := writeSysfs(filepath.Join(p.dir, "enable"), "1"); err != nil {
		return nil, err
	}

	log.Info().
		Str("pwm", p.dir).
		Int64("period_ns", p.periodNs).
		Int("abs_max_duty", p.absMaxDuty).
		Msg("PWM actuator ready")

	return p, nil
}

func (p *SysfsPWM) SetDuty(duty int) error {
	if duty < 0 {
		duty = 0
	}
	if duty > p.absMaxDuty {
		duty = p.absMaxDuty
	}

	if p.safeMode {
		p.duty = duty
		log.Debug().Int("duty", duty).Msg("Safe mode, skipping PWM write")
		return nil
	}

	// drop the enable line before the PWM output when turning off
	if duty == 0 {
		if err := p.setEnable(false); err != nil {
			return err
		}
	}

	ns := p.periodNs * int64(duty) / int64(p.maxDuty)
	if err := writeSysfs(filepath.Join(p.dir, "duty_cycle"), strconv.FormatInt(ns, 10)); err != nil {
		return err
	}
	p.duty = duty

	if duty > 0 {
		return p.setEnable(true)
	}
	return nil
}

func (p *SysfsPWM) Duty() int {
	return p.duty
}

func (p *SysfsPWM) setEnable(active bool) error {
	if p.enable == nil || p.enableActive == active {
		return nil
	}
	if err := p.enable.Set(active); err != nil {
		return err
	}
	p.enableActive = active
	return nil
}

// Close forces the output off and releases the enable line.
func (p *SysfsPWM) Close() error {
	var errs []error
	if err := p.SetDuty(0); err != nil {
		errs = append(errs, err)
	}
	if !p.safeMode {
		if err := writeSysfs(filepath.Join(p.dir, "enable"), "0"); err != nil {
			errs = append(errs, err)
		}
	}
	if p.enable != nil {
		if err := p.enable.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeSysfs(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("failed to write %q to %s: %w", value, path, err)
	}
	return nil
}

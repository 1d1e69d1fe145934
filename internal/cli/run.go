package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thatsimonsguy/brewfridge/db"
	"github.com/thatsimonsguy/brewfridge/internal/actuator"
	"github.com/thatsimonsguy/brewfridge/internal/api"
	"github.com/thatsimonsguy/brewfridge/internal/command"
	"github.com/thatsimonsguy/brewfridge/internal/config"
	"github.com/thatsimonsguy/brewfridge/internal/connwatch"
	"github.com/thatsimonsguy/brewfridge/internal/controller"
	"github.com/thatsimonsguy/brewfridge/internal/datadog"
	"github.com/thatsimonsguy/brewfridge/internal/gpio"
	"github.com/thatsimonsguy/brewfridge/internal/link"
	"github.com/thatsimonsguy/brewfridge/internal/logging"
	"github.com/thatsimonsguy/brewfridge/internal/metrics"
	"github.com/thatsimonsguy/brewfridge/internal/model"
	"github.com/thatsimonsguy/brewfridge/internal/mqtt"
	"github.com/thatsimonsguy/brewfridge/internal/notifications"
	"github.com/thatsimonsguy/brewfridge/internal/pinctrl"
	"github.com/thatsimonsguy/brewfridge/internal/scheduler"
	"github.com/thatsimonsguy/brewfridge/internal/sensor"
	"github.com/thatsimonsguy/brewfridge/internal/status"
	"github.com/thatsimonsguy/brewfridge/internal/store"
	"github.com/thatsimonsguy/brewfridge/system/shutdown"
)

func NewRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the controller until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(opts.ConfigPath, opts.LogLevel)
			logging.Init(cfg.LogLevel, cfg.LogFile)
			return run(cfg)
		},
	}
}

func run(cfg config.Config) error {
	bootAt := time.Now()

	log.Info().
		Str("config", cfg.ConfigFile).
		Str("db", cfg.DBPath).
		Msg("Starting brewfridge controller")

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	persisted := store.New(db.NewSettings(conn))
	pc, err := persisted.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted config, starting with defaults")
		pc = model.DefaultPersistedConfig()
	}

	log.Info().
		Bool("has_target", pc.HasTarget).
		Float64("target", pc.Target).
		Bool("actuator_enabled", pc.ActuatorEnabled).
		Msg("Loaded persisted config")

	driver, err := openActuator(cfg.Actuator)
	if err != nil {
		return err
	}

	ctrl := controller.New(controller.Params{
		IntegralMin: cfg.Control.IntegralMin,
		IntegralMax: cfg.Control.IntegralMax,
		Deadband:    cfg.Control.Deadband,
		Period:      cfg.Control.Period,
		StartOffset: cfg.Control.StartOffset,
		StopOffset:  cfg.Control.StopOffset,
		AbsMaxDuty:  cfg.Actuator.AbsMaxDuty(),
	}, controller.Gains{
		Kp: cfg.Control.Kp,
		Ki: cfg.Control.Ki,
		Kd: cfg.Control.Kd,
	}, driver)

	pipeline := sensor.NewPipeline(
		sensor.NewIIOReader(cfg.Sensor.IIODevice),
		sensor.Limits{
			TempMin:       cfg.Sensor.TempMin,
			TempMax:       cfg.Sensor.TempMax,
			HumidityMin:   cfg.Sensor.HumidityMin,
			HumidityMax:   cfg.Sensor.HumidityMax,
			TempMaxDelta:  cfg.Sensor.TempMaxDelta,
			HumidityDelta: cfg.Sensor.HumidityDelta,
		},
		cfg.Sensor.Interval,
		cfg.Sensor.FaultAlertAfter,
		notifications.New(cfg.Ntfy),
	)

	proc := command.NewProcessor(persisted, ctrl, command.Limits{
		TargetMin: cfg.Control.TargetMin,
		TargetMax: cfg.Control.TargetMax,
	}, pc.LastRestartCommandID)

	bus := mqtt.NewRealBus(cfg.MQTT, mqtt.Will{
		Topic:   cfg.MQTT.StatusTopic,
		Payload: status.Sentinel(),
		QoS:     mqtt.QoSStatus,
	})

	dd := datadog.New(cfg.Datadog)
	defer dd.Close()
	prom := metrics.NewPrometheus()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	restarter := shutdown.NewRestarter(cfg.RestartDelay, cancel)

	sched := scheduler.New(model.NewCanonicalState(pc), scheduler.Deps{
		Link:       link.NewInterface(cfg.Link.Interface),
		Bus:        bus,
		Sensor:     pipeline,
		Controller: ctrl,
		Actuator:   driver,
		Processor:  proc,
		Metrics:    metrics.Fanout{dd, prom},
		Restarter:  restarter,
	}, scheduler.Options{
		Topics: scheduler.Topics{
			Status:  cfg.MQTT.StatusTopic,
			Command: cfg.MQTT.CommandTopic,
			Ack:     cfg.MQTT.AckTopic,
		},
		Backoff: connwatch.Backoff{
			Initial:    cfg.Backoff.Initial,
			Max:        cfg.Backoff.Max,
			Multiplier: cfg.Backoff.Multiplier,
		},
		ReportInterval: cfg.Status.ReportInterval,
		RapidDelta:     cfg.Status.RapidDelta,
	}, bootAt)

	if cfg.HTTPAddr != "" {
		go func() {
			if err := api.NewServer(sched).WithMetrics(prom.Handler()).Start(ctx, cfg.HTTPAddr); err != nil {
				log.Error().Err(err).Msg("REST API server stopped")
			}
		}()
	}

	sched.Run(ctx, cfg.TickInterval)
	sched.Shutdown()

	if restarter.Requested() {
		log.Info().Msg("Exiting for restart")
	} else {
		log.Info().Msg("Controller stopped")
	}
	return nil
}

// openActuator muxes the PWM pin, claims the enable line and opens the PWM
// channel. Safe mode skips all hardware access.
func openActuator(a config.Actuator) (*actuator.SysfsPWM, error) {
	if a.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED - actuator hardware untouched")
		return actuator.NewSysfsPWM(a, nil)
	}

	if a.PWMPin != nil {
		changed, err := pinctrl.EnsureFunction(*a.PWMPin, a.PWMPinFunction)
		if err != nil {
			return nil, err
		}
		if changed {
			log.Info().Int("pin", *a.PWMPin).Str("function", a.PWMPinFunction).Msg("PWM pin muxed")
		}
	}

	var enable gpio.Line
	if a.EnableLine != nil {
		line, err := gpio.NewRealLine(a.EnableChip, *a.EnableLine, a.EnableActiveHigh)
		if err != nil {
			return nil, err
		}
		enable = line
	}

	return actuator.NewSysfsPWM(a, enable)
}

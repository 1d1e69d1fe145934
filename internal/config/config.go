package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type MQTT struct {
	Broker         string        `yaml:"broker"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	ClientID       string        `yaml:"client_id"`
	KeepAlive      time.Duration `yaml:"keep_alive"`
	CleanSession   bool          `yaml:"clean_session"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	InboxSize      int           `yaml:"inbox_size"`
	StatusTopic    string        `yaml:"status_topic"`
	CommandTopic   string        `yaml:"command_topic"`
	AckTopic       string        `yaml:"ack_topic"`
}

type Link struct {
	Interface string `yaml:"interface"`
}

type Backoff struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
}

type Sensor struct {
	IIODevice       string        `yaml:"iio_device"`
	Interval        time.Duration `yaml:"interval"`
	TempMin         float64       `yaml:"temp_min"`
	TempMax         float64       `yaml:"temp_max"`
	HumidityMin     float64       `yaml:"humidity_min"`
	HumidityMax     float64       `yaml:"humidity_max"`
	TempMaxDelta    float64       `yaml:"temp_max_delta"`
	HumidityDelta   float64       `yaml:"humidity_max_delta"`
	FaultAlertAfter int           `yaml:"fault_alert_after"`
}

type Control struct {
	Kp          float64       `yaml:"kp"`
	Ki          float64       `yaml:"ki"`
	Kd          float64       `yaml:"kd"`
	IntegralMin float64       `yaml:"integral_min"`
	IntegralMax float64       `yaml:"integral_max"`
	Deadband    float64       `yaml:"deadband"`
	Period      time.Duration `yaml:"period"`
	StartOffset float64       `yaml:"cool_start_offset"`
	StopOffset  float64       `yaml:"cool_stop_offset"`
	TargetMin   float64       `yaml:"target_min"`
	TargetMax   float64       `yaml:"target_max"`
}

type Actuator struct {
	SafeMode         bool    `yaml:"safe_mode"`
	PWMChip          string  `yaml:"pwm_chip"`
	PWMChannel       int     `yaml:"pwm_channel"`
	PWMPin           *int    `yaml:"pwm_pin"`
	PWMPinFunction   string  `yaml:"pwm_pin_function"`
	FrequencyHz      int     `yaml:"frequency_hz"`
	MaxDuty          int     `yaml:"max_duty"`
	SafetyPercent    float64 `yaml:"safety_percent"`
	EnableChip       string  `yaml:"enable_chip"`
	EnableLine       *int    `yaml:"enable_line"`
	EnableActiveHigh bool    `yaml:"enable_active_high"`
}

type Status struct {
	ReportInterval time.Duration `yaml:"report_interval"`
	RapidDelta     float64       `yaml:"rapid_delta"`
}

type Datadog struct {
	Enabled   bool     `yaml:"enabled"`
	AgentAddr string   `yaml:"agent_addr"`
	Namespace string   `yaml:"namespace"`
	Tags      []string `yaml:"tags"`
}

type Ntfy struct {
	Server string `yaml:"server"`
	Topic  string `yaml:"topic"`
}

type Install struct {
	BootScript string `yaml:"boot_script"`
	PinsUnit   string `yaml:"pins_unit"`
	MainUnit   string `yaml:"main_unit"`
	Binary     string `yaml:"binary"`
	User       string `yaml:"user"`
	WorkDir    string `yaml:"work_dir"`
}

type Config struct {
	ConfigFile string        `yaml:"-"`
	LogLevel   zerolog.Level `yaml:"-"`

	LogFile      string        `yaml:"log_file"`
	DBPath       string        `yaml:"db_path"`
	HTTPAddr     string        `yaml:"http_addr"`
	TickInterval time.Duration `yaml:"tick_interval"`
	RestartDelay time.Duration `yaml:"restart_delay"`

	MQTT     MQTT     `yaml:"mqtt"`
	Link     Link     `yaml:"link"`
	Backoff  Backoff  `yaml:"backoff"`
	Sensor   Sensor   `yaml:"sensor"`
	Control  Control  `yaml:"control"`
	Actuator Actuator `yaml:"actuator"`
	Status   Status   `yaml:"status"`
	Datadog  Datadog  `yaml:"datadog"`
	Ntfy     Ntfy     `yaml:"ntfy"`
	Install  Install  `yaml:"install"`
}

// Default returns the configuration the firmware was tuned with.
func Default() Config {
	return Config{
		LogLevel:     zerolog.InfoLevel,
		DBPath:       "data/brewfridge.db",
		HTTPAddr:     ":80",
		TickInterval: 10 * time.Millisecond,
		RestartDelay: 200 * time.Millisecond,
		MQTT: MQTT{
			Broker:         "tcp://localhost:1883",
			KeepAlive:      30 * time.Second,
			CleanSession:   false,
			ConnectTimeout: 3 * time.Second,
			PublishTimeout: 2 * time.Second,
			InboxSize:      32,
			StatusTopic:    "/homebrew/status",
			CommandTopic:   "/homebrew/cmd",
			AckTopic:       "/homebrew/ack",
		},
		Link: Link{Interface: "wlan0"},
		Backoff: Backoff{
			Initial:    time.Second,
			Max:        60 * time.Second,
			Multiplier: 2,
		},
		Sensor: Sensor{
			IIODevice:       "/sys/bus/iio/devices/iio:device0",
			Interval:        2 * time.Second,
			TempMin:         -10,
			TempMax:         50,
			HumidityMin:     5,
			HumidityMax:     99,
			TempMaxDelta:    3,
			HumidityDelta:   10,
			FaultAlertAfter: 5,
		},
		Control: Control{
			Kp:          30,
			Ki:          0.5,
			Kd:          10,
			IntegralMin: -50,
			IntegralMax: 200,
			Deadband:    0.2,
			Period:      time.Second,
			StartOffset: 0.3,
			StopOffset:  -0.1,
			TargetMin:   2,
			TargetMax:   30,
		},
		Actuator: Actuator{
			PWMChip:          "/sys/class/pwm/pwmchip0",
			PWMChannel:       0,
			FrequencyHz:      25000,
			MaxDuty:          255,
			SafetyPercent:    85,
			EnableChip:       "gpiochip0",
			EnableActiveHigh: true,
		},
		Status: Status{
			ReportInterval: time.Second,
			RapidDelta:     1.0,
		},
		Datadog: Datadog{
			AgentAddr: "127.0.0.1:8125",
			Namespace: "brewfridge.",
		},
		Ntfy: Ntfy{
			Server: "https://ntfy.sh",
		},
		Install: Install{
			BootScript: "/usr/local/bin/brewfridge-pins.sh",
			PinsUnit:   "/etc/systemd/system/brewfridge-pins.service",
			MainUnit:   "/etc/systemd/system/brewfridge.service",
			Binary:     "/usr/local/bin/brewfridge",
			User:       "root",
			WorkDir:    "/var/lib/brewfridge",
		},
	}
}

// Load reads the YAML config file over the defaults and validates the result.
// It panics on an unreadable or invalid file.
func Load(path string, logLevel string) Config {
	cfg := Default()
	cfg.ConfigFile = path
	cfg.LogLevel = ParseLogLevel(logLevel)

	data, err := os.ReadFile(path)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic("Failed to parse config file: " + err.Error())
	}

	cfg.validate()
	return cfg
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// AbsMaxDuty is the hard duty ceiling after the safety percentage is applied.
func (a Actuator) AbsMaxDuty() int {
	return int(float64(a.MaxDuty) * a.SafetyPercent / 100.0)
}

func (cfg *Config) validate() {
	var problems []string

	c := cfg.Control
	if c.StartOffset <= c.StopOffset {
		problems = append(problems, fmt.Sprintf("control.cool_start_offset (%.2f) must exceed control.cool_stop_offset (%.2f)", c.StartOffset, c.StopOffset))
	}
	if c.TargetMin >= c.TargetMax {
		problems = append(problems, "control.target_min must be below control.target_max")
	}
	if c.IntegralMin >= c.IntegralMax {
		problems = append(problems, "control.integral_min must be below control.integral_max")
	}
	if c.Period <= 0 {
		problems = append(problems, "control.period must be positive")
	}
	if c.Deadband < 0 {
		problems = append(problems, "control.deadband must not be negative")
	}

	s := cfg.Sensor
	if s.TempMin >= s.TempMax || s.HumidityMin >= s.HumidityMax {
		problems = append(problems, "sensor plausibility bounds are inverted")
	}
	if s.Interval <= 0 {
		problems = append(problems, "sensor.interval must be positive")
	}

	a := cfg.Actuator
	if a.SafetyPercent <= 0 || a.SafetyPercent > 100 {
		problems = append(problems, "actuator.safety_percent must be in (0, 100]")
	}
	if a.MaxDuty <= 0 {
		problems = append(problems, "actuator.max_duty must be positive")
	}
	if a.FrequencyHz <= 0 {
		problems = append(problems, "actuator.frequency_hz must be positive")
	}
	if a.PWMPin != nil && a.PWMPinFunction == "" {
		problems = append(problems, "actuator.pwm_pin_function is required when actuator.pwm_pin is set")
	}

	if cfg.MQTT.StatusTopic == "" || cfg.MQTT.CommandTopic == "" || cfg.MQTT.AckTopic == "" {
		problems = append(problems, "mqtt topics must not be empty")
	}
	if cfg.MQTT.InboxSize <= 0 {
		problems = append(problems, "mqtt.inbox_size must be positive")
	}

	if cfg.Status.ReportInterval <= 0 {
		problems = append(problems, "status.report_interval must be positive")
	}
	if cfg.TickInterval <= 0 {
		problems = append(problems, "tick_interval must be positive")
	}
	if cfg.Backoff.Initial <= 0 || cfg.Backoff.Max < cfg.Backoff.Initial || cfg.Backoff.Multiplier < 1 {
		problems = append(problems, "backoff must have initial > 0, max >= initial and multiplier >= 1")
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, "; "))
	}
}

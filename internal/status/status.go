package status

import (
	"encoding/json"
	"math"

	"github.com/thatsimonsguy/brewfridge/internal/controller"
	"github.com/thatsimonsguy/brewfridge/internal/model"
)

// Snapshot is the compact status broadcast on the status topic.
type Snapshot struct {
	Temp           *float64 `json:"temp"`
	Humidity       *float64 `json:"humidity"`
	Power          int      `json:"power"`
	PeltierEnabled bool     `json:"peltier_enabled"`
	Target         *float64 `json:"target"`
	TS             int64    `json:"ts"`
}

type PIDInfo struct {
	Kp        float64 `json:"kp"`
	Ki        float64 `json:"ki"`
	Kd        float64 `json:"kd"`
	Integral  float64 `json:"integral"`
	OutputPct float64 `json:"output_pct"`
	PWM       int     `json:"pwm"`
	Cooling   bool    `json:"cooling"`
}

// Extended adds link health and controller internals. It is only served by
// the query interface, never broadcast.
type Extended struct {
	Snapshot
	Uptime        int64   `json:"uptime"`
	WifiRSSI      int     `json:"wifi_rssi"`
	MQTTConnected bool    `json:"mqtt_connected"`
	PID           PIDInfo `json:"pid"`
}

func Build(st *model.CanonicalState) Snapshot {
	s := Snapshot{
		Power:          st.OutputPercent,
		PeltierEnabled: st.ActuatorEnabled,
		TS:             st.Timestamp,
	}
	if st.HasTemperature() {
		s.Temp = rounded(st.Temperature)
	}
	if st.HasHumidity() {
		s.Humidity = rounded(st.Humidity)
	}
	if st.HasTarget {
		s.Target = rounded(st.Target)
	}
	return s
}

func BuildExtended(st *model.CanonicalState, pid controller.Internals) Extended {
	return Extended{
		Snapshot:      Build(st),
		Uptime:        st.UptimeSec,
		WifiRSSI:      st.LinkSignal,
		MQTTConnected: st.BusConnected,
		PID: PIDInfo{
			Kp:        pid.Kp,
			Ki:        pid.Ki,
			Kd:        pid.Kd,
			Integral:  round1(pid.Integral),
			OutputPct: round1(pid.OutputPercent),
			PWM:       pid.Duty,
			Cooling:   pid.Cooling,
		},
	}
}

// Sentinel is the retained "controller offline" payload used as the broker
// will and on orderly shutdown.
func Sentinel() []byte {
	out, _ := json.Marshal(struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Power    int      `json:"power"`
		Target   *float64 `json:"target"`
		TS       int64    `json:"ts"`
	}{})
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func rounded(v float64) *float64 {
	r := round1(v)
	return &r
}

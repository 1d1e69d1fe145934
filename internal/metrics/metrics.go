// Package metrics fans controller gauges out to every configured sink.
package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Sink interface {
	Gauge(name string, value float64, tags ...string)
}

// Fanout forwards each gauge to all sinks.
type Fanout []Sink

func (f Fanout) Gauge(name string, value float64, tags ...string) {
	for _, s := range f {
		if s != nil {
			s.Gauge(name, value, tags...)
		}
	}
}

// Prometheus keeps the latest value of each gauge for scraping. Gauges are
// registered on first use; tags are ignored.
type Prometheus struct {
	reg *prometheus.Registry

	mu     sync.Mutex
	gauges map[string]prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	return &Prometheus{
		reg:    prometheus.NewRegistry(),
		gauges: make(map[string]prometheus.Gauge),
	}
}

func (p *Prometheus) Gauge(name string, value float64, tags ...string) {
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: promName(name),
			Help: "Controller gauge " + name + ".",
		})
		p.reg.MustRegister(g)
		p.gauges[name] = g
	}
	p.mu.Unlock()

	g.Set(value)
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// promName maps dotted statsd names onto the prometheus charset.
func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}

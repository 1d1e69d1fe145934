package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/config"
)

// Client emits DogStatsD gauges. A nil or disabled client drops everything.
type Client struct {
	dogstatsd *statsd.Client
}

func New(cfg config.Datadog) *Client {
	if !cfg.Enabled {
		log.Info().Msg("Datadog metrics disabled")
		return &Client{}
	}

	sd, err := statsd.New(cfg.AgentAddr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return &Client{}
	}

	sd.Namespace = cfg.Namespace
	sd.Tags = cfg.Tags

	log.Info().
		Str("addr", cfg.AgentAddr).
		Str("namespace", cfg.Namespace).
		Strs("tags", cfg.Tags).
		Msg("Datadog metrics initialized")

	return &Client{dogstatsd: sd}
}

func (c *Client) Gauge(name string, value float64, tags ...string) {
	if c == nil || c.dogstatsd == nil {
		return
	}
	if err := c.dogstatsd.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

// Close flushes buffered metrics.
func (c *Client) Close() error {
	if c == nil || c.dogstatsd == nil {
		return nil
	}
	return c.dogstatsd.Close()
}

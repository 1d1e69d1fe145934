package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/config"
)

// Client posts alerts to an ntfy topic. A client without a topic is a no-op.
type Client struct {
	http   *http.Client
	server string
	topic  string
}

func New(cfg config.Ntfy) *Client {
	if cfg.Topic == "" {
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return &Client{}
	}

	c := &Client{
		http:   &http.Client{Timeout: 10 * time.Second},
		server: strings.TrimRight(cfg.Server, "/"),
		topic:  cfg.Topic,
	}

	log.Info().
		Str("server", c.server).
		Str("topic", c.topic).
		Msg("Ntfy notifications initialized")

	return c
}

func (c *Client) Enabled() bool {
	return c.topic != ""
}

// Send posts a notification and waits for the response.
func (c *Client) Send(title, message string) error {
	if !c.Enabled() {
		return fmt.Errorf("notifications not initialized")
	}

	payload := map[string]interface{}{
		"topic":   c.topic,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequest("POST", c.server, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().
		Str("title", title).
		Int("status", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}

// SendAsync sends off the caller's goroutine so the control tick never
// waits on the network.
func (c *Client) SendAsync(title, message string) {
	if !c.Enabled() {
		return
	}
	go func() {
		if err := c.Send(title, message); err != nil {
			log.Warn().Err(err).Str("title", title).Msg("Failed to send notification")
		}
	}()
}

package mqtt

import (
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/config"
)

// RealBus talks to an actual broker. Reconnects are driven by the caller's
// supervisor, so paho's own auto-reconnect is disabled.
type RealBus struct {
	client         paho.Client
	inbox          chan Message
	connectTimeout time.Duration
	publishTimeout time.Duration
}

func NewRealBus(cfg config.MQTT, will Will) *RealBus {
	b := &RealBus{
		inbox:          make(chan Message, cfg.InboxSize),
		connectTimeout: cfg.ConnectTimeout,
		publishTimeout: cfg.PublishTimeout,
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID()
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(cfg.KeepAlive).
		SetCleanSession(cfg.CleanSession).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetWriteTimeout(cfg.PublishTimeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetBinaryWill(will.Topic, will.Payload, will.QoS, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("MQTT connection lost")
		})

	log.Info().Str("broker", cfg.Broker).Str("client_id", clientID).Msg("MQTT client configured")
	b.client = paho.NewClient(opts)
	return b
}

// DefaultClientID derives a stable per-host client id so a persistent
// session survives process restarts.
func DefaultClientID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	id := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host))
	return "brewfridge-" + id.String()[:8]
}

func (b *RealBus) Connect() error {
	token := b.client.Connect()
	if !token.WaitTimeout(b.connectTimeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (b *RealBus) IsConnected() bool {
	return b.client.IsConnected()
}

// Subscribe queues matching messages for Drain. The handler runs on paho's
// goroutine and never blocks it; messages beyond the inbox size are dropped.
func (b *RealBus) Subscribe(topic string, qos byte) error {
	token := b.client.Subscribe(topic, qos, func(_ paho.Client, m paho.Message) {
		msg := Message{Topic: m.Topic(), Payload: append([]byte(nil), m.Payload()...)}
		select {
		case b.inbox <- msg:
		default:
			log.Warn().Str("topic", m.Topic()).Msg("MQTT inbox full, dropping message")
		}
	})
	if !token.WaitTimeout(b.publishTimeout) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func (b *RealBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := b.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(b.publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *RealBus) Drain() []Message {
	var out []Message
	for {
		select {
		case m := <-b.inbox:
			out = append(out, m)
		default:
			return out
		}
	}
}

func (b *RealBus) Close() error {
	if b.client.IsConnected() {
		b.client.Disconnect(1000)
	}
	return nil
}

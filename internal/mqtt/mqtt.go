// Package mqtt carries status, command and acknowledgment traffic over an
// MQTT broker, with a fake for tests.
package mqtt

// Delivery tiers. Acks use exactly-once so a command sender never sees a
// duplicate outcome.
const (
	QoSStatus  byte = 1
	QoSCommand byte = 1
	QoSAck     byte = 2
)

// Message is an inbound message queued for the scheduler tick.
type Message struct {
	Topic   string
	Payload []byte
}

// Will is the retained last-known value the broker publishes if the
// connection drops without a clean disconnect.
type Will struct {
	Topic   string
	Payload []byte
	QoS     byte
}

// Bus is the message-bus capability used by the scheduler. Every method
// returns within a bounded timeout.
type Bus interface {
	Connect() error
	IsConnected() bool
	Subscribe(topic string, qos byte) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	// Drain returns inbound messages queued since the last call.
	Drain() []Message
	Close() error
}

package mqtt

import "errors"

// Published is one message recorded by FakeBus.
type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// FakeBus records publishes and lets tests inject inbound messages.
type FakeBus struct {
	Connected     bool
	ConnectErr    error
	ConnectCalls  int
	PublishErr    error
	Subscriptions map[string]byte
	Published     []Published
	Closed        bool

	inbox []Message
}

func NewFakeBus() *FakeBus {
	return &FakeBus{Subscriptions: map[string]byte{}}
}

func (f *FakeBus) Connect() error {
	f.ConnectCalls++
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.Connected = true
	return nil
}

func (f *FakeBus) IsConnected() bool {
	return f.Connected
}

func (f *FakeBus) Subscribe(topic string, qos byte) error {
	if !f.Connected {
		return errors.New("not connected")
	}
	f.Subscriptions[topic] = qos
	return nil
}

func (f *FakeBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	if !f.Connected {
		return errors.New("not connected")
	}
	f.Published = append(f.Published, Published{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	return nil
}

// Deliver queues an inbound message as if the broker had sent it.
func (f *FakeBus) Deliver(topic string, payload string) {
	f.inbox = append(f.inbox, Message{Topic: topic, Payload: []byte(payload)})
}

func (f *FakeBus) Drain() []Message {
	out := f.inbox
	f.inbox = nil
	return out
}

func (f *FakeBus) Close() error {
	f.Closed = true
	f.Connected = false
	return nil
}

// On returns everything published to topic, in order.
func (f *FakeBus) On(topic string) []Published {
	var out []Published
	for _, p := range f.Published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears recorded publishes.
func (f *FakeBus) Reset() {
	f.Published = nil
}

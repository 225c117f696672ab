package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/fridge-controller/internal/logic"
)

// DefaultBufferSize is how many messages are kept while disconnected.
const DefaultBufferSize = 100

// publishTimeout bounds how long a publish may block the caller.
const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *zap.SugaredLogger

	mu         sync.Mutex
	buffer     *ring[outbound]
	onSettings func(logic.Settings)
}

// NewRealPublisher creates a publisher for the given broker. Connecting and
// reconnecting happen in the background; it never blocks on the broker.
func NewRealPublisher(broker string, log *zap.SugaredLogger) *RealPublisher {
	p := &RealPublisher{
		log:    log,
		buffer: newRing[outbound](DefaultBufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// newPublisher wraps an existing client.
func newPublisher(client paho.Client, log *zap.SugaredLogger, bufferSize int) *RealPublisher {
	return &RealPublisher{
		client: client,
		log:    log,
		buffer: newRing[outbound](bufferSize),
	}
}

// onConnect replays buffered messages and restores the settings
// subscription. paho calls it on its own goroutine.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	msgs, lost := p.buffer.take()
	handler := p.onSettings
	p.mu.Unlock()

	p.log.Infow("mqtt connected", "replaying", len(msgs), "dropped", lost)

	if handler != nil {
		if err := p.subscribe(handler); err != nil {
			p.log.Errorw("mqtt settings subscription failed", "err", err)
		}
	}

	for _, m := range msgs {
		if err := p.send(m.topic, m.qos, m.retained, m.payload); err != nil {
			p.log.Warnw("mqtt replay failed", "topic", m.topic, "err", err)
		}
	}

	payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	if err := p.send(TopicSystem, 1, false, payload); err != nil {
		p.log.Warnw("mqtt reconnect event failed", "err", err)
	}
}

// Publish sends a relay event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1 (at-least-once), not retained
	return p.publish(Topic, 1, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		first := p.buffer.put(outbound{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		if first {
			p.log.Warnw("mqtt buffer full, dropping oldest", "capacity", p.buffer.cap())
		}
		return nil
	}
	return p.send(topic, qos, retained, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// SubscribeSettings registers handler for settings requests. The subscription
// is restored on every reconnect.
func (p *RealPublisher) SubscribeSettings(handler func(logic.Settings)) error {
	p.mu.Lock()
	p.onSettings = handler
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribe(handler)
}

func (p *RealPublisher) subscribe(handler func(logic.Settings)) error {
	token := p.client.Subscribe(TopicSettings, 1, func(_ paho.Client, msg paho.Message) {
		s, err := ParseSettings(msg.Payload())
		if err != nil {
			p.log.Warnw("ignoring settings message", "payload", string(msg.Payload()), "err", err)
			return
		}
		handler(s)
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", TopicSettings)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicSettings, err)
	}
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

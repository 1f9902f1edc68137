package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/fleetintel/core/alert"
	"github.com/kilianp07/fleetintel/infra/logger"
)

// AlertPublisher publishes alerts as JSON to <alert_topic>/<tenant_id>.
type AlertPublisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

var _ alert.Publisher = (*AlertPublisher)(nil)

// NewAlertPublisher connects to the broker.
func NewAlertPublisher(cfg Config) (*AlertPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_alerts")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &AlertPublisher{
		cli:        c,
		topic:      strings.TrimSuffix(cfg.AlertTopic, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// Topic returns the topic alerts for tenant are published on.
func (p *AlertPublisher) Topic(tenant string) string {
	return p.topic + "/" + tenant
}

// Publish sends the alert, retrying with exponential backoff until the retry
// budget or ctx runs out.
func (p *AlertPublisher) Publish(ctx context.Context, a alert.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	topic := p.Topic(a.TenantID)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Infof("published %s alert to %s", a.Kind, topic)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == p.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return fmt.Errorf("publish alert to %s: %w", topic, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *AlertPublisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}

// MockPublisher records alerts in memory.
type MockPublisher struct {
	mu          sync.Mutex
	Alerts      []alert.Alert
	FailTenants map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailTenants: make(map[string]bool)}
}

// Publish records the alert or fails for tenants listed in FailTenants.
func (m *MockPublisher) Publish(_ context.Context, a alert.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTenants[a.TenantID] {
		return fmt.Errorf("publish failed")
	}
	m.Alerts = append(m.Alerts, a)
	return nil
}

// Published returns a copy of the recorded alerts.
func (m *MockPublisher) Published() []alert.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]alert.Alert(nil), m.Alerts...)
}

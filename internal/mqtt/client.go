package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mittyorz/infra-munin/internal/config"
	"github.com/mittyorz/infra-munin/internal/output"
	"github.com/mittyorz/infra-munin/internal/switchbot"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// Client publishes readings to an MQTT broker over a single connection.
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ReadingMessage is the JSON body published for a reading. The reading keys
// match the text dump.
type ReadingMessage struct {
	Address        string    `json:"address"`
	SessionID      string    `json:"session_id"`
	Timestamp      time.Time `json:"timestamp"`
	SensorType     string    `json:"SensorType"`
	Temperature    float64   `json:"Temperature"`
	Humidity       int       `json:"Humidity"`
	BatteryVoltage int       `json:"BatteryVoltage"`
}

// NewReadingMessage stamps r with the device address, session and current time.
func NewReadingMessage(address, sessionID string, r switchbot.Reading) ReadingMessage {
	return ReadingMessage{
		Address:        address,
		SessionID:      sessionID,
		Timestamp:      time.Now().UTC(),
		SensorType:     r.SensorType,
		Temperature:    r.Temperature,
		Humidity:       r.Humidity,
		BatteryVoltage: r.BatteryVoltage,
	}
}

// Topic returns <prefix>/<address without separators>/reading.
func Topic(prefix, address string) string {
	return fmt.Sprintf("%s/%s/reading", prefix, output.FileName(address))
}

// NewClient configures a paho client for cfg. It does not connect; see Connect.
func NewClient(cfg config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	// One publish per run: no background reconnects.
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Debug("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect waits for the broker connection, giving up when ctx is done or
// Disconnect is called.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// OnConnect runs in its own goroutine and may not have fired yet.
			c.setConnected(true)
			return nil
		}

		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishReading publishes msg retained at QoS 1, so a subscriber joining
// later still gets the last reading of the device.
func (c *Client) PublishReading(msg ReadingMessage) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := Topic(c.cfg.MQTTTopicPrefix, msg.Address)

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := c.client.Publish(topic, 1, true, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	c.logger.Info("published reading", "topic", topic, "addr", msg.Address)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent. After Disconnect, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Debug("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

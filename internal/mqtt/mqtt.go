package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/config"
)

var errStopped = errors.New("subscriber stopped")

// Subscriber receives station telemetry from an MQTT broker.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	handler   func(telemetry types.Telemetry) error
}

// SetMessageHandler sets the function called for each valid telemetry message.
func (s *Subscriber) SetMessageHandler(handler func(telemetry types.Telemetry) error) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Resubscribe on every (re)connect; the session is clean.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := s.subscribe(); err != nil {
			s.logger.Error("mqtt subscribe", "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect dials the broker and waits for the first connection. Subscription
// happens in the connect handler.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			// ConnectRetry keeps dialing in the background; the connect
			// handler subscribes once the broker is reachable.
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return errStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	topic := s.cfg.MQTTTopic
	qos := byte(1)

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var telemetry types.Telemetry
	if err := json.Unmarshal(payload, &telemetry); err != nil {
		s.logger.Warn("failed to parse telemetry message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}
	if telemetry.Station == "" {
		telemetry.Station = stationFromTopic(topic)
	}

	if err := telemetry.Validate(); err != nil {
		s.logger.Warn("invalid telemetry message",
			"topic", topic,
			"station", telemetry.Station,
			"error", err,
		)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		return
	}
	if err := handler(telemetry); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"station", telemetry.Station,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed telemetry message",
		"station", telemetry.Station,
		"timestamp", telemetry.Timestamp,
	)
}

// stationFromTopic returns the middle level of "airq/<station>/telemetry".
func stationFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[2] == "telemetry" {
		return parts[1]
	}
	return ""
}

func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the connection. Safe to call more than once.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// Package mqtt consumes location requests from an MQTT topic, for edge
// deployments where field devices publish coordinates over MQTT instead of Kafka.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const (
	qosAtLeastOnce  = 1
	connectTimeout  = 10 * time.Second
	disconnectQuiet = 250 // milliseconds
)

var errSubscriberClosed = errors.New("mqtt subscriber closed")

// Subscriber buffers messages from an MQTT subscription and hands them out in
// batches. It implements watch.BatchExtractor. Messages are acknowledged to the
// broker only through their Commit func.
type Subscriber struct {
	client        pahomqtt.Client
	topic         string
	messages      chan domain.RawMessage
	done          chan struct{}
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewSubscriber configures a client for the broker in cfg. Call Connect before
// extracting.
func NewSubscriber(cfg *config.Config, logger *slog.Logger) *Subscriber {
	s := newSubscriber(cfg.MQTTTopic, cfg.BatchSize, cfg.BatchFlushInterval, logger)

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetAutoAckDisabled(true).
		SetOrderMatters(false).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		})
	s.client = pahomqtt.NewClient(opts)
	return s
}

func newSubscriber(topic string, buffer int, flushInterval time.Duration, logger *slog.Logger) *Subscriber {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscriber{
		topic:         topic,
		messages:      make(chan domain.RawMessage, buffer),
		done:          make(chan struct{}),
		flushInterval: flushInterval,
		logger:        logger,
	}
}

// Connect dials the broker. The subscription is (re)established on every
// successful connection.
func (s *Subscriber) Connect(ctx context.Context) error {
	token := s.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) onConnect(c pahomqtt.Client) {
	token := c.Subscribe(s.topic, qosAtLeastOnce, s.handle)
	if token.Wait() && token.Error() != nil {
		s.logger.Error("mqtt subscribe failed", "topic", s.topic, "error", token.Error())
		return
	}
	s.logger.Info("mqtt subscribed", "topic", s.topic)
}

// handle blocks while the buffer is full, which holds back acknowledgement and
// lets the broker apply flow control.
func (s *Subscriber) handle(_ pahomqtt.Client, msg pahomqtt.Message) {
	raw := domain.RawMessage{
		Value:     msg.Payload(),
		Topic:     msg.Topic(),
		Offset:    int64(msg.MessageID()),
		Timestamp: domain.Now(),
		Commit: func(context.Context) error {
			msg.Ack()
			return nil
		},
	}
	select {
	case s.messages <- raw:
	case <-s.done:
	}
}

// ExtractBatch blocks for the first message, then collects up to batchSize
// messages or until the flush interval elapses.
func (s *Subscriber) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error) {
	var first domain.RawMessage
	select {
	case first = <-s.messages:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, errSubscriberClosed
	}

	batch := []domain.RawMessage{first}
	timer := time.NewTimer(s.flushInterval)
	defer timer.Stop()
	for len(batch) < batchSize {
		select {
		case raw := <-s.messages:
			batch = append(batch, raw)
		case <-timer.C:
			return batch, nil
		case <-ctx.Done():
			return batch, nil
		}
	}
	return batch, nil
}

// Close disconnects from the broker and releases blocked handlers.
func (s *Subscriber) Close() error {
	close(s.done)
	if s.client != nil {
		s.client.Disconnect(disconnectQuiet)
	}
	return nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Writer publishes weather reports to a Kafka topic.
// It implements watch.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes the reports in a single WriteMessages
// call. Reports for the same coordinate share a key and so a partition.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.WeatherReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish weather reports: %w", err)
	}
	w.logger.Debug("published batch", "size", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a WeatherReport into a Kafka message.
func serializeToMessage(report domain.WeatherReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather report: %w", err)
	}
	cur := report.Current
	return kafkago.Message{
		Key:   []byte(locationKey(cur.Lat, cur.Lng)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "assessment_id", Value: []byte(cur.ID)},
			{Key: "risk_level", Value: []byte(cur.Level)},
			{Key: "provider", Value: []byte(cur.Provider)},
			{Key: "fallback", Value: []byte(strconv.FormatBool(cur.Fallback))},
			{Key: "last_updated", Value: []byte(report.LastUpdated.Format(time.RFC3339))},
		},
	}, nil
}

func locationKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lng, 'f', 4, 64)
}

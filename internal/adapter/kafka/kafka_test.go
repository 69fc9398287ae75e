package kafka

import (
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

func TestMapMessageToRawMessage(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("47.6062,-122.3321"),
		Value:     []byte(`{"lat":47.6062,"lng":-122.3321}`),
		Topic:     "location-requests",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "requested_by", Value: []byte("dashboard")},
		},
	}

	raw := mapMessageToRawMessage(msg)

	assert.Equal(t, []byte("47.6062,-122.3321"), raw.Key)
	assert.JSONEq(t, `{"lat":47.6062,"lng":-122.3321}`, string(raw.Value))
	assert.Equal(t, "location-requests", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "dashboard", raw.Headers["requested_by"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	report := domain.WeatherReport{
		Current: domain.RiskAssessment{
			ID:       "2f1c9b7e-4a57-4a55-9d0e-2b4f7a0a6c11",
			Lat:      47.606209,
			Lng:      -122.332071,
			Provider: domain.ProviderNWS,
			Score:    130,
			Level:    domain.RiskCritical,
		},
		LastUpdated: now,
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("47.6062,-122.3321"), msg.Key)

	var decoded domain.WeatherReport
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 130, decoded.Current.Score)
	assert.Equal(t, domain.RiskCritical, decoded.Current.Level)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, map[string]string{
		"assessment_id": "2f1c9b7e-4a57-4a55-9d0e-2b4f7a0a6c11",
		"risk_level":    "Critical",
		"provider":      "nws",
		"fallback":      "false",
		"last_updated":  now.Format(time.RFC3339),
	}, headers)
}

func TestLocationKey(t *testing.T) {
	assert.Equal(t, "0.0000,0.0000", locationKey(0, 0))
	assert.Equal(t, "-33.8688,151.2093", locationKey(-33.86882, 151.20929))
}

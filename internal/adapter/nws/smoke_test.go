//go:build nws

package nws

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the live api.weather.gov endpoints. NWS asks callers to
// identify themselves, so NWS_USER_AGENT should carry a contact address.
// Run with: go test -tags=nws ./internal/adapter/nws/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	ua := os.Getenv("NWS_USER_AGENT")
	if ua == "" {
		ua = "flood-risk-service smoke tests"
	}
	return NewClient("", ua, 15*time.Second, 10, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestSmoke_ResolvePoint(t *testing.T) {
	c := smokeClient(t)

	// Downtown Seattle.
	p, err := c.ResolvePoint(context.Background(), 47.6062, -122.3321)
	require.NoError(t, err)

	assert.Contains(t, p.ForecastURL, "/gridpoints/SEW/")
	assert.Contains(t, p.Place, "WA")
}

func TestSmoke_FetchSnapshot(t *testing.T) {
	c := smokeClient(t)

	snap, err := c.FetchSnapshot(context.Background(), 47.6062, -122.3321)
	require.NoError(t, err)

	assert.Equal(t, domain.OriginNarrative, snap.Origin)
	assert.NotEmpty(t, snap.ConditionText)
	assert.NotEmpty(t, snap.Narrative)
	require.NotNil(t, snap.HumidityPct)
	assert.GreaterOrEqual(t, *snap.HumidityPct, 0)
	assert.LessOrEqual(t, *snap.HumidityPct, 100)
	assert.Greater(t, snap.WindSpeedMs, 0.0)
}

func TestSmoke_OutsideCoverage(t *testing.T) {
	c := smokeClient(t)

	// London is outside NWS coverage; the points lookup returns 404.
	_, err := c.FetchSnapshot(context.Background(), 51.5074, -0.1278)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

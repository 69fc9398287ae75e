package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProviderKind(t *testing.T) {
	tests := []struct {
		in     string
		want   ProviderKind
		wantOK bool
	}{
		{"nws", ProviderNWS, true},
		{" NWS ", ProviderNWS, true},
		{"narrative", ProviderNWS, true},
		{"openweather", ProviderOpenWeather, true},
		{"numeric", ProviderOpenWeather, true},
		{"", "", false},
		{"noaa", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseProviderKind(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

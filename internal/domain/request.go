package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// ParseLocationRequest decodes a location request payload of the form
// {"lat": 47.6, "lng": -122.3, "provider": "nws"}. Coordinates may be numbers
// or numeric strings. An unrecognized provider is dropped so the engine
// default applies.
func ParseLocationRequest(data []byte) (LocationRequest, error) {
	rec, ok := decodeRecord(json.RawMessage(data))
	if !ok {
		return LocationRequest{}, fmt.Errorf("%w: payload is not a JSON object", ErrInvalidRequest)
	}
	lat, ok := floatField(rec, "lat")
	if !ok {
		return LocationRequest{}, fmt.Errorf("%w: missing lat", ErrInvalidRequest)
	}
	lng, ok := floatField(rec, "lng")
	if !ok {
		return LocationRequest{}, fmt.Errorf("%w: missing lng", ErrInvalidRequest)
	}
	if err := ValidateCoordinates(lat, lng); err != nil {
		return LocationRequest{}, err
	}

	req := LocationRequest{Lat: lat, Lng: lng}
	if kind, ok := ParseProviderKind(stringField(rec, "provider")); ok {
		req.Provider = kind
	}
	return req, nil
}

// ValidateCoordinates rejects latitudes outside [-90, 90], longitudes
// outside [-180, 180], and NaN.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat %v out of range", ErrInvalidRequest, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: lng %v out of range", ErrInvalidRequest, lng)
	}
	return nil
}

// Package live tracks the most recent ten-minute station readings coming
// off the observations topic.
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Reading is one decoded ten-minute observation. Absent measurements stay
// nil; they are never zero.
type Reading struct {
	StationID string    `json:"station_id"`
	Time      time.Time `json:"time"`
	Tas       *float64  `json:"tas,omitempty"`
	Hurs      *float64  `json:"hurs,omitempty"`
}

// ErrInvalidReading reports a message that decoded as JSON but cannot be a
// reading.
var ErrInvalidReading = errors.New("invalid live reading")

// DecodeReading unmarshals and validates one message payload.
func DecodeReading(payload []byte) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if r.StationID == "" {
		return Reading{}, fmt.Errorf("%w: missing station_id", ErrInvalidReading)
	}
	if r.Time.IsZero() {
		return Reading{}, fmt.Errorf("%w: missing time", ErrInvalidReading)
	}
	return r, nil
}

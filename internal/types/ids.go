package types

import (
	"time"

	"github.com/google/uuid"
)

// RequestID is a UUIDv7 identifier assigned to each translation request at the transport edge.
// The translator never generates IDs so that translation stays deterministic.
type RequestID string

// NewRequestID generates a UUIDv7 request identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewRequestID() RequestID {
	return RequestID(uuid.Must(uuid.NewV7()).String())
}

// ParseRequestID validates and converts a caller-supplied string to RequestID.
func ParseRequestID(s string) (RequestID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return RequestID(s), nil
}

// RequestIDTime extracts the timestamp embedded in a UUIDv7 ID.
// Returns zero time for invalid or non-v7 UUIDs; caller should check IsZero().
func RequestIDTime(id RequestID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

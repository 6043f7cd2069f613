package api

import (
	"encoding/json"

	"github.com/solatis/mmdsgate/internal/core/metrics"
)

// TranslateRequest is one MMDS control-plane request as received by the VMM's
// HTTP front end. Body carries the raw request bytes, base64 on the wire, so
// it reaches the translator unaltered.
type TranslateRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      []byte `json:"body,omitempty"`
}

// TranslateResponse carries the parsed request as
// {"action", "mode", "payload"}. Enqueued is set when a queued action was
// forwarded to the action queue.
type TranslateResponse struct {
	RequestID string          `json:"request_id"`
	Parsed    json.RawMessage `json:"parsed"`
	Enqueued  bool            `json:"enqueued"`
}

// CountersRequest has no fields.
type CountersRequest struct{}

// CountersResponse lists every request counter, sorted by name.
type CountersResponse struct {
	Counters []metrics.Sample `json:"counters"`
}

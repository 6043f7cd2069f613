// Package mmds translates MMDS control-plane requests into typed actions.
//
// Dispatch is a flat switch on the second path token per method. Bodies are
// decoded straight into their constrained target types (VersionTag, IPv4Addr),
// so decoding and validation are a single fallible step. The translator holds
// no mutable state; request accounting goes to an injected CounterSink.
package mmds

import (
	"fmt"
	"net/http"

	"github.com/solatis/mmdsgate/internal/types"
)

// Second path tokens understood under /mmds.
const (
	TokenConfig  = "config"
	TokenVersion = "version"
)

// Translator maps (method, token, body) to a ParsedRequest.
// Safe for concurrent use if the sink is.
type Translator struct {
	counters CounterSink
}

// NewTranslator creates a translator reporting to counters.
// A nil sink discards all increments.
func NewTranslator(counters CounterSink) *Translator {
	if counters == nil {
		counters = Discard
	}
	return &Translator{counters: counters}
}

// TranslateGet handles GET /mmds and GET /mmds/<token>.
// Only the bare path is counted; GET /mmds/version is not.
func (t *Translator) TranslateGet(token *string) (types.ParsedRequest, error) {
	if token == nil {
		t.counters.Increment(CounterGetCount)
		return types.NewQueued(types.FetchAll{}), nil
	}

	switch *token {
	case TokenVersion:
		return types.NewQueued(types.FetchVersion{}), nil
	default:
		return types.ParsedRequest{}, types.NewMalformed(
			http.StatusBadRequest,
			fmt.Sprintf("Unrecognized GET request path `%s`.", *token),
		)
	}
}

// TranslatePut handles PUT /mmds, PUT /mmds/config and PUT /mmds/version.
// The request counter is incremented before dispatch, for every token.
func (t *Translator) TranslatePut(body []byte, token *string) (types.ParsedRequest, error) {
	t.counters.Increment(CounterPutCount)

	if token == nil {
		doc, err := decodeDocument(body)
		if err != nil {
			return types.ParsedRequest{}, t.putDecodeFailed(err)
		}
		return types.NewQueued(types.ReplaceAll{Value: doc}), nil
	}

	switch *token {
	case TokenConfig:
		cfg, err := decodeConfig(body)
		if err != nil {
			return types.ParsedRequest{}, t.putDecodeFailed(err)
		}
		return types.NewImmediate(types.ReplaceConfiguration{Config: cfg}), nil
	case TokenVersion:
		tag, err := decodeVersion(body)
		if err != nil {
			return types.ParsedRequest{}, t.putDecodeFailed(err)
		}
		return types.NewQueued(types.SetVersion{Version: tag}), nil
	default:
		t.counters.Increment(CounterPutFails)
		return types.ParsedRequest{}, types.NewMalformed(
			http.StatusBadRequest,
			fmt.Sprintf("Unrecognized PUT request path `%s`.", *token),
		)
	}
}

// TranslatePatch handles PATCH /mmds.
func (t *Translator) TranslatePatch(body []byte) (types.ParsedRequest, error) {
	t.counters.Increment(CounterPatchCount)

	doc, err := decodeDocument(body)
	if err != nil {
		t.counters.Increment(CounterPatchFails)
		return types.ParsedRequest{}, types.NewBodyDecodeFailed(err)
	}
	return types.NewQueued(types.MergePatch{Value: doc}), nil
}

func (t *Translator) putDecodeFailed(err error) error {
	t.counters.Increment(CounterPutFails)
	return types.NewBodyDecodeFailed(err)
}

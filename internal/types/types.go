// Package types provides the typed MMDS action vocabulary shared across mmdsgate components.
//
// Zero-dependency design: types.go, mmds.go and errors.go use only the standard
// library so the execution engine can import the action set without pulling in
// transport or storage deps. ID utilities in ids.go import uuid but are isolated.
package types

import (
	"encoding/json"
	"fmt"
)

// Action is a typed command for the execution engine.
// Implemented only by the variants in this file; callers switch over them exhaustively.
type Action interface {
	// Kind returns the stable wire name of the action.
	Kind() string
	isAction()
}

// Action kinds as they appear on the wire and in logs.
const (
	KindFetchAll             = "get_mmds"
	KindFetchVersion         = "get_mmds_version"
	KindReplaceAll           = "put_mmds"
	KindReplaceConfiguration = "set_mmds_configuration"
	KindSetVersion           = "set_mmds_version"
	KindMergePatch           = "patch_mmds"
)

// FetchAll retrieves the entire metadata document.
type FetchAll struct{}

func (FetchAll) Kind() string { return KindFetchAll }
func (FetchAll) isAction()    {}

// FetchVersion retrieves the active MMDS protocol version.
type FetchVersion struct{}

func (FetchVersion) Kind() string { return KindFetchVersion }
func (FetchVersion) isAction()    {}

// ReplaceAll replaces the entire metadata document.
// Value holds the request body bytes verbatim.
type ReplaceAll struct {
	Value json.RawMessage
}

func (ReplaceAll) Kind() string { return KindReplaceAll }
func (ReplaceAll) isAction()    {}

// ReplaceConfiguration replaces the MMDS network configuration.
// Always paired with ModeImmediate.
type ReplaceConfiguration struct {
	Config MmdsConfig
}

func (ReplaceConfiguration) Kind() string { return KindReplaceConfiguration }
func (ReplaceConfiguration) isAction()    {}

// SetVersion switches the active MMDS protocol version.
type SetVersion struct {
	Version VersionTag
}

func (SetVersion) Kind() string { return KindSetVersion }
func (SetVersion) isAction()    {}

// MergePatch applies a merge patch on top of the existing metadata document.
type MergePatch struct {
	Value json.RawMessage
}

func (MergePatch) Kind() string { return KindMergePatch }
func (MergePatch) isAction()    {}

// Mode tells the caller how a parsed request must be executed.
type Mode string

const (
	// ModeQueued actions go through the VM's normal asynchronous action path.
	ModeQueued Mode = "queued"

	// ModeImmediate actions must complete on the calling path before the
	// request is acknowledged. No later request may interleave with them.
	ModeImmediate Mode = "immediate"
)

// ParsedRequest pairs exactly one Action with its execution mode.
type ParsedRequest struct {
	Action Action
	Mode   Mode
}

// NewQueued wraps an action for asynchronous handling.
func NewQueued(a Action) ParsedRequest {
	return ParsedRequest{Action: a, Mode: ModeQueued}
}

// NewImmediate wraps an action that must be executed synchronously.
func NewImmediate(a Action) ParsedRequest {
	return ParsedRequest{Action: a, Mode: ModeImmediate}
}

// parsedRequestWire is the JSON form of ParsedRequest.
type parsedRequestWire struct {
	Action  string          `json:"action"`
	Mode    Mode            `json:"mode"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload returns the action's argument as JSON, or nil for the fetch actions.
// Document payloads are returned verbatim.
func (p ParsedRequest) Payload() (json.RawMessage, error) {
	switch a := p.Action.(type) {
	case FetchAll, FetchVersion:
		return nil, nil
	case ReplaceAll:
		return a.Value, nil
	case MergePatch:
		return a.Value, nil
	case ReplaceConfiguration:
		return json.Marshal(a.Config)
	case SetVersion:
		return json.Marshal(VersionRequest{Version: a.Version})
	case nil:
		return nil, fmt.Errorf("parsed request has no action")
	default:
		return nil, fmt.Errorf("unknown action %T", p.Action)
	}
}

// MarshalJSON encodes the request as {"action", "mode", "payload"}.
func (p ParsedRequest) MarshalJSON() ([]byte, error) {
	if p.Action == nil {
		return nil, fmt.Errorf("parsed request has no action")
	}
	payload, err := p.Payload()
	if err != nil {
		return nil, err
	}
	return json.Marshal(parsedRequestWire{Action: p.Action.Kind(), Mode: p.Mode, Payload: payload})
}

package types

import (
	"encoding/json"
	"fmt"
	"net/netip"
)

// VersionTag identifies an MMDS protocol version.
// Only the tags in supportedVersions decode successfully.
type VersionTag string

const (
	// VersionV1 is the unauthenticated GET-based protocol.
	VersionV1 VersionTag = "V1"

	// VersionV2 is the session-token protocol.
	VersionV2 VersionTag = "V2"
)

var supportedVersions = map[VersionTag]struct{}{
	VersionV1: {},
	VersionV2: {},
}

// SupportedVersions lists the accepted tags in ascending order.
func SupportedVersions() []VersionTag {
	return []VersionTag{VersionV1, VersionV2}
}

// ParseVersionTag validates s against the supported tags. Matching is case-sensitive.
func ParseVersionTag(s string) (VersionTag, error) {
	tag := VersionTag(s)
	if _, ok := supportedVersions[tag]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, s)
	}
	return tag, nil
}

// UnmarshalJSON accepts only a JSON string naming a supported tag.
// A JSON null leaves the tag empty, which VersionRequest rejects.
func (v *VersionTag) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tag, err := ParseVersionTag(s)
	if err != nil {
		return err
	}
	*v = tag
	return nil
}

// VersionRequest is the body of PUT /mmds/version.
type VersionRequest struct {
	Version VersionTag `json:"version"`
}

// Validate rejects a missing or null version.
func (r VersionRequest) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("%w: missing field `version`", ErrUnknownVersion)
	}
	return nil
}

// IPv4Addr is a dotted-quad IPv4 address.
// Decoding rejects empty strings, IPv6 and IPv4-mapped IPv6 forms.
type IPv4Addr struct {
	netip.Addr
}

// ParseIPv4Addr parses s as a dotted-quad IPv4 address.
func ParseIPv4Addr(s string) (IPv4Addr, error) {
	if s == "" {
		return IPv4Addr{}, fmt.Errorf("%w: empty address", ErrInvalidIPv4)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4Addr{}, fmt.Errorf("%w: %v", ErrInvalidIPv4, err)
	}
	if !addr.Is4() {
		return IPv4Addr{}, fmt.Errorf("%w: %q is not an IPv4 address", ErrInvalidIPv4, s)
	}
	return IPv4Addr{Addr: addr}, nil
}

// MustParseIPv4Addr is ParseIPv4Addr for constants; it panics on error.
func MustParseIPv4Addr(s string) IPv4Addr {
	a, err := ParseIPv4Addr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// MarshalJSON encodes the address as a JSON string.
func (a IPv4Addr) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Addr.String())
}

// UnmarshalJSON requires a JSON string holding a valid IPv4 address.
func (a *IPv4Addr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseIPv4Addr(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DefaultIPv4Address is the link-local address MMDS answers on when none is configured.
var DefaultIPv4Address = MustParseIPv4Addr("169.254.169.254")

// MmdsConfig is the body of PUT /mmds/config.
// An empty object is a valid request to reset to defaults.
type MmdsConfig struct {
	// IPv4Address is nil when absent or null.
	IPv4Address *IPv4Addr `json:"ipv4_address,omitempty"`

	// NetworkInterfaces lists the guest interface IDs that may reach MMDS.
	NetworkInterfaces []string `json:"network_interfaces,omitempty"`

	// Version optionally selects the protocol version together with the config.
	Version *VersionTag `json:"version,omitempty"`
}

// EffectiveIPv4Address returns the configured address or DefaultIPv4Address.
func (c MmdsConfig) EffectiveIPv4Address() IPv4Addr {
	if c.IPv4Address == nil {
		return DefaultIPv4Address
	}
	return *c.IPv4Address
}

// Validate checks constraints that cannot be expressed by field decoding.
func (c MmdsConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.NetworkInterfaces))
	for _, id := range c.NetworkInterfaces {
		if id == "" {
			return fmt.Errorf("%w: empty network interface id", ErrInvalidConfig)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate network interface id %q", ErrInvalidConfig, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

package types

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestParsedRequest_MarshalJSON(t *testing.T) {
	addr := MustParseIPv4Addr("169.254.170.2")
	v2 := VersionV2

	tests := []struct {
		name string
		req  ParsedRequest
		want string
	}{
		{"fetch all", NewQueued(FetchAll{}), `{"action":"get_mmds","mode":"queued"}`},
		{"fetch version", NewQueued(FetchVersion{}), `{"action":"get_mmds_version","mode":"queued"}`},
		{"replace all", NewQueued(ReplaceAll{Value: json.RawMessage(`{"a":[1,2]}`)}), `{"action":"put_mmds","mode":"queued","payload":{"a":[1,2]}}`},
		{"merge patch", NewQueued(MergePatch{Value: json.RawMessage(`{"a":null}`)}), `{"action":"patch_mmds","mode":"queued","payload":{"a":null}}`},
		{"set version", NewQueued(SetVersion{Version: VersionV1}), `{"action":"set_mmds_version","mode":"queued","payload":{"version":"V1"}}`},
		{"config reset", NewImmediate(ReplaceConfiguration{}), `{"action":"set_mmds_configuration","mode":"immediate","payload":{}}`},
		{
			"config full",
			NewImmediate(ReplaceConfiguration{Config: MmdsConfig{IPv4Address: &addr, NetworkInterfaces: []string{"eth0"}, Version: &v2}}),
			`{"action":"set_mmds_configuration","mode":"immediate","payload":{"ipv4_address":"169.254.170.2","network_interfaces":["eth0"],"version":"V2"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("nil action", func(t *testing.T) {
		if _, err := json.Marshal(ParsedRequest{}); err == nil {
			t.Error("expected error for nil action")
		}
	})
}

func TestParseIPv4Addr(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"169.254.170.2", false},
		{"10.0.0.1", false},
		{"", true},
		{"256.1.1.1", true},
		{"1.2.3", true},
		{"::1", true},
		{"::ffff:10.0.0.1", true},
		{"010.0.0.1", true},
		{"not-an-ip", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseIPv4Addr(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIPv4Addr(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidIPv4) {
				t.Errorf("error = %v, want wrapping ErrInvalidIPv4", err)
			}
		})
	}

	t.Run("non-string JSON", func(t *testing.T) {
		var a IPv4Addr
		if err := json.Unmarshal([]byte(`169`), &a); err == nil {
			t.Error("expected error for numeric address")
		}
	})
}

func TestParseVersionTag(t *testing.T) {
	for _, v := range SupportedVersions() {
		got, err := ParseVersionTag(string(v))
		if err != nil || got != v {
			t.Errorf("ParseVersionTag(%q) = %q, %v", v, got, err)
		}
	}
	for _, s := range []string{"", "v1", "V3", " V1"} {
		if _, err := ParseVersionTag(s); !errors.Is(err, ErrUnknownVersion) {
			t.Errorf("ParseVersionTag(%q) error = %v, want ErrUnknownVersion", s, err)
		}
	}
}

func TestMmdsConfig_Validate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if err := (MmdsConfig{}).Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("empty interface id", func(t *testing.T) {
		err := MmdsConfig{NetworkInterfaces: []string{""}}.Validate()
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
		}
	})

	t.Run("default address", func(t *testing.T) {
		if got := (MmdsConfig{}).EffectiveIPv4Address().String(); got != "169.254.169.254" {
			t.Errorf("EffectiveIPv4Address() = %s, want 169.254.169.254", got)
		}
	})
}

func TestRequestError(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		err := error(NewMalformed(http.StatusBadRequest, "Unrecognized GET request path `x`."))
		if !errors.Is(err, ErrMalformedRequest) {
			t.Error("errors.Is(ErrMalformedRequest) = false")
		}
		if errors.Is(err, ErrBodyDecode) {
			t.Error("errors.Is(ErrBodyDecode) = true for malformed")
		}
		if err.Error() != "Unrecognized GET request path `x`." {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("body decode failed", func(t *testing.T) {
		cause := errors.New("boom")
		err := NewBodyDecodeFailed(cause)
		if !errors.Is(err, ErrBodyDecode) {
			t.Error("errors.Is(ErrBodyDecode) = false")
		}
		if !errors.Is(err, cause) {
			t.Error("cause not reachable through Unwrap")
		}
		if err.HTTPStatus() != http.StatusBadRequest {
			t.Errorf("HTTPStatus() = %d, want 400", err.HTTPStatus())
		}
		want := "An error occurred when deserializing the json body of a request: boom."
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})
}

func TestRequestID(t *testing.T) {
	id := NewRequestID()
	if _, err := ParseRequestID(string(id)); err != nil {
		t.Fatalf("ParseRequestID(%s) error = %v", id, err)
	}
	if RequestIDTime(id).IsZero() {
		t.Error("RequestIDTime() is zero for a v7 id")
	}
	if _, err := ParseRequestID("nope"); err == nil {
		t.Error("expected error for invalid id")
	}
	if !RequestIDTime("nope").IsZero() {
		t.Error("RequestIDTime() should be zero for invalid id")
	}
}

package mmds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/solatis/mmdsgate/internal/types"
)

var errInvalidUTF8 = errors.New("invalid UTF-8 in request body")

// decodeDocument validates body as a single JSON value and returns it verbatim.
// json.Unmarshal checks the whole input first, so trailing bytes are rejected.
func decodeDocument(body []byte) (json.RawMessage, error) {
	if !utf8.Valid(body) {
		return nil, errInvalidUTF8
	}
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// decodeStrict decodes exactly one JSON object into dest, rejecting unknown
// and repeated fields.
func decodeStrict(body []byte, dest any) error {
	if !utf8.Valid(body) {
		return errInvalidUTF8
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return io.ErrUnexpectedEOF
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	if err := checkDuplicateKeys(trimmed); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("trailing characters after JSON value")
	}
	return nil
}

// checkDuplicateKeys rejects an object whose top level names a key twice.
// encoding/json would otherwise keep the last value.
func checkDuplicateKeys(obj []byte) error {
	dec := json.NewDecoder(bytes.NewReader(obj))
	if _, err := dec.Token(); err != nil {
		return err
	}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate field `%s`", key)
		}
		seen[key] = struct{}{}

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return err
		}
	}
	return nil
}

func decodeConfig(body []byte) (types.MmdsConfig, error) {
	var cfg types.MmdsConfig
	if err := decodeStrict(body, &cfg); err != nil {
		return types.MmdsConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return types.MmdsConfig{}, err
	}
	return cfg, nil
}

func decodeVersion(body []byte) (types.VersionTag, error) {
	var req types.VersionRequest
	if err := decodeStrict(body, &req); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	return req.Version, nil
}

package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Record is an inbound authorization request held as the exact JSON the
// authorization server produced. Unknown fields pass through untouched.
type Record struct {
	raw      json.RawMessage
	clientID string
}

// NewRecord serializes an authorization request.
func NewRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encoding authorization request: %w", err)
	}
	return ParseRecord(raw)
}

// ParseRecord validates raw as a JSON object with a non-empty clientId.
func ParseRecord(raw []byte) (Record, error) {
	var probe struct {
		ClientID string `json:"clientId"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, errors.New("authorization request is not a JSON object")
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return Record{}, fmt.Errorf("decoding authorization request: %w", err)
	}
	if probe.ClientID == "" {
		return Record{}, errors.New("authorization request has no clientId")
	}
	return Record{raw: append(json.RawMessage(nil), trimmed...), clientID: probe.ClientID}, nil
}

// ClientID is the inbound client identifier.
func (r Record) ClientID() string { return r.clientID }

// Raw returns the record bytes.
func (r Record) Raw() json.RawMessage { return r.raw }

// IsZero reports whether the record is empty.
func (r Record) IsZero() bool { return len(r.raw) == 0 }

// Decode unmarshals the record into v.
func (r Record) Decode(v any) error { return json.Unmarshal(r.raw, v) }

func (r Record) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return r.raw, nil
}

func (r *Record) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = Record{}
		return nil
	}
	rec, err := ParseRecord(b)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// EncodeState turns a record into the opaque state parameter sent upstream.
func EncodeState(r Record) string {
	return base64.RawURLEncoding.EncodeToString(r.raw)
}

// DecodeState is the inverse of EncodeState. Padded and standard-alphabet
// base64 are accepted too.
func DecodeState(token string) (Record, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Record{}, newError(KindInvalidState, http.StatusBadRequest, "Invalid state", errors.New("state is missing"))
	}

	raw, err := decodeBase64(token)
	if err != nil {
		return Record{}, newError(KindInvalidState, http.StatusBadRequest, "Invalid state", err)
	}
	rec, err := ParseRecord(raw)
	if err != nil {
		return Record{}, newError(KindInvalidState, http.StatusBadRequest, "Invalid state", err)
	}
	return rec, nil
}

func decodeBase64(token string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		raw, err := enc.DecodeString(token)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("state is not base64: %w", lastErr)
}

package record

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SessionIDField is the JSON member holding the session identifier.
const SessionIDField = "sessionId"

// ErrMalformed is returned when a line cannot be decoded as a session record.
// Callers are expected to pass such lines through verbatim.
var ErrMalformed = errors.New("malformed record line")

// Record is one decoded session-log line. The raw bytes of the line are
// retained so that re-encoding preserves every field, key order included.
type Record struct {
	SessionID string
	raw       []byte
}

// Decode parses a single JSONL line into a Record. The line must be a JSON
// object with a string SessionIDField member; anything else is ErrMalformed.
func Decode(line []byte) (Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Record{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}
	if !gjson.ValidBytes(trimmed) {
		return Record{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	parsed := gjson.ParseBytes(trimmed)
	if !parsed.IsObject() {
		return Record{}, fmt.Errorf("%w: not a JSON object", ErrMalformed)
	}
	sid := parsed.Get(SessionIDField)
	if sid.Type != gjson.String {
		return Record{}, fmt.Errorf("%w: missing %s field", ErrMalformed, SessionIDField)
	}

	raw := make([]byte, len(trimmed))
	copy(raw, trimmed)

	return Record{
		SessionID: sid.String(),
		raw:       raw,
	}, nil
}

// Encode returns the record as a single line without a trailing newline.
func (r Record) Encode() []byte {
	out := make([]byte, len(r.raw))
	copy(out, r.raw)
	return out
}

// Raw returns the record's underlying line bytes without copying.
func (r Record) Raw() []byte {
	return r.raw
}

// WithSessionID returns a copy of the record with the session identifier
// rewritten. All other fields survive byte-for-byte.
func (r Record) WithSessionID(id string) (Record, error) {
	raw, err := sjson.SetBytes(r.raw, SessionIDField, id)
	if err != nil {
		return Record{}, fmt.Errorf("failed to rewrite %s: %w", SessionIDField, err)
	}
	return Record{SessionID: id, raw: raw}, nil
}

// Get extracts an arbitrary field from the record by gjson path.
func (r Record) Get(path string) gjson.Result {
	return gjson.GetBytes(r.raw, path)
}

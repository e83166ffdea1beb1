// Package params decodes JSON-RPC method parameters
package params

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxLimit caps every paged method
const MaxLimit = 100

// Error reports malformed or missing parameters
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Missing reports a required parameter that was not supplied
func Missing(name string) error {
	return &Error{Message: fmt.Sprintf("missing required parameter: %s", name)}
}

// Decode unmarshals named parameters into dest. Absent params leave dest
// untouched, and a single-element positional array holding an object is
// accepted as well.
func Decode(raw json.RawMessage, dest interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '[' {
		var positional []json.RawMessage
		if err := json.Unmarshal(raw, &positional); err != nil {
			return &Error{Message: "invalid parameters format"}
		}
		switch len(positional) {
		case 0:
			return nil
		case 1:
			raw = positional[0]
		default:
			return &Error{Message: "expected named parameters"}
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return &Error{Message: fmt.Sprintf("invalid parameters: %v", err)}
	}
	return nil
}

// Limit clamps a requested page size to [1, MaxLimit], using def for
// unset values
func Limit(requested, def int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > MaxLimit {
		return MaxLimit
	}
	return requested
}

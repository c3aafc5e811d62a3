package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RawValue is numeric-like text. It decodes from a JSON number, a JSON string or null,
// and keeps the literal so coercion can decide later whether the row survives.
type RawValue string

// FloatValue renders a float in its shortest round-trip form.
func FloatValue(f float64) RawValue {
	return RawValue(strconv.FormatFloat(f, 'g', -1, 64))
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("raw value: %w", err)
		}
		*v = RawValue(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("raw value must be a number or a string: %w", err)
		}
		*v = RawValue(n.String())
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v RawValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

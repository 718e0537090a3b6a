package incident

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Text is a string attribute. The upstream provider is not strict about types, so numbers and
// booleans are accepted and kept in their literal form. Objects, arrays and null decode to "".
type Text string

// UnmarshalJSON implements json.Unmarshaler. It never fails: unusable values become absent.
func (t *Text) UnmarshalJSON(data []byte) error {
	s, _ := scalarString(data)
	*t = Text(s)
	return nil
}

// String returns the raw text.
func (t Text) String() string {
	return string(t)
}

// Present reports whether the value is non-empty.
func (t Text) Present() bool {
	return t != ""
}

// Blank reports whether the value is empty or whitespace only.
func (t Text) Blank() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Number is a numeric attribute that may arrive as a JSON number or a numeric string.
type Number struct {
	// Value is the parsed value. Only meaningful when Valid is true.
	Value float64

	// Valid is true when the attribute parsed as a finite number.
	Valid bool

	// Raw keeps a non-numeric string so it can still be displayed.
	Raw string
}

// NewNumber returns a valid Number.
func NewNumber(v float64) Number {
	return Number{Value: v, Valid: true}
}

// NumberFrom parses raw the same way a decoded string attribute is parsed.
func NumberFrom(raw string) Number {
	var n Number
	n.set(raw)
	return n
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	s, ok := scalarString(data)
	if !ok {
		return nil
	}
	n.set(s)
	return nil
}

func (n *Number) set(raw string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		n.Raw = raw
		return
	}
	n.Value = v
	n.Valid = true
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	switch {
	case n.Valid:
		return []byte(strconv.FormatFloat(n.Value, 'f', -1, 64)), nil
	case n.Raw != "":
		return json.Marshal(n.Raw)
	default:
		return []byte("null"), nil
	}
}

// Present reports whether the attribute was supplied with any usable content.
func (n Number) Present() bool {
	return n.Valid || n.Raw != ""
}

// String renders the number without a trailing fraction when it is integral.
func (n Number) String() string {
	if n.Valid {
		return strconv.FormatFloat(n.Value, 'f', -1, 64)
	}
	return n.Raw
}

// Flag is a boolean attribute. Only JSON true and false are accepted.
type Flag struct {
	Value bool
	Valid bool
}

// Bool returns a valid Flag.
func Bool(v bool) Flag {
	return Flag{Value: v, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (f *Flag) UnmarshalJSON(data []byte) error {
	*f = Flag{}
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*f = Bool(true)
	case "false":
		*f = Bool(false)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// IsTrue reports whether the flag is present and true.
func (f Flag) IsTrue() bool {
	return f.Valid && f.Value
}

// Timestamp is a date-like attribute, either text or a numeric epoch in milliseconds.
type Timestamp struct {
	Raw     string
	Epoch   float64
	Numeric bool
}

// TimeString returns a textual Timestamp.
func TimeString(raw string) Timestamp {
	return Timestamp{Raw: raw}
}

// TimeEpoch returns a numeric Timestamp holding milliseconds since the Unix epoch.
func TimeEpoch(ms float64) Timestamp {
	return Timestamp{Epoch: ms, Numeric: true}
}

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			t.Raw = s
		}
		return nil
	}
	if v, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		t.Epoch = v
		t.Numeric = true
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.Numeric:
		return []byte(strconv.FormatFloat(t.Epoch, 'f', -1, 64)), nil
	case t.Raw != "":
		return json.Marshal(t.Raw)
	default:
		return []byte("null"), nil
	}
}

// Present reports whether the timestamp was supplied.
func (t Timestamp) Present() bool {
	return t.Numeric || t.Raw != ""
}

// String returns the value as it was supplied.
func (t Timestamp) String() string {
	if t.Numeric {
		return strconv.FormatFloat(t.Epoch, 'f', -1, 64)
	}
	return t.Raw
}

// scalarString converts a JSON scalar to its textual form. The boolean result is false for
// null, objects, arrays and undecodable input.
func scalarString(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	default:
		// true, false and number literals keep their literal text
		return string(trimmed), true
	}
}

package util

import (
	"bytes"
	"encoding/json"
)

// Upstream feeds are untrusted: a field may be missing, null or of the wrong
// type. The types below decode any JSON value without returning an error so a
// single odd field never discards the whole record.

// Text holds a JSON string or number. Anything else decodes to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*t = ""
	if len(b) == 0 {
		return nil
	}
	switch c := b[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*t = Text(s)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(b, &n); err == nil {
			*t = Text(n.String())
		}
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Strings holds a JSON array of strings. Non-array values decode to an empty
// list and non-scalar elements are skipped.
type Strings []string

func (s *Strings) UnmarshalJSON(b []byte) error {
	*s = Strings{}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, r := range raw {
		var t Text
		_ = t.UnmarshalJSON(r)
		if t != "" {
			*s = append(*s, string(t))
		}
	}
	return nil
}

// Slice returns the list, never nil.
func (s Strings) Slice() []string {
	if s == nil {
		return []string{}
	}
	return []string(s)
}

// Salary keeps the raw JSON of a salary value untouched. JSON null and a
// missing field both leave it empty.
type Salary json.RawMessage

func (s *Salary) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	*s = append((*s)[:0], b...)
	return nil
}

// Raw returns the value for a domain.Job, nil meaning null.
func (s Salary) Raw() json.RawMessage {
	if len(s) == 0 {
		return nil
	}
	return json.RawMessage(s)
}

// Truthy is Raw with empty strings, zero and false also mapped to null.
func (s Salary) Truthy() json.RawMessage {
	switch string(s) {
	case "", `""`, "0", "false":
		return nil
	}
	return s.Raw()
}

// Records returns the elements of the first array found under one of keys in
// a JSON object body. A body that is not an object, or has none of the keys
// holding an array, yields no records.
func Records(body []byte, keys ...string) []json.RawMessage {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	for _, k := range keys {
		v, ok := env[k]
		if !ok {
			continue
		}
		var list []json.RawMessage
		if err := json.Unmarshal(v, &list); err != nil || list == nil {
			continue
		}
		return list
	}
	return nil
}

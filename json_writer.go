package allocator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter builds a JSON object whose fields keep their insertion
// order. The zero value is an empty object.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// EmbedFrom marshals v, which must encode as an object, and merges its fields
// into the object being built.
func (w *jsonObjectWriter) EmbedFrom(v any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("cannot embed %T: %w", v, err)
		return w
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '{' && raw[len(raw)-1] == '}' {
		raw = raw[1 : len(raw)-1]
	}
	if len(raw) > 0 {
		w.Write(raw)
		w.WriteByte(',')
	}
	return w
}

// Append writes key with the JSON encoding of value.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	raw, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("cannot marshal %q: %w", key, err)
		return w
	}
	fmt.Fprintf(w, "%q:", key)
	w.Write(raw)
	w.WriteByte(',')
	return w
}

// Optional is Append, skipped when value is the zero value of its type.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// MarshalJSON closes the object.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	body := bytes.TrimSuffix(w.Bytes(), []byte(","))
	out := make([]byte, 0, len(body)+2)
	out = append(out, '{')
	out = append(out, body...)
	return append(out, '}'), nil
}

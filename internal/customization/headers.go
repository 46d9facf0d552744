// internal/customization/headers.go
package customization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Header names the rewriter consults.
const (
	HeaderCitrixVia = "X-Citrix-Via"
	HeaderUserAgent = "User-Agent"
)

// Header is one named header with its values in arrival order.
type Header struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Headers is an ordered header collection. Names may repeat with different
// casing; lookups are case-insensitive across all entries.
type Headers []Header

// FromHTTP converts an http.Header. Keys are sorted so the result is stable.
func FromHTTP(h http.Header) Headers {
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(names))
	for _, name := range names {
		values := make([]string, len(h[name]))
		copy(values, h[name])
		out = append(out, Header{Name: name, Values: values})
	}
	return out
}

// Lookup returns the values of every header matching name, joined into one
// string. The boolean is false when no header matches, which callers use to
// tell an absent header from an empty one.
//
// The join keeps the legacy separator placement: within one header entry a
// ';' is written only before values whose index is greater than 1, so
// [a b c] joins to "ab;c", and nothing separates consecutive matching entries.
func (h Headers) Lookup(name string) (string, bool) {
	var b strings.Builder
	found := false
	for _, hdr := range h {
		if !strings.EqualFold(hdr.Name, name) {
			continue
		}
		found = true
		for i, v := range hdr.Values {
			if i > 1 {
				b.WriteByte(';')
			}
			b.WriteString(v)
		}
	}
	if !found {
		return "", false
	}
	return b.String(), true
}

// Has reports whether any header matches name.
func (h Headers) Has(name string) bool {
	_, ok := h.Lookup(name)
	return ok
}

// UnmarshalJSON accepts either an object mapping names to a string or a list
// of strings, or a list of {"name","values"} entries. Object member order is
// kept.
func (h *Headers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*h = nil
		return nil
	}

	if data[0] == '[' {
		var list []Header
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decoding header list: %w", err)
		}
		*h = list
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding headers: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decoding headers: expected object or array, got %v", tok)
	}

	var out Headers
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding header name: %w", err)
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding header %s: %w", name, err)
		}
		values, err := decodeHeaderValues(raw)
		if err != nil {
			return fmt.Errorf("decoding header %s: %w", name, err)
		}
		out = append(out, Header{Name: name, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decoding headers: %w", err)
	}

	*h = out
	return nil
}

func decodeHeaderValues(raw json.RawMessage) ([]string, error) {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("value must be a string or a list of strings")
	}
	return many, nil
}

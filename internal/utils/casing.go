package utils

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SnakeToCamel converts a snake_case key to camelCase. An underscore is
// only folded when a lowercase letter follows it, so keys such as "a_1"
// survive the round trip through CamelToSnake.
func SnakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i+1 < len(s) && isLower(s[i+1]) {
			b.WriteByte(s[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// CamelToSnake converts a camelCase key to snake_case
func CamelToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('_')
			b.WriteByte(c - 'A' + 'a')
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func mapKeys(v interface{}, fn func(string) string) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fn(k)] = mapKeys(val, fn)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = mapKeys(val, fn)
		}
		return out
	default:
		return v
	}
}

// CamelizeKeys renames every object key of a decoded JSON value to camelCase
func CamelizeKeys(v interface{}) interface{} {
	return mapKeys(v, SnakeToCamel)
}

// SnakifyKeys renames every object key of a decoded JSON value to snake_case
func SnakifyKeys(v interface{}) interface{} {
	return mapKeys(v, CamelToSnake)
}

// MarshalCamel encodes v as JSON with camelCase keys
func MarshalCamel(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(CamelizeKeys(generic))
}

// UnmarshalCamel decodes JSON whose keys may be camelCased into v, whose
// fields carry snake_case tags
func UnmarshalCamel(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	raw, err := json.Marshal(SnakifyKeys(generic))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

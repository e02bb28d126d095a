package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON form of a row snapshot, used
// for everything persisted to the action log. Canonical means:
//
//  1. Object keys sorted by byte order
//  2. Strings NFC-normalized before encoding
//  3. No HTML escaping (< > & written literally)
//  4. Integers without exponent or fraction, floats via strconv shortest form
//
// Two snapshots holding the same columns and values always canonicalize to
// identical bytes, so persisted history compares stably across processes.
func MarshalCanonical(rv RowValues) ([]byte, error) {
	keys := rv.Columns()
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		val, _ := rv.Get(key)

		keyJSON, err := canonicalString(key)
		if err != nil {
			return nil, fmt.Errorf("canonical marshal: key %q: %w", key, err)
		}
		valJSON, err := canonicalValue(val)
		if err != nil {
			return nil, fmt.Errorf("canonical marshal: column %q: %w", key, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// canonicalValue encodes a normalized scalar value.
func canonicalValue(v any) ([]byte, error) {
	switch val := normalizeValue(v).(type) {
	case nil:
		return []byte("null"), nil
	case bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case int64:
		return strconv.AppendInt(nil, val, 10), nil
	case float64:
		return strconv.AppendFloat(nil, val, 'g', -1, 64), nil
	case string:
		return canonicalString(val)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// canonicalString NFC-normalizes s and encodes it as a JSON string without
// HTML escaping.
func canonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	// Encoder appends a trailing newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalCanonical parses a canonical JSON payload back into RowValues.
// An empty or "null" payload yields nil (absent snapshot).
func UnmarshalCanonical(data []byte) (RowValues, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	var rv RowValues
	if err := json.Unmarshal(data, &rv); err != nil {
		return nil, fmt.Errorf("canonical unmarshal: %w", err)
	}
	return rv, nil
}

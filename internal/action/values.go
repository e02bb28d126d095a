package action

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ColumnValue is one column→value pair of a row snapshot.
type ColumnValue struct {
	Column string
	Value  any
}

// RowValues is an ordered column→value snapshot. Order is the order columns
// were supplied in (issuance order for captured mutations, wire order after
// unmarshaling). Ordering keeps compiled statements deterministic; equality
// is order-insensitive, see Equal.
//
// Values are restricted to what survives a JSON round trip without drift:
// nil, bool, string, int64 and float64. Integers never degrade to floats -
// decoding goes through json.Number and stays int64 whenever the literal
// parses as one.
type RowValues []ColumnValue

// Row constructs RowValues from alternating column, value arguments.
// Panics on an odd argument count or a non-string column - this is a
// construction bug, not a runtime condition.
func Row(pairs ...any) RowValues {
	if len(pairs)%2 != 0 {
		panic("action.Row: odd number of arguments")
	}
	rv := make(RowValues, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		col, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("action.Row: column name at index %d is %T, want string", i, pairs[i]))
		}
		rv = append(rv, ColumnValue{Column: col, Value: normalizeValue(pairs[i+1])})
	}
	return rv
}

// Get returns the value for column and whether it is present.
func (rv RowValues) Get(column string) (any, bool) {
	for _, cv := range rv {
		if cv.Column == column {
			return cv.Value, true
		}
	}
	return nil, false
}

// Set returns a copy of rv with column set to value, replacing an existing
// entry in place or appending a new one. rv itself is not modified.
func (rv RowValues) Set(column string, value any) RowValues {
	out := rv.Clone()
	for i := range out {
		if out[i].Column == column {
			out[i].Value = normalizeValue(value)
			return out
		}
	}
	return append(out, ColumnValue{Column: column, Value: normalizeValue(value)})
}

// Columns returns the column names in listed order.
func (rv RowValues) Columns() []string {
	cols := make([]string, len(rv))
	for i, cv := range rv {
		cols[i] = cv.Column
	}
	return cols
}

// Clone returns a shallow copy. Values are JSON scalars, so a shallow copy
// is a full copy.
func (rv RowValues) Clone() RowValues {
	if rv == nil {
		return nil
	}
	out := make(RowValues, len(rv))
	copy(out, rv)
	return out
}

// Equal reports whether rv and other hold the same columns with the same
// values, regardless of order. Numeric values compare after normalization,
// so int64(3) captured in-process equals json.Number("3") read back from
// storage.
func (rv RowValues) Equal(other RowValues) bool {
	if len(rv) != len(other) {
		return false
	}
	for _, cv := range rv {
		ov, ok := other.Get(cv.Column)
		if !ok {
			return false
		}
		if normalizeValue(cv.Value) != normalizeValue(ov) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes rv as a JSON object with keys in listed order.
// For the storage form (sorted keys, NFC strings) use MarshalCanonical.
func (rv RowValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cv := range rv {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cv.Column)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(cv.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cv.Column, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving wire key order. Numbers
// decode via json.Number and normalize to int64 when the literal parses as
// an integer, float64 otherwise.
func (rv *RowValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row values: expected JSON object, got %v", tok)
	}

	var out RowValues
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row values: non-string key %v", keyTok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("row values: column %q: %w", key, err)
		}
		val, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("row values: column %q: %w", key, err)
		}
		out = append(out, ColumnValue{Column: key, Value: val})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}

	*rv = out
	return nil
}

// normalizeValue collapses equivalent numeric representations to a single
// form: every integer type becomes int64, float32 becomes float64, []byte
// becomes string (SQL drivers hand TEXT back as bytes), json.Number parses
// to int64 or float64. Everything else passes through.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// decodeValue converts a decoded JSON value into the normalized scalar set.
// Nested arrays and objects are rejected: row snapshots are flat.
func decodeValue(raw any) (any, error) {
	switch raw.(type) {
	case nil, bool, string, json.Number:
		return normalizeValue(raw), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

package actionlog

import (
	"database/sql"
	"fmt"

	"github.com/rewindable/rewind/internal/action"
)

// marshalValues converts a non-empty snapshot to canonical JSON TEXT.
func marshalValues(rv action.RowValues) (string, error) {
	data, err := action.MarshalCanonical(rv)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}

// marshalNullable converts a snapshot to canonical JSON TEXT, storing NULL
// for an absent snapshot (insert has no old values, delete no new ones).
func marshalNullable(rv action.RowValues) (any, error) {
	if len(rv) == 0 {
		return nil, nil
	}
	s, err := marshalValues(rv)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// unmarshalNullable parses a possibly-NULL canonical JSON payload.
func unmarshalNullable(s sql.NullString) (action.RowValues, error) {
	if !s.Valid {
		return nil, nil
	}
	return action.UnmarshalCanonical([]byte(s.String))
}

package db

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// JSON stores a raw JSON document in a jsonb column without forcing a
// schema on it. Chat descriptions and disconnect reasons keep whatever
// shape the server sent.
type JSON json.RawMessage

// GormDataType declares the column type for migrations and clause building.
func (JSON) GormDataType() string {
	return "jsonb"
}

// Value implements driver.Valuer. Empty documents store as NULL.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		*j = append((*j)[:0], v...)
		return nil
	case string:
		*j = JSON(v)
		return nil
	default:
		return errors.Errorf("cannot scan %T into JSON", src)
	}
}

// MarshalJSON returns the document verbatim.
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores the document verbatim.
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

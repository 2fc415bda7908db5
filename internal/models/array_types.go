package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/lib/pq"
)

// StringList is a custom type for handling TEXT[] arrays in PostgreSQL
type StringList []string

// Value implements the driver.Valuer interface
func (a StringList) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return pq.Array([]string(a)).Value()
}

// Scan implements the sql.Scanner interface
func (a *StringList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	slice := (*[]string)(a)
	return pq.Array(slice).Scan(src)
}

// JSONDocument stores a raw JSON payload in a JSONB column
type JSONDocument json.RawMessage

// Value implements the driver.Valuer interface
func (d JSONDocument) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return []byte(d), nil
}

// Scan implements the sql.Scanner interface
func (d *JSONDocument) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
		return nil
	case []byte:
		*d = append((*d)[:0], v...)
		return nil
	case string:
		*d = JSONDocument(v)
		return nil
	}
	return errors.New("type assertion to []byte failed for JSONDocument")
}

// MarshalJSON emits the stored document as-is
func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return []byte(d), nil
}

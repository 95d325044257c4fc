package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBMap maps a JSON object column (JSONB on postgres, TEXT on sqlite).
type JSONBMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner interface
func (j *JSONBMap) Scan(value interface{}) error {
	bytes, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*j = nil
		return nil
	}
	result := make(JSONBMap)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// JSONBStrings maps a JSON array of strings.
type JSONBStrings []string

func (s JSONBStrings) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *JSONBStrings) Scan(value interface{}) error {
	bytes, err := columnBytes(value)
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*s = JSONBStrings{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(bytes, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

// JSONBStringLists maps a JSON object whose values are string arrays, the
// shape of a design space.
type JSONBStringLists map[string][]string

func (l JSONBStringLists) Value() (driver.Value, error) {
	if l == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string][]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *JSONBStringLists) Scan(value interface{}) error {
	bytes, err := columnBytes(value)
	if err != nil {
		return err
	}
	out := make(JSONBStringLists)
	if len(bytes) > 0 {
		if err := json.Unmarshal(bytes, &out); err != nil {
			return err
		}
	}
	*l = out
	return nil
}

func columnBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}

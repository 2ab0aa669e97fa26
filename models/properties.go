package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Properties is an open key/value map attached to entities, nodes, edges and
// rules. The extractor invents keys per contract, so no schema is imposed.
type Properties map[string]interface{}

// Value implements driver.Valuer for JSONB
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return json.Marshal(Properties{})
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB
func (p *Properties) Scan(value interface{}) error {
	if value == nil {
		*p = make(Properties)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*p = make(Properties)
		return nil
	}

	if len(bytes) == 0 {
		*p = make(Properties)
		return nil
	}

	return json.Unmarshal(bytes, p)
}

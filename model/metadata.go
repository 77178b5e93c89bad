package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Metadata is the free-form chunk/document metadata map, stored as JSONB
// in the Postgres backend
type Metadata map[string]interface{}

// Value implements driver.Valuer for database storage
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("metadata scan: type assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// Clone returns a shallow copy so chunk metadata can be extended per chunk
// without mutating the document's map
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

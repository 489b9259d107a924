package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// IDSet is an insertion-ordered set of entity ids, stored as a JSON array.
type IDSet []string

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless it is already present. It reports whether the set changed.
func (s *IDSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove drops id from the set. It reports whether the set changed.
func (s *IDSet) Remove(id string) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	if s == nil {
		return IDSet{}
	}
	out := make(IDSet, len(s))
	copy(out, s)
	return out
}

// Value return json value, implement driver.Valuer interface
func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	ba, err := json.Marshal([]string(s))
	return string(ba), err
}

// Scan scan value into IDSet, implements sql.Scanner interface
func (s *IDSet) Scan(val interface{}) error {
	var ba []byte
	switch v := val.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case []byte:
		ba = v
	case string:
		ba = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal IDSet value:", val))
	}
	var t []string
	if err := json.Unmarshal(ba, &t); err != nil {
		return err
	}
	*s = IDSet(t)
	return nil
}

// GormDataType gorm common data type
func (IDSet) GormDataType() string {
	return "idset"
}

// GormDBDataType gorm db data type
func (IDSet) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	default:
		return "TEXT"
	}
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList stores an ordered list of strings as a JSON array column.
// Legacy rows written before the array migration hold a bare scalar
// ("Safety" instead of ["Safety"]); Scan normalizes those to a
// one-element list so callers never see the old shape.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		*l = nil
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		*l = list
		return nil
	}

	// Legacy scalar value
	var scalar string
	if err := json.Unmarshal(raw, &scalar); err == nil {
		*l = StringList{scalar}
		return nil
	}
	*l = StringList{trimmed}
	return nil
}

// ContainsFold reports whether the list holds s, ignoring case and
// surrounding whitespace.
func (l StringList) ContainsFold(s string) bool {
	for _, item := range l {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a due date. It accepts RFC3339, a timestamp without an
// offset, or a plain calendar date; values without an offset are UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected RFC3339 or YYYY-MM-DD", s)
}

// NullableID distinguishes an omitted id from an explicit null.
// Set is true whenever the key was present in the payload.
type NullableID struct {
	Set   bool
	Value *uint64
}

func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var id uint64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("id must be a positive integer: %w", err)
	}
	n.Value = &id
	return nil
}

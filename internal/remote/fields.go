package remote

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// Kind selects how a field is coerced to and from its wire form.
type Kind int

const (
	// Scalar values are copied through JSON unchanged.
	Scalar Kind = iota
	// Date values travel as "2006-01-02"; full timestamps are accepted.
	Date
	// Locator references another resource by id under the key <name>Id.
	Locator
	// Static holds a static data code under an explicit key.
	Static
	// Link names a related collection relative to the resource location.
	// Links are never serialised.
	Link
)

const dateLayout = "2006-01-02"

// Field maps one resource attribute to its wire key.
type Field struct {
	Name string
	// Key overrides the wire key. For links it is the relative path.
	Key  string
	Kind Kind
	// Target points at the attribute. Date targets are **time.Time.
	Target any
	// ReadOnly fields are decoded but never submitted.
	ReadOnly bool
}

// WireKey returns the key used in JSON payloads, or the relative path for
// links.
func (f Field) WireKey() string {
	if f.Key != "" {
		return f.Key
	}
	if f.Kind == Locator {
		return f.Name + "Id"
	}
	return f.Name
}

// decodeFields copies the wire values in raw into the field targets. Keys
// missing from raw leave their targets untouched.
func decodeFields(raw []byte, fields []Field) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("decode object: %w", err)
	}
	for _, f := range fields {
		if f.Kind == Link {
			continue
		}
		v, ok := m[f.WireKey()]
		if !ok {
			continue
		}
		if err := decodeField(f, v); err != nil {
			return fmt.Errorf("decode %s: %w", f.Name, err)
		}
	}
	return nil
}

func decodeField(f Field, v json.RawMessage) error {
	if f.Kind != Date {
		return json.Unmarshal(v, f.Target)
	}
	target, ok := f.Target.(**time.Time)
	if !ok {
		return fmt.Errorf("date target is %T", f.Target)
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*target = nil
		return nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return err
	}
	*target = &t
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// encodeFields builds the submit payload from every writable, non-link
// field.
func encodeFields(fields []Field) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Kind == Link || f.ReadOnly {
			continue
		}
		if f.Kind == Date {
			if t, ok := f.Target.(**time.Time); ok && *t != nil {
				out[f.WireKey()] = (*t).Format(dateLayout)
			} else {
				out[f.WireKey()] = nil
			}
			continue
		}
		out[f.WireKey()] = reflect.ValueOf(f.Target).Elem().Interface()
	}
	return out
}

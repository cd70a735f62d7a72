package fhir

import (
	"strings"
	"time"
)

// Resource is a raw FHIR resource as stored in the record store. The full
// external schema is deliberately not modelled; extractors read the handful
// of paths they need through the tolerant accessors below, which return the
// zero value and ok=false on any missing or malformed path.
type Resource map[string]interface{}

func (r Resource) Type() string {
	s, _ := r.GetString("resourceType")
	return s
}

func (r Resource) GetString(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func (r Resource) GetFloat(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (r Resource) GetMap(key string) (Resource, bool) {
	m, ok := r[key].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return Resource(m), true
}

func (r Resource) GetSlice(key string) ([]interface{}, bool) {
	s, ok := r[key].([]interface{})
	if !ok {
		return nil, false
	}
	return s, true
}

// Path walks nested maps; every segment but the last must be a map.
func (r Resource) Path(keys ...string) (interface{}, bool) {
	current := r
	for i, key := range keys {
		if i == len(keys)-1 {
			v, ok := current[key]
			return v, ok
		}
		next, ok := current.GetMap(key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Maps returns the elements of a slice-valued key that are maps, skipping
// anything else.
func (r Resource) Maps(key string) []Resource {
	raw, ok := r.GetSlice(key)
	if !ok {
		return nil
	}
	out := make([]Resource, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, Resource(m))
		}
	}
	return out
}

// SubjectID extracts the patient id from a subject.reference of the form
// "Patient/<id>".
func (r Resource) SubjectID() string {
	subject, ok := r.GetMap("subject")
	if !ok {
		return ""
	}
	ref, ok := subject.GetString("reference")
	if !ok {
		return ""
	}
	parts := strings.Split(ref, "/")
	return parts[len(parts)-1]
}

// EffectiveTime parses effectiveDateTime, tolerating the trailing-Z form.
func (r Resource) EffectiveTime() (time.Time, bool) {
	return ParseTime(func() string { s, _ := r.GetString("effectiveDateTime"); return s }())
}

// ParseTime accepts the timestamp shapes seen in synthetic FHIR exports.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

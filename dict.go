package mediadb

import (
	"sort"
	"strconv"
)

// Dict is a loosely typed metadata dictionary. Values are strings,
// int64s, float64s, string slices or nested Dicts; the accessors
// coerce between the numeric kinds so callers never care which one a
// prober happened to produce.
type Dict map[string]any

// String returns the field as a string, or "".
func (d Dict) String(key string) string {
	if d == nil {
		return ""
	}
	switch v := d[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// Int returns the field as an int64. ok is false when the field is
// absent or not numeric.
func (d Dict) Int(key string) (int64, bool) {
	if d == nil {
		return 0, false
	}
	switch v := d[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// IntDefault returns the field as an int64, or def when absent.
func (d Dict) IntDefault(key string, def int64) int64 {
	if n, ok := d.Int(key); ok {
		return n
	}
	return def
}

// Float returns the field as a float64, or 0.
func (d Dict) Float(key string) float64 {
	if d == nil {
		return 0
	}
	switch v := d[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Strings returns the field as a string slice. A scalar string is
// returned as a one-element slice.
func (d Dict) Strings(key string) []string {
	if d == nil {
		return nil
	}
	switch v := d[key].(type) {
	case []string:
		return v
	case string:
		return []string{v}
	}
	return nil
}

// Set stores a value, overwriting any previous one.
func (d Dict) Set(key string, val any) {
	d[key] = val
}

// Append adds a value to a string-array field, converting a scalar to
// an array on first append.
func (d Dict) Append(key, val string) {
	d[key] = append(d.Strings(key), val)
}

// Has reports whether the field is present.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Delete removes the field.
func (d Dict) Delete(key string) {
	delete(d, key)
}

// Clone returns a deep copy.
func (d Dict) Clone() Dict {
	if d == nil {
		return nil
	}
	out := make(Dict, len(d))
	for k, v := range d {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string(nil), vv...)
		case Dict:
			out[k] = vv.Clone()
		default:
			out[k] = v
		}
	}
	return out
}

// Merge copies fields from src that are not yet present in d. Existing
// fields win, so probers can layer defaults under NFO metadata.
func (d Dict) Merge(src Dict) {
	for k, v := range src {
		if _, ok := d[k]; ok {
			continue
		}
		switch vv := v.(type) {
		case []string:
			d[k] = append([]string(nil), vv...)
		case Dict:
			d[k] = vv.Clone()
		default:
			d[k] = v
		}
	}
}

// Keys returns the field names in sorted order.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package jsonmap

import (
	"encoding/json"
	"fmt"
	"maps"
)

// JSONMap represents a JSON object as a map.
type JSONMap map[string]interface{}

// ToJSON serializes the JSONMap to JSON.
func (m *JSONMap) ToJSON() ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("JSONMap is nil")
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSONMap: %w", err)
	}

	return data, nil
}

// FromJSON parses a JSON object.
func FromJSON(data []byte) (JSONMap, error) {
	var m JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSONMap: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("JSON value is not an object")
	}

	return m, nil
}

// Clone returns a shallow copy.
func (m JSONMap) Clone() JSONMap {
	out := make(JSONMap, len(m))
	maps.Copy(out, m)

	return out
}

// Merge copies every entry of other onto m, overriding existing keys.
func (m JSONMap) Merge(other map[string]interface{}) JSONMap {
	maps.Copy(m, other)

	return m
}

// GetString returns the value at key when it is a string.
func (m JSONMap) GetString(key string) (string, bool) {
	s, ok := m[key].(string)

	return s, ok
}

// GetInt64 returns a numeric value at key. JSON numbers decode as float64,
// json.Number is accepted as well.
func (m JSONMap) GetInt64(key string) (int64, bool) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// GetMap returns the nested object at key.
func (m JSONMap) GetMap(key string) (JSONMap, bool) {
	switch v := m[key].(type) {
	case map[string]interface{}:
		return JSONMap(v), true
	case JSONMap:
		return v, true
	default:
		return nil, false
	}
}

package jsonx

import (
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Convert re-decodes an arbitrary value into T by way of its JSON encoding. It is used to
// turn loosely typed agent state (maps, numbers of any width) into typed records.
func Convert[T any](val any) (T, error) {
	var result T
	b, err := json.Marshal(val)
	if err != nil {
		return result, err
	}
	if err = json.Unmarshal(b, &result); err != nil {
		return result, err
	}
	return result, nil
}

// Parse encodes val as JSON and returns it as a gjson.Result for path queries.
func Parse(val any) (gjson.Result, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(b), nil
}

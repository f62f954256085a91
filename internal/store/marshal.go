package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/missionsim/internal/ir"
)

// timeLayout is the TEXT encoding of absolute timestamps. It sorts
// lexically in time order for UTC values.
const timeLayout = time.RFC3339Nano

// marshalArgs converts IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalArgs(args ir.IRObject) (string, error) {
	if args == nil {
		args = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON which properly handles large integers via json.Number
// to avoid float64 precision loss for values > 2^53.
func unmarshalArgs(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}

// marshalValue converts a sampled value to canonical JSON TEXT.
// A nil value is stored as null.
func marshalValue(v ir.IRValue) (string, error) {
	if v == nil {
		v = ir.IRNull{}
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

func unmarshalValue(data string) (ir.IRValue, error) {
	v, err := ir.UnmarshalIRValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// marshalIDs stores an ordered id list as a JSON array.
func marshalIDs(ids []ir.ActivityInstanceID) (string, error) {
	arr := make(ir.IRArray, len(ids))
	for i, id := range ids {
		arr[i] = ir.IRString(id)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(data string) ([]ir.ActivityInstanceID, error) {
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	ids := make([]ir.ActivityInstanceID, len(raw))
	for i, s := range raw {
		ids[i] = ir.ActivityInstanceID(s)
	}
	return ids, nil
}

func marshalNames(names []string) (string, error) {
	arr := make(ir.IRArray, len(names))
	for i, n := range names {
		arr[i] = ir.IRString(n)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal names: %w", err)
	}
	return string(data), nil
}

func unmarshalNames(data string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

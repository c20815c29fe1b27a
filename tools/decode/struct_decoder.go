package decode

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Options customizes decoding.
type Options struct {
	// WeaklyTypedInput converts "123" to int, 12 to "12" and so on. On by default.
	WeaklyTypedInput bool
	// ErrorUnused rejects keys that have no matching field.
	ErrorUnused bool
}

func DefaultOptions() Options {
	return Options{WeaklyTypedInput: true}
}

// DecodeMap decodes a JSON-shaped map into T using the struct's json tags.
func DecodeMap[T any](m map[string]any, opts ...Options) (*T, error) {
	cfg := DefaultOptions()
	if len(opts) > 0 {
		cfg = opts[0]
	}

	var out T
	if m == nil {
		return &out, nil
	}
	decCfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: cfg.WeaklyTypedInput,
		ErrorUnused:      cfg.ErrorUnused,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			floatToIntHook(),
			sliceAnyToSliceStringHook(),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	}

	dec, err := mapstructure.NewDecoder(decCfg)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode map: %w", err)
	}
	return &out, nil
}

// ReadString reads a string field, accepting numbers as their decimal form.
func ReadString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing field %q", key)
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return fmt.Sprintf("%.0f", t), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("field %q not string (got %T)", key, v)
	}
}

// floatToIntHook turns JSON numbers into int kinds.
func floatToIntHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Kind, data any) (any, error) {
		if from != reflect.Float64 {
			return data, nil
		}
		switch to {
		case reflect.Int:
			return int(data.(float64)), nil
		case reflect.Int32:
			return int32(data.(float64)), nil
		case reflect.Int64:
			return int64(data.(float64)), nil
		}
		return data, nil
	}
}

// sliceAnyToSliceStringHook turns []any into []string.
func sliceAnyToSliceStringHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.Slice || to != reflect.TypeOf([]string(nil)) {
			return data, nil
		}
		src, ok := data.([]any)
		if !ok {
			return data, nil
		}
		out := make([]string, 0, len(src))
		for _, it := range src {
			switch v := it.(type) {
			case string:
				out = append(out, v)
			case json.Number:
				out = append(out, v.String())
			default:
				b, _ := json.Marshal(v)
				out = append(out, string(b))
			}
		}
		return out, nil
	}
}

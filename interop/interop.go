// Package interop converts Tot documents to and from JSON, YAML and
// TOML. The conversions go through the untyped value tree, so comments
// and layout are not preserved.
package interop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	tot "github.com/totlang/tot-go"
)

// ToJSON converts a Tot document to indented JSON.
func ToJSON(data []byte) ([]byte, error) {
	v, err := tot.Parse(data)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(toAny(v), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// FromJSON converts a JSON document to pretty Tot.
func FromJSON(data []byte) ([]byte, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	v, err := fromAny(raw)
	if err != nil {
		return nil, err
	}
	return tot.Marshal(v)
}

// ToYAML converts a Tot document to YAML.
func ToYAML(data []byte) ([]byte, error) {
	v, err := tot.Parse(data)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(toAny(v))
}

// FromYAML converts a YAML document to pretty Tot.
func FromYAML(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	v, err := fromAny(raw)
	if err != nil {
		return nil, err
	}
	return tot.Marshal(v)
}

// ToTOML converts a Tot document to TOML. The document must be a dict at
// the top level and must not contain null anywhere, since TOML can
// express neither.
func ToTOML(data []byte) ([]byte, error) {
	v, err := tot.Parse(data)
	if err != nil {
		return nil, err
	}
	if v.Kind != tot.Dict {
		return nil, fmt.Errorf("toml requires a dict at the top level, not a %s", v.Kind)
	}
	if err := rejectUnit(v); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(toAny(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FromTOML converts a TOML document to pretty Tot.
func FromTOML(data []byte) ([]byte, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	v, err := fromAny(raw)
	if err != nil {
		return nil, err
	}
	return tot.Marshal(v)
}

func rejectUnit(v tot.Value) error {
	switch v.Kind {
	case tot.Unit:
		return fmt.Errorf("toml cannot represent null")
	case tot.List:
		for _, item := range v.List {
			if err := rejectUnit(item); err != nil {
				return err
			}
		}
	case tot.Dict:
		for _, item := range v.Dict {
			if err := rejectUnit(item); err != nil {
				return err
			}
		}
	}
	return nil
}

func toAny(v tot.Value) any {
	switch v.Kind {
	case tot.Unit:
		return nil
	case tot.Bool:
		return v.Bool
	case tot.Number:
		return v.Number
	case tot.String:
		return v.Str
	case tot.List:
		items := make([]any, len(v.List))
		for i, item := range v.List {
			items[i] = toAny(item)
		}
		return items
	case tot.Dict:
		m := make(map[string]any, len(v.Dict))
		for k, item := range v.Dict {
			m[k] = toAny(item)
		}
		return m
	default:
		panic("unknown Kind")
	}
}

// fromAny accepts the trees the json, yaml and toml decoders produce.
// YAML allows non-string keys, which are rendered with fmt.Sprint; TOML
// dates become RFC 3339 strings.
func fromAny(raw any) (tot.Value, error) {
	switch x := raw.(type) {
	case nil:
		return tot.Value{Kind: tot.Unit}, nil
	case bool:
		return tot.Value{Kind: tot.Bool, Bool: x}, nil
	case float64:
		return tot.Value{Kind: tot.Number, Number: x}, nil
	case float32:
		return tot.Value{Kind: tot.Number, Number: float64(x)}, nil
	case int:
		return tot.Value{Kind: tot.Number, Number: float64(x)}, nil
	case int64:
		return tot.Value{Kind: tot.Number, Number: float64(x)}, nil
	case uint64:
		return tot.Value{Kind: tot.Number, Number: float64(x)}, nil
	case string:
		return tot.Value{Kind: tot.String, Str: x}, nil
	case time.Time:
		return tot.Value{Kind: tot.String, Str: x.Format(time.RFC3339)}, nil
	case []any:
		items := make([]tot.Value, 0, len(x))
		for _, item := range x {
			v, err := fromAny(item)
			if err != nil {
				return tot.Value{}, err
			}
			items = append(items, v)
		}
		return tot.Value{Kind: tot.List, List: items}, nil
	case map[string]any:
		m := make(map[string]tot.Value, len(x))
		for k, item := range x {
			v, err := fromAny(item)
			if err != nil {
				return tot.Value{}, err
			}
			m[k] = v
		}
		return tot.Value{Kind: tot.Dict, Dict: m}, nil
	case map[any]any:
		m := make(map[string]tot.Value, len(x))
		for k, item := range x {
			v, err := fromAny(item)
			if err != nil {
				return tot.Value{}, err
			}
			m[fmt.Sprint(k)] = v
		}
		return tot.Value{Kind: tot.Dict, Dict: m}, nil
	default:
		return tot.Value{}, fmt.Errorf("cannot convert %T to a Tot value", raw)
	}
}

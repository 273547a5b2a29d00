package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// MarshalJSON implements json.Marshaler. Non-finite numbers encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			buf.WriteString("null")
			return nil
		}
		b, err := json.Marshal(v.num)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.ref.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.ref.fields))
		for k := range v.ref.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.ref.fields[k].encode(buf); err != nil {
				return fmt.Errorf("field %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case KindOpaque:
		return fmt.Errorf("%w: opaque %T", ErrNotSerializable, v.ref.opaque)
	default:
		return fmt.Errorf("%w: notset", ErrNotSerializable)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a single JSON document into a Value.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return NotSet, err
	}
	return v, nil
}

// FromAny converts decoded Go data into a Value. It accepts the shapes produced
// by encoding/json and gopkg.in/yaml.v3 as well as any Go numeric kind.
// A nil interface becomes Null.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return NotSet, fmt.Errorf("value: %w", err)
		}
		return Number(f), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			iv, err := FromAny(item)
			if err != nil {
				return NotSet, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = iv
		}
		return Value{kind: KindArray, ref: &ref{items: items}}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, f := range t {
			fv, err := FromAny(f)
			if err != nil {
				return NotSet, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = fv
		}
		return Value{kind: KindObject, ref: &ref{fields: fields}}, nil
	case map[any]any:
		fields := make(map[string]Value, len(t))
		for k, f := range t {
			ks, ok := k.(string)
			if !ok {
				return NotSet, fmt.Errorf("value: object key %v is not a string", k)
			}
			fv, err := FromAny(f)
			if err != nil {
				return NotSet, fmt.Errorf("field %q: %w", ks, err)
			}
			fields[ks] = fv
		}
		return Value{kind: KindObject, ref: &ref{fields: fields}}, nil
	}
	return NotSet, fmt.Errorf("value: unsupported type %s", reflect.TypeOf(x))
}

// Wrap is like FromAny but wraps unsupported Go values as opaque instead of
// failing.
func Wrap(x any) Value {
	v, err := FromAny(x)
	if err != nil {
		return Opaque(x)
	}
	return v
}

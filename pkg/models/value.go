package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueType identifies the structural type of a stored Value.
// This is the raw JSON shape, before any kind inference (dates, for
// example, are strings at this layer).
type ValueType string

const (
	ValueTypeUndefined ValueType = "undefined"
	ValueTypeNull      ValueType = "null"
	ValueTypeBoolean   ValueType = "boolean"
	ValueTypeNumber    ValueType = "number"
	ValueTypeString    ValueType = "string"
	ValueTypeArray     ValueType = "array"
	ValueTypeObject    ValueType = "object"
)

// Value is a tagged union over every JSON-representable shape.
// The zero Value is "undefined" and stands for an absent field or slot.
type Value struct {
	typ     ValueType
	boolVal bool
	numVal  float64
	strVal  string
	arrVal  []Value
	objVal  map[string]Value
}

// Null returns the JSON null value.
func Null() Value {
	return Value{typ: ValueTypeNull}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{typ: ValueTypeBoolean, boolVal: b}
}

// Number returns a numeric value.
func Number(n float64) Value {
	return Value{typ: ValueTypeNumber, numVal: n}
}

// String returns a string value.
func String(s string) Value {
	return Value{typ: ValueTypeString, strVal: s}
}

// Array returns an array value holding the given items.
func Array(items ...Value) Value {
	return Value{typ: ValueTypeArray, arrVal: items}
}

// Object returns an object value holding the given fields.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{typ: ValueTypeObject, objVal: fields}
}

// Type returns the structural type of the value.
func (v Value) Type() ValueType {
	if v.typ == "" {
		return ValueTypeUndefined
	}
	return v.typ
}

// IsUndefined reports whether the value is absent (the zero Value).
func (v Value) IsUndefined() bool {
	return v.Type() == ValueTypeUndefined
}

// IsNull reports whether the value is JSON null.
func (v Value) IsNull() bool {
	return v.typ == ValueTypeNull
}

// AsBool returns the boolean payload. The second return is false when the
// value is not a boolean.
func (v Value) AsBool() (bool, bool) {
	return v.boolVal, v.typ == ValueTypeBoolean
}

// AsNumber returns the numeric payload. The second return is false when the
// value is not a number.
func (v Value) AsNumber() (float64, bool) {
	return v.numVal, v.typ == ValueTypeNumber
}

// AsString returns the string payload. The second return is false when the
// value is not a string.
func (v Value) AsString() (string, bool) {
	return v.strVal, v.typ == ValueTypeString
}

// Items returns the elements of an array value, or nil for any other type.
func (v Value) Items() []Value {
	if v.typ != ValueTypeArray {
		return nil
	}
	return v.arrVal
}

// Fields returns the members of an object value, or nil for any other type.
// The returned map is the live backing map; callers that need isolation
// should Clone first.
func (v Value) Fields() map[string]Value {
	if v.typ != ValueTypeObject {
		return nil
	}
	return v.objVal
}

// Field returns the named member of an object value. The zero Value
// (undefined) is returned when the field is missing or the value is not an
// object.
func (v Value) Field(name string) Value {
	if v.typ != ValueTypeObject {
		return Value{}
	}
	return v.objVal[name]
}

// Len returns the element count for arrays, the field count for objects,
// and 0 for everything else.
func (v Value) Len() int {
	switch v.typ {
	case ValueTypeArray:
		return len(v.arrVal)
	case ValueTypeObject:
		return len(v.objVal)
	default:
		return 0
	}
}

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.typ {
	case ValueTypeArray:
		items := make([]Value, len(v.arrVal))
		for i, item := range v.arrVal {
			items[i] = item.Clone()
		}
		return Value{typ: ValueTypeArray, arrVal: items}
	case ValueTypeObject:
		fields := make(map[string]Value, len(v.objVal))
		for k, f := range v.objVal {
			fields[k] = f.Clone()
		}
		return Value{typ: ValueTypeObject, objVal: fields}
	default:
		return v
	}
}

// Equal reports deep equality between two values.
func (v Value) Equal(other Value) bool {
	if v.Type() != other.Type() {
		return false
	}
	switch v.Type() {
	case ValueTypeUndefined, ValueTypeNull:
		return true
	case ValueTypeBoolean:
		return v.boolVal == other.boolVal
	case ValueTypeNumber:
		return v.numVal == other.numVal
	case ValueTypeString:
		return v.strVal == other.strVal
	case ValueTypeArray:
		if len(v.arrVal) != len(other.arrVal) {
			return false
		}
		for i := range v.arrVal {
			if !v.arrVal[i].Equal(other.arrVal[i]) {
				return false
			}
		}
		return true
	case ValueTypeObject:
		if len(v.objVal) != len(other.objVal) {
			return false
		}
		for k, f := range v.objVal {
			of, ok := other.objVal[k]
			if !ok || !f.Equal(of) {
				return false
			}
		}
		return true
	}
	return false
}

// FromInterface converts a decoded JSON value (as produced by
// encoding/json into any) to a Value. Unsupported Go types become undefined.
func FromInterface(raw any) Value {
	switch val := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(val)
	case float64:
		return Number(val)
	case int:
		return Number(float64(val))
	case int64:
		return Number(float64(val))
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return String(val.String())
		}
		return Number(n)
	case string:
		return String(val)
	case []any:
		items := make([]Value, len(val))
		for i, item := range val {
			items[i] = FromInterface(item)
		}
		return Value{typ: ValueTypeArray, arrVal: items}
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, f := range val {
			fields[k] = FromInterface(f)
		}
		return Value{typ: ValueTypeObject, objVal: fields}
	default:
		return Value{}
	}
}

// Interface converts the value back to the plain Go representation used by
// encoding/json. Undefined converts to nil, same as null.
func (v Value) Interface() any {
	switch v.Type() {
	case ValueTypeBoolean:
		return v.boolVal
	case ValueTypeNumber:
		return v.numVal
	case ValueTypeString:
		return v.strVal
	case ValueTypeArray:
		items := make([]any, len(v.arrVal))
		for i, item := range v.arrVal {
			items[i] = item.Interface()
		}
		return items
	case ValueTypeObject:
		fields := make(map[string]any, len(v.objVal))
		for k, f := range v.objVal {
			fields[k] = f.Interface()
		}
		return fields
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler. Undefined marshals as null so that
// Value stays total over the JSON data model.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

// String renders the value deterministically: object keys are emitted in
// sorted order so the same value always produces the same string. Used for
// distinct-value sets and log output, not as a wire format.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.Type() {
	case ValueTypeUndefined:
		sb.WriteString("undefined")
	case ValueTypeNull:
		sb.WriteString("null")
	case ValueTypeBoolean:
		sb.WriteString(strconv.FormatBool(v.boolVal))
	case ValueTypeNumber:
		if v.numVal == float64(int64(v.numVal)) {
			fmt.Fprintf(sb, "%d", int64(v.numVal))
		} else {
			fmt.Fprintf(sb, "%g", v.numVal)
		}
	case ValueTypeString:
		sb.WriteString(v.strVal)
	case ValueTypeArray:
		sb.WriteByte('[')
		for i, item := range v.arrVal {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.render(sb)
		}
		sb.WriteByte(']')
	case ValueTypeObject:
		keys := make([]string, 0, len(v.objVal))
		for k := range v.objVal {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte(':')
			v.objVal[k].render(sb)
		}
		sb.WriteByte('}')
	}
}

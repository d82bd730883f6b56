package smw

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies which variant of Value is populated
type Kind int

const (
	KindNull Kind = iota
	KindPage
	KindText
	KindQuantity
	KindInteger
	KindDate
	KindExternalID
	KindUnknown
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindPage:
		return "page"
	case KindText:
		return "text"
	case KindQuantity:
		return "quantity"
	case KindInteger:
		return "integer"
	case KindDate:
		return "date"
	case KindExternalID:
		return "external-id"
	case KindUnknown:
		return "unknown"
	case KindList:
		return "list"
	default:
		return "invalid"
	}
}

// Value is a single deserialized printout cell.
// The zero Value is Null.
type Value struct {
	kind  Kind
	str   string
	num   int
	time  time.Time
	raw   interface{}
	items []Value
}

// Null returns the empty value
func Null() Value { return Value{} }

// PageValue wraps a page full title
func PageValue(title string) Value { return Value{kind: KindPage, str: title} }

// IntValue wraps an integer
func IntValue(n int) Value { return Value{kind: KindInteger, num: n} }

// DateValue wraps a UTC instant
func DateValue(t time.Time) Value { return Value{kind: KindDate, time: t.UTC()} }

// ListValue wraps a multi-valued printout
func ListValue(items []Value) Value { return Value{kind: KindList, items: items} }

// passthrough keeps the wire value untouched under the given kind
func passthrough(kind Kind, raw interface{}) Value {
	v := Value{kind: kind, raw: raw}
	if s, ok := raw.(string); ok {
		v.str = s
	}
	return v
}

// TextValue wraps a plain text printout
func TextValue(s string) Value { return passthrough(KindText, s) }

// Kind reports the populated variant
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is empty
func (v Value) IsNull() bool { return v.kind == KindNull }

// String returns the page title or string payload. Non-string kinds are formatted.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindPage:
		return v.str
	case KindInteger:
		return fmt.Sprintf("%d", v.num)
	case KindDate:
		return v.time.Format("2006-01-02 15:04:05")
	case KindList:
		return fmt.Sprintf("%v", v.Interface())
	}
	if v.str != "" {
		return v.str
	}
	if v.raw == nil {
		return ""
	}
	return fmt.Sprintf("%v", v.raw)
}

// Int returns the integer payload
func (v Value) Int() (int, bool) {
	return v.num, v.kind == KindInteger
}

// Time returns the date payload
func (v Value) Time() (time.Time, bool) {
	return v.time, v.kind == KindDate
}

// List returns the items of a multi-valued printout
func (v Value) List() ([]Value, bool) {
	return v.items, v.kind == KindList
}

// Raw returns the untouched wire value of passthrough kinds
func (v Value) Raw() interface{} {
	return v.raw
}

// Interface converts the value into plain Go data suitable for encoders.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindPage:
		return v.str
	case KindInteger:
		return v.num
	case KindDate:
		return v.time
	case KindList:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	default:
		return v.raw
	}
}

// MarshalJSON encodes the plain Go form of the value
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindDate {
		return json.Marshal(v.time.Format(time.RFC3339))
	}
	return json.Marshal(v.Interface())
}

// MarshalYAML lets yaml encoders see the plain Go form
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Interface(), nil
}

// collapse applies the column rule: empty -> null, one -> scalar, many -> list.
// A multi-valued property holding exactly one value cannot be told apart from a scalar.
func collapse(values []Value) Value {
	switch len(values) {
	case 0:
		return Null()
	case 1:
		return values[0]
	default:
		return ListValue(values)
	}
}

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	MaxAttributes       = 16
	MaxAttributeKeyLen  = 32
	MaxAttributeTextLen = 256
)

var ErrInvalidAttribute = errors.New("invalid attribute")

// AttrKind is the type tag carried by every attribute value.
type AttrKind string

const (
	AttrInt   AttrKind = "int"
	AttrFloat AttrKind = "float"
	AttrText  AttrKind = "text"
	AttrBool  AttrKind = "bool"
)

// AttrValue is a single typed attribute. Exactly one of the value fields is
// meaningful, selected by Kind.
type AttrValue struct {
	Kind  AttrKind
	Int   int64
	Float float64
	Text  string
	Bool  bool
}

func IntAttr(v int64) AttrValue     { return AttrValue{Kind: AttrInt, Int: v} }
func FloatAttr(v float64) AttrValue { return AttrValue{Kind: AttrFloat, Float: v} }
func TextAttr(v string) AttrValue   { return AttrValue{Kind: AttrText, Text: v} }
func BoolAttr(v bool) AttrValue     { return AttrValue{Kind: AttrBool, Bool: v} }

// Value returns the attribute as a plain Go value.
func (v AttrValue) Value() any {
	switch v.Kind {
	case AttrInt:
		return v.Int
	case AttrFloat:
		return v.Float
	case AttrText:
		return v.Text
	case AttrBool:
		return v.Bool
	default:
		return nil
	}
}

func (v AttrValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AttrInt, AttrFloat, AttrText, AttrBool:
		return json.Marshal(v.Value())
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAttribute, v.Kind)
	}
}

func (v *AttrValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := attrFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Attributes is a bounded map of typed player statistics.
type Attributes map[string]AttrValue

// Validate enforces the size and kind limits.
func (a Attributes) Validate() error {
	if len(a) > MaxAttributes {
		return fmt.Errorf("%w: %d attributes exceeds limit of %d", ErrInvalidAttribute, len(a), MaxAttributes)
	}
	for k, v := range a {
		if k == "" || len(k) > MaxAttributeKeyLen {
			return fmt.Errorf("%w: key %q", ErrInvalidAttribute, k)
		}
		switch v.Kind {
		case AttrInt, AttrBool:
		case AttrFloat:
			if math.IsNaN(v.Float) || math.IsInf(v.Float, 0) {
				return fmt.Errorf("%w: %s is not finite", ErrInvalidAttribute, k)
			}
		case AttrText:
			if len(v.Text) > MaxAttributeTextLen {
				return fmt.Errorf("%w: %s text too long", ErrInvalidAttribute, k)
			}
		default:
			return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidAttribute, k, v.Kind)
		}
	}
	return nil
}

// Keys returns the attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AttributesFrom converts loosely typed input (decoded YAML or JSON) into
// Attributes, rejecting nested values.
func AttributesFrom(in map[string]any) (Attributes, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(Attributes, len(in))
	for k, raw := range in {
		v, err := attrFromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = v
	}
	return out, out.Validate()
}

func attrFromAny(raw any) (AttrValue, error) {
	switch x := raw.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return IntAttr(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return AttrValue{}, fmt.Errorf("%w: bad number %q", ErrInvalidAttribute, x)
		}
		return FloatAttr(f), nil
	case int:
		return IntAttr(int64(x)), nil
	case int64:
		return IntAttr(x), nil
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return IntAttr(int64(x)), nil
		}
		return FloatAttr(x), nil
	case string:
		return TextAttr(x), nil
	case bool:
		return BoolAttr(x), nil
	default:
		return AttrValue{}, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidAttribute, raw)
	}
}

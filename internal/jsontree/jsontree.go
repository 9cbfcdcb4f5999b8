// Package jsontree decodes JSON into an ordered, read-only tree.
//
// Unlike decoding into map[string]any, object members keep their document
// order, so depth-first searches and insertion-ordered collections are
// deterministic.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type Field struct {
	Key   string
	Value Value
}

// Value is one node of a parsed document. The zero Value is JSON null.
type Value struct {
	kind   Kind
	b      bool
	s      string // string contents or the number literal
	items  []Value
	fields []Field
}

var ErrTrailingData = errors.New("jsontree: trailing data after top-level value")

func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decode(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = ErrTrailingData
		}
		return Value{}, err
	}
	return v, nil
}

func ParseString(raw string) (Value, error) {
	return Parse([]byte(raw))
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Value{kind: Null}, nil
	case bool:
		return Value{kind: Bool, b: t}, nil
	case json.Number:
		return Value{kind: Number, s: t.String()}, nil
	case string:
		return Value{kind: String, s: t}, nil
	case json.Delim:
		switch t {
		case '{':
			var fields []Field
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("jsontree: object key is %T", keyTok)
				}
				member, err := decode(dec)
				if err != nil {
					return Value{}, err
				}
				fields = append(fields, Field{Key: key, Value: member})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: Object, fields: fields}, nil
		case '[':
			var items []Value
			for dec.More() {
				item, err := decode(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: Array, items: items}, nil
		}
	}
	return Value{}, fmt.Errorf("jsontree: unexpected token %v", tok)
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsScalar() bool {
	return v.kind != Array && v.kind != Object
}

// Str returns the contents of a string node.
func (v Value) Str() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

func (v Value) Items() []Value {
	return v.items
}

func (v Value) Fields() []Field {
	return v.fields
}

// Get returns the first member named key of an object node.
func (v Value) Get(key string) (Value, bool) {
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Text renders a scalar as plain text. Null renders empty; containers render
// their leaves joined by single spaces.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return ""
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number, String:
		return v.s
	}

	var parts []string
	v.eachLeaf(func(leaf Value) {
		parts = append(parts, leaf.Text())
	})
	return strings.Join(parts, " ")
}

func (v Value) eachLeaf(fn func(Value)) {
	switch v.kind {
	case Array:
		for _, item := range v.items {
			item.eachLeaf(fn)
		}
	case Object:
		for _, f := range v.fields {
			f.Value.eachLeaf(fn)
		}
	default:
		fn(v)
	}
}

// MarshalJSON re-encodes the node, keeping member order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(v.Text())
	case Number:
		buf.WriteString(v.s)
	case String:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// Constructors, mostly for building documents in code.

func NewString(s string) Value { return Value{kind: String, s: s} }

func NewBool(b bool) Value { return Value{kind: Bool, b: b} }

func NewNumber(literal string) Value { return Value{kind: Number, s: literal} }

func NewArray(items ...Value) Value { return Value{kind: Array, items: items} }

func NewObject(fields ...Field) Value { return Value{kind: Object, fields: fields} }

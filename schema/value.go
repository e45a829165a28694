package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Type names a JSON value's primitive kind. The names are the ones that
// appear in validation messages.
type Type string

const (
	Null    Type = "null"
	Boolean Type = "boolean"
	Number  Type = "number"
	String  Type = "string"
	Array   Type = "array"
	Object  Type = "object"
)

// Value is a decoded JSON document. Object members keep the order they had in
// the source document, which matters: validation reports the first offending
// key in document order.
type Value struct {
	Type    Type
	Bool    bool
	Num     json.Number
	Str     string
	Items   []Value
	Members []Member
}

// Member is one key/value pair of a JSON object.
type Member struct {
	Key string
	Val Value
}

// Member returns the named object member, if present.
func (v Value) Member(key string) (Value, bool) {
	for _, m := range v.Members {
		if m.Key == key {
			return m.Val, true
		}
	}
	return Value{}, false
}

// Decode parses a JSON document into a Value, preserving object key order.
// encoding/json's map decoding would lose that order, so this walks the token
// stream directly.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := Value{Type: Object}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string")
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.Members = append(v.Members, Member{Key: key, Val: val})
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return Value{}, err
			}
			return v, nil
		case '[':
			v := Value{Type: Array}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				v.Items = append(v.Items, item)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return Value{}, err
			}
			return v, nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case bool:
		return Value{Type: Boolean, Bool: t}, nil
	case json.Number:
		return Value{Type: Number, Num: t}, nil
	case string:
		return Value{Type: String, Str: t}, nil
	case nil:
		return Value{Type: Null}, nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

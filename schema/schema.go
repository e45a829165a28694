// Package schema implements the structural validator that gates every mutable
// payload written into a ticket slot. A Schema describes the exact shape a
// payload must have: which keys an object carries, what primitive type each
// leaf is, and the element shape of arrays. Validation is fail-fast and
// side-effect free; the first violation aborts the walk and names the kind of
// failure and the dotted path where it happened.
package schema

import "fmt"

// Schema is a node of a structural template.
type Schema interface {
	schemaType() Type
}

// Field is one required member of an object schema. Field order is the order
// presence is checked in, so it is part of the contract.
type Field struct {
	Name   string
	Schema Schema
}

type primitiveSchema struct{ typ Type }

type objectSchema struct{ fields []Field }

type arraySchema struct{ elem Schema }

func (s primitiveSchema) schemaType() Type { return s.typ }
func (s objectSchema) schemaType() Type    { return Object }
func (s arraySchema) schemaType() Type     { return Array }

// Primitive is a leaf schema requiring the given JSON primitive type.
func Primitive(t Type) Schema { return primitiveSchema{typ: t} }

// ObjectOf is an object schema. Every listed field is required and no other
// keys are allowed.
func ObjectOf(fields ...Field) Schema { return objectSchema{fields: fields} }

// ArrayOf is an array schema whose elements all match elem.
func ArrayOf(elem Schema) Schema { return arraySchema{elem: elem} }

// ViolationKind classifies a structural violation.
type ViolationKind int

const (
	MissingProperty ViolationKind = iota
	UnexpectedProperty
	TypeMismatch
)

// Violation is the first structural failure found in a payload. For property
// violations Path is the enclosing object's path and Property the offending
// key; for type mismatches Path addresses the mismatched value itself.
type Violation struct {
	Kind     ViolationKind
	Path     string
	Property string
	Expected Type
	Actual   Type
}

func (v *Violation) Error() string {
	switch v.Kind {
	case MissingProperty:
		return fmt.Sprintf("Missing property %s at %s", v.Property, v.Path)
	case UnexpectedProperty:
		return fmt.Sprintf("Unexpected property %s at %s", v.Property, v.Path)
	default:
		return fmt.Sprintf("Type mismatch at %s: expected %s, got %s", v.Path, v.Expected, v.Actual)
	}
}

// Validate checks candidate against s. path is the dotted prefix violations
// are reported under; a template rooted at the payload's own root passes "",
// so a root-level violation renders with an empty path.
//
// Objects are checked in three passes: every template field must be present,
// in declaration order; then the candidate's own keys are scanned, in document
// order, for keys the template does not know; then shared keys are recursed
// into. The ordering guarantees a missing field is always reported before any
// unexpected one.
func Validate(s Schema, candidate Value, path string) error {
	switch sc := s.(type) {
	case objectSchema:
		if candidate.Type != Object {
			return &Violation{Kind: TypeMismatch, Path: path, Expected: Object, Actual: candidate.Type}
		}
		for _, f := range sc.fields {
			if _, ok := candidate.Member(f.Name); !ok {
				return &Violation{Kind: MissingProperty, Path: path, Property: f.Name}
			}
		}
		for _, m := range candidate.Members {
			if !hasField(sc.fields, m.Key) {
				return &Violation{Kind: UnexpectedProperty, Path: path, Property: m.Key}
			}
		}
		for _, f := range sc.fields {
			m, _ := candidate.Member(f.Name)
			if err := Validate(f.Schema, m, joinPath(path, f.Name)); err != nil {
				return err
			}
		}
		return nil
	case arraySchema:
		if candidate.Type != Array {
			return &Violation{Kind: TypeMismatch, Path: path, Expected: Array, Actual: candidate.Type}
		}
		for i, item := range candidate.Items {
			if err := Validate(sc.elem, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case primitiveSchema:
		if candidate.Type != sc.typ {
			return &Violation{Kind: TypeMismatch, Path: path, Expected: sc.typ, Actual: candidate.Type}
		}
		return nil
	}
	return fmt.Errorf("unknown schema node at %s", path)
}

// ValidateJSON decodes raw JSON and validates it in one step.
func ValidateJSON(s Schema, raw []byte, path string) error {
	v, err := Decode(raw)
	if err != nil {
		return err
	}
	return Validate(s, v, path)
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

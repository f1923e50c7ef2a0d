// Package wf provides the workflow graph model: typed ports, step
// descriptors, a mutable builder, scatter planning, and validation.
// A finalized Workflow is an immutable DAG that the emitters in
// pkg/emit compile to a portable descriptor format.
package wf

// Kind is the structural tag of a Type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBoolean
	KindInt
	KindFloat
	KindString
	KindFile
	KindDirectory
	KindArray
	KindOptional
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindFile:
		return "File"
	case KindDirectory:
		return "Directory"
	case KindArray:
		return "Array"
	case KindOptional:
		return "Optional"
	}
	return "Invalid"
}

// Type describes the data carried by a port. Types are structurally
// immutable values: equality and compatibility are computed from the
// structure, never from identity. Array and Optional wrap an element
// type; File types may carry a name and secondary-file suffix patterns
// (e.g. a reference Fasta with its ".fai" and "^.dict" companions).
type Type struct {
	kind        Kind
	elem        *Type
	name        string
	secondaries []string
}

// Boolean returns the boolean primitive type.
func Boolean() Type { return Type{kind: KindBoolean} }

// Int returns the integer primitive type.
func Int() Type { return Type{kind: KindInt} }

// Float returns the floating-point primitive type.
func Float() Type { return Type{kind: KindFloat} }

// String returns the string primitive type.
func String() Type { return Type{kind: KindString} }

// File returns the plain file type.
func File() Type { return Type{kind: KindFile} }

// Directory returns the directory type.
func Directory() Type { return Type{kind: KindDirectory} }

// NamedFile returns a named file type with secondary-file suffix
// patterns. A pattern prefixed with "^" replaces the primary file's
// extension (CWL spelling, e.g. "^.dict").
func NamedFile(name string, secondaries ...string) Type {
	t := Type{kind: KindFile, name: name}
	if len(secondaries) > 0 {
		t.secondaries = append([]string(nil), secondaries...)
	}
	return t
}

// ArrayOf returns the array type over elem.
func ArrayOf(elem Type) Type {
	e := elem
	return Type{kind: KindArray, elem: &e}
}

// OptionalOf returns the optional type over elem. Wrapping an already
// optional type returns it unchanged.
func OptionalOf(elem Type) Type {
	if elem.kind == KindOptional {
		return elem
	}
	e := elem
	return Type{kind: KindOptional, elem: &e}
}

// Kind returns the structural tag.
func (t Type) Kind() Kind { return t.kind }

// Elem returns the element type of an Array or Optional, or the zero
// Type for anything else.
func (t Type) Elem() Type {
	if t.elem == nil {
		return Type{}
	}
	return *t.elem
}

// Name returns the composite name of a named file type, or "".
func (t Type) Name() string { return t.name }

// Secondaries returns the secondary-file suffix patterns of a named
// file type.
func (t Type) Secondaries() []string {
	if len(t.secondaries) == 0 {
		return nil
	}
	return append([]string(nil), t.secondaries...)
}

// IsZero reports whether t is the zero (invalid) Type.
func (t Type) IsZero() bool { return t.kind == KindInvalid }

// IsArray reports whether t is an array type.
func (t Type) IsArray() bool { return t.kind == KindArray }

// IsOptional reports whether t is an optional type.
func (t Type) IsOptional() bool { return t.kind == KindOptional }

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind || t.name != o.name {
		return false
	}
	if len(t.secondaries) != len(o.secondaries) {
		return false
	}
	for i := range t.secondaries {
		if t.secondaries[i] != o.secondaries[i] {
			return false
		}
	}
	if (t.elem == nil) != (o.elem == nil) {
		return false
	}
	if t.elem != nil {
		return t.elem.Equal(*o.elem)
	}
	return true
}

// String renders the type in the compact spelling used by catalogs and
// error messages: "File", "FastaWithDict", "File[]", "String?".
func (t Type) String() string {
	switch t.kind {
	case KindArray:
		return t.Elem().String() + "[]"
	case KindOptional:
		return t.Elem().String() + "?"
	case KindFile:
		if t.name != "" {
			return t.name
		}
		return "File"
	default:
		return t.kind.String()
	}
}

// Compatible reports whether a value produced as producer may be
// consumed at a port of type consumer. A producer is compatible when
// the types are structurally equal, or when the consumer is optional
// over a compatible type. There is no implicit numeric or string
// coercion; scatter unwrapping is applied by the caller before the
// check.
func Compatible(producer, consumer Type) bool {
	if producer.Equal(consumer) {
		return true
	}
	if consumer.kind == KindOptional {
		return Compatible(producer, consumer.Elem())
	}
	return false
}

// UnwrapArray strips one array layer from t. It returns a *TypeError
// when t is not an array.
func UnwrapArray(t Type) (Type, error) {
	if t.kind != KindArray {
		return Type{}, &TypeError{Op: "unwrap", Got: t}
	}
	return t.Elem(), nil
}

// WrapArray wraps t in one array layer.
func WrapArray(t Type) Type { return ArrayOf(t) }

// wrapArrayN wraps t in n array layers.
func wrapArrayN(t Type, n int) Type {
	for i := 0; i < n; i++ {
		t = ArrayOf(t)
	}
	return t
}

// BaseFile walks through array and optional layers and returns the
// innermost type when it is a file type, for secondary-file lookup by
// the emitters.
func BaseFile(t Type) (Type, bool) {
	for t.kind == KindArray || t.kind == KindOptional {
		t = t.Elem()
	}
	if t.kind == KindFile {
		return t, true
	}
	return Type{}, false
}

// Completion: 100% - Unified type system with C-sized primitives
package main

import "fmt"

// TypeKind is the discriminant of the single unified Type sum described in
// spec.md §3. Every resolved expression after type-checking carries exactly
// one of these (never TypeAuto).
type TypeKind int

const (
	TypeAuto TypeKind = iota
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeF32
	TypeF64
	TypeBool
	TypeVoid
	TypePointer
	TypeArray
	TypeStruct
	TypeFunction
)

// RegClass is the register class a value of a given Type is stored in,
// chosen by Type.RegisterClass() and consumed throughout lowering to pick
// operand widths (spec §4.4: "expression lowering is type-directed").
type RegClass int

const (
	RegClassByte RegClass = iota
	RegClassWord
	RegClassDWord
	RegClassQWord
	RegClassXMM
)

func (r RegClass) String() string {
	switch r {
	case RegClassByte:
		return "byte"
	case RegClassWord:
		return "word"
	case RegClassDWord:
		return "dword"
	case RegClassQWord:
		return "qword"
	case RegClassXMM:
		return "xmm"
	default:
		return "unknown"
	}
}

// Field is one member of a Struct layout: name, byte offset from the start
// of the struct, and declared type.
type Field struct {
	Name   string
	Offset int
	Type   *Type
}

// FuncSig describes a Function type's parameter and return types.
type FuncSig struct {
	Params []*Type
	Return *Type
}

// Type is the single unified sum type from spec.md §3. Pointer and Array
// compose by ownership through Elem; Struct resolves through the global
// struct table by Name; Function carries its signature inline.
type Type struct {
	Kind   TypeKind
	Elem   *Type    // Pointer(T), Array(T, _)
	Length int      // Array length; -1 means unbounded/unknown length
	Name   string   // Struct name, resolved via structTable
	Fields []Field  // Struct layout, set once resolved
	Sig    *FuncSig // Function signature
}

var (
	TyI8   = &Type{Kind: TypeI8}
	TyI16  = &Type{Kind: TypeI16}
	TyI32  = &Type{Kind: TypeI32}
	TyI64  = &Type{Kind: TypeI64}
	TyU8   = &Type{Kind: TypeU8}
	TyU16  = &Type{Kind: TypeU16}
	TyU32  = &Type{Kind: TypeU32}
	TyU64  = &Type{Kind: TypeU64}
	TyF32  = &Type{Kind: TypeF32}
	TyF64  = &Type{Kind: TypeF64}
	TyBool = &Type{Kind: TypeBool}
	TyVoid = &Type{Kind: TypeVoid}
	TyAuto = &Type{Kind: TypeAuto}
)

// PointerTo returns Pointer(elem).
func PointerTo(elem *Type) *Type {
	return &Type{Kind: TypePointer, Elem: elem}
}

// ArrayOf returns Array(elem, length); length < 0 means unspecified.
func ArrayOf(elem *Type, length int) *Type {
	return &Type{Kind: TypeArray, Elem: elem, Length: length}
}

// String renders the type the way diagnostics quote it.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TypeAuto:
		return "auto"
	case TypeI8:
		return "i8"
	case TypeI16:
		return "i16"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	case TypePointer:
		return "*" + t.Elem.String()
	case TypeArray:
		if t.Length >= 0 {
			return fmt.Sprintf("[%d]%s", t.Length, t.Elem.String())
		}
		return "[]" + t.Elem.String()
	case TypeStruct:
		return t.Name
	case TypeFunction:
		return "fn(...)"
	default:
		return "unknown"
	}
}

// SizeBytes is total on every Type variant, as required by spec.md §3's
// invariant text and the testable property in §8 relating size_bytes() to
// encoded Mov-immediate width.
func (t *Type) SizeBytes() int {
	switch t.Kind {
	case TypeI8, TypeU8, TypeBool:
		return 1
	case TypeI16, TypeU16:
		return 2
	case TypeI32, TypeU32, TypeF32:
		return 4
	case TypeI64, TypeU64, TypeF64, TypePointer, TypeFunction:
		return 8
	case TypeVoid:
		return 0
	case TypeArray:
		if t.Length < 0 {
			return 8 // decays to a pointer-sized slot when length is unknown
		}
		return t.Length * t.Elem.SizeBytes()
	case TypeStruct:
		if len(t.Fields) == 0 {
			return 0
		}
		last := t.Fields[len(t.Fields)-1]
		return AlignUp(last.Offset+last.Type.SizeBytes(), t.Alignment())
	default:
		return 0
	}
}

// Alignment returns the natural alignment of the type in bytes.
func (t *Type) Alignment() int {
	switch t.Kind {
	case TypeStruct:
		max := 1
		for _, f := range t.Fields {
			if a := f.Type.Alignment(); a > max {
				max = a
			}
		}
		return max
	case TypeArray:
		return t.Elem.Alignment()
	default:
		if sz := t.SizeBytes(); sz > 0 {
			return sz
		}
		return 1
	}
}

// RegisterClass is total on every Type variant (spec.md §3).
func (t *Type) RegisterClass() RegClass {
	switch t.Kind {
	case TypeF32, TypeF64:
		return RegClassXMM
	default:
		switch t.SizeBytes() {
		case 1:
			return RegClassByte
		case 2:
			return RegClassWord
		case 4:
			return RegClassDWord
		default:
			return RegClassQWord
		}
	}
}

// IsSigned reports whether arithmetic on this type uses the signed
// instruction forms (IMul/IDiv/Sar) per spec.md §4.4.
func (t *Type) IsSigned() bool {
	switch t.Kind {
	case TypeI8, TypeI16, TypeI32, TypeI64, TypeF32, TypeF64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether this type uses the SSE scalar-double instruction
// family instead of general-purpose integer arithmetic.
func (t *Type) IsFloat() bool {
	return t.Kind == TypeF32 || t.Kind == TypeF64
}

// IsInteger reports whether this is one of the eight sized integer kinds.
func (t *Type) IsInteger() bool {
	switch t.Kind {
	case TypeI8, TypeI16, TypeI32, TypeI64, TypeU8, TypeU16, TypeU32, TypeU64:
		return true
	default:
		return false
	}
}

// Equals compares two types structurally.
func (t *Type) Equals(other *Type) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TypePointer:
		return t.Elem.Equals(other.Elem)
	case TypeArray:
		return t.Length == other.Length && t.Elem.Equals(other.Elem)
	case TypeStruct:
		return t.Name == other.Name
	default:
		return true
	}
}

// structTable is the global struct-layout table referenced by Struct(name)
// types (spec.md §3: "resolved via a global struct table").
type structTable struct {
	defs map[string]*Type
}

func newStructTable() *structTable {
	return &structTable{defs: make(map[string]*Type)}
}

// Define computes field offsets with natural alignment and padding, and
// registers the resulting Struct(name) type.
func (st *structTable) Define(name string, fields []Field) *Type {
	offset := 0
	laidOut := make([]Field, len(fields))
	maxAlign := 1
	for i, f := range fields {
		align := f.Type.Alignment()
		if align > maxAlign {
			maxAlign = align
		}
		offset = AlignUp(offset, align)
		laidOut[i] = Field{Name: f.Name, Offset: offset, Type: f.Type}
		offset += f.Type.SizeBytes()
	}
	ty := &Type{Kind: TypeStruct, Name: name, Fields: laidOut}
	st.defs[name] = ty
	return ty
}

// Lookup resolves a Struct(name) reference to its laid-out Type.
func (st *structTable) Lookup(name string) (*Type, bool) {
	ty, ok := st.defs[name]
	return ty, ok
}

// FieldOf finds a field by name within a resolved struct type.
func (t *Type) FieldOf(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AlignUp rounds n up to the next multiple of align (align must be a power
// of two), used both for struct layout and for stack-frame sizing.
func AlignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) &^ (align - 1)
}

// SmallestFitting returns the smallest signed integer type that can
// represent v, preferring signed per spec.md §4.3's literal-typing rule.
func SmallestFitting(v int64) *Type {
	switch {
	case v >= -128 && v <= 127:
		return TyI8
	case v >= -32768 && v <= 32767:
		return TyI16
	case v >= -2147483648 && v <= 2147483647:
		return TyI32
	default:
		return TyI64
	}
}

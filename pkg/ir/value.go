// Package ir defines the typed three-address instruction and value model
// that sits at the center of the compiler: Values (constants and
// variables), Instructions (opcode plus a per-opcode operand record),
// and the Function/Global/Module aggregates that own them.
//
// Types live in the separate irtypes package; this package only holds
// the values and instructions built on top of them.
package ir

import "github.com/gocc-ir/ssair/pkg/irtypes"

// Value is either a Const or a Var.
type Value interface {
	Type() irtypes.Type
	implValue()
}

// Var is a named local, global, or function-designator value. A name
// starting with '%' is a local SSA/pre-SSA variable; '@' denotes a
// global; any other name is a function designator with external
// linkage.
type Var struct {
	Name string
	Ty   irtypes.Type
}

func (v Var) Type() irtypes.Type { return v.Ty }
func (Var) implValue()           {}

// IsLocal reports whether v names a local SSA/pre-SSA variable.
func (v Var) IsLocal() bool { return len(v.Name) > 0 && v.Name[0] == '%' }

// IsGlobal reports whether v names a global.
func (v Var) IsGlobal() bool { return len(v.Name) > 0 && v.Name[0] == '@' }

// ConstKind tags the payload a Const carries.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstArray
	ConstStruct
	ConstGlobalPointer
)

// Const is a compile-time constant value.
type Const struct {
	Ty   irtypes.Type
	Kind ConstKind

	// ConstInt: the 64-bit payload, reinterpreted according to Ty.
	Int int64
	// ConstFloat: the extended-precision payload.
	Float float64
	// ConstString: the NUL-terminated byte sequence's contents (the
	// trailing NUL is implicit, not stored).
	Str string
	// ConstArray, ConstStruct: the inline element sequence.
	Elems []Const
	// ConstStruct, when Ty is a union: which field the payload selects.
	IsUnion         bool
	UnionFieldIndex int
	// ConstGlobalPointer: the name of the referenced global (including
	// its leading '@').
	GlobalName string
}

func (c Const) Type() irtypes.Type { return c.Ty }
func (Const) implValue()           {}

// IntConst builds a ConstInt value.
func IntConst(ty irtypes.Type, v int64) Const {
	return Const{Ty: ty, Kind: ConstInt, Int: v}
}

// FloatConst builds a ConstFloat value.
func FloatConst(ty irtypes.Type, v float64) Const {
	return Const{Ty: ty, Kind: ConstFloat, Float: v}
}

// StringConst builds a ConstString value.
func StringConst(ty irtypes.Type, s string) Const {
	return Const{Ty: ty, Kind: ConstString, Str: s}
}

// ArrayConst builds a ConstArray value from its elements.
func ArrayConst(ty irtypes.Type, elems []Const) Const {
	return Const{Ty: ty, Kind: ConstArray, Elems: elems}
}

// StructConst builds a ConstStruct value. For a union, unionField
// selects which field elems[0] initializes; for a plain struct,
// unionField is ignored and elems holds one entry per field in order.
func StructConst(ty irtypes.Type, isUnion bool, unionField int, elems []Const) Const {
	return Const{Ty: ty, Kind: ConstStruct, IsUnion: isUnion, UnionFieldIndex: unionField, Elems: elems}
}

// GlobalPointerConst builds a ConstGlobalPointer value referencing name.
func GlobalPointerConst(ty irtypes.Type, name string) Const {
	return Const{Ty: ty, Kind: ConstGlobalPointer, GlobalName: name}
}

// AsVar returns (v, true) if value is a Var.
func AsVar(v Value) (Var, bool) {
	vr, ok := v.(Var)
	return vr, ok
}

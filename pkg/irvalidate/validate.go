// Package irvalidate implements the per-function well-formedness check:
// a two-pass walk that never mutates the function and never stops at
// the first problem, returning every diagnostic found.
package irvalidate

import (
	"fmt"

	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

// Kind tags the taxonomy a Diagnostic belongs to.
type Kind int

const (
	KindShapeMismatch Kind = iota
	KindTypeMismatch
	KindSizeConstraint
	KindLabelError
	KindOpcodeError
)

func (k Kind) String() string {
	names := [...]string{"shape mismatch", "type mismatch", "size constraint", "label error", "opcode error"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// Diagnostic is one validator finding: which instruction it concerns
// (by index into the function body), its taxonomy Kind, and a message.
// Diagnostic implements error so a caller that wants to treat the first
// failure as fatal can do so without a separate conversion step; Validate
// itself never stops early regardless.
type Diagnostic struct {
	InstrIndex int
	Kind       Kind
	Message    string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("instruction %d: %s", d.InstrIndex, d.Message)
}

// validator holds the per-function state threaded through both passes:
// the label map (pass 1 builds it, pass 2 reads it) and the
// variable-name-to-type map used to catch inconsistent redefinitions.
type validator struct {
	fn          *ir.Function
	labels      map[string]int // label -> instruction index
	varTypes    map[string]irtypes.Type
	diagnostics []Diagnostic
}

// Validate checks fn's flat instruction body and returns every
// diagnostic found. It never mutates fn.
func Validate(m *ir.Module, fn *ir.Function) []Diagnostic {
	v := &validator{
		fn:       fn,
		labels:   make(map[string]int),
		varTypes: make(map[string]irtypes.Type),
	}
	for _, p := range fn.Params {
		v.varTypes[p.Name] = p.Ty
	}
	v.passOne()
	v.passTwo()
	return v.diagnostics
}

func (v *validator) errorf(idx int, kind Kind, format string, args ...any) {
	v.diagnostics = append(v.diagnostics, Diagnostic{
		InstrIndex: idx,
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
	})
}

// recordVarType enforces "all occurrences of a variable name have
// structurally equal types".
func (v *validator) recordVarType(idx int, vr ir.Var) {
	if existing, ok := v.varTypes[vr.Name]; ok {
		if !irtypes.Equal(existing, vr.Ty) {
			v.errorf(idx, KindTypeMismatch, "variable %s redefined with a different type", vr.Name)
		}
		return
	}
	v.varTypes[vr.Name] = vr.Ty
}

func (v *validator) passOne() {
	for idx, instr := range v.fn.Body {
		if instr.HasLabel() {
			if _, dup := v.labels[instr.Label]; dup {
				v.errorf(idx, KindLabelError, "duplicate label %q", instr.Label)
			} else {
				v.labels[instr.Label] = idx
			}
		}
		if result, ok := ir.Def(instr); ok {
			v.recordVarType(idx, result)
		}
		v.checkShape(idx, instr)
	}
}

func (v *validator) checkShape(idx int, instr ir.Instruction) {
	switch o := instr.Operand.(type) {
	case ir.Assign:
		// no shape constraint beyond the redefinition check above
		_ = o
	case ir.Binary:
		v.checkBinary(idx, instr.Op, o)
	case ir.Unary:
		v.checkUnary(idx, instr.Op, o)
	case ir.Branch:
		v.checkBranch(idx, o)
	case ir.Call:
		// callee/argument typing is left to the translator; the
		// validator only confirms result typing is internally
		// consistent, which recordVarType already covers.
	case ir.Ret:
		v.checkRet(idx, o)
	case ir.Alloca:
		v.checkAlloca(idx, o)
	case ir.Load:
		v.checkLoad(idx, o)
	case ir.Store:
		v.checkStore(idx, o)
	case ir.Memcpy:
		v.checkMemcpy(idx, o)
	case ir.Memset:
		// any operand shape is acceptable: ptr, a byte value, and a length
	case ir.GetArrayElementPtr:
		v.checkGetArrayElementPtr(idx, o)
	case ir.GetStructMemberPtr:
		v.checkGetStructMemberPtr(idx, o)
	case ir.Switch:
		v.checkSwitch(idx, o)
	case ir.VaStart, ir.VaEnd, ir.VaCopy:
		// no static shape constraint in this IR
	case ir.VaArg:
		// result type is whatever ArgType names; nothing further to check
	case ir.Nop:
	default:
		v.errorf(idx, KindOpcodeError, "invalid opcode")
	}
}

func (v *validator) checkBinary(idx int, op ir.Opcode, b ir.Binary) {
	lt, rt := b.Left.Type(), b.Right.Type()
	if op.IsComparison() {
		if !irtypes.Equal(lt, rt) {
			v.errorf(idx, KindTypeMismatch, "comparison operands have different types")
		}
		if b.Result.Ty.Kind() != irtypes.KindBool {
			v.errorf(idx, KindTypeMismatch, "comparison result type must be bool")
		}
		return
	}
	if !irtypes.Equal(lt, rt) {
		v.errorf(idx, KindTypeMismatch, "binary operands have different types")
		return
	}
	if !irtypes.Equal(b.Result.Ty, lt) {
		v.errorf(idx, KindTypeMismatch, "binary result type does not match operand type")
	}
}

func (v *validator) checkUnary(idx int, op ir.Opcode, u ir.Unary) {
	ot := u.Operand.Type()
	rt := u.Result.Ty
	switch op {
	case ir.OpNot:
		if !irtypes.Equal(rt, ot) {
			v.errorf(idx, KindTypeMismatch, "not result type does not match operand type")
		}
	case ir.OpTrunc:
		if !sameKindClass(rt, ot) {
			v.errorf(idx, KindShapeMismatch, "truncation requires both operand and result to be integer, or both float")
			return
		}
		if !(bitSizeOf(rt) < bitSizeOf(ot)) {
			v.errorf(idx, KindSizeConstraint, "truncation result type must be smaller than the value being truncated")
		}
	case ir.OpExt:
		if !sameKindClass(rt, ot) {
			v.errorf(idx, KindShapeMismatch, "extension requires both operand and result to be integer, or both float")
			return
		}
		if !(bitSizeOf(rt) > bitSizeOf(ot)) {
			v.errorf(idx, KindSizeConstraint, "extension result type must be larger than the value being extended")
		}
	case ir.OpFtoI:
		if !irtypes.IsInteger(rt) {
			v.errorf(idx, KindShapeMismatch, "ftoi result must be an integer type")
		}
		if !irtypes.IsFloat(ot) {
			v.errorf(idx, KindShapeMismatch, "ftoi operand must be a float type")
		}
	case ir.OpItoF:
		if !irtypes.IsFloat(rt) {
			v.errorf(idx, KindShapeMismatch, "itof result must be a float type")
		}
		if !irtypes.IsInteger(ot) {
			v.errorf(idx, KindShapeMismatch, "itof operand must be an integer type")
		}
	case ir.OpPtoI:
		if !irtypes.IsInteger(rt) {
			v.errorf(idx, KindShapeMismatch, "ptoi result must be an integer type")
		}
		if ot.Kind() != irtypes.KindPtr {
			v.errorf(idx, KindShapeMismatch, "ptoi operand must be a pointer type")
		}
	case ir.OpItoP:
		if rt.Kind() != irtypes.KindPtr {
			v.errorf(idx, KindShapeMismatch, "itop result must be a pointer type")
		}
		if !irtypes.IsInteger(ot) {
			v.errorf(idx, KindShapeMismatch, "itop operand must be an integer type")
		}
	case ir.OpBitcast:
		// no further shape constraint: any type may be reinterpreted
	}
}

func sameKindClass(a, b irtypes.Type) bool {
	return (irtypes.IsInteger(a) && irtypes.IsInteger(b)) || (irtypes.IsFloat(a) && irtypes.IsFloat(b))
}

// bitSizeOf returns a fixed-width scalar's bit width without requiring
// an archdesc.Desc: Trunc/Ext only ever compare same-class fixed-width
// integer or float kinds, none of which are architecture-dependent.
func bitSizeOf(t irtypes.Type) uint64 {
	switch t.Kind() {
	case irtypes.KindI8, irtypes.KindU8:
		return 8
	case irtypes.KindI16, irtypes.KindU16:
		return 16
	case irtypes.KindI32, irtypes.KindU32, irtypes.KindF32:
		return 32
	case irtypes.KindI64, irtypes.KindU64, irtypes.KindF64:
		return 64
	case irtypes.KindBool:
		return 1
	}
	return 0
}

func (v *validator) checkBranch(idx int, b ir.Branch) {
	if b.Label == "" {
		v.errorf(idx, KindLabelError, "branch has no target label")
		return
	}
	if b.Cond != nil && b.Cond.Type().Kind() != irtypes.KindBool {
		v.errorf(idx, KindTypeMismatch, "branch condition must be bool")
	}
}

func (v *validator) checkRet(idx int, r ir.Ret) {
	retTy := v.fn.Sig.Return
	if r.Value != nil {
		if !irtypes.Equal(r.Value.Type(), retTy) {
			v.errorf(idx, KindTypeMismatch, "return value type does not match function return type")
		}
		return
	}
	if retTy.Kind() != irtypes.KindVoid {
		v.errorf(idx, KindTypeMismatch, "return value type does not match function return type")
	}
}

func (v *validator) checkAlloca(idx int, a ir.Alloca) {
	ptr, ok := a.Result.Ty.(irtypes.Ptr)
	if !ok {
		v.errorf(idx, KindShapeMismatch, "alloca result must be a pointer type")
		return
	}
	if !irtypes.Equal(ptr.Pointee, a.AllocType) {
		v.errorf(idx, KindTypeMismatch, "alloca result pointee must match the allocated type")
	}
}

func (v *validator) checkLoad(idx int, l ir.Load) {
	ptr, ok := l.Ptr.Type().(irtypes.Ptr)
	if !ok {
		v.errorf(idx, KindShapeMismatch, "load operand must be a pointer type")
		return
	}
	if !irtypes.Equal(l.Result.Ty, ptr.Pointee) {
		v.errorf(idx, KindTypeMismatch, "load result type does not match pointee type")
	}
}

func (v *validator) checkStore(idx int, s ir.Store) {
	ptr, ok := s.Ptr.Type().(irtypes.Ptr)
	if !ok {
		v.errorf(idx, KindShapeMismatch, "store pointer operand must be a pointer type")
		return
	}
	if !irtypes.Equal(s.Value.Type(), ptr.Pointee) {
		v.errorf(idx, KindTypeMismatch, "store value type does not match pointee type")
	}
}

func (v *validator) checkMemcpy(idx int, m ir.Memcpy) {
	if !isPtrOrArray(m.Dest.Type()) {
		v.errorf(idx, KindShapeMismatch, "memcpy destination must be a pointer or array type")
	}
	if !isPtrOrArray(m.Src.Type()) {
		v.errorf(idx, KindShapeMismatch, "memcpy source must be a pointer or array type")
	}
}

func isPtrOrArray(t irtypes.Type) bool {
	switch t.Kind() {
	case irtypes.KindPtr, irtypes.KindArray:
		return true
	}
	return false
}

func (v *validator) checkGetArrayElementPtr(idx int, g ir.GetArrayElementPtr) {
	if !irtypes.IsInteger(g.Index.Type()) {
		v.errorf(idx, KindShapeMismatch, "array element index must be an integer type")
	}
	ptr, ok := g.Base.Type().(irtypes.Ptr)
	if !ok {
		v.errorf(idx, KindShapeMismatch, "get_array_element_ptr base must be a pointer type")
		return
	}
	elem := ptr.Pointee
	if arr, ok := elem.(irtypes.Array); ok {
		elem = arr.Elem
	}
	wantResult := irtypes.Ptr{Pointee: elem}
	if !irtypes.Equal(g.Result.Ty, wantResult) {
		v.errorf(idx, KindTypeMismatch, "get_array_element_ptr result type does not match element pointer type")
	}
}

func (v *validator) checkGetStructMemberPtr(idx int, g ir.GetStructMemberPtr) {
	ptr, ok := g.Base.Type().(irtypes.Ptr)
	if !ok {
		v.errorf(idx, KindShapeMismatch, "get_struct_member_ptr base must be a pointer type")
		return
	}
	st, ok := ptr.Pointee.(*irtypes.StructOrUnion)
	if !ok {
		v.errorf(idx, KindShapeMismatch, "get_struct_member_ptr base must point to a struct or union")
		return
	}
	if g.FieldIndex.Kind != ir.ConstInt {
		v.errorf(idx, KindShapeMismatch, "get_struct_member_ptr field index must be a constant integer")
		return
	}
	i := int(g.FieldIndex.Int)
	if i < 0 || i >= len(st.Fields) {
		v.errorf(idx, KindShapeMismatch, "get_struct_member_ptr field index out of range")
		return
	}
	wantResult := irtypes.Ptr{Pointee: st.Fields[i].Type}
	if !irtypes.Equal(g.Result.Ty, wantResult) {
		v.errorf(idx, KindTypeMismatch, "get_struct_member_ptr result type does not match field pointer type")
	}
}

func (v *validator) checkSwitch(idx int, s ir.Switch) {
	if s.DefaultLabel == "" {
		v.errorf(idx, KindLabelError, "switch is missing a default label")
	}
	if !irtypes.IsInteger(s.Value.Type()) {
		v.errorf(idx, KindShapeMismatch, "switch scrutinee must be an integer type")
	}
	// Duplicate case values are intentionally not rejected: documented
	// current behavior, left for future tightening.
	for _, c := range s.Cases {
		if !irtypes.IsInteger(c.Value.Ty) {
			v.errorf(idx, KindShapeMismatch, "switch case constant must be an integer type")
		}
	}
}

func (v *validator) passTwo() {
	for idx, instr := range v.fn.Body {
		for _, label := range ir.BranchTargets(instr) {
			if label == "" {
				continue // already reported as a label error in pass one
			}
			if _, ok := v.labels[label]; !ok {
				v.errorf(idx, KindLabelError, "invalid branch target %q", label)
			}
		}
	}
}

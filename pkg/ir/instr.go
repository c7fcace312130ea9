package ir

import "github.com/gocc-ir/ssair/pkg/irtypes"

// Opcode identifies the operation an Instruction performs. Several
// opcodes share the same Operand shape;
// the opcode alone distinguishes, e.g., Add from Sub.
type Opcode int

const (
	// Assignment
	OpAssign Opcode = iota
	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	// Bitwise
	OpAnd
	OpOr
	OpShl
	OpShr
	OpXor
	OpNot
	// Comparison
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	// Control
	OpBr
	OpBrCond
	OpCall
	OpRet
	OpSwitch
	OpNop
	// Memory
	OpAlloca
	OpLoad
	OpStore
	OpMemcpy
	OpMemset
	OpGetArrayElementPtr
	OpGetStructMemberPtr
	// Conversion
	OpTrunc
	OpExt
	OpFtoI
	OpItoF
	OpPtoI
	OpItoP
	OpBitcast
	// Vararg
	OpVaStart
	OpVaEnd
	OpVaArg
	OpVaCopy
)

var opcodeNames = [...]string{
	"assign",
	"add", "sub", "mul", "div", "mod",
	"and", "or", "shl", "shr", "xor", "not",
	"eq", "ne", "lt", "le", "gt", "ge",
	"br", "br_cond", "call", "ret", "switch", "nop",
	"alloca", "load", "store", "memcpy", "memset",
	"get_array_element_ptr", "get_struct_member_ptr",
	"trunc", "ext", "ftoi", "itof", "ptoi", "itop", "bitcast",
	"va_start", "va_end", "va_arg", "va_copy",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "?"
}

// OpcodeByName is the inverse of Opcode.String, for textual formats
// (the YAML module loader) that name opcodes rather than encode them.
func OpcodeByName(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// IsBinaryArith reports whether op is one of the arithmetic or bitwise
// binary opcodes (shares the Binary operand shape, result type equals
// both operand types).
func (op Opcode) IsBinaryArith() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAnd, OpOr, OpShl, OpShr, OpXor:
		return true
	}
	return false
}

// IsComparison reports whether op is one of the six comparison opcodes.
func (op Opcode) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsConversion reports whether op is one of the Convert-shaped opcodes.
func (op Opcode) IsConversion() bool {
	switch op {
	case OpTrunc, OpExt, OpFtoI, OpItoF, OpPtoI, OpItoP, OpBitcast:
		return true
	}
	return false
}

// Operand is the per-opcode operand record. Exactly one concrete type
// below is held by a given Instruction, chosen according to its Opcode.
type Operand interface {
	implOperand()
}

// Assign is `result = value`.
type Assign struct {
	Value  Value
	Result Var
}

// Binary is `result = op(left, right)`: arithmetic, bitwise, and
// comparison opcodes all share this shape.
type Binary struct {
	Left, Right Value
	Result      Var
}

// Unary is `result = op(operand)`: used by Not and by every conversion
// opcode (Trunc, Ext, FtoI, ItoF, PtoI, ItoP, Bitcast).
type Unary struct {
	Operand Value
	Result  Var
}

// Branch covers Br (Cond == nil) and BrCond (Cond != nil).
type Branch struct {
	Label string
	Cond  Value // nil for an unconditional branch
}

// Call performs a function call. Result is nil when the callee's return
// type is Void (or the value is otherwise discarded).
type Call struct {
	Fn     Value
	Args   []Value
	Result *Var
}

// Ret returns from the function. Value is nil for a Void return.
type Ret struct {
	Value Value
}

// Alloca allocates stack space for a value of AllocType, producing a
// pointer to it.
type Alloca struct {
	AllocType irtypes.Type
	Result    Var
}

// Load reads through a pointer.
type Load struct {
	Ptr    Value
	Result Var
}

// Store writes Value through Ptr.
type Store struct {
	Ptr   Value
	Value Value
}

// Memset fills Length bytes starting at Ptr with Value.
type Memset struct {
	Ptr, Value, Length Value
}

// Memcpy copies Length bytes from Src to Dest.
type Memcpy struct {
	Dest, Src, Length Value
}

// GetArrayElementPtr computes `&Base[Index]`.
type GetArrayElementPtr struct {
	Base, Index Value
	Result      Var
}

// GetStructMemberPtr computes `&Base->FieldIndex`. FieldIndex must be a
// constant integer.
type GetStructMemberPtr struct {
	Base       Value
	FieldIndex Const
	Result     Var
}

// SwitchCase is one `value: label` arm of a Switch.
type SwitchCase struct {
	Value Const
	Label string
}

// Switch dispatches on Value to one of Cases, or DefaultLabel.
type Switch struct {
	Value        Value
	Cases        []SwitchCase
	DefaultLabel string
}

// VaStart initializes a va_list at Ptr.
type VaStart struct {
	Ptr Value
}

// VaEnd tears down a va_list at Ptr.
type VaEnd struct {
	Ptr Value
}

// VaArg fetches the next variadic argument of type ArgType from Ptr.
type VaArg struct {
	Ptr     Value
	ArgType irtypes.Type
	Result  Var
}

// VaCopy duplicates a va_list from Src to Dest.
type VaCopy struct {
	Dest, Src Value
}

// Nop is a no-operation; it exists to carry a label with no other effect.
type Nop struct{}

func (Assign) implOperand()             {}
func (Binary) implOperand()             {}
func (Unary) implOperand()              {}
func (Branch) implOperand()             {}
func (Call) implOperand()               {}
func (Ret) implOperand()                {}
func (Alloca) implOperand()             {}
func (Load) implOperand()               {}
func (Store) implOperand()              {}
func (Memset) implOperand()             {}
func (Memcpy) implOperand()             {}
func (GetArrayElementPtr) implOperand() {}
func (GetStructMemberPtr) implOperand() {}
func (Switch) implOperand()             {}
func (VaStart) implOperand()            {}
func (VaEnd) implOperand()              {}
func (VaArg) implOperand()              {}
func (VaCopy) implOperand()             {}
func (Nop) implOperand()                {}

// Instruction is one flat-form instruction: an opcode, an optional
// label that makes it a branch target, and the opcode's operand record.
type Instruction struct {
	Op      Opcode
	Label   string // "" if this instruction is not a branch target
	Operand Operand
}

// HasLabel reports whether the instruction carries a label.
func (i Instruction) HasLabel() bool { return i.Label != "" }

// valueVar extracts the Var under a Value, if it is one.
func valueVar(v Value) (Var, bool) {
	if v == nil {
		return Var{}, false
	}
	return AsVar(v)
}

// Uses returns every variable read by instr.
func Uses(instr Instruction) []Var {
	var out []Var
	add := func(v Value) {
		if vr, ok := valueVar(v); ok {
			out = append(out, vr)
		}
	}
	switch o := instr.Operand.(type) {
	case Assign:
		add(o.Value)
	case Binary:
		add(o.Left)
		add(o.Right)
	case Unary:
		add(o.Operand)
	case Branch:
		add(o.Cond)
	case Call:
		add(o.Fn)
		for _, a := range o.Args {
			add(a)
		}
	case Ret:
		add(o.Value)
	case Alloca:
		// no uses
	case Load:
		add(o.Ptr)
	case Store:
		add(o.Value)
		add(o.Ptr)
	case Memset:
		add(o.Ptr)
		add(o.Value)
		add(o.Length)
	case Memcpy:
		add(o.Dest)
		add(o.Src)
		add(o.Length)
	case GetArrayElementPtr:
		add(o.Base)
		add(o.Index)
	case GetStructMemberPtr:
		add(o.Base)
	case Switch:
		add(o.Value)
	case VaStart:
		add(o.Ptr)
	case VaEnd:
		add(o.Ptr)
	case VaArg:
		add(o.Ptr)
	case VaCopy:
		add(o.Dest)
		add(o.Src)
	case Nop:
		// no uses
	}
	return out
}

// Def returns the variable written by instr, if any.
func Def(instr Instruction) (Var, bool) {
	switch o := instr.Operand.(type) {
	case Assign:
		return o.Result, true
	case Binary:
		return o.Result, true
	case Unary:
		return o.Result, true
	case Call:
		if o.Result != nil {
			return *o.Result, true
		}
	case Alloca:
		return o.Result, true
	case Load:
		return o.Result, true
	case GetArrayElementPtr:
		return o.Result, true
	case GetStructMemberPtr:
		return o.Result, true
	case VaArg:
		return o.Result, true
	}
	return Var{}, false
}

// RewriteUses returns a copy of instr with every used Value passed
// through rewrite. Definitions are left untouched; callers rewrite the
// definition separately via WithResult. This is the primitive the SSA
// builder uses to thread fresh names through an instruction.
func RewriteUses(instr Instruction, rewrite func(Value) Value) Instruction {
	rw := func(v Value) Value {
		if v == nil {
			return nil
		}
		return rewrite(v)
	}
	switch o := instr.Operand.(type) {
	case Assign:
		instr.Operand = Assign{Value: rw(o.Value), Result: o.Result}
	case Binary:
		instr.Operand = Binary{Left: rw(o.Left), Right: rw(o.Right), Result: o.Result}
	case Unary:
		instr.Operand = Unary{Operand: rw(o.Operand), Result: o.Result}
	case Branch:
		instr.Operand = Branch{Label: o.Label, Cond: rw(o.Cond)}
	case Call:
		args := make([]Value, len(o.Args))
		for i, a := range o.Args {
			args[i] = rw(a)
		}
		instr.Operand = Call{Fn: rw(o.Fn), Args: args, Result: o.Result}
	case Ret:
		instr.Operand = Ret{Value: rw(o.Value)}
	case Load:
		instr.Operand = Load{Ptr: rw(o.Ptr), Result: o.Result}
	case Store:
		instr.Operand = Store{Ptr: rw(o.Ptr), Value: rw(o.Value)}
	case Memset:
		instr.Operand = Memset{Ptr: rw(o.Ptr), Value: rw(o.Value), Length: rw(o.Length)}
	case Memcpy:
		instr.Operand = Memcpy{Dest: rw(o.Dest), Src: rw(o.Src), Length: rw(o.Length)}
	case GetArrayElementPtr:
		instr.Operand = GetArrayElementPtr{Base: rw(o.Base), Index: rw(o.Index), Result: o.Result}
	case GetStructMemberPtr:
		instr.Operand = GetStructMemberPtr{Base: rw(o.Base), FieldIndex: o.FieldIndex, Result: o.Result}
	case Switch:
		instr.Operand = Switch{Value: rw(o.Value), Cases: o.Cases, DefaultLabel: o.DefaultLabel}
	case VaStart:
		instr.Operand = VaStart{Ptr: rw(o.Ptr)}
	case VaEnd:
		instr.Operand = VaEnd{Ptr: rw(o.Ptr)}
	case VaArg:
		instr.Operand = VaArg{Ptr: rw(o.Ptr), ArgType: o.ArgType, Result: o.Result}
	case VaCopy:
		instr.Operand = VaCopy{Dest: rw(o.Dest), Src: rw(o.Src)}
	}
	return instr
}

// WithResult returns a copy of instr with its definition's Var replaced
// by result, leaving uses untouched.
func WithResult(instr Instruction, result Var) Instruction {
	switch o := instr.Operand.(type) {
	case Assign:
		o.Result = result
		instr.Operand = o
	case Binary:
		o.Result = result
		instr.Operand = o
	case Unary:
		o.Result = result
		instr.Operand = o
	case Call:
		r := result
		o.Result = &r
		instr.Operand = o
	case Alloca:
		o.Result = result
		instr.Operand = o
	case Load:
		o.Result = result
		instr.Operand = o
	case GetArrayElementPtr:
		o.Result = result
		instr.Operand = o
	case GetStructMemberPtr:
		o.Result = result
		instr.Operand = o
	case VaArg:
		o.Result = result
		instr.Operand = o
	}
	return instr
}

// BranchTargets returns every label instr may transfer control to
// directly (Br, BrCond, Switch). It does not include fall-through.
func BranchTargets(instr Instruction) []string {
	switch o := instr.Operand.(type) {
	case Branch:
		return []string{o.Label}
	case Switch:
		labels := make([]string, 0, len(o.Cases)+1)
		for _, c := range o.Cases {
			labels = append(labels, c.Label)
		}
		labels = append(labels, o.DefaultLabel)
		return labels
	}
	return nil
}

// IsTerminator reports whether instr ends a basic block: Br, BrCond,
// Ret, or Switch. Of these only BrCond may also fall through to the
// next instruction (see CanFallThrough).
func IsTerminator(instr Instruction) bool {
	switch instr.Operand.(type) {
	case Branch, Ret, Switch:
		return true
	}
	return false
}

// CanFallThrough reports whether control may pass to the textually next
// instruction. Only Br, Ret, and Switch cannot: br_cond DOES fall
// through on its false edge in the three-address model used here, since
// the conditional branch's operand only carries the taken-branch label,
// so the not-taken case is the fall-through successor.
func CanFallThrough(instr Instruction) bool {
	switch o := instr.Operand.(type) {
	case Branch:
		return o.Cond != nil // br_cond falls through; br does not
	case Ret, Switch:
		return false
	}
	return true
}

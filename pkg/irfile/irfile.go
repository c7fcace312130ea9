// Package irfile decodes a small, self-describing YAML module format
// into an ir.Module, so tests and the irtool CLI can construct modules
// without writing Go literals by hand.
package irfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gocc-ir/ssair/pkg/archdesc"
	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

// Doc is the top-level YAML shape: a module name, target architecture,
// struct/union declarations, globals, and functions.
type Doc struct {
	Module  string       `yaml:"module"`
	Arch    string       `yaml:"arch,omitempty"`
	Structs []StructDecl `yaml:"structs,omitempty"`
	Globals []GlobalDecl `yaml:"globals,omitempty"`
	Funcs   []FuncDecl   `yaml:"functions,omitempty"`
}

type StructDecl struct {
	ID      string       `yaml:"id"`
	Union   bool         `yaml:"union,omitempty"`
	Fields  []FieldDecl  `yaml:"fields"`
}

type FieldDecl struct {
	Name string   `yaml:"name"`
	Type TypeDecl `yaml:"type"`
}

type GlobalDecl struct {
	Name string    `yaml:"name"`
	Type TypeDecl  `yaml:"type"`
	Init *ConstDecl `yaml:"init,omitempty"`
}

type FuncDecl struct {
	Name     string         `yaml:"name"`
	Return   TypeDecl       `yaml:"return"`
	Params   []ParamDecl    `yaml:"params,omitempty"`
	Variadic bool           `yaml:"variadic,omitempty"`
	Body     []InstrDecl    `yaml:"body,omitempty"`
}

type ParamDecl struct {
	Name string   `yaml:"name"`
	Type TypeDecl `yaml:"type"`
}

// TypeDecl is a tagged-by-field type description: only the fields that
// Kind uses are populated (pointee for ptr, elem and len for array,
// struct_id for struct, return/params/variadic for function).
type TypeDecl struct {
	Kind     string      `yaml:"kind"`
	Pointee  *TypeDecl   `yaml:"pointee,omitempty"`
	Elem     *TypeDecl   `yaml:"elem,omitempty"`
	Len      uint64      `yaml:"len,omitempty"`
	StructID string      `yaml:"struct_id,omitempty"`
	Return   *TypeDecl   `yaml:"return,omitempty"`
	Params   []TypeDecl  `yaml:"params,omitempty"`
	Variadic bool        `yaml:"variadic,omitempty"`
}

// ConstDecl mirrors ir.Const's variants for YAML authoring.
type ConstDecl struct {
	Type       TypeDecl    `yaml:"type"`
	Int        *int64      `yaml:"int,omitempty"`
	Float      *float64    `yaml:"float,omitempty"`
	Str        *string     `yaml:"str,omitempty"`
	Elems      []ConstDecl `yaml:"elems,omitempty"`
	Union      bool        `yaml:"union,omitempty"`
	FieldIndex int         `yaml:"field_index,omitempty"`
	Global     *string     `yaml:"global,omitempty"`
}

// ValueDecl is either a variable reference ("%x", "@g") or an inline
// constant.
type ValueDecl struct {
	Var   string     `yaml:"var,omitempty"`
	Const *ConstDecl `yaml:"const,omitempty"`
}

// InstrDecl is one instruction: an opcode, an optional label, and
// opcode-specific fields. Unused fields are left zero.
type InstrDecl struct {
	Label  string      `yaml:"label,omitempty"`
	Op     string      `yaml:"op"`
	Result *ParamDecl  `yaml:"result,omitempty"`
	Value  *ValueDecl  `yaml:"value,omitempty"`
	Left   *ValueDecl  `yaml:"left,omitempty"`
	Right  *ValueDecl  `yaml:"right,omitempty"`
	Cond   *ValueDecl  `yaml:"cond,omitempty"`
	TargetLabel string `yaml:"target_label,omitempty"`
	Fn     *ValueDecl  `yaml:"fn,omitempty"`
	Args   []ValueDecl `yaml:"args,omitempty"`
	Ptr    *ValueDecl  `yaml:"ptr,omitempty"`
	Base   *ValueDecl  `yaml:"base,omitempty"`
	Index  *ValueDecl  `yaml:"index,omitempty"`
	Dest   *ValueDecl  `yaml:"dest,omitempty"`
	Src    *ValueDecl  `yaml:"src,omitempty"`
	Length *ValueDecl  `yaml:"length,omitempty"`
	AllocType *TypeDecl `yaml:"alloc_type,omitempty"`
	ArgType   *TypeDecl `yaml:"arg_type,omitempty"`
	FieldIndex *ConstDecl `yaml:"field_index,omitempty"`
	DefaultLabel string  `yaml:"default_label,omitempty"`
	Cases  []CaseDecl `yaml:"cases,omitempty"`
}

type CaseDecl struct {
	Value ConstDecl `yaml:"value"`
	Label string    `yaml:"label"`
}

// Parse decodes a YAML module document.
func Parse(data []byte) (*Doc, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("irfile: parse: %w", err)
	}
	return &doc, nil
}

// Build converts a parsed Doc into an ir.Module. If doc.Arch names a
// target triple, the module's architecture is resolved against it;
// otherwise the ir.NewModule default (x86_64) is kept.
func Build(doc *Doc) (*ir.Module, error) {
	m := ir.NewModule(doc.Module)
	if doc.Arch != "" {
		arch, ok := archdesc.Resolve(doc.Arch)
		if !ok {
			return nil, fmt.Errorf("irfile: unknown arch %q", doc.Arch)
		}
		m.Arch = arch
	}

	// Structs are inserted up front, unfinished, so that self- and
	// mutually-referential struct_id type references resolve during the
	// second pass where fields are filled in.
	for _, sd := range doc.Structs {
		m.Structs.Insert(sd.ID, irtypes.NewStructOrUnion(sd.ID, sd.Union, nil))
	}
	b := &builder{m: m}
	for _, sd := range doc.Structs {
		fields := make([]irtypes.Field, len(sd.Fields))
		for i, fd := range sd.Fields {
			ty, err := b.resolveType(fd.Type)
			if err != nil {
				return nil, fmt.Errorf("irfile: struct %s field %s: %w", sd.ID, fd.Name, err)
			}
			fields[i] = irtypes.Field{Index: i, Name: fd.Name, Type: ty}
		}
		st, _ := m.Structs.Lookup(sd.ID)
		*st = *irtypes.NewStructOrUnion(sd.ID, sd.Union, fields)
	}

	for _, gd := range doc.Globals {
		ty, err := b.resolveType(gd.Type)
		if err != nil {
			return nil, fmt.Errorf("irfile: global %s: %w", gd.Name, err)
		}
		g := ir.Global{Name: gd.Name, Ty: irtypes.Ptr{Pointee: ty}}
		if gd.Init != nil {
			c, err := b.resolveConst(*gd.Init)
			if err != nil {
				return nil, fmt.Errorf("irfile: global %s init: %w", gd.Name, err)
			}
			g.Initialized = true
			g.Init = c
		}
		m.AppendGlobal(g)
	}

	for _, fd := range doc.Funcs {
		fn, err := b.resolveFunc(fd)
		if err != nil {
			return nil, fmt.Errorf("irfile: function %s: %w", fd.Name, err)
		}
		m.AppendFunc(fn)
	}

	return m, nil
}

// Load parses and builds data in one step.
func Load(data []byte) (*ir.Module, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Build(doc)
}

type builder struct {
	m *ir.Module
}

func (b *builder) resolveType(td TypeDecl) (irtypes.Type, error) {
	switch td.Kind {
	case "void":
		return irtypes.Void, nil
	case "bool":
		return irtypes.Bool, nil
	case "i8":
		return irtypes.I8, nil
	case "i16":
		return irtypes.I16, nil
	case "i32":
		return irtypes.I32, nil
	case "i64":
		return irtypes.I64, nil
	case "u8":
		return irtypes.U8, nil
	case "u16":
		return irtypes.U16, nil
	case "u32":
		return irtypes.U32, nil
	case "u64":
		return irtypes.U64, nil
	case "f32":
		return irtypes.F32, nil
	case "f64":
		return irtypes.F64, nil
	case "ptr":
		if td.Pointee == nil {
			return nil, fmt.Errorf("ptr type missing pointee")
		}
		pointee, err := b.resolveType(*td.Pointee)
		if err != nil {
			return nil, err
		}
		return irtypes.Ptr{Pointee: pointee}, nil
	case "array":
		if td.Elem == nil {
			return nil, fmt.Errorf("array type missing elem")
		}
		elem, err := b.resolveType(*td.Elem)
		if err != nil {
			return nil, err
		}
		return irtypes.Array{Elem: elem, Len: td.Len}, nil
	case "struct":
		st, ok := b.m.Structs.Lookup(td.StructID)
		if !ok {
			return nil, fmt.Errorf("unknown struct id %q", td.StructID)
		}
		return st, nil
	case "function":
		if td.Return == nil {
			return nil, fmt.Errorf("function type missing return")
		}
		ret, err := b.resolveType(*td.Return)
		if err != nil {
			return nil, err
		}
		params := make([]irtypes.Type, len(td.Params))
		for i, pd := range td.Params {
			pt, err := b.resolveType(pd)
			if err != nil {
				return nil, err
			}
			params[i] = pt
		}
		return irtypes.Function{Return: ret, Params: params, Variadic: td.Variadic}, nil
	default:
		return nil, fmt.Errorf("unknown type kind %q", td.Kind)
	}
}

func (b *builder) resolveConst(cd ConstDecl) (ir.Const, error) {
	ty, err := b.resolveType(cd.Type)
	if err != nil {
		return ir.Const{}, err
	}
	switch {
	case cd.Int != nil:
		return ir.IntConst(ty, *cd.Int), nil
	case cd.Float != nil:
		return ir.FloatConst(ty, *cd.Float), nil
	case cd.Str != nil:
		return ir.StringConst(ty, *cd.Str), nil
	case cd.Global != nil:
		return ir.GlobalPointerConst(ty, *cd.Global), nil
	case cd.Elems != nil:
		elems := make([]ir.Const, len(cd.Elems))
		for i, e := range cd.Elems {
			ec, err := b.resolveConst(e)
			if err != nil {
				return ir.Const{}, err
			}
			elems[i] = ec
		}
		if _, ok := ty.(irtypes.Array); ok {
			return ir.ArrayConst(ty, elems), nil
		}
		return ir.StructConst(ty, cd.Union, cd.FieldIndex, elems), nil
	default:
		return ir.Const{}, fmt.Errorf("const has no literal payload")
	}
}

func (b *builder) resolveValue(vd ValueDecl) (ir.Value, error) {
	if vd.Const != nil {
		return b.resolveConst(*vd.Const)
	}
	return ir.Var{Name: vd.Var}, nil
}

func (b *builder) resolveVar(pd ParamDecl) (ir.Var, error) {
	ty, err := b.resolveType(pd.Type)
	if err != nil {
		return ir.Var{}, err
	}
	return ir.Var{Name: pd.Name, Ty: ty}, nil
}

func (b *builder) resolveFunc(fd FuncDecl) (ir.Function, error) {
	ret, err := b.resolveType(fd.Return)
	if err != nil {
		return ir.Function{}, err
	}
	params := make([]ir.Var, len(fd.Params))
	paramTypes := make([]irtypes.Type, len(fd.Params))
	varTypes := make(map[string]irtypes.Type, len(fd.Params))
	for i, pd := range fd.Params {
		v, err := b.resolveVar(pd)
		if err != nil {
			return ir.Function{}, err
		}
		params[i] = v
		paramTypes[i] = v.Ty
		varTypes[v.Name] = v.Ty
	}
	fn := ir.Function{
		Name:     fd.Name,
		Sig:      irtypes.Function{Return: ret, Params: paramTypes, Variadic: fd.Variadic},
		Params:   params,
		Variadic: fd.Variadic,
	}
	for _, id := range fd.Body {
		instr, err := b.resolveInstr(id)
		if err != nil {
			return ir.Function{}, err
		}
		fn.Append(instr)
		if d, ok := ir.Def(instr); ok {
			varTypes[d.Name] = d.Ty
		}
	}
	// A {var: ...} reference carries only a name; give it the type of the
	// parameter or instruction result that defines it.
	for i, instr := range fn.Body {
		fn.Body[i] = ir.RewriteUses(instr, func(v ir.Value) ir.Value {
			if vr, ok := ir.AsVar(v); ok && vr.Ty == nil && varTypes[vr.Name] != nil {
				vr.Ty = varTypes[vr.Name]
				return vr
			}
			return v
		})
	}
	return fn, nil
}

func (b *builder) resolveInstr(id InstrDecl) (ir.Instruction, error) {
	op, ok := ir.OpcodeByName(id.Op)
	if !ok {
		return ir.Instruction{}, fmt.Errorf("unknown opcode %q", id.Op)
	}

	var result ir.Var
	if id.Result != nil {
		v, err := b.resolveVar(*id.Result)
		if err != nil {
			return ir.Instruction{}, err
		}
		result = v
	}

	operand, err := b.resolveOperand(op, id, result)
	if err != nil {
		return ir.Instruction{}, err
	}
	return ir.Instruction{Op: op, Label: id.Label, Operand: operand}, nil
}

func (b *builder) resolveOperand(op ir.Opcode, id InstrDecl, result ir.Var) (ir.Operand, error) {
	val := func(vd *ValueDecl) (ir.Value, error) {
		if vd == nil {
			return nil, nil
		}
		return b.resolveValue(*vd)
	}

	switch op {
	case ir.OpAssign:
		value, err := val(id.Value)
		if err != nil {
			return nil, err
		}
		return ir.Assign{Value: value, Result: result}, nil
	case ir.OpNop:
		return ir.Nop{}, nil
	case ir.OpBr:
		cond, err := val(id.Cond)
		if err != nil {
			return nil, err
		}
		return ir.Branch{Label: id.TargetLabel, Cond: cond}, nil
	case ir.OpBrCond:
		cond, err := val(id.Cond)
		if err != nil {
			return nil, err
		}
		return ir.Branch{Label: id.TargetLabel, Cond: cond}, nil
	case ir.OpCall:
		fn, err := val(id.Fn)
		if err != nil {
			return nil, err
		}
		args := make([]ir.Value, len(id.Args))
		for i, a := range id.Args {
			av, err := b.resolveValue(a)
			if err != nil {
				return nil, err
			}
			args[i] = av
		}
		var resPtr *ir.Var
		if id.Result != nil {
			resPtr = &result
		}
		return ir.Call{Fn: fn, Args: args, Result: resPtr}, nil
	case ir.OpRet:
		v, err := val(id.Value)
		if err != nil {
			return nil, err
		}
		return ir.Ret{Value: v}, nil
	case ir.OpAlloca:
		if id.AllocType == nil {
			return nil, fmt.Errorf("alloca missing alloc_type")
		}
		ty, err := b.resolveType(*id.AllocType)
		if err != nil {
			return nil, err
		}
		return ir.Alloca{AllocType: ty, Result: result}, nil
	case ir.OpLoad:
		ptr, err := val(id.Ptr)
		if err != nil {
			return nil, err
		}
		return ir.Load{Ptr: ptr, Result: result}, nil
	case ir.OpStore:
		ptr, err := val(id.Ptr)
		if err != nil {
			return nil, err
		}
		value, err := val(id.Value)
		if err != nil {
			return nil, err
		}
		return ir.Store{Ptr: ptr, Value: value}, nil
	case ir.OpMemcpy:
		dest, err := val(id.Dest)
		if err != nil {
			return nil, err
		}
		src, err := val(id.Src)
		if err != nil {
			return nil, err
		}
		length, err := val(id.Length)
		if err != nil {
			return nil, err
		}
		return ir.Memcpy{Dest: dest, Src: src, Length: length}, nil
	case ir.OpMemset:
		ptr, err := val(id.Ptr)
		if err != nil {
			return nil, err
		}
		value, err := val(id.Value)
		if err != nil {
			return nil, err
		}
		length, err := val(id.Length)
		if err != nil {
			return nil, err
		}
		return ir.Memset{Ptr: ptr, Value: value, Length: length}, nil
	case ir.OpGetArrayElementPtr:
		base, err := val(id.Base)
		if err != nil {
			return nil, err
		}
		index, err := val(id.Index)
		if err != nil {
			return nil, err
		}
		return ir.GetArrayElementPtr{Base: base, Index: index, Result: result}, nil
	case ir.OpGetStructMemberPtr:
		base, err := val(id.Base)
		if err != nil {
			return nil, err
		}
		if id.FieldIndex == nil {
			return nil, fmt.Errorf("get_struct_member_ptr missing field_index")
		}
		fi, err := b.resolveConst(*id.FieldIndex)
		if err != nil {
			return nil, err
		}
		return ir.GetStructMemberPtr{Base: base, FieldIndex: fi, Result: result}, nil
	case ir.OpSwitch:
		value, err := val(id.Value)
		if err != nil {
			return nil, err
		}
		cases := make([]ir.SwitchCase, len(id.Cases))
		for i, c := range id.Cases {
			cv, err := b.resolveConst(c.Value)
			if err != nil {
				return nil, err
			}
			cases[i] = ir.SwitchCase{Value: cv, Label: c.Label}
		}
		return ir.Switch{Value: value, Cases: cases, DefaultLabel: id.DefaultLabel}, nil
	case ir.OpVaStart:
		ptr, err := val(id.Ptr)
		if err != nil {
			return nil, err
		}
		return ir.VaStart{Ptr: ptr}, nil
	case ir.OpVaEnd:
		ptr, err := val(id.Ptr)
		if err != nil {
			return nil, err
		}
		return ir.VaEnd{Ptr: ptr}, nil
	case ir.OpVaArg:
		ptr, err := val(id.Ptr)
		if err != nil {
			return nil, err
		}
		if id.ArgType == nil {
			return nil, fmt.Errorf("va_arg missing arg_type")
		}
		ty, err := b.resolveType(*id.ArgType)
		if err != nil {
			return nil, err
		}
		return ir.VaArg{Ptr: ptr, ArgType: ty, Result: result}, nil
	case ir.OpVaCopy:
		dest, err := val(id.Dest)
		if err != nil {
			return nil, err
		}
		src, err := val(id.Src)
		if err != nil {
			return nil, err
		}
		return ir.VaCopy{Dest: dest, Src: src}, nil
	case ir.OpNot:
		operand, err := val(id.Value)
		if err != nil {
			return nil, err
		}
		return ir.Unary{Operand: operand, Result: result}, nil
	default:
		if op.IsConversion() {
			operand, err := val(id.Value)
			if err != nil {
				return nil, err
			}
			return ir.Unary{Operand: operand, Result: result}, nil
		}
		if op.IsBinaryArith() || op.IsComparison() {
			left, err := val(id.Left)
			if err != nil {
				return nil, err
			}
			right, err := val(id.Right)
			if err != nil {
				return nil, err
			}
			return ir.Binary{Left: left, Right: right, Result: result}, nil
		}
		return nil, fmt.Errorf("unhandled opcode %q in irfile", id.Op)
	}
}

// Package irfmt renders the IR's types, values, instructions, and
// modules as text, for debugging and the irtool CLI.
//
// Every FormatX function writes to an io.Writer through a Printer; each
// also has a string-returning convenience wrapper built on
// strings.Builder.
package irfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

// Printer writes formatted IR text to an underlying io.Writer.
type Printer struct {
	w io.Writer
}

// NewPrinter wraps w in a Printer.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// FormatModule writes m's globals, then each function, in the textual
// module grammar.
func FormatModule(w io.Writer, m *ir.Module) {
	NewPrinter(w).PrintModule(m)
}

// ModuleString renders m via FormatModule and returns the result.
func ModuleString(m *ir.Module) string {
	var sb strings.Builder
	FormatModule(&sb, m)
	return sb.String()
}

func (p *Printer) PrintModule(m *ir.Module) {
	for _, g := range m.Globals {
		p.printGlobal(g)
	}
	if len(m.Globals) > 0 && len(m.Funcs) > 0 {
		fmt.Fprintln(p.w)
	}
	for i, fn := range m.Funcs {
		p.PrintFunction(&fn)
		if i < len(m.Funcs)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *Printer) printGlobal(g ir.Global) {
	fmt.Fprintf(p.w, "global %s %s", p.typeString(g.Ty), g.Name)
	if g.Initialized {
		fmt.Fprintf(p.w, " = %s", p.constLiteral(g.Init))
	}
	fmt.Fprintln(p.w)
}

// PrintFunction writes fn as `function <name> <type> { <instrs> }`.
func (p *Printer) PrintFunction(fn *ir.Function) {
	fmt.Fprintf(p.w, "function %s %s {\n", fn.Name, p.typeString(fn.Sig))
	for _, instr := range fn.Body {
		fmt.Fprint(p.w, "  ")
		p.PrintInstr(instr)
		fmt.Fprintln(p.w)
	}
	fmt.Fprintln(p.w, "}")
}

// FormatType writes t's type-grammar rendering.
func FormatType(w io.Writer, t irtypes.Type) { NewPrinter(w).PrintType(t) }

// TypeString renders t via FormatType and returns the result.
func TypeString(t irtypes.Type) string {
	var sb strings.Builder
	FormatType(&sb, t)
	return sb.String()
}

func (p *Printer) PrintType(t irtypes.Type) { fmt.Fprint(p.w, p.typeString(t)) }

func (p *Printer) typeString(t irtypes.Type) string {
	switch v := t.(type) {
	case nil:
		return "void"
	case irtypes.Ptr:
		return "*" + p.typeString(v.Pointee)
	case irtypes.Array:
		return fmt.Sprintf("[%s;%d]", p.typeString(v.Elem), v.Len)
	case *irtypes.StructOrUnion:
		if v.IsUnion {
			return "union." + v.ID
		}
		return "struct." + v.ID
	case irtypes.Function:
		params := make([]string, len(v.Params))
		for i, pt := range v.Params {
			params[i] = p.typeString(pt)
		}
		if v.Variadic {
			params = append(params, "...")
		}
		return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), p.typeString(v.Return))
	default:
		return scalarName(t.Kind())
	}
}

func scalarName(k irtypes.Kind) string {
	switch k {
	case irtypes.KindVoid:
		return "void"
	case irtypes.KindBool:
		return "bool"
	case irtypes.KindI8:
		return "i8"
	case irtypes.KindI16:
		return "i16"
	case irtypes.KindI32:
		return "i32"
	case irtypes.KindI64:
		return "i64"
	case irtypes.KindU8:
		return "u8"
	case irtypes.KindU16:
		return "u16"
	case irtypes.KindU32:
		return "u32"
	case irtypes.KindU64:
		return "u64"
	case irtypes.KindF32:
		return "f32"
	case irtypes.KindF64:
		return "f64"
	default:
		return k.String()
	}
}

// FormatConst writes c as `<type> <literal>`.
func FormatConst(w io.Writer, c ir.Const) { NewPrinter(w).PrintConst(c) }

// ConstString renders c via FormatConst and returns the result.
func ConstString(c ir.Const) string {
	var sb strings.Builder
	FormatConst(&sb, c)
	return sb.String()
}

func (p *Printer) PrintConst(c ir.Const) {
	fmt.Fprintf(p.w, "%s %s", p.typeString(c.Ty), p.constLiteral(c))
}

func (p *Printer) constLiteral(c ir.Const) string {
	switch c.Kind {
	case ir.ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ir.ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ir.ConstString:
		return quoteString(c.Str)
	case ir.ConstGlobalPointer:
		return c.GlobalName
	case ir.ConstArray, ir.ConstStruct:
		elems := make([]string, len(c.Elems))
		for i, e := range c.Elems {
			elems[i] = p.constLiteral(e)
		}
		return "{ " + strings.Join(elems, ", ") + " }"
	default:
		return "?"
	}
}

// quoteString escapes \n \t \r \" \\ exactly once each.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// FormatVar writes v as `<type> <name>`.
func FormatVar(w io.Writer, v ir.Var) { NewPrinter(w).PrintVar(v) }

// VarString renders v via FormatVar and returns the result.
func VarString(v ir.Var) string {
	var sb strings.Builder
	FormatVar(&sb, v)
	return sb.String()
}

func (p *Printer) PrintVar(v ir.Var) {
	fmt.Fprintf(p.w, "%s %s", p.typeString(v.Ty), v.Name)
}

// FormatVal writes v's bare value form (no type prefix): a Var prints
// its name, a Const prints its literal.
func FormatVal(w io.Writer, v ir.Value) { NewPrinter(w).PrintVal(v) }

// ValString renders v via FormatVal and returns the result.
func ValString(v ir.Value) string {
	var sb strings.Builder
	FormatVal(&sb, v)
	return sb.String()
}

func (p *Printer) PrintVal(v ir.Value) {
	if v == nil {
		return
	}
	switch val := v.(type) {
	case ir.Var:
		fmt.Fprint(p.w, val.Name)
	case ir.Const:
		fmt.Fprint(p.w, p.constLiteral(val))
	default:
		fmt.Fprint(p.w, "?")
	}
}

// FormatInstr writes instr in the `[label: ]opcode operands` instruction
// grammar.
func FormatInstr(w io.Writer, instr ir.Instruction) { NewPrinter(w).PrintInstr(instr) }

// InstrString renders instr via FormatInstr and returns the result.
func InstrString(instr ir.Instruction) string {
	var sb strings.Builder
	FormatInstr(&sb, instr)
	return sb.String()
}

func (p *Printer) PrintInstr(instr ir.Instruction) {
	if instr.HasLabel() {
		fmt.Fprintf(p.w, "%s: ", instr.Label)
	}

	switch op := instr.Operand.(type) {
	case ir.Assign:
		fmt.Fprintf(p.w, "%s = %s", op.Result.Name, p.valStr(op.Value))
	case ir.Binary:
		fmt.Fprintf(p.w, "%s = %s %s, %s", op.Result.Name, instr.Op, p.valStr(op.Left), p.valStr(op.Right))
	case ir.Unary:
		fmt.Fprintf(p.w, "%s = %s %s", op.Result.Name, instr.Op, p.valStr(op.Operand))
	case ir.Branch:
		if op.Cond != nil {
			fmt.Fprintf(p.w, "br %s, %s", p.valStr(op.Cond), op.Label)
		} else {
			fmt.Fprintf(p.w, "br %s", op.Label)
		}
	case ir.Call:
		args := make([]string, len(op.Args))
		for i, a := range op.Args {
			args[i] = p.valStr(a)
		}
		call := fmt.Sprintf("call %s(%s)", p.valStr(op.Fn), strings.Join(args, ", "))
		if op.Result != nil {
			fmt.Fprintf(p.w, "%s = %s", op.Result.Name, call)
		} else {
			fmt.Fprint(p.w, call)
		}
	case ir.Ret:
		if op.Value != nil {
			fmt.Fprintf(p.w, "ret %s", p.valStr(op.Value))
		} else {
			fmt.Fprint(p.w, "ret")
		}
	case ir.Alloca:
		fmt.Fprintf(p.w, "%s = alloca %s", op.Result.Name, p.typeString(op.AllocType))
	case ir.Load:
		fmt.Fprintf(p.w, "%s = load %s", op.Result.Name, p.valStr(op.Ptr))
	case ir.Store:
		fmt.Fprintf(p.w, "store %s, %s", p.valStr(op.Value), p.valStr(op.Ptr))
	case ir.Memcpy:
		fmt.Fprintf(p.w, "memcpy %s, %s, %s", p.valStr(op.Dest), p.valStr(op.Src), p.valStr(op.Length))
	case ir.Memset:
		fmt.Fprintf(p.w, "memset %s, %s, %s", p.valStr(op.Ptr), p.valStr(op.Value), p.valStr(op.Length))
	case ir.GetArrayElementPtr:
		fmt.Fprintf(p.w, "%s = %s %s, %s", op.Result.Name, instr.Op, p.valStr(op.Base), p.valStr(op.Index))
	case ir.GetStructMemberPtr:
		fmt.Fprintf(p.w, "%s = %s %s, %s", op.Result.Name, instr.Op, p.valStr(op.Base), p.constLiteral(op.FieldIndex))
	case ir.Switch:
		parts := make([]string, len(op.Cases))
		for i, c := range op.Cases {
			parts[i] = fmt.Sprintf("%s: %s", p.constLiteral(c.Value), c.Label)
		}
		fmt.Fprintf(p.w, "switch %s, %s, { %s }", p.valStr(op.Value), op.DefaultLabel, strings.Join(parts, ", "))
	case ir.VaStart:
		fmt.Fprintf(p.w, "va_start %s", p.valStr(op.Ptr))
	case ir.VaEnd:
		fmt.Fprintf(p.w, "va_end %s", p.valStr(op.Ptr))
	case ir.VaArg:
		fmt.Fprintf(p.w, "%s = va_arg %s, %s", op.Result.Name, p.valStr(op.Ptr), p.typeString(op.ArgType))
	case ir.VaCopy:
		fmt.Fprintf(p.w, "va_copy %s, %s", p.valStr(op.Dest), p.valStr(op.Src))
	case ir.Nop:
		fmt.Fprint(p.w, "nop")
	default:
		fmt.Fprintf(p.w, "%s ???", instr.Op)
	}
}

func (p *Printer) valStr(v ir.Value) string {
	var sb strings.Builder
	(&Printer{w: &sb}).PrintVal(v)
	return sb.String()
}

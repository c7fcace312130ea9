package irfmt

import (
	"strings"
	"testing"

	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

func TestTypeStringScalarsAndCompounds(t *testing.T) {
	cases := []struct {
		ty   irtypes.Type
		want string
	}{
		{irtypes.I32, "i32"},
		{irtypes.U8, "u8"},
		{irtypes.Bool, "bool"},
		{irtypes.Ptr{Pointee: irtypes.I32}, "*i32"},
		{irtypes.Array{Elem: irtypes.I8, Len: 3}, "[i8;3]"},
		{irtypes.Function{Return: irtypes.I32, Params: []irtypes.Type{irtypes.I32, irtypes.I32}}, "(i32, i32) -> i32"},
		{irtypes.Function{Return: irtypes.Void, Params: []irtypes.Type{irtypes.Ptr{Pointee: irtypes.I8}}, Variadic: true}, "(*i8, ...) -> void"},
	}
	for _, c := range cases {
		if got := TypeString(c.ty); got != c.want {
			t.Errorf("TypeString(%v) = %q, want %q", c.ty, got, c.want)
		}
	}
}

func TestTypeStringStruct(t *testing.T) {
	st := irtypes.NewStructOrUnion("point", false, []irtypes.Field{
		{Index: 0, Name: "x", Type: irtypes.I32},
	})
	if got := TypeString(st); got != "struct.point" {
		t.Errorf("TypeString(struct) = %q, want struct.point", got)
	}
	un := irtypes.NewStructOrUnion("u", true, []irtypes.Field{
		{Index: 0, Name: "x", Type: irtypes.I32},
	})
	if got := TypeString(un); got != "union.u" {
		t.Errorf("TypeString(union) = %q, want union.u", got)
	}
}

func TestConstLiteralScalarsAndAggregates(t *testing.T) {
	if got := ConstString(ir.IntConst(irtypes.I32, 42)); got != "i32 42" {
		t.Errorf("ConstString(int) = %q", got)
	}
	arr := ir.ArrayConst(irtypes.Array{Elem: irtypes.I32, Len: 2}, []ir.Const{
		ir.IntConst(irtypes.I32, 1), ir.IntConst(irtypes.I32, 2),
	})
	if got := ConstString(arr); got != "[i32;2] { 1, 2 }" {
		t.Errorf("ConstString(array) = %q", got)
	}
}

func TestConstLiteralQuotesStringsExactlyOnce(t *testing.T) {
	s := ir.StringConst(irtypes.Ptr{Pointee: irtypes.I8}, "a\nb\t\"c\"\\d")
	got := ConstString(s)
	want := `*i8 "a\nb\t\"c\"\\d"`
	if got != want {
		t.Errorf("ConstString(string) = %q, want %q", got, want)
	}
}

func TestInstrStringBinaryAndLabel(t *testing.T) {
	a := ir.Var{Name: "%a", Ty: irtypes.I32}
	r := ir.Var{Name: "%r", Ty: irtypes.I32}
	instr := ir.Instruction{
		Label: "entry",
		Op:    ir.OpAdd,
		Operand: ir.Binary{
			Left: a, Right: ir.IntConst(irtypes.I32, 1), Result: r,
		},
	}
	got := InstrString(instr)
	want := "entry: %r = add %a, 1"
	if got != want {
		t.Errorf("InstrString = %q, want %q", got, want)
	}
}

func TestInstrStringCallWithAndWithoutResult(t *testing.T) {
	fn := ir.Var{Name: "printf"}
	arg := ir.IntConst(irtypes.I32, 1)
	r := ir.Var{Name: "%r", Ty: irtypes.I32}

	withResult := ir.Instruction{Op: ir.OpCall, Operand: ir.Call{Fn: fn, Args: []ir.Value{arg}, Result: &r}}
	if got, want := InstrString(withResult), "%r = call printf(1)"; got != want {
		t.Errorf("InstrString(call w/ result) = %q, want %q", got, want)
	}

	bare := ir.Instruction{Op: ir.OpCall, Operand: ir.Call{Fn: fn, Args: []ir.Value{arg}}}
	if got, want := InstrString(bare), "call printf(1)"; got != want {
		t.Errorf("InstrString(call w/o result) = %q, want %q", got, want)
	}
}

func TestInstrStringBranchWithAndWithoutCond(t *testing.T) {
	cond := ir.Var{Name: "%c", Ty: irtypes.Bool}
	condBr := ir.Instruction{Op: ir.OpBrCond, Operand: ir.Branch{Label: "l", Cond: cond}}
	if got, want := InstrString(condBr), "br %c, l"; got != want {
		t.Errorf("InstrString(br_cond) = %q, want %q", got, want)
	}
	uncondBr := ir.Instruction{Op: ir.OpBr, Operand: ir.Branch{Label: "l"}}
	if got, want := InstrString(uncondBr), "br l"; got != want {
		t.Errorf("InstrString(br) = %q, want %q", got, want)
	}
}

func TestInstrStringSwitch(t *testing.T) {
	instr := ir.Instruction{
		Op: ir.OpSwitch,
		Operand: ir.Switch{
			Value: ir.IntConst(irtypes.I32, 0),
			Cases: []ir.SwitchCase{
				{Value: ir.IntConst(irtypes.I32, 1), Label: "c1"},
				{Value: ir.IntConst(irtypes.I32, 2), Label: "c2"},
			},
			DefaultLabel: "d",
		},
	}
	got := InstrString(instr)
	want := "switch 0, d, { 1: c1, 2: c2 }"
	if got != want {
		t.Errorf("InstrString(switch) = %q, want %q", got, want)
	}
}

func TestFormatModuleSeparatesGlobalsAndFunctions(t *testing.T) {
	m := ir.NewModule("m")
	m.AppendGlobal(ir.Global{Name: "@g", Ty: irtypes.Ptr{Pointee: irtypes.I32}, Initialized: true, Init: ir.IntConst(irtypes.I32, 1)})
	m.AppendFunc(ir.Function{
		Name: "f",
		Sig:  irtypes.Function{Return: irtypes.Void},
		Body: []ir.Instruction{{Op: ir.OpRet, Operand: ir.Ret{}}},
	})
	out := ModuleString(m)
	if !strings.Contains(out, "global *i32 @g = 1") {
		t.Errorf("missing global declaration in: %q", out)
	}
	if !strings.Contains(out, "function f () -> void {") {
		t.Errorf("missing function declaration in: %q", out)
	}
	if !strings.Contains(out, "ret") {
		t.Errorf("missing function body in: %q", out)
	}
}

package irfile

import (
	"testing"

	"github.com/gocc-ir/ssair/pkg/archdesc"
	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

const sampleModule = `
module: sample
structs:
  - id: point
    fields:
      - name: x
        type: {kind: i32}
      - name: y
        type: {kind: i32}
globals:
  - name: "@zero"
    type: {kind: i32}
    init: {type: {kind: i32}, int: 0}
functions:
  - name: add_one
    return: {kind: i32}
    params:
      - name: "%a"
        type: {kind: i32}
    body:
      - op: add
        result: {name: "%r", type: {kind: i32}}
        left: {var: "%a"}
        right: {const: {type: {kind: i32}, int: 1}}
      - op: ret
        value: {var: "%r"}
`

func TestLoadBuildsModule(t *testing.T) {
	m, err := Load([]byte(sampleModule))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "sample" {
		t.Errorf("module name = %q, want sample", m.Name)
	}
	if len(m.Globals) != 1 || m.Globals[0].Name != "@zero" {
		t.Fatalf("globals = %v", m.Globals)
	}
	if !m.Globals[0].Initialized || m.Globals[0].Init.Int != 0 {
		t.Errorf("global init = %+v", m.Globals[0].Init)
	}

	fn := m.FuncByName("add_one")
	if fn == nil {
		t.Fatal("function add_one not found")
	}
	if len(fn.Body) != 2 {
		t.Fatalf("got %d instructions, want 2", len(fn.Body))
	}
	add := fn.Body[0].Operand.(ir.Binary)
	if add.Result.Name != "%r" {
		t.Errorf("add result = %q, want %%r", add.Result.Name)
	}
	left, ok := ir.AsVar(add.Left)
	if !ok || left.Name != "%a" {
		t.Errorf("add left = %v, want %%a", add.Left)
	}
	right, ok := add.Right.(ir.Const)
	if !ok || right.Int != 1 {
		t.Errorf("add right = %v, want const 1", add.Right)
	}

	ret := fn.Body[1].Operand.(ir.Ret)
	retVar, ok := ir.AsVar(ret.Value)
	if !ok || retVar.Name != "%r" {
		t.Errorf("ret value = %v, want %%r", ret.Value)
	}
}

func TestBuildResolvesStructFields(t *testing.T) {
	m, err := Load([]byte(sampleModule))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, ok := m.Structs.Lookup("point")
	if !ok {
		t.Fatal("struct point not registered")
	}
	if len(st.Fields) != 2 || st.Fields[0].Name != "x" || st.Fields[1].Name != "y" {
		t.Errorf("struct fields = %+v", st.Fields)
	}
}

func TestBuildSelfReferentialStruct(t *testing.T) {
	doc := `
module: m
structs:
  - id: node
    fields:
      - name: next
        type: {kind: ptr, pointee: {kind: struct, struct_id: node}}
`
	m, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st, ok := m.Structs.Lookup("node")
	if !ok {
		t.Fatal("struct node not registered")
	}
	ptr, ok := st.Fields[0].Type.(irtypes.Ptr)
	if !ok {
		t.Fatalf("field type = %T, want irtypes.Ptr", st.Fields[0].Type)
	}
	pointee, ok := ptr.Pointee.(*irtypes.StructOrUnion)
	if !ok || pointee.ID != "node" {
		t.Errorf("pointee = %v, want struct node", ptr.Pointee)
	}
}

func TestBuildUnknownOpcodeErrors(t *testing.T) {
	doc := `
module: m
functions:
  - name: f
    return: {kind: void}
    body:
      - op: frobnicate
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for an unknown opcode")
	}
}

func TestLoadDefaultsArchToX86_64(t *testing.T) {
	m, err := Load([]byte(sampleModule))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Arch != archdesc.X86_64 {
		t.Errorf("Arch = %v, want archdesc.X86_64 default", m.Arch)
	}
}

func TestLoadResolvesArchField(t *testing.T) {
	doc := `
module: m
arch: arm32
`
	m, err := Load([]byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Arch != archdesc.ARM32 {
		t.Errorf("Arch = %v, want archdesc.ARM32", m.Arch)
	}
}

func TestLoadUnknownArchErrors(t *testing.T) {
	doc := `
module: m
arch: made-up-arch
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for an unresolvable arch")
	}
}

func TestBuildUnknownStructIDErrors(t *testing.T) {
	doc := `
module: m
globals:
  - name: "@g"
    type: {kind: struct, struct_id: nonexistent}
`
	if _, err := Load([]byte(doc)); err == nil {
		t.Error("expected an error for an unknown struct id")
	}
}

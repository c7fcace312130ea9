package globaltopo

import (
	"testing"

	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

func names(globals []ir.Global) []string {
	out := make([]string, len(globals))
	for i, g := range globals {
		out[i] = g.Name
	}
	return out
}

func globalPtr(to string) ir.Const {
	return ir.GlobalPointerConst(irtypes.Ptr{Pointee: irtypes.Void}, to)
}

// TestSortLinearChain checks that a linear dependency chain of globals
// [a->b, b->c, c=0] sort to [c, b, a].
func TestSortLinearChain(t *testing.T) {
	m := &ir.Module{
		Globals: []ir.Global{
			{Name: "@a", Initialized: true, Init: globalPtr("@b")},
			{Name: "@b", Initialized: true, Init: globalPtr("@c")},
			{Name: "@c", Initialized: true, Init: ir.IntConst(irtypes.I32, 0)},
		},
	}
	Sort(m)
	want := []string{"@c", "@b", "@a"}
	if got := names(m.Globals); !equalSlices(got, want) {
		t.Errorf("Sort order = %v, want %v", got, want)
	}
}

// TestSortCycle checks that a cyclic pair of globals [a->b, b->a]
// preserve input order and do not crash.
func TestSortCycle(t *testing.T) {
	m := &ir.Module{
		Globals: []ir.Global{
			{Name: "@a", Initialized: true, Init: globalPtr("@b")},
			{Name: "@b", Initialized: true, Init: globalPtr("@a")},
		},
	}
	Sort(m)
	want := []string{"@a", "@b"}
	if got := names(m.Globals); !equalSlices(got, want) {
		t.Errorf("Sort order under a cycle = %v, want stable %v", got, want)
	}
}

func TestSortIndependentGlobalsPreserveRelativeOrder(t *testing.T) {
	m := &ir.Module{
		Globals: []ir.Global{
			{Name: "@x", Initialized: true, Init: ir.IntConst(irtypes.I32, 1)},
			{Name: "@y", Initialized: true, Init: ir.IntConst(irtypes.I32, 2)},
		},
	}
	Sort(m)
	want := []string{"@x", "@y"}
	if got := names(m.Globals); !equalSlices(got, want) {
		t.Errorf("Sort order = %v, want %v", got, want)
	}
}

func TestSortNestedArrayAndStructReferences(t *testing.T) {
	structTy := irtypes.NewStructOrUnion("S", false, []irtypes.Field{
		{Index: 0, Name: "p", Type: irtypes.Ptr{Pointee: irtypes.Void}},
	})
	arrTy := irtypes.Array{Elem: structTy, Len: 2}
	inner := ir.StructConst(structTy, false, 0, []ir.Const{globalPtr("@dep")})
	arr := ir.ArrayConst(arrTy, []ir.Const{inner})
	m := &ir.Module{
		Globals: []ir.Global{
			{Name: "@holder", Initialized: true, Init: arr},
			{Name: "@dep", Initialized: true, Init: ir.IntConst(irtypes.I32, 0)},
		},
	}
	Sort(m)
	want := []string{"@dep", "@holder"}
	if got := names(m.Globals); !equalSlices(got, want) {
		t.Errorf("Sort order = %v, want %v", got, want)
	}
}

func TestSortUninitializedGlobalHasNoDependencies(t *testing.T) {
	m := &ir.Module{
		Globals: []ir.Global{
			{Name: "@a", Initialized: false},
		},
	}
	Sort(m) // must not panic
	if got := names(m.Globals); !equalSlices(got, []string{"@a"}) {
		t.Errorf("Sort order = %v", got)
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

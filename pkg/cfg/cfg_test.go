package cfg

import (
	"testing"

	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

// TestBuildScenario splits a flat instruction stream into blocks:
// [l1: nop, br l2, l2: ret] split into two blocks, block0 holding the
// first two instructions and block1 holding ret, with block0's
// successors = {block1} and no fall-through (br does not fall through).
func TestBuildScenario(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Sig:  irtypes.Function{Return: irtypes.Void},
		Body: []ir.Instruction{
			{Label: "l1", Op: ir.OpNop, Operand: ir.Nop{}},
			{Op: ir.OpBr, Operand: ir.Branch{Label: "l2"}},
			{Label: "l2", Op: ir.OpRet, Operand: ir.Ret{}},
		},
	}
	g := Build(fn)

	if len(g.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(g.Blocks))
	}
	block0 := g.Block(g.Entry)
	if len(block0.Instrs) != 2 {
		t.Errorf("block0 has %d instructions, want 2", len(block0.Instrs))
	}
	if block0.HasFallThrough() {
		t.Error("block0 should have no fall-through (br does not fall through)")
	}
	if len(block0.Succs) != 1 {
		t.Fatalf("block0 has %d successors, want 1", len(block0.Succs))
	}
	block1 := g.Block(block0.Succs[0])
	if len(block1.Instrs) != 1 {
		t.Errorf("block1 has %d instructions, want 1", len(block1.Instrs))
	}
	if l1Block, ok := g.byLabel["l1"]; !ok || l1Block != g.Entry {
		t.Errorf("label l1 should map to the entry block")
	}
	if l2Block, ok := g.byLabel["l2"]; !ok || l2Block != block1.ID {
		t.Errorf("label l2 should map to block1")
	}
}

// TestBuildBrCondFallsThrough checks that, unlike br, br_cond always
// splits its block but also keeps a fall-through edge on its not-taken
// path.
func TestBuildBrCondFallsThrough(t *testing.T) {
	cond := ir.Var{Name: "%c", Ty: irtypes.Bool}
	fn := &ir.Function{
		Name: "f",
		Sig:  irtypes.Function{Return: irtypes.Void},
		Params: []ir.Var{cond},
		Body: []ir.Instruction{
			{Op: ir.OpBrCond, Operand: ir.Branch{Label: "taken", Cond: cond}},
			{Label: "not_taken", Op: ir.OpRet, Operand: ir.Ret{}},
			{Label: "taken", Op: ir.OpRet, Operand: ir.Ret{}},
		},
	}
	g := Build(fn)
	entry := g.Block(g.Entry)
	if !entry.HasFallThrough() {
		t.Error("br_cond block should fall through to the next instruction")
	}
	notTaken := g.Block(entry.FallThrough)
	if notTaken.Label != "not_taken" {
		t.Errorf("fall-through target label = %q, want not_taken", notTaken.Label)
	}
	if len(entry.Succs) != 2 {
		t.Errorf("br_cond block should have 2 successors (taken + fall-through), got %d", len(entry.Succs))
	}
}

func TestBuildPanicsOnEmptyBody(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Build on an empty function body should panic")
		}
	}()
	Build(&ir.Function{Name: "f"})
}

func TestPruneRemovesUnreachableBlocks(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Sig:  irtypes.Function{Return: irtypes.Void},
		Body: []ir.Instruction{
			{Op: ir.OpBr, Operand: ir.Branch{Label: "reachable"}},
			{Label: "unreachable", Op: ir.OpRet, Operand: ir.Ret{}},
			{Label: "reachable", Op: ir.OpRet, Operand: ir.Ret{}},
		},
	}
	g := Build(fn)
	before := len(g.Blocks)
	Prune(g)
	if len(g.Blocks) >= before {
		t.Errorf("Prune should have removed the unreachable block, got %d blocks (started with %d)", len(g.Blocks), before)
	}
	for _, b := range g.Blocks {
		if !b.IsEntry && len(b.Preds) == 0 {
			t.Errorf("block %d survived Prune with no predecessors", b.ID)
		}
	}
}

func TestPruneIsIdempotent(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Sig:  irtypes.Function{Return: irtypes.Void},
		Body: []ir.Instruction{
			{Op: ir.OpBr, Operand: ir.Branch{Label: "reachable"}},
			{Label: "unreachable", Op: ir.OpRet, Operand: ir.Ret{}},
			{Label: "reachable", Op: ir.OpRet, Operand: ir.Ret{}},
		},
	}
	g := Build(fn)
	Prune(g)
	firstCount := len(g.Blocks)
	Prune(g)
	if len(g.Blocks) != firstCount {
		t.Errorf("Prune is not idempotent: %d blocks after first prune, %d after second", firstCount, len(g.Blocks))
	}
}

func TestLinearizeDefersFallThrough(t *testing.T) {
	cond := ir.Var{Name: "%c", Ty: irtypes.Bool}
	fn := &ir.Function{
		Name:   "f",
		Sig:    irtypes.Function{Return: irtypes.Void},
		Params: []ir.Var{cond},
		Body: []ir.Instruction{
			{Op: ir.OpBrCond, Operand: ir.Branch{Label: "taken", Cond: cond}},
			{Label: "not_taken", Op: ir.OpRet, Operand: ir.Ret{}},
			{Label: "taken", Op: ir.OpRet, Operand: ir.Ret{}},
		},
	}
	g := Build(fn)
	flat := Linearize(g)
	if len(flat) != 3 {
		t.Fatalf("Linearize produced %d instructions, want 3", len(flat))
	}
	// The fall-through block (not_taken) is visited last among entry's
	// successors, so it must appear after the taken branch's block.
	if flat[1].Label != "taken" {
		t.Errorf("expected the taken branch before the deferred fall-through, got label %q second", flat[1].Label)
	}
}

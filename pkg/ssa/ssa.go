// Package ssa converts a cfg.Graph into SSA form via Braun, Buchwald,
// et al.'s "Simple and Efficient Construction of Static Single
// Assignment Form": read/write-variable, incomplete phi-nodes for
// unsealed blocks, and block sealing.
package ssa

import (
	"strconv"

	"github.com/gocc-ir/ssair/pkg/cfg"
	"github.com/gocc-ir/ssair/pkg/ir"
	"github.com/gocc-ir/ssair/pkg/irtypes"
)

// PhiOperand is one `(value, predecessor)` pair of a phi-node.
type PhiOperand struct {
	Value ir.Var
	Pred  cfg.BlockID
}

// Phi is a pseudo-instruction at a block's head whose value depends on
// which predecessor control arrived from.
type Phi struct {
	Result   ir.Var
	Operands []PhiOperand
}

// Block is one block of the SSA-form CFG: its phi-nodes, in the order
// they were created, followed by its rewritten instruction list.
type Block struct {
	ID          cfg.BlockID
	Label       string
	IsEntry     bool
	Phis        []*Phi
	Instrs      []ir.Instruction
	FallThrough cfg.BlockID
	Preds       []cfg.BlockID
	Succs       []cfg.BlockID
	sealed      bool
	filled      bool
}

// Graph is a function's SSA-form control-flow graph.
type Graph struct {
	Blocks []*Block
	Entry  cfg.BlockID
}

// Block returns the block with the given ID.
func (g *Graph) Block(id cfg.BlockID) *Block {
	for _, b := range g.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// nameAllocator mints fresh SSA names with a monotonic counter.
type nameAllocator struct{ next int }

func (a *nameAllocator) fresh(ty irtypes.Type) ir.Var {
	a.next++
	return ir.Var{Name: "%" + strconv.Itoa(a.next), Ty: ty}
}

// builder holds all of the Braun-algorithm bookkeeping state for one
// function's construction.
type builder struct {
	src    *cfg.Graph
	names  nameAllocator
	out    *Graph
	outIdx map[cfg.BlockID]*Block

	// currentDef[varName][blockID] = the SSA name currently defining
	// varName at the end of blockID.
	currentDef map[string]map[cfg.BlockID]string

	// vars maps an SSA name back to the Var that carries it (type and
	// name together), so read_variable can hand back a typed Var.
	vars map[string]ir.Var

	// incompletePhis maps a phi result's SSA name back to the original
	// pre-SSA variable name it stands in for, for blocks that were
	// unsealed when the phi was created.
	incompletePhis map[string]string
}

// Build converts g into SSA form for fn, whose parameters are written
// into the entry block before any instruction is processed.
func Build(g *cfg.Graph, fn *ir.Function) *Graph {
	b := &builder{
		src:            g,
		out:            &Graph{Entry: g.Entry},
		outIdx:         make(map[cfg.BlockID]*Block),
		currentDef:     make(map[string]map[cfg.BlockID]string),
		vars:           make(map[string]ir.Var),
		incompletePhis: make(map[string]string),
	}

	for _, src := range g.Blocks {
		blk := &Block{
			ID:          src.ID,
			Label:       src.Label,
			IsEntry:     src.IsEntry,
			FallThrough: src.FallThrough,
			Preds:       append([]cfg.BlockID(nil), src.Preds...),
			Succs:       append([]cfg.BlockID(nil), src.Succs...),
		}
		b.out.Blocks = append(b.out.Blocks, blk)
		b.outIdx[src.ID] = blk
	}

	order := reversePostOrder(g)
	for _, id := range order {
		b.fillBlock(id, fn)
		b.sealReady(order)
	}
	// Every block appears in order and has been filled by now, so
	// sealReady will normally have sealed them all; seal any block still
	// unsealed so that every incomplete phi is resolved before returning.
	for _, blk := range b.out.Blocks {
		if !blk.sealed {
			b.sealBlock(blk.ID)
		}
	}

	return b.out
}

// reversePostOrder visits g's blocks starting at the entry in
// depth-first order and returns that order reversed, so that a block's
// predecessors (along non-back edges) are visited before it whenever
// possible.
func reversePostOrder(g *cfg.Graph) []cfg.BlockID {
	visited := make(map[cfg.BlockID]bool, len(g.Blocks))
	var post []cfg.BlockID
	var visit func(id cfg.BlockID)
	visit = func(id cfg.BlockID) {
		if visited[id] {
			return
		}
		visited[id] = true
		if b := g.Block(id); b != nil {
			for _, s := range b.Succs {
				visit(s)
			}
		}
		post = append(post, id)
	}
	visit(g.Entry)
	for _, b := range g.Blocks {
		visit(b.ID)
	}
	// reverse
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// fillBlock translates every instruction of the original block src,
// rewriting uses via readVariable and allocating a fresh name for each
// definition via writeVariable. The entry block first writes the
// function's parameters.
func (b *builder) fillBlock(id cfg.BlockID, fn *ir.Function) {
	src := b.src.Block(id)
	out := b.outIdx[id]
	if out.filled {
		return
	}

	if src.IsEntry {
		for _, p := range fn.Params {
			b.writeVariable(p.Name, id, p)
		}
	}

	for _, instr := range src.Instrs {
		rewritten := ir.RewriteUses(instr, func(v ir.Value) ir.Value {
			vr, ok := ir.AsVar(v)
			if !ok {
				return v
			}
			return b.readVariable(vr, id)
		})
		if result, ok := ir.Def(instr); ok {
			fresh := b.names.fresh(result.Ty)
			rewritten = ir.WithResult(rewritten, fresh)
			b.writeVariable(result.Name, id, fresh)
		}
		out.Instrs = append(out.Instrs, rewritten)
	}

	out.filled = true
}

// sealReady seals every block, in the given order, all of whose
// predecessors have already been filled. It is safe to call repeatedly;
// already-sealed blocks are skipped.
func (b *builder) sealReady(order []cfg.BlockID) {
	for _, id := range order {
		out := b.outIdx[id]
		if out.sealed {
			continue
		}
		allFilled := true
		for _, pred := range out.Preds {
			if p := b.outIdx[pred]; p == nil || !p.filled {
				allFilled = false
				break
			}
		}
		if allFilled {
			b.sealBlock(id)
		}
	}
}

// writeVariable records that varName's current definition in block is
// value. Globals (leading '@') are never redefined.
func (b *builder) writeVariable(varName string, block cfg.BlockID, value ir.Var) {
	if len(varName) > 0 && varName[0] == '@' {
		return
	}
	if b.currentDef[varName] == nil {
		b.currentDef[varName] = make(map[cfg.BlockID]string)
	}
	b.currentDef[varName][block] = value.Name
	if _, ok := b.vars[value.Name]; !ok {
		b.vars[value.Name] = value
	}
}

// readVariable resolves vr's current SSA definition as of the end of
// block. Names that are not pre-SSA locals (no leading '%') — globals
// and function designators — pass through unchanged.
func (b *builder) readVariable(vr ir.Var, block cfg.BlockID) ir.Var {
	if len(vr.Name) == 0 || vr.Name[0] != '%' {
		return vr
	}
	if defs, ok := b.currentDef[vr.Name]; ok {
		if name, ok := defs[block]; ok {
			return b.vars[name]
		}
	}
	return b.readVariableRecursive(vr, block)
}

func (b *builder) readVariableRecursive(vr ir.Var, block cfg.BlockID) ir.Var {
	out := b.outIdx[block]

	if !out.sealed {
		fresh := b.names.fresh(vr.Ty)
		phi := &Phi{Result: fresh}
		out.Phis = append(out.Phis, phi)
		b.incompletePhis[fresh.Name] = vr.Name
		b.writeVariable(vr.Name, block, fresh)
		return fresh
	}

	if len(out.Preds) == 1 {
		val := b.readVariable(vr, out.Preds[0])
		b.writeVariable(vr.Name, block, val)
		return val
	}

	fresh := b.names.fresh(vr.Ty)
	// Write the placeholder before recursing into predecessors so a
	// cycle through this block reads back the same fresh name instead
	// of recursing forever.
	b.writeVariable(vr.Name, block, fresh)
	phi := &Phi{Result: fresh}
	b.addPhiOperands(phi, vr, block)
	out.Phis = append(out.Phis, phi)
	return fresh
}

// addPhiOperands fills phi with one operand per predecessor of block,
// each obtained by reading vr as of that predecessor.
func (b *builder) addPhiOperands(phi *Phi, vr ir.Var, block cfg.BlockID) {
	out := b.outIdx[block]
	phi.Operands = phi.Operands[:0]
	for _, pred := range out.Preds {
		val := b.readVariable(vr, pred)
		phi.Operands = append(phi.Operands, PhiOperand{Value: val, Pred: pred})
	}
}

// sealBlock marks block sealed and completes every phi that was placed
// while it was unsealed.
func (b *builder) sealBlock(block cfg.BlockID) {
	out := b.outIdx[block]
	if out.sealed {
		return
	}
	out.sealed = true
	for _, phi := range out.Phis {
		if len(phi.Operands) > 0 {
			continue // already complete
		}
		origName, ok := b.incompletePhis[phi.Result.Name]
		if !ok {
			continue
		}
		b.addPhiOperands(phi, ir.Var{Name: origName, Ty: phi.Result.Ty}, block)
	}
}

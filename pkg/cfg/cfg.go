// Package cfg splits a function's flat instruction stream into a graph
// of basic blocks, links fall-through and branch edges, and can prune
// unreachable blocks and linearize the graph back into a flat sequence
// in a canonical order.
package cfg

import "github.com/gocc-ir/ssair/pkg/ir"

// BlockID identifies a BasicBlock, unique within one Graph. Named
// rather than a bare int, the same way distinct types are used for every
// other node/register identifier in this codebase.
type BlockID int

// BasicBlock is a maximal run of instructions with a single entry and
// single exit.
type BasicBlock struct {
	ID          BlockID
	Label       string // the label of the block's first instruction, if any
	IsEntry     bool
	Instrs      []ir.Instruction
	FallThrough BlockID // noBlock (-1) if none; see BasicBlock.HasFallThrough
	Preds       []BlockID
	Succs       []BlockID
}

const noBlock BlockID = -1

// Graph is a function's control-flow graph.
type Graph struct {
	Blocks  []*BasicBlock
	Entry   BlockID
	byLabel map[string]BlockID
}

// Block returns the block with the given ID.
func (g *Graph) Block(id BlockID) *BasicBlock {
	for _, b := range g.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// HasFallThrough reports whether b ends in a fall-through edge.
func (b *BasicBlock) HasFallThrough() bool { return b.FallThrough != noBlock }

func newBlock(id BlockID, isEntry bool) *BasicBlock {
	return &BasicBlock{ID: id, IsEntry: isEntry, FallThrough: noBlock}
}

// Build splits fn's flat body into a CFG.
//
// It panics if fn.Body is empty: a function with no instructions is not
// well-formed input for CFG construction, and CFG/SSA construction
// assumes validated input.
func Build(fn *ir.Function) *Graph {
	if len(fn.Body) == 0 {
		panic("cfg.Build: function has an empty body")
	}

	g := &Graph{byLabel: make(map[string]BlockID)}
	nextID := BlockID(0)
	allocBlock := func(isEntry bool) *BasicBlock {
		b := newBlock(nextID, isEntry)
		nextID++
		g.Blocks = append(g.Blocks, b)
		return b
	}

	entry := allocBlock(true)
	g.Entry = entry.ID
	current := entry

	for i, instr := range fn.Body {
		current.Instrs = append(current.Instrs, instr)
		if instr.HasLabel() {
			if current.Label == "" && len(current.Instrs) == 1 {
				current.Label = instr.Label
			}
			g.byLabel[instr.Label] = current.ID
		}

		splitAfter := ir.IsTerminator(instr)
		nextHasLabel := i+1 < len(fn.Body) && fn.Body[i+1].HasLabel()

		if splitAfter || nextHasLabel {
			next := allocBlock(false)
			if ir.CanFallThrough(instr) {
				linkFallThrough(current, next)
			}
			current = next
		}
	}

	// Drop a trailing empty, non-entry block left over from a final split.
	if len(current.Instrs) == 0 && !current.IsEntry {
		detachTrailingEmpty(g, current)
	}

	linkBranchEdges(g)

	return g
}

func linkFallThrough(from, to *BasicBlock) {
	from.FallThrough = to.ID
	from.Succs = append(from.Succs, to.ID)
	to.Preds = append(to.Preds, from.ID)
}

func detachTrailingEmpty(g *Graph, empty *BasicBlock) {
	for _, b := range g.Blocks {
		if b.FallThrough == empty.ID {
			b.FallThrough = noBlock
		}
		b.Succs = removeID(b.Succs, empty.ID)
	}
	g.Blocks = removeBlock(g.Blocks, empty.ID)
}

// linkBranchEdges reads the last instruction of each non-empty block
// and wires up Br/BrCond/Switch target edges. Fall-through edges were
// already linked during Build.
func linkBranchEdges(g *Graph) {
	for _, b := range g.Blocks {
		if len(b.Instrs) == 0 {
			continue
		}
		last := b.Instrs[len(b.Instrs)-1]
		for _, label := range ir.BranchTargets(last) {
			target, ok := g.byLabel[label]
			if !ok {
				continue // an unresolved label is a validator-reported error, not our concern
			}
			addSuccessor(g, b, target)
		}
	}
}

func addSuccessor(g *Graph, b *BasicBlock, target BlockID) {
	for _, s := range b.Succs {
		if s == target {
			return
		}
	}
	b.Succs = append(b.Succs, target)
	t := g.Block(target)
	t.Preds = append(t.Preds, b.ID)
}

func removeID(ids []BlockID, target BlockID) []BlockID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func removeBlock(blocks []*BasicBlock, target BlockID) []*BasicBlock {
	out := blocks[:0]
	for _, b := range blocks {
		if b.ID != target {
			out = append(out, b)
		}
	}
	return out
}

// Prune repeatedly removes every non-entry block with zero predecessors
// until a fixed point is reached, detaching each from its successors
// and from the label map.
func Prune(g *Graph) {
	for {
		removed := false
		for _, b := range g.Blocks {
			if b.IsEntry || len(b.Preds) > 0 {
				continue
			}
			pruneBlock(g, b)
			removed = true
			break // block set mutated; restart the scan
		}
		if !removed {
			return
		}
	}
}

func pruneBlock(g *Graph, b *BasicBlock) {
	for _, succID := range b.Succs {
		if s := g.Block(succID); s != nil {
			s.Preds = removeID(s.Preds, b.ID)
		}
	}
	if b.FallThrough != noBlock {
		if f := g.Block(b.FallThrough); f != nil {
			f.Preds = removeID(f.Preds, b.ID)
		}
	}
	if b.Label != "" {
		delete(g.byLabel, b.Label)
	}
	g.Blocks = removeBlock(g.Blocks, b.ID)
}

// Linearize returns a flat instruction sequence equivalent to a
// depth-first walk from the entry block that defers a block's
// fall-through successor to last, and which, before visiting a block,
// first recurses into any unvisited predecessor that has this block as
// its fall-through target.
func Linearize(g *Graph) []ir.Instruction {
	visited := make(map[BlockID]bool, len(g.Blocks))
	var out []ir.Instruction

	var visit func(id BlockID)
	visit = func(id BlockID) {
		if visited[id] {
			return
		}
		b := g.Block(id)
		if b == nil {
			return
		}
		for _, predID := range b.Preds {
			if visited[predID] {
				continue
			}
			if pred := g.Block(predID); pred != nil && pred.FallThrough == id {
				visit(predID)
			}
		}
		if visited[id] {
			return // the predecessor recursion above may have reached us already
		}
		visited[id] = true
		out = append(out, b.Instrs...)
		successors := append([]BlockID(nil), b.Succs...)
		fallThrough := b.FallThrough
		for _, s := range successors {
			if s != fallThrough {
				visit(s)
			}
		}
		if fallThrough != noBlock {
			visit(fallThrough)
		}
	}

	visit(g.Entry)
	// Any block unreachable from the entry via the walk above (possible
	// before Prune has run) is still emitted, in block-ID order, so
	// Linearize never silently drops instructions.
	for _, b := range g.Blocks {
		visit(b.ID)
	}
	return out
}

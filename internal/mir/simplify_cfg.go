package mir

// SimplifyCFG performs control flow graph simplification on a function.
// Transformations:
// 1. Remove trivial goto blocks (0 instructions + goto terminator)
// 2. Collapse goto chains
// 3. Remove unreachable blocks
// 4. Renumber blocks deterministically
func SimplifyCFG(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}

	// Phase 1: Build redirect map for trivial goto blocks
	redirects := buildRedirectMap(f)

	// Phase 2: Apply redirects to all terminators
	if len(redirects) > 0 {
		remapTargets(f, func(id BlockID) BlockID {
			if newID, ok := redirects[id]; ok {
				return newID
			}
			return id
		})
	}

	// Phase 3: Compute reachability and remove dead blocks
	reachable := computeReachability(f)

	// Phase 4: Compact and renumber blocks
	compactBlocks(f, reachable)
}

// buildRedirectMap finds all trivial goto blocks and builds a mapping
// from their IDs to their final targets (following chains).
func buildRedirectMap(f *Func) map[BlockID]BlockID {
	redirects := make(map[BlockID]BlockID)

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		if len(bb.Instrs) != 0 || bb.Term.Kind != TermGoto {
			continue
		}
		target := bb.Term.Goto.Target
		// Follow chain to final target
		visited := map[BlockID]bool{bb.ID: true}
		for !visited[target] {
			visited[target] = true

			if next, ok := redirects[target]; ok {
				target = next
				continue
			}
			if isTrivialGotoBlock(f, target) {
				target = f.Blocks[target].Term.Goto.Target
				continue
			}
			break
		}
		if target == bb.ID {
			// a block that only loops to itself must stay
			continue
		}
		redirects[bb.ID] = target
	}
	return redirects
}

// isTrivialGotoBlock checks if a block is a trivial goto block
// (0 instructions and a goto terminator).
func isTrivialGotoBlock(f *Func, id BlockID) bool {
	bb := f.Block(id)
	return bb != nil && len(bb.Instrs) == 0 && bb.Term.Kind == TermGoto
}

// remapTargets rewrites every block reference in terminators and the
// entry through remap.
func remapTargets(f *Func, remap func(BlockID) BlockID) {
	for i := range f.Blocks {
		term := &f.Blocks[i].Term
		switch term.Kind {
		case TermGoto:
			term.Goto.Target = remap(term.Goto.Target)
		case TermIf:
			term.If.Then = remap(term.If.Then)
			term.If.Else = remap(term.If.Else)
		case TermSwitchTag:
			if len(term.SwitchTag.Cases) > 0 {
				term.SwitchTag.Cases = append([]SwitchTagCase(nil), term.SwitchTag.Cases...)
			}
			for j := range term.SwitchTag.Cases {
				term.SwitchTag.Cases[j].Target = remap(term.SwitchTag.Cases[j].Target)
			}
			term.SwitchTag.Default = remap(term.SwitchTag.Default)
		case TermYield:
			term.Yield.Resume = remap(term.Yield.Resume)
			if term.Yield.Drop != NoBlockID {
				term.Yield.Drop = remap(term.Yield.Drop)
			}
		}
	}
	f.Entry = remap(f.Entry)
}

// computeReachability performs a DFS from the entry block to find
// all reachable blocks.
func computeReachability(f *Func) []bool {
	reachable := make([]bool, len(f.Blocks))

	var visit func(id BlockID)
	visit = func(id BlockID) {
		if id < 0 || int(id) >= len(f.Blocks) || reachable[id] {
			return
		}
		reachable[id] = true
		for _, succ := range f.Blocks[id].Term.Successors() {
			visit(succ)
		}
	}

	visit(f.Entry)
	return reachable
}

// compactBlocks removes unreachable blocks and renumbers the remaining ones.
func compactBlocks(f *Func, reachable []bool) {
	count := 0
	for _, r := range reachable {
		if r {
			count++
		}
	}

	// If all blocks are reachable, just update IDs
	if count == len(f.Blocks) {
		for i := range f.Blocks {
			f.Blocks[i].ID = BlockID(i) //nolint:gosec // G115: bounded by existing block count
		}
		return
	}

	oldToNew := make(map[BlockID]BlockID)
	newBlocks := make([]Block, 0, count)
	for i, keep := range reachable {
		if keep {
			//nolint:gosec // G115: bounded by existing block count
			oldToNew[BlockID(i)] = BlockID(len(newBlocks))
			newBlocks = append(newBlocks, f.Blocks[i])
		}
	}
	for i := range newBlocks {
		newBlocks[i].ID = BlockID(i) //nolint:gosec // G115: bounded by newBlocks length
	}

	f.Blocks = newBlocks
	remapTargets(f, func(id BlockID) BlockID {
		if newID, ok := oldToNew[id]; ok {
			return newID
		}
		return id // Should not happen if reachability is correct
	})
}

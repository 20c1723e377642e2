package mir

import (
	"errors"
	"fmt"

	"boxelab/internal/types"
)

// ValidateOptions selects optional checks.
type ValidateOptions struct {
	// BoxesElaborated requires that no place dereferences a box any more,
	// except in the positions of a yield that box elaboration leaves to
	// suspend lowering.
	BoxesElaborated bool
}

// Validate checks MIR module invariants.
// Returns error if any invariant is violated.
func Validate(m *Module, typesIn *types.Interner, opts ValidateOptions) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, f := range m.SortedFuncs() {
		if err := ValidateFunc(f, typesIn, opts); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks a single function.
func ValidateFunc(f *Func, typesIn *types.Interner, opts ValidateOptions) error {
	if f == nil {
		return nil
	}

	var errs []error

	// 1. Check all blocks terminated and numbered by position
	if err := validateBlocks(f); err != nil {
		errs = append(errs, err)
	}

	// 2. Check block targets exist
	if err := validateBlockTargets(f); err != nil {
		errs = append(errs, err)
	}

	// 3. Check local IDs exist in instructions, terminators and debug info
	if err := validateLocalIDs(f); err != nil {
		errs = append(errs, err)
	}

	// 4. Check every local has a type
	if err := validateTypes(f); err != nil {
		errs = append(errs, err)
	}

	// 5. Check storage markers pair up within a block
	if err := validateStorage(f); err != nil {
		errs = append(errs, err)
	}

	if opts.BoxesElaborated {
		if err := validateNoBoxDerefs(f, typesIn); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// validateBlocks checks that every block ends with a terminator and that
// block IDs match their position.
func validateBlocks(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		if int(f.Blocks[i].ID) != i {
			errs = append(errs, fmt.Errorf("block at index %d has id bb%d", i, f.Blocks[i].ID))
		}
		if !f.Blocks[i].Terminated() {
			errs = append(errs, fmt.Errorf("bb%d: unterminated block", i))
		}
	}
	if len(f.Blocks) > 0 && f.Block(f.Entry) == nil {
		errs = append(errs, fmt.Errorf("entry bb%d does not exist", f.Entry))
	}
	return errors.Join(errs...)
}

// validateBlockTargets checks that all block target IDs exist.
func validateBlockTargets(f *Func) error {
	var errs []error

	blockExists := func(id BlockID) bool {
		return id >= 0 && int(id) < len(f.Blocks)
	}

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		switch bb.Term.Kind {
		case TermGoto:
			if !blockExists(bb.Term.Goto.Target) {
				errs = append(errs, fmt.Errorf("bb%d: goto target bb%d does not exist", i, bb.Term.Goto.Target))
			}
		case TermIf:
			if !blockExists(bb.Term.If.Then) {
				errs = append(errs, fmt.Errorf("bb%d: if then target bb%d does not exist", i, bb.Term.If.Then))
			}
			if !blockExists(bb.Term.If.Else) {
				errs = append(errs, fmt.Errorf("bb%d: if else target bb%d does not exist", i, bb.Term.If.Else))
			}
		case TermSwitchTag:
			seenTags := make(map[string]bool)
			for j, c := range bb.Term.SwitchTag.Cases {
				if seenTags[c.TagName] {
					errs = append(errs, fmt.Errorf("bb%d: switch_tag has duplicate case for tag %s", i, c.TagName))
				}
				seenTags[c.TagName] = true

				if !blockExists(c.Target) {
					errs = append(errs, fmt.Errorf("bb%d: switch_tag case %d (%s) target bb%d does not exist",
						i, j, c.TagName, c.Target))
				}
			}
			if !blockExists(bb.Term.SwitchTag.Default) {
				errs = append(errs, fmt.Errorf("bb%d: switch_tag default target bb%d does not exist",
					i, bb.Term.SwitchTag.Default))
			}
		case TermYield:
			if !blockExists(bb.Term.Yield.Resume) {
				errs = append(errs, fmt.Errorf("bb%d: yield resume target bb%d does not exist", i, bb.Term.Yield.Resume))
			}
			if bb.Term.Yield.Drop != NoBlockID && !blockExists(bb.Term.Yield.Drop) {
				errs = append(errs, fmt.Errorf("bb%d: yield drop target bb%d does not exist", i, bb.Term.Yield.Drop))
			}
		}
	}
	return errors.Join(errs...)
}

// validateLocalIDs checks that all LocalID references are valid.
func validateLocalIDs(f *Func) error {
	var errs []error

	localExists := func(id LocalID) bool {
		return id >= 0 && int(id) < len(f.Locals)
	}
	checkPlace := func(p Place, context string) {
		if !localExists(p.Local) {
			errs = append(errs, fmt.Errorf("%s: local _%d does not exist", context, p.Local))
		}
		for _, proj := range p.Proj {
			if proj.Kind == PlaceProjIndex && !localExists(proj.IndexLocal) {
				errs = append(errs, fmt.Errorf("%s: index local _%d does not exist", context, proj.IndexLocal))
			}
		}
	}

	WalkFunc(VisitorFunc(func(p *Place, _ PlaceContext, loc Location) {
		checkPlace(*p, fmt.Sprintf("bb%d[%d]", loc.Block, loc.Index))
	}), f)

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			var id LocalID
			switch ins.Kind {
			case InstrStorageLive:
				id = ins.StorageLive.Local
			case InstrStorageDead:
				id = ins.StorageDead.Local
			default:
				continue
			}
			if !localExists(id) {
				errs = append(errs, fmt.Errorf("bb%d[%d]: storage marker names unknown local _%d", i, j, id))
			}
		}
	}

	for i := range f.DebugInfo {
		di := &f.DebugInfo[i]
		if di.Kind == DebugInfoPlace {
			checkPlace(di.Place, fmt.Sprintf("debug info %q", di.Name))
		}
	}
	return errors.Join(errs...)
}

// validateTypes checks that no local is untyped.
func validateTypes(f *Func) error {
	var errs []error
	for i := range f.Locals {
		if f.Locals[i].Type == types.NoTypeID {
			errs = append(errs, fmt.Errorf("local _%d (%s) has no type", i, f.Locals[i].Name))
		}
	}
	return errors.Join(errs...)
}

// validateStorage checks that, within one block, a local is not made live
// twice without being killed in between and not killed twice without being
// revived. Markers that cross block boundaries are not tracked.
func validateStorage(f *Func) error {
	var errs []error
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		live := make(map[LocalID]bool)
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			switch ins.Kind {
			case InstrStorageLive:
				id := ins.StorageLive.Local
				if state, seen := live[id]; seen && state {
					errs = append(errs, fmt.Errorf("bb%d[%d]: storage_live _%d while already live", i, j, id))
				}
				live[id] = true
			case InstrStorageDead:
				id := ins.StorageDead.Local
				if state, seen := live[id]; seen && !state {
					errs = append(errs, fmt.Errorf("bb%d[%d]: storage_dead _%d while already dead", i, j, id))
				}
				live[id] = false
			}
		}
	}
	return errors.Join(errs...)
}

// validateNoBoxDerefs checks that box elaboration left no deref through a
// box in instructions, non-yield terminators, yield values or debug info.
func validateNoBoxDerefs(f *Func, typesIn *types.Interner) error {
	if typesIn == nil {
		return nil
	}
	var errs []error
	check := func(p Place, context string) {
		ty := types.NoTypeID
		if p.Local >= 0 && int(p.Local) < len(f.Locals) {
			ty = f.Locals[p.Local].Type
		}
		for k, proj := range p.Proj {
			if proj.Kind == PlaceProjDeref && typesIn.IsBox(ty) {
				errs = append(errs, fmt.Errorf("%s: %s dereferences a box at projection %d", context, FormatPlace(p), k))
				return
			}
			ty = ProjectionType(typesIn, ty, proj)
		}
	}
	visit := VisitorFunc(func(p *Place, _ PlaceContext, loc Location) {
		check(*p, fmt.Sprintf("bb%d[%d]", loc.Block, loc.Index))
	})

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			WalkInstr(visit, &bb.Instrs[j], Location{Block: bb.ID, Index: j})
		}
		if bb.Term.Kind == TermYield {
			WalkOperand(visit, &bb.Term.Yield.Value, bb.TermLocation())
			continue
		}
		WalkTerminator(visit, &bb.Term, bb.TermLocation())
	}
	for i := range f.DebugInfo {
		di := &f.DebugInfo[i]
		if di.Kind == DebugInfoPlace {
			check(di.Place, fmt.Sprintf("debug info %q", di.Name))
		}
	}
	return errors.Join(errs...)
}

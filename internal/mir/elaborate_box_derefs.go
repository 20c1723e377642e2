package mir

import (
	"fmt"

	"go.uber.org/zap"

	"boxelab/internal/types"
)

// ElaborateBoxDerefs rewrites every dereference of a box into a read of
// the box's pointer field followed by a dereference of that pointer:
//
//	_2 = copy (*_1)        // _1: box<int32>
//
// becomes
//
//	storage_live _3
//	_3 = copy _1.#0        // _3: *int32
//	_2 = copy (*_3)
//	storage_dead _3
//
// A box is not a pointer, so dereferencing it directly is only meaningful
// before this pass runs. The yield terminator is an exception: only its
// value operand is rewritten; the rest is left to suspend lowering, which
// has to keep box semantics across the suspension point.
//
// Debug-info places are repaired afterwards; unlike instruction places they
// may contain several box derefs in one chain.
//
// The pass does nothing when the program has no box lang item.
func ElaborateBoxDerefs(ctx *Context, f *Func) {
	ElaborateBoxDerefsWithStats(ctx, f)
}

// BoxDerefStats summarizes one run of the pass over a function.
type BoxDerefStats struct {
	Places    int
	Temps     int
	DebugInfo int
}

// ElaborateBoxDerefsWithStats is ElaborateBoxDerefs reporting what changed.
func ElaborateBoxDerefsWithStats(ctx *Context, f *Func) BoxDerefStats {
	var stats BoxDerefStats
	if ctx == nil || f == nil || !ctx.Lang.OwnedBox {
		return stats
	}

	e := &boxDerefElaborator{
		types: ctx.Types,
		projs: ctx.Projs,
		patch: NewPatch(f),
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			WalkInstr(e, &bb.Instrs[j], Location{Block: bb.ID, Index: j})
		}

		loc := bb.TermLocation()
		if bb.Term.Kind == TermYield {
			// yielding out of a box is handled when lowering suspension points
			WalkOperand(e, &bb.Term.Yield.Value, loc)
			continue
		}
		WalkTerminator(e, &bb.Term, loc)
	}
	stats.Places = e.rewritten
	stats.Temps = e.patch.NewLocals()
	e.patch.Apply(f)

	stats.DebugInfo = elaborateDebugInfoBoxDerefs(ctx, f)

	if stats.Places > 0 || stats.DebugInfo > 0 {
		Logger().Debug("elaborated box derefs",
			zap.String("func", f.Name),
			zap.Int("places", stats.Places),
			zap.Int("temps", stats.Temps),
			zap.Int("debug_info", stats.DebugInfo))
	}
	return stats
}

type boxDerefElaborator struct {
	types     *types.Interner
	projs     *ProjInterner
	patch     *Patch
	rewritten int
}

func (e *boxDerefElaborator) VisitPlace(p *Place, ctx PlaceContext, loc Location) {
	base, ok := e.patch.Local(p.Local)
	if !ok {
		panic(fmt.Sprintf("mir: place at bb%d[%d] names unknown local L%d", loc.Block, loc.Index, p.Local))
	}

	if p.HasLeadingDeref() && e.types.IsBox(base.Type) {
		ptrTy := boxPointerType(e.types, base.Type)
		tmp := e.patch.NewTemp(ptrTy, base.Span)

		e.patch.AddInstr(loc, StorageLive(tmp))
		e.patch.AddAssign(loc, LocalPlace(tmp), UseOf(Operand{
			Kind: OperandCopy,
			Type: ptrTy,
			Place: Place{
				Local: p.Local,
				Proj:  e.projs.Intern([]PlaceProj{Field(0, ptrTy)}),
			},
		}))
		p.Local = tmp
		e.patch.AddInstr(loc.Successor(), StorageDead(tmp))
		e.rewritten++

		// the base is a raw pointer now, so this recursion stops after one level
		e.VisitPlace(p, ctx, loc)
		return
	}

	e.checkNoInnerBoxDeref(base.Type, p, loc)
}

// checkNoInnerBoxDeref asserts that no deref past the first projection
// goes through a box; earlier passes split those into separate places.
func (e *boxDerefElaborator) checkNoInnerBoxDeref(ty types.TypeID, p *Place, loc Location) {
	for i, proj := range p.Proj {
		if i > 0 && proj.Kind == PlaceProjDeref && e.types.IsBox(ty) {
			panic(fmt.Sprintf("mir: box deref at projection %d of L%d in bb%d[%d]; derefs must lead the chain",
				i, p.Local, loc.Block, loc.Index))
		}
		ty = ProjectionType(e.types, ty, proj)
		if ty == types.NoTypeID {
			return
		}
	}
}

// boxPointerType returns the type of a box's only field, asserting the
// single-pointer layout the rewrite depends on.
func boxPointerType(typesIn *types.Interner, boxTy types.TypeID) types.TypeID {
	fields := typesIn.BoxFields(boxTy)
	if len(fields) != 1 {
		panic(fmt.Sprintf("mir: box type#%d has %d fields, want 1", boxTy, len(fields)))
	}
	tt, ok := typesIn.Lookup(fields[0])
	if !ok || tt.Kind != types.KindPointer {
		panic(fmt.Sprintf("mir: box type#%d field 0 is not a raw pointer", boxTy))
	}
	return fields[0]
}

// elaborateDebugInfoBoxDerefs rewrites box derefs inside debug-info places
// and returns how many entries changed. Every deref whose base is a box is
// replaced by field #0 followed by a deref, wherever it sits in the chain.
func elaborateDebugInfoBoxDerefs(ctx *Context, f *Func) int {
	changed := 0
	for i := range f.DebugInfo {
		di := &f.DebugInfo[i]
		if di.Kind != DebugInfoPlace || len(di.Place.Proj) == 0 {
			continue
		}
		if di.Place.Local < 0 || int(di.Place.Local) >= len(f.Locals) {
			panic(fmt.Sprintf("mir: debug info %q names unknown local L%d", di.Name, di.Place.Local))
		}

		proj := di.Place.Proj
		var rewritten []PlaceProj
		last := 0
		baseTy := f.Locals[di.Place.Local].Type
		for j, elem := range proj {
			if elem.Kind == PlaceProjDeref && ctx.Types.IsBox(baseTy) {
				ptrTy := boxPointerType(ctx.Types, baseTy)
				if rewritten == nil {
					rewritten = make([]PlaceProj, 0, len(proj)+2)
				}
				rewritten = append(rewritten, proj[last:j]...)
				rewritten = append(rewritten, Field(0, ptrTy), Deref())
				last = j + 1
			}
			baseTy = ProjectionType(ctx.Types, baseTy, elem)
		}

		if rewritten != nil {
			rewritten = append(rewritten, proj[last:]...)
			di.Place.Proj = ctx.Projs.Intern(rewritten)
			changed++
		}
	}
	return changed
}

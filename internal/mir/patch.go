package mir

import (
	"cmp"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"boxelab/internal/source"
	"boxelab/internal/types"
)

// Patch collects edits to a function while it is being walked and applies
// them in one go afterwards, so a walk never sees instruction indices move
// underneath it.
type Patch struct {
	baseLocals []Local
	newLocals  []Local
	newInstrs  []pendingInstr
	applied    bool
}

type pendingInstr struct {
	loc   Location
	instr Instr
}

// NewPatch starts an empty patch against f's current local table.
func NewPatch(f *Func) *Patch {
	return &Patch{baseLocals: f.Locals}
}

// NewTemp reserves a temporary of type ty. The id is valid immediately;
// the local itself is added to the function by Apply.
func (p *Patch) NewTemp(ty types.TypeID, span source.Span) LocalID {
	n, err := safecast.Conv[int32](len(p.baseLocals) + len(p.newLocals))
	if err != nil {
		panic(fmt.Errorf("mir: local count overflow: %w", err))
	}
	p.newLocals = append(p.newLocals, Local{
		Type:  ty,
		Flags: LocalFlagTemp,
		Span:  span,
	})
	return LocalID(n)
}

// Local returns the declaration of an existing or pending local.
func (p *Patch) Local(id LocalID) (Local, bool) {
	switch {
	case id < 0:
		return Local{}, false
	case int(id) < len(p.baseLocals):
		return p.baseLocals[id], true
	case int(id) < len(p.baseLocals)+len(p.newLocals):
		return p.newLocals[int(id)-len(p.baseLocals)], true
	default:
		return Local{}, false
	}
}

// AddInstr schedules ins to be inserted before whatever currently sits at
// loc. Edits at the same location keep their recording order.
func (p *Patch) AddInstr(loc Location, ins Instr) {
	p.newInstrs = append(p.newInstrs, pendingInstr{loc: loc, instr: ins})
}

// AddAssign schedules dst = src at loc.
func (p *Patch) AddAssign(loc Location, dst Place, src RValue) {
	p.AddInstr(loc, Assign(dst, src))
}

// IsEmpty reports whether applying the patch would change anything.
func (p *Patch) IsEmpty() bool {
	return len(p.newLocals) == 0 && len(p.newInstrs) == 0
}

// NewLocals reports how many temporaries the patch will add.
func (p *Patch) NewLocals() int {
	return len(p.newLocals)
}

// Apply performs every recorded edit on f.
//
// Edits whose index lies past a block's terminator cannot be placed in that
// block; they are placed at the head of each successor instead, ahead of
// the successor's own edits, and dropped when there is no successor.
func (p *Patch) Apply(f *Func) {
	if p.applied {
		panic("mir: patch applied twice")
	}
	p.applied = true
	if len(f.Locals) != len(p.baseLocals) {
		panic(fmt.Sprintf("mir: patch built for %d locals, function has %d", len(p.baseLocals), len(f.Locals)))
	}
	f.Locals = append(f.Locals, p.newLocals...)
	if len(p.newInstrs) == 0 {
		return
	}

	heads := make(map[BlockID][]Instr)
	byBlock := make(map[BlockID][]pendingInstr)
	for _, pi := range p.newInstrs {
		bb := f.Block(pi.loc.Block)
		if bb == nil || bb.ID != pi.loc.Block {
			panic(fmt.Sprintf("mir: patch targets unknown block bb%d", pi.loc.Block))
		}
		if pi.loc.Index > len(bb.Instrs) {
			for _, succ := range bb.Term.Successors() {
				heads[succ] = append(heads[succ], pi.instr)
			}
			continue
		}
		byBlock[pi.loc.Block] = append(byBlock[pi.loc.Block], pi)
	}

	touched := make([]BlockID, 0, len(byBlock)+len(heads))
	for id := range byBlock {
		touched = append(touched, id)
	}
	for id := range heads {
		if _, ok := byBlock[id]; !ok {
			touched = append(touched, id)
		}
	}
	slices.Sort(touched)

	for _, id := range touched {
		bb := f.Block(id)
		if bb == nil {
			panic(fmt.Sprintf("mir: successor bb%d does not exist", id))
		}
		edits := byBlock[id]
		slices.SortStableFunc(edits, func(a, b pendingInstr) int {
			return cmp.Compare(a.loc.Index, b.loc.Index)
		})
		head := heads[id]

		out := make([]Instr, 0, len(head)+len(bb.Instrs)+len(edits))
		out = append(out, head...)
		k := 0
		for i := 0; i <= len(bb.Instrs); i++ {
			for k < len(edits) && edits[k].loc.Index == i {
				out = append(out, edits[k].instr)
				k++
			}
			if i < len(bb.Instrs) {
				out = append(out, bb.Instrs[i])
			}
		}
		bb.Instrs = out
	}
}

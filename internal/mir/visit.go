package mir

// PlaceContext says how a visited place is used.
type PlaceContext uint8

const (
	PlaceCopy PlaceContext = iota
	PlaceMove
	PlaceBorrow
	PlaceBorrowMut
	PlaceStore
	PlaceDrop
)

// Visitor receives every place reachable from an instruction or a
// terminator. Implementations may rewrite the place through the pointer.
type Visitor interface {
	VisitPlace(p *Place, ctx PlaceContext, loc Location)
}

// WalkInstr visits the places of ins. Destinations come before sources.
func WalkInstr(v Visitor, ins *Instr, loc Location) {
	if ins == nil {
		return
	}
	switch ins.Kind {
	case InstrAssign:
		v.VisitPlace(&ins.Assign.Dst, PlaceStore, loc)
		WalkRValue(v, &ins.Assign.Src, loc)
	case InstrCall:
		if ins.Call.HasDst {
			v.VisitPlace(&ins.Call.Dst, PlaceStore, loc)
		}
		for i := range ins.Call.Args {
			WalkOperand(v, &ins.Call.Args[i], loc)
		}
	case InstrDrop:
		v.VisitPlace(&ins.Drop.Place, PlaceDrop, loc)
	}
	// storage markers name locals, not places
}

// WalkTerminator visits every place of term, including the resume
// destination of a yield.
func WalkTerminator(v Visitor, term *Terminator, loc Location) {
	if term == nil {
		return
	}
	switch term.Kind {
	case TermReturn:
		if term.Return.HasValue {
			WalkOperand(v, &term.Return.Value, loc)
		}
	case TermIf:
		WalkOperand(v, &term.If.Cond, loc)
	case TermSwitchTag:
		WalkOperand(v, &term.SwitchTag.Value, loc)
	case TermYield:
		WalkOperand(v, &term.Yield.Value, loc)
		if term.Yield.ResumeArg.IsValid() {
			v.VisitPlace(&term.Yield.ResumeArg, PlaceStore, loc)
		}
	}
}

// WalkOperand visits the place an operand reads or borrows, if any.
func WalkOperand(v Visitor, op *Operand, loc Location) {
	if op == nil {
		return
	}
	switch op.Kind {
	case OperandCopy:
		v.VisitPlace(&op.Place, PlaceCopy, loc)
	case OperandMove:
		v.VisitPlace(&op.Place, PlaceMove, loc)
	case OperandAddrOf:
		v.VisitPlace(&op.Place, PlaceBorrow, loc)
	case OperandAddrOfMut:
		v.VisitPlace(&op.Place, PlaceBorrowMut, loc)
	}
}

// WalkRValue visits the operands of rv in evaluation order.
func WalkRValue(v Visitor, rv *RValue, loc Location) {
	if rv == nil {
		return
	}
	switch rv.Kind {
	case RValueUse:
		WalkOperand(v, &rv.Use, loc)
	case RValueUnaryOp:
		WalkOperand(v, &rv.Unary.Operand, loc)
	case RValueBinaryOp:
		WalkOperand(v, &rv.Binary.Left, loc)
		WalkOperand(v, &rv.Binary.Right, loc)
	case RValueCast:
		WalkOperand(v, &rv.Cast.Value, loc)
	case RValueStructLit:
		for i := range rv.StructLit.Fields {
			WalkOperand(v, &rv.StructLit.Fields[i].Value, loc)
		}
	case RValueArrayLit:
		for i := range rv.ArrayLit.Elems {
			WalkOperand(v, &rv.ArrayLit.Elems[i], loc)
		}
	case RValueBox:
		WalkOperand(v, &rv.Box.Value, loc)
	}
}

// WalkFunc visits every instruction and terminator of f in block order.
func WalkFunc(v Visitor, f *Func) {
	if f == nil {
		return
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			WalkInstr(v, &bb.Instrs[j], Location{Block: bb.ID, Index: j})
		}
		WalkTerminator(v, &bb.Term, bb.TermLocation())
	}
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(p *Place, ctx PlaceContext, loc Location)

func (fn VisitorFunc) VisitPlace(p *Place, ctx PlaceContext, loc Location) {
	fn(p, ctx, loc)
}

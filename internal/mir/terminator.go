package mir

type TermKind uint8

const (
	TermNone TermKind = iota
	TermReturn
	TermGoto
	TermIf
	TermSwitchTag
	// TermYield suspends the function, handing Value to the resumer.
	TermYield
	TermUnreachable
)

type Terminator struct {
	Kind TermKind

	Return      ReturnTerm
	Goto        GotoTerm
	If          IfTerm
	SwitchTag   SwitchTagTerm
	Yield       YieldTerm
	Unreachable struct{}
}

type ReturnTerm struct {
	HasValue bool
	Value    Operand
}

type GotoTerm struct {
	Target BlockID
}

type IfTerm struct {
	Cond Operand
	Then BlockID
	Else BlockID
}

type SwitchTagCase struct {
	TagName string
	Target  BlockID
}

type SwitchTagTerm struct {
	Value   Operand
	Cases   []SwitchTagCase
	Default BlockID
}

// YieldTerm is the suspension point. Value is produced to the caller; on
// resumption the argument is written to ResumeArg and control continues at
// Resume. Drop is taken when the suspended frame is dropped instead.
type YieldTerm struct {
	Value     Operand
	ResumeArg Place
	Resume    BlockID
	Drop      BlockID
}

// Successors lists the distinct blocks control may reach from t, in
// terminator order.
func (t *Terminator) Successors() []BlockID {
	if t == nil {
		return nil
	}
	var out []BlockID
	add := func(id BlockID) {
		if id == NoBlockID {
			return
		}
		for _, seen := range out {
			if seen == id {
				return
			}
		}
		out = append(out, id)
	}
	switch t.Kind {
	case TermGoto:
		add(t.Goto.Target)
	case TermIf:
		add(t.If.Then)
		add(t.If.Else)
	case TermSwitchTag:
		for _, c := range t.SwitchTag.Cases {
			add(c.Target)
		}
		add(t.SwitchTag.Default)
	case TermYield:
		add(t.Yield.Resume)
		add(t.Yield.Drop)
	}
	// TermReturn, TermUnreachable, TermNone have no successors
	return out
}

package mir

type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// TermLocation is the location of the block's terminator.
func (b *Block) TermLocation() Location {
	return Location{Block: b.ID, Index: len(b.Instrs)}
}

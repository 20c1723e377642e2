package mir

import (
	"boxelab/internal/source"
	"boxelab/internal/types"
)

type Func struct {
	ID   FuncID
	Name string
	Span source.Span

	Result types.TypeID

	Locals    []Local
	Blocks    []Block
	Entry     BlockID
	DebugInfo []VarDebugInfo
}

// Block returns the block with the given id. Block ids equal their index.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 || int(id) >= len(f.Blocks) {
		return nil
	}
	return &f.Blocks[id]
}

package mir

import "boxelab/internal/types"

// LangItems records which language-level abstractions the program being
// compiled defines.
type LangItems struct {
	// OwnedBox is set when box<T> exists in the program.
	OwnedBox bool
}

// Context carries the compilation-wide services a MIR pass may consult.
type Context struct {
	Types *types.Interner
	Projs *ProjInterner
	Lang  LangItems
}

// NewContext builds a Context with a fresh projection interner.
func NewContext(typesIn *types.Interner, lang LangItems) *Context {
	return &Context{
		Types: typesIn,
		Projs: NewProjInterner(),
		Lang:  lang,
	}
}

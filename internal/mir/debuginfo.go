package mir

import "boxelab/internal/source"

// DebugInfoKind distinguishes what a user-visible variable is bound to.
type DebugInfoKind uint8

const (
	DebugInfoPlace DebugInfoKind = iota
	DebugInfoConst
)

// VarDebugInfo binds a source-level variable name to where its value lives.
// It never affects execution but must resolve the same way after every
// pass that changes how places are spelled.
type VarDebugInfo struct {
	Name string
	Span source.Span
	Kind DebugInfoKind

	Place Place
	Const Const
}

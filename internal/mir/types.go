package mir

import (
	"boxelab/internal/source"
	"boxelab/internal/types"
)

type FuncID int32
type BlockID int32
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

type LocalFlags uint8

const (
	LocalFlagCopy LocalFlags = 1 << iota
	LocalFlagMut
	LocalFlagArg
	// LocalFlagTemp marks compiler-introduced temporaries.
	LocalFlagTemp
)

type Local struct {
	Type  types.TypeID
	Flags LocalFlags
	Name  string
	Span  source.Span
}

type PlaceProjKind uint8

const (
	PlaceProjDeref PlaceProjKind = iota
	PlaceProjField
	PlaceProjIndex
)

// PlaceProj is one step of a projection chain.
//
// A field step may carry the field type explicitly in Type. Passes that
// select fields the type system cannot name (such as the pointer inside a
// box) must set it.
type PlaceProj struct {
	Kind PlaceProjKind

	FieldName  string
	FieldIdx   int
	Type       types.TypeID
	IndexLocal LocalID
}

// Deref is the dereference projection.
func Deref() PlaceProj {
	return PlaceProj{Kind: PlaceProjDeref}
}

// Field selects field idx; ty may be types.NoTypeID when it can be derived.
func Field(idx int, ty types.TypeID) PlaceProj {
	return PlaceProj{Kind: PlaceProjField, FieldIdx: idx, Type: ty}
}

// Index projects element [local].
func Index(local LocalID) PlaceProj {
	return PlaceProj{Kind: PlaceProjIndex, IndexLocal: local}
}

// Place is a local plus a projection chain. Proj may be shared with the
// projection interner and must be treated as immutable; replace the slice
// instead of writing through it.
type Place struct {
	Local LocalID
	Proj  []PlaceProj
}

// LocalPlace is the bare place of a local.
func LocalPlace(id LocalID) Place {
	return Place{Local: id}
}

func (p Place) IsValid() bool {
	return p.Local != NoLocalID
}

// HasLeadingDeref reports whether the first projection is a deref.
func (p Place) HasLeadingDeref() bool {
	return len(p.Proj) > 0 && p.Proj[0].Kind == PlaceProjDeref
}

// Location addresses an instruction inside a block. Index == len(Instrs)
// addresses the terminator.
type Location struct {
	Block BlockID
	Index int
}

// Successor returns the location right after l within the same block.
func (l Location) Successor() Location {
	return Location{Block: l.Block, Index: l.Index + 1}
}

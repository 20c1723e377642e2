package types

// IsBox reports whether id is box<T>.
func (in *Interner) IsBox(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == KindBox
}

// BoxedType returns T for box<T>. It panics on any other type.
func (in *Interner) BoxedType(id TypeID) TypeID {
	tt := in.MustLookup(id)
	if tt.Kind != KindBox {
		panic("types: BoxedType on " + tt.Kind.String())
	}
	return tt.Elem
}

// BoxFields returns the physical field types of box<T>: a single raw
// pointer *T. The pointer type is interned on first use.
func (in *Interner) BoxFields(id TypeID) []TypeID {
	return []TypeID{in.PointerTo(in.BoxedType(id))}
}

// HasBox reports whether any box<T> has been interned. It does not intern
// anything.
func (in *Interner) HasBox() bool {
	for i := 1; i < len(in.types); i++ {
		if in.types[i].Kind == KindBox {
			return true
		}
	}
	return false
}

// InternBoxPointers interns *T for every box<T> known so far and returns the
// number of box types seen. After it returns, BoxFields on any of those
// boxes only reads the interner.
func (in *Interner) InternBoxPointers() int {
	boxes := 0
	for i := 1; i < len(in.types); i++ {
		tt := in.types[i]
		if tt.Kind != KindBox {
			continue
		}
		boxes++
		in.PointerTo(tt.Elem)
	}
	return boxes
}

package mir

import "boxelab/internal/types"

// ProjectionType returns the type reached by applying proj to a value of
// type base, or types.NoTypeID when the step does not resolve.
func ProjectionType(typesIn *types.Interner, base types.TypeID, proj PlaceProj) types.TypeID {
	if proj.Kind == PlaceProjField && proj.Type != types.NoTypeID {
		return proj.Type
	}
	if typesIn == nil {
		return types.NoTypeID
	}
	tt, ok := typesIn.Lookup(base)
	if !ok {
		return types.NoTypeID
	}
	switch proj.Kind {
	case PlaceProjDeref:
		switch tt.Kind {
		case types.KindPointer, types.KindReference, types.KindBox:
			return tt.Elem
		}
	case PlaceProjField:
		if ft, ok := typesIn.FieldType(base, proj.FieldIdx); ok {
			return ft
		}
	case PlaceProjIndex:
		if tt.Kind == types.KindArray {
			return tt.Elem
		}
	}
	return types.NoTypeID
}

// PlaceType resolves the type of p against a local table.
func PlaceType(typesIn *types.Interner, locals []Local, p Place) types.TypeID {
	if p.Local < 0 || int(p.Local) >= len(locals) {
		return types.NoTypeID
	}
	ty := locals[p.Local].Type
	for _, proj := range p.Proj {
		ty = ProjectionType(typesIn, ty, proj)
		if ty == types.NoTypeID {
			return types.NoTypeID
		}
	}
	return ty
}

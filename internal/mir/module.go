package mir

import "slices"

type Module struct {
	Funcs map[FuncID]*Func
}

// SortedFuncs returns the module's functions ordered by ID.
func (m *Module) SortedFuncs() []*Func {
	if m == nil {
		return nil
	}
	ids := make([]FuncID, 0, len(m.Funcs))
	for id, f := range m.Funcs {
		if f != nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]*Func, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Funcs[id])
	}
	return out
}

package mir

import (
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ProjInterner hands out one shared, capacity-clipped slice per distinct
// projection chain. Interned slices are immutable: appending to one always
// reallocates, and nobody writes through them.
//
// Safe for concurrent use.
type ProjInterner struct {
	mu    sync.Mutex
	index map[string][]PlaceProj
}

// NewProjInterner returns an empty interner.
func NewProjInterner() *ProjInterner {
	return &ProjInterner{index: make(map[string][]PlaceProj, 32)}
}

// Intern returns the canonical slice equal to projs. An empty chain interns
// to nil.
func (pi *ProjInterner) Intern(projs []PlaceProj) []PlaceProj {
	if len(projs) == 0 {
		return nil
	}
	key := projKey(projs)

	pi.mu.Lock()
	defer pi.mu.Unlock()
	if got, ok := pi.index[key]; ok {
		return got
	}
	stored := slices.Clip(slices.Clone(projs))
	pi.index[key] = stored
	return stored
}

// Len reports the number of distinct chains interned so far.
func (pi *ProjInterner) Len() int {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return len(pi.index)
}

func projKey(projs []PlaceProj) string {
	var sb strings.Builder
	for _, p := range projs {
		switch p.Kind {
		case PlaceProjDeref:
			sb.WriteString("*;")
		case PlaceProjField:
			sb.WriteString("f")
			sb.WriteString(strconv.Itoa(p.FieldIdx))
			sb.WriteByte(':')
			sb.WriteString(strconv.FormatUint(uint64(p.Type), 10))
			sb.WriteByte(':')
			sb.WriteString(p.FieldName)
			sb.WriteByte(';')
		case PlaceProjIndex:
			sb.WriteString("i")
			sb.WriteString(strconv.FormatInt(int64(p.IndexLocal), 10))
			sb.WriteByte(';')
		}
	}
	return sb.String()
}

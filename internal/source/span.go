package source

import "fmt"

// FileID identifies the input file a span points into.
type FileID uint32

// Span is a half-open byte range inside one file. MIR only carries spans
// through; nothing in this module resolves them to line/column.
type Span struct {
	File  FileID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

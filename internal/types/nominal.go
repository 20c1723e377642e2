package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"boxelab/internal/source"
)

// StructField describes a single field inside a nominal struct type.
type StructField struct {
	Name string
	Type TypeID
}

// StructInfo stores metadata for a struct type.
type StructInfo struct {
	Name   string
	Decl   source.Span
	Fields []StructField
}

// RegisterStruct allocates a nominal struct type slot and returns its TypeID.
// Registering the same name twice returns the first TypeID.
func (in *Interner) RegisterStruct(name string, decl source.Span) TypeID {
	if id, ok := in.byName[name]; ok {
		return id
	}
	slot := in.appendStructInfo(StructInfo{Name: name, Decl: decl})
	id := in.internRaw(Type{Kind: KindStruct, Payload: slot})
	in.byName[name] = id
	return id
}

// StructByName resolves a registered struct name.
func (in *Interner) StructByName(name string) (TypeID, bool) {
	id, ok := in.byName[name]
	return id, ok
}

// SetStructFields stores the resolved field descriptors for the struct type.
func (in *Interner) SetStructFields(typeID TypeID, fields []StructField) {
	info := in.structInfo(typeID)
	if info == nil {
		return
	}
	info.Fields = cloneStructFields(fields)
}

// StructInfo returns metadata for the provided struct TypeID.
func (in *Interner) StructInfo(typeID TypeID) (*StructInfo, bool) {
	info := in.structInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

// StructFields returns a copy of struct fields for the TypeID.
func (in *Interner) StructFields(typeID TypeID) []StructField {
	info := in.structInfo(typeID)
	if info == nil || len(info.Fields) == 0 {
		return nil
	}
	return cloneStructFields(info.Fields)
}

// FieldType returns the type of field idx of a struct or box. Boxes expose
// their physical layout, so field 0 of box<T> is *T.
func (in *Interner) FieldType(typeID TypeID, idx int) (TypeID, bool) {
	tt, ok := in.Lookup(typeID)
	if !ok || idx < 0 {
		return NoTypeID, false
	}
	switch tt.Kind {
	case KindStruct:
		info := in.structInfo(typeID)
		if info == nil || idx >= len(info.Fields) {
			return NoTypeID, false
		}
		return info.Fields[idx].Type, true
	case KindBox:
		fields := in.BoxFields(typeID)
		if idx >= len(fields) {
			return NoTypeID, false
		}
		return fields[idx], true
	default:
		return NoTypeID, false
	}
}

func (in *Interner) structInfo(typeID TypeID) *StructInfo {
	if typeID == NoTypeID {
		return nil
	}
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindStruct {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil
	}
	return &in.structs[tt.Payload]
}

func (in *Interner) appendStructInfo(info StructInfo) uint32 {
	in.structs = append(in.structs, StructInfo{
		Name:   info.Name,
		Decl:   info.Decl,
		Fields: cloneStructFields(info.Fields),
	})
	slot, err := safecast.Conv[uint32](len(in.structs) - 1)
	if err != nil {
		panic(fmt.Errorf("struct info overflow: %w", err))
	}
	return slot
}

func cloneStructFields(fields []StructField) []StructField {
	if len(fields) == 0 {
		return nil
	}
	return slices.Clone(fields)
}

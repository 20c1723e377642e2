package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindUnit {
		t.Fatalf("expected unit kind, got %v", unit.Kind)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Intern(MakeInt(Width32))
	p1 := in.PointerTo(elem)
	p2 := in.Intern(MakePointer(elem))
	if p1 != p2 {
		t.Fatalf("pointer types should be deduplicated")
	}
	b1 := in.Intern(MakeBox(elem))
	b2 := in.Intern(MakeBox(elem))
	if b1 != b2 {
		t.Fatalf("box types should be deduplicated")
	}
	if b1 == p1 {
		t.Fatalf("box<T> and *T must differ")
	}
}

func TestReferenceMutabilityAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int
	mut := in.Intern(MakeReference(elem, true))
	imm := in.Intern(MakeReference(elem, false))
	if mut == imm {
		t.Fatalf("mutable and immutable references must differ")
	}
}

func TestRegisterStructByName(t *testing.T) {
	in := NewInterner()
	foo := in.RegisterStruct("Foo", source0())
	again := in.RegisterStruct("Foo", source0())
	if foo != again {
		t.Fatalf("re-registering Foo produced a new type")
	}
	in.SetStructFields(foo, []StructField{{Name: "a", Type: in.Builtins().Int}, {Name: "b", Type: in.Builtins().Bool}})
	got, ok := in.FieldType(foo, 1)
	if !ok || got != in.Builtins().Bool {
		t.Fatalf("field 1 of Foo = %v, %v", got, ok)
	}
	if _, ok := in.FieldType(foo, 2); ok {
		t.Fatalf("field 2 of Foo should not exist")
	}
	if id, ok := in.StructByName("Foo"); !ok || id != foo {
		t.Fatalf("StructByName(Foo) = %v, %v", id, ok)
	}
}

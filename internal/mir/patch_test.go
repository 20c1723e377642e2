package mir_test

import (
	"testing"

	"boxelab/internal/mir"
	"boxelab/internal/source"
	"boxelab/internal/types"
)

func nopFunc(in *types.Interner, instrs int) *mir.Func {
	f := &mir.Func{
		Name:   "patched",
		Locals: []mir.Local{{Type: in.Builtins().Int}, {Type: in.Builtins().Int}},
		Blocks: []mir.Block{{ID: 0, Term: returnTerm()}},
	}
	for i := 0; i < instrs; i++ {
		f.Blocks[0].Instrs = append(f.Blocks[0].Instrs, mir.Assign(mir.LocalPlace(1), mir.UseOf(mir.Operand{
			Kind:  mir.OperandConst,
			Const: mir.Const{Kind: mir.ConstInt, IntValue: int64(i)},
		})))
	}
	return f
}

func TestPatch_NewTempIDsAreImmediate(t *testing.T) {
	in := types.NewInterner()
	f := nopFunc(in, 0)
	p := mir.NewPatch(f)

	a := p.NewTemp(in.Builtins().Bool, source.Span{})
	b := p.NewTemp(in.Builtins().Int, source.Span{})
	if a != 2 || b != 3 {
		t.Fatalf("temps = %d, %d; want 2, 3", a, b)
	}
	if len(f.Locals) != 2 {
		t.Fatalf("NewTemp must not touch the function before Apply")
	}
	if l, ok := p.Local(a); !ok || l.Type != in.Builtins().Bool {
		t.Fatalf("pending local lookup = %+v, %v", l, ok)
	}
	if l, ok := p.Local(0); !ok || l.Type != in.Builtins().Int {
		t.Fatalf("existing local lookup = %+v, %v", l, ok)
	}
	if _, ok := p.Local(4); ok {
		t.Fatalf("local 4 should not exist")
	}

	p.Apply(f)
	if len(f.Locals) != 4 || f.Locals[3].Type != in.Builtins().Int {
		t.Fatalf("locals after apply: %+v", f.Locals)
	}
}

func TestPatch_InsertionsKeepOrderAndShift(t *testing.T) {
	in := types.NewInterner()
	f := nopFunc(in, 3)
	p := mir.NewPatch(f)

	p.AddInstr(mir.Location{Block: 0, Index: 1}, mir.StorageLive(0))
	p.AddInstr(mir.Location{Block: 0, Index: 3}, mir.StorageDead(1))
	p.AddInstr(mir.Location{Block: 0, Index: 1}, mir.Instr{Kind: mir.InstrNop})
	p.AddInstr(mir.Location{Block: 0, Index: 0}, mir.StorageLive(1))
	p.AddInstr(mir.Location{Block: 0, Index: 2}, mir.StorageDead(0))

	if p.IsEmpty() {
		t.Fatalf("patch with edits reports empty")
	}
	p.Apply(f)

	expectLines(t, "bb0", instrLines(in, &f.Blocks[0]), []string{
		"storage_live _1",
		"_1 = const 0",
		"storage_live _0",
		"nop",
		"_1 = const 1",
		"storage_dead _0",
		"_1 = const 2",
		"storage_dead _1",
	})
}

func TestPatch_PastTerminatorGoesToSuccessors(t *testing.T) {
	in := types.NewInterner()
	f := &mir.Func{
		Name:   "succ",
		Locals: []mir.Local{{Type: in.Builtins().Bool}},
		Blocks: []mir.Block{
			{ID: 0, Term: mir.Terminator{Kind: mir.TermSwitchTag, SwitchTag: mir.SwitchTagTerm{
				Value:   copyOf(mir.LocalPlace(0)),
				Cases:   []mir.SwitchTagCase{{TagName: "A", Target: 1}, {TagName: "B", Target: 1}},
				Default: 2,
			}}},
			{ID: 1, Term: returnTerm()},
			{ID: 2, Instrs: []mir.Instr{{Kind: mir.InstrNop}}, Term: returnTerm()},
		},
	}
	p := mir.NewPatch(f)
	p.AddInstr(mir.Location{Block: 2, Index: 0}, mir.StorageLive(0))
	p.AddInstr(mir.Location{Block: 0, Index: 1}, mir.StorageDead(0))
	p.Apply(f)

	expectLines(t, "bb0", instrLines(in, &f.Blocks[0]), nil)
	expectLines(t, "bb1", instrLines(in, &f.Blocks[1]), []string{"storage_dead _0"})
	expectLines(t, "bb2", instrLines(in, &f.Blocks[2]), []string{"storage_dead _0", "storage_live _0", "nop"})
}

func TestPatch_EmptyApplyLeavesInstrsAlone(t *testing.T) {
	in := types.NewInterner()
	f := nopFunc(in, 2)
	before := &f.Blocks[0].Instrs[0]

	p := mir.NewPatch(f)
	if !p.IsEmpty() {
		t.Fatalf("fresh patch should be empty")
	}
	p.Apply(f)
	if &f.Blocks[0].Instrs[0] != before {
		t.Fatalf("empty patch reallocated instructions")
	}
}

func TestPatch_ApplyTwicePanics(t *testing.T) {
	in := types.NewInterner()
	f := nopFunc(in, 1)
	p := mir.NewPatch(f)
	p.Apply(f)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on second Apply")
		}
	}()
	p.Apply(f)
}

package mirtext_test

import (
	"strings"
	"testing"

	"boxelab/internal/mir"
	"boxelab/internal/mirtext"
	"boxelab/internal/types"
)

const operandModule = `
[[struct]]
name = "Foo"
fields = ["tag: int64"]

[[fn]]
name = "f"
locals = [
  { type = "int32" },
  { type = "box<int32>" },
  { type = "box<Foo>" },
  { type = "int64" },
  { type = "&int32" },
]

[[fn.block]]
term = "return"
`

func TestParseInstr_DerefOperands(t *testing.T) {
	u := decode(t, operandModule)
	in := u.Context.Types
	locals := u.Module.Funcs[0].Locals
	i32 := in.Intern(types.MakeInt(types.Width32))

	tests := []struct {
		name    string
		line    string
		want    string
		kind    mir.RValueKind
		operand mir.OperandKind
		ty      types.TypeID
	}{
		{
			name:    "CopyDeref",
			line:    "_0 = copy (*_1)",
			want:    "_0 = copy (*_1)",
			kind:    mir.RValueUse,
			operand: mir.OperandCopy,
			ty:      i32,
		},
		{
			name:    "MoveDerefField",
			line:    "_3 = move (*_2).tag",
			want:    "_3 = move (*_2).#0",
			kind:    mir.RValueUse,
			operand: mir.OperandMove,
			ty:      in.Intern(types.MakeInt(types.Width64)),
		},
		{
			name:    "AddrOfDeref",
			line:    "_4 = addr_of (*_1)",
			want:    "_4 = addr_of (*_1)",
			kind:    mir.RValueUse,
			operand: mir.OperandAddrOf,
			ty:      in.Intern(types.MakeReference(i32, false)),
		},
		{
			name:    "BinaryOverDerefs",
			line:    "_0 = add(copy (*_1), move (*_1))",
			want:    "_0 = add(copy (*_1), move (*_1))",
			kind:    mir.RValueBinaryOp,
			operand: mir.OperandCopy,
			ty:      i32,
		},
		{
			name:    "NegDeref",
			line:    "_0 = neg(copy (*_1))",
			want:    "_0 = neg(copy (*_1))",
			kind:    mir.RValueUnaryOp,
			operand: mir.OperandCopy,
			ty:      i32,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := mirtext.ParseInstr(in, locals, tt.line)
			if err != nil {
				t.Fatalf("ParseInstr(%q): %v", tt.line, err)
			}
			if ins.Kind != mir.InstrAssign || ins.Assign.Src.Kind != tt.kind {
				t.Fatalf("parsed %q as instr %v rvalue %v", tt.line, ins.Kind, ins.Assign.Src.Kind)
			}
			var op mir.Operand
			switch tt.kind {
			case mir.RValueBinaryOp:
				op = ins.Assign.Src.Binary.Left
			case mir.RValueUnaryOp:
				op = ins.Assign.Src.Unary.Operand
			default:
				op = ins.Assign.Src.Use
			}
			if op.Kind != tt.operand {
				t.Fatalf("operand kind = %v, want %v", op.Kind, tt.operand)
			}
			if !op.Place.HasLeadingDeref() {
				t.Fatalf("operand place %s has no leading deref", mir.FormatPlace(op.Place))
			}
			if op.Type != tt.ty {
				t.Fatalf("operand type = %s, want %s", mir.FormatType(in, op.Type), mir.FormatType(in, tt.ty))
			}
			if got := mir.FormatInstr(in, &ins); got != tt.want {
				t.Fatalf("FormatInstr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseInstr_OperatorErrors(t *testing.T) {
	u := decode(t, operandModule)
	locals := u.Module.Funcs[0].Locals

	tests := []struct {
		line string
		want string
	}{
		{"_0 = frob(copy _0, copy _0)", `unknown operator "frob"`},
		{"_0 = add(copy (*_1))", "add takes 2 operands, got 1"},
		{"_0 = copy (_1)", `expected "*"`},
	}
	for _, tt := range tests {
		_, err := mirtext.ParseInstr(u.Context.Types, locals, tt.line)
		if err == nil {
			t.Fatalf("ParseInstr(%q) succeeded", tt.line)
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("ParseInstr(%q) = %v, want %q", tt.line, err, tt.want)
		}
	}
}

func TestDecode_DefaultOwnedBoxDoesNotInternPointers(t *testing.T) {
	u := decode(t, operandModule)
	if !u.Context.Lang.OwnedBox {
		t.Fatalf("owned box should default to on when boxes are used")
	}
	in := u.Context.Types
	for id := types.TypeID(1); int(id) < in.Len(); id++ {
		if tt := in.MustLookup(id); tt.Kind == types.KindPointer {
			t.Fatalf("loading interned pointer type %s", mir.FormatType(in, id))
		}
	}
}

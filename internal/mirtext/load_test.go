package mirtext_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"boxelab/internal/mir"
	"boxelab/internal/mirtext"
	"boxelab/internal/types"
)

const derefModule = `
[[struct]]
name = "Foo"
fields = ["tag: int64", "next: box<Foo>"]

[[fn]]
name = "deref"
result = "int32"
locals = [
  { name = "ret", type = "int32" },
  { name = "b", type = "box<int32>", flags = ["arg"], span = [10, 14] },
  { name = "x", type = "int32" },
]
debug = [{ name = "x", place = "(*_1)" }, { name = "k", const = "7" }]

[[fn.block]]
instrs = ["storage_live _2", "_2 = copy (*_1)", "_0 = add(copy _2, const 1)", "storage_dead _2"]
term = "return copy _0"

[[fn]]
name = "walk"
locals = [
  { name = "ret", type = "()" },
  { name = "f", type = "box<Foo>", flags = ["arg"] },
  { name = "t", type = "int64" },
]

[[fn.block]]
instrs = ["_2 = copy (*_1).tag"]
term = "switch_tag copy _2 { A -> bb1; default -> bb1; }"

[[fn.block]]
term = "return"
`

func decode(t *testing.T, text string) *mirtext.Unit {
	t.Helper()
	u, err := mirtext.Decode("test.toml", []byte(text))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return u
}

func TestDecode_BuildsModule(t *testing.T) {
	u := decode(t, derefModule)

	if got := len(u.Module.Funcs); got != 2 {
		t.Fatalf("expected 2 funcs, got %d", got)
	}
	if !u.Context.Lang.OwnedBox {
		t.Fatalf("owned box should default to on when boxes are used")
	}

	f := u.Module.Funcs[0]
	if f.Name != "deref" {
		t.Fatalf("func 0 = %s", f.Name)
	}
	if got := mir.FormatType(u.Context.Types, f.Locals[1].Type); got != "box<int32>" {
		t.Fatalf("local 1 type = %s", got)
	}
	if f.Locals[1].Flags != mir.LocalFlagArg {
		t.Fatalf("local 1 flags = %v", f.Locals[1].Flags)
	}
	if sp := f.Locals[1].Span; sp.Start != 10 || sp.End != 14 || sp.File == 0 {
		t.Fatalf("local 1 span = %+v", sp)
	}
	if len(f.DebugInfo) != 2 || f.DebugInfo[1].Kind != mir.DebugInfoConst || f.DebugInfo[1].Const.IntValue != 7 {
		t.Fatalf("debug info = %+v", f.DebugInfo)
	}

	walk := u.Module.Funcs[1]
	place := walk.Blocks[0].Instrs[0].Assign.Src.Use.Place
	if len(place.Proj) != 2 || place.Proj[1].FieldIdx != 0 || place.Proj[1].FieldName != "tag" {
		t.Fatalf("named field not resolved: %+v", place.Proj)
	}
	if err := mir.Validate(u.Module, u.Context.Types, mir.ValidateOptions{}); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDecode_ExplicitLang(t *testing.T) {
	u := decode(t, "lang = { owned_box = false }\n"+derefModule)
	if u.Context.Lang.OwnedBox {
		t.Fatalf("explicit owned_box = false ignored")
	}
}

func TestDecode_DumpRoundTrips(t *testing.T) {
	u := decode(t, derefModule)
	f := u.Module.Funcs[0]
	mir.ElaborateBoxDerefs(u.Context, f)

	for i := range f.Blocks {
		bb := &f.Blocks[i]
		for j := range bb.Instrs {
			line := mir.FormatInstr(u.Context.Types, &bb.Instrs[j])
			ins, err := mirtext.ParseInstr(u.Context.Types, f.Locals, line)
			if err != nil {
				t.Fatalf("reparse %q: %v", line, err)
			}
			if again := mir.FormatInstr(u.Context.Types, &ins); again != line {
				t.Fatalf("round trip %q -> %q", line, again)
			}
		}
		line := mir.FormatTerm(&bb.Term)
		term, err := mirtext.ParseTerm(u.Context.Types, f.Locals, line)
		if err != nil {
			t.Fatalf("reparse %q: %v", line, err)
		}
		if again := mir.FormatTerm(&term); again != line {
			t.Fatalf("round trip %q -> %q", line, again)
		}
	}
	for _, di := range f.DebugInfo {
		if di.Kind != mir.DebugInfoPlace {
			continue
		}
		line := mir.FormatPlace(di.Place)
		p, err := mirtext.ParsePlace(u.Context.Types, f.Locals, line)
		if err != nil {
			t.Fatalf("reparse %q: %v", line, err)
		}
		if again := mir.FormatPlace(p); again != line {
			t.Fatalf("round trip %q -> %q", line, again)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "UnknownKey",
			text: "[[fn]]\nname = \"f\"\nbogus = 1\n[[fn.block]]\nterm = \"return\"\n",
			want: "unknown keys: fn.bogus",
		},
		{
			name: "MissingName",
			text: "[[fn]]\n[[fn.block]]\nterm = \"return\"\n",
			want: "fn #0: missing name",
		},
		{
			name: "DuplicateFunc",
			text: "[[fn]]\nname = \"f\"\n[[fn.block]]\nterm = \"return\"\n[[fn]]\nname = \"f\"\n[[fn.block]]\nterm = \"return\"\n",
			want: "fn f: defined twice",
		},
		{
			name: "UnknownType",
			text: "[[fn]]\nname = \"f\"\nlocals = [{ type = \"Bar\" }]\n[[fn.block]]\nterm = \"return\"\n",
			want: `local _0: col 1: unknown type "Bar"`,
		},
		{
			name: "BadInstr",
			text: "[[fn]]\nname = \"f\"\nlocals = [{ type = \"int\" }]\n[[fn.block]]\ninstrs = [\"_0 = frob _0\"]\nterm = \"return\"\n",
			want: "bb0[0]",
		},
		{
			name: "MissingTerm",
			text: "[[fn]]\nname = \"f\"\n[[fn.block]]\ninstrs = [\"nop\"]\n",
			want: "bb0: missing term",
		},
		{
			name: "NoBlocks",
			text: "[[fn]]\nname = \"f\"\n",
			want: "no blocks",
		},
		{
			name: "BadField",
			text: "[[struct]]\nname = \"S\"\nfields = [\"a: int\"]\n[[fn]]\nname = \"f\"\nlocals = [{ type = \"S\" }, { type = \"int\" }]\n[[fn.block]]\ninstrs = [\"_1 = copy _0.b\"]\nterm = \"return\"\n",
			want: `S: no field "b"`,
		},
		{
			name: "BadFlag",
			text: "[[fn]]\nname = \"f\"\nlocals = [{ type = \"int\", flags = [\"weird\"] }]\n[[fn.block]]\nterm = \"return\"\n",
			want: `unknown flag "weird"`,
		},
		{
			name: "DebugNeedsValue",
			text: "[[fn]]\nname = \"f\"\ndebug = [{ name = \"x\" }]\n[[fn.block]]\nterm = \"return\"\n",
			want: "debug x: needs place or const",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mirtext.Decode("bad.toml", []byte(tt.text))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.toml")
	if err := os.WriteFile(path, []byte(derefModule), 0o600); err != nil {
		t.Fatal(err)
	}
	u, err := mirtext.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if u.Path != path || len(u.Module.Funcs) != 2 {
		t.Fatalf("unexpected unit: %+v", u)
	}

	data, u2, err := mirtext.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != derefModule || len(u2.Module.Funcs) != 2 {
		t.Fatalf("ReadFile returned %d bytes, %d funcs", len(data), len(u2.Module.Funcs))
	}
	if _, err := mirtext.LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseType(t *testing.T) {
	in := types.NewInterner()
	for _, text := range []string{
		"box<box<int32>>",
		"*int32",
		"&mut &bool",
		"[int32; 4]",
		"[uint8]",
		"()",
		"float64",
		"int",
		"string",
	} {
		id, err := mirtext.ParseType(in, text)
		if err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if got := mir.FormatType(in, id); got != text {
			t.Fatalf("%s formats as %s", text, got)
		}
	}
	if _, err := mirtext.ParseType(in, "box<int32"); err == nil {
		t.Fatalf("expected error for unclosed box")
	}
	if _, err := mirtext.ParseType(in, "int32 int32"); err == nil {
		t.Fatalf("expected error for trailing tokens")
	}
}

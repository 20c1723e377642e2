package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"boxelab/internal/mir"
	"boxelab/internal/mirtext"
	"boxelab/internal/observ"
	"boxelab/internal/pipeline"
)

// boxModule builds n copies of a function that reads through a box and a
// trivial goto, so every pass has something to do.
func boxModule(t *testing.T, n int) *mirtext.Unit {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `
[[fn]]
name = "f%d"
locals = [{ type = "int32" }, { type = "box<box<int32>>" }, { type = "box<int32>" }]
debug = [{ name = "v", place = "(*(*_1))" }]

[[fn.block]]
instrs = ["_2 = move (*_1)", "_0 = copy (*_2)"]
term = "goto bb1"

[[fn.block]]
term = "goto bb2"

[[fn.block]]
term = "return copy _0"
`, i)
	}
	u, err := mirtext.Decode("gen.toml", []byte(sb.String()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return u
}

func TestRun_AllPasses(t *testing.T) {
	u := boxModule(t, 16)
	timer := observ.NewTimer()

	stats, err := pipeline.Run(context.Background(), u.Module, u.Context, pipeline.Options{
		Jobs:   4,
		Passes: []string{pipeline.PassElaborateBoxDerefs, pipeline.PassSimplifyCFG, pipeline.PassValidate},
		Timer:  timer,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats.Funcs) != 16 {
		t.Fatalf("expected 16 func stats, got %d", len(stats.Funcs))
	}
	if stats.BoxTypes != 2 {
		t.Fatalf("box types = %d, want 2", stats.BoxTypes)
	}
	for i, fs := range stats.Funcs {
		if fs.Func != fmt.Sprintf("f%d", i) {
			t.Fatalf("stats out of order: %d is %s", i, fs.Func)
		}
		// one rewrite per instruction, each with its own temp
		if fs.Places != 2 || fs.Temps != 2 || fs.DebugInfo != 1 {
			t.Fatalf("%s: %+v", fs.Func, fs)
		}
		if fs.Blocks != 2 {
			t.Fatalf("%s: blocks after simplify = %d", fs.Func, fs.Blocks)
		}
	}
	total := stats.Totals()
	if total.Places != 32 || total.Temps != 32 {
		t.Fatalf("totals = %+v", total)
	}
	if got := len(timer.Report().Phases); got != 3 {
		t.Fatalf("expected 3 timed phases, got %d", got)
	}

	f := u.Module.Funcs[0]
	if got := mir.FormatPlace(f.DebugInfo[0].Place); got != "(*(*_1.#0).#0)" {
		t.Fatalf("debug place = %s", got)
	}
}

func TestRun_DefaultPassesValidateElaboratedOutput(t *testing.T) {
	u := boxModule(t, 3)
	if _, err := pipeline.Run(context.Background(), u.Module, u.Context, pipeline.Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	err := mir.Validate(u.Module, u.Context.Types, mir.ValidateOptions{BoxesElaborated: true})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRun_ValidateReportsEveryFunction(t *testing.T) {
	u := boxModule(t, 2)
	for _, f := range u.Module.Funcs {
		f.Blocks[0].Term = mir.Terminator{Kind: mir.TermGoto, Goto: mir.GotoTerm{Target: 9}}
	}

	_, err := pipeline.Run(context.Background(), u.Module, u.Context, pipeline.Options{
		Passes: []string{pipeline.PassValidate},
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"validate: ", "function f0", "function f1", "bb9 does not exist"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error %q does not mention %q", msg, want)
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	u := boxModule(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, u.Module, u.Context, pipeline.Options{Jobs: 1})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestRun_UnknownPass(t *testing.T) {
	u := boxModule(t, 1)
	if _, err := pipeline.Run(context.Background(), u.Module, u.Context, pipeline.Options{Passes: []string{"inline"}}); err == nil {
		t.Fatalf("expected error for unknown pass")
	}
}

func TestParsePasses(t *testing.T) {
	got, err := pipeline.ParsePasses(" elaborate-box-derefs , simplify-cfg,validate,")
	if err != nil {
		t.Fatalf("ParsePasses: %v", err)
	}
	want := []string{pipeline.PassElaborateBoxDerefs, pipeline.PassSimplifyCFG, pipeline.PassValidate}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("passes = %v", got)
	}
	if def, _ := pipeline.ParsePasses(""); len(def) != len(pipeline.DefaultPasses) {
		t.Fatalf("default passes = %v", def)
	}
	if _, err := pipeline.ParsePasses("validate,nope"); err == nil {
		t.Fatalf("expected error for unknown pass")
	}
}

// Package pipeline runs named MIR passes over every function of a module,
// fanning out across functions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boxelab/internal/mir"
	"boxelab/internal/observ"
)

// Pass names accepted by Run.
const (
	PassElaborateBoxDerefs = "elaborate-box-derefs"
	PassSimplifyCFG        = "simplify-cfg"
	PassValidate           = "validate"
)

// DefaultPasses is the pass list used when Options.Passes is empty.
var DefaultPasses = []string{PassElaborateBoxDerefs, PassValidate}

var knownPasses = map[string]bool{
	PassElaborateBoxDerefs: true,
	PassSimplifyCFG:        true,
	PassValidate:           true,
}

// Options configures Run.
type Options struct {
	// Jobs bounds the number of functions processed at once; <= 0 means
	// GOMAXPROCS.
	Jobs int
	// Passes lists pass names in execution order.
	Passes []string
	// Timer, when set, receives one phase per pass.
	Timer *observ.Timer
}

// FuncStats describes what the passes did to one function.
type FuncStats struct {
	Func      string `msgpack:"func"`
	Places    int    `msgpack:"places"`
	Temps     int    `msgpack:"temps"`
	DebugInfo int    `msgpack:"debug_info"`
	Blocks    int    `msgpack:"blocks"`
}

// Stats is the result of Run, with one entry per function in id order.
type Stats struct {
	Funcs    []FuncStats `msgpack:"funcs"`
	BoxTypes int         `msgpack:"box_types"`
}

// Totals sums the per-function counters.
func (s Stats) Totals() FuncStats {
	total := FuncStats{Func: "total"}
	for _, fs := range s.Funcs {
		total.Places += fs.Places
		total.Temps += fs.Temps
		total.DebugInfo += fs.DebugInfo
		total.Blocks += fs.Blocks
	}
	return total
}

// ParsePasses splits a comma-separated pass list and checks every name.
func ParsePasses(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return append([]string(nil), DefaultPasses...), nil
	}
	var out []string
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !knownPasses[name] {
			return nil, fmt.Errorf("unknown pass %q", name)
		}
		out = append(out, name)
	}
	return out, nil
}

// Run applies opts.Passes to every function of mod. Passes run one after
// another; within a pass functions are processed concurrently. Validation
// failures of all functions are joined into the returned error.
func Run(ctx context.Context, mod *mir.Module, mctx *mir.Context, opts Options) (Stats, error) {
	passes := opts.Passes
	if len(passes) == 0 {
		passes = DefaultPasses
	}
	for _, name := range passes {
		if !knownPasses[name] {
			return Stats{}, fmt.Errorf("unknown pass %q", name)
		}
	}
	if mctx == nil || mctx.Types == nil {
		return Stats{}, errors.New("pipeline: missing type context")
	}

	funcs := mod.SortedFuncs()
	stats := Stats{Funcs: make([]FuncStats, len(funcs))}
	for i, f := range funcs {
		stats.Funcs[i].Func = f.Name
	}
	// Functions share the type interner; every pointer type the box pass can
	// ask for is interned here so workers only read it.
	stats.BoxTypes = mctx.Types.InternBoxPointers()

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	elaborated := false
	for _, name := range passes {
		idx := -1
		if opts.Timer != nil {
			idx = opts.Timer.Begin(name)
		}
		err := runPass(ctx, name, funcs, mctx, jobs, elaborated, stats.Funcs)
		if opts.Timer != nil {
			opts.Timer.End(idx, fmt.Sprintf("%d funcs", len(funcs)))
		}
		if err != nil {
			return stats, err
		}
		if name == PassElaborateBoxDerefs {
			elaborated = true
		}
		mir.Logger().Debug("pass finished", zap.String("pass", name), zap.Int("funcs", len(funcs)))
	}

	for i, f := range funcs {
		stats.Funcs[i].Blocks = len(f.Blocks)
	}
	return stats, nil
}

func runPass(ctx context.Context, name string, funcs []*mir.Func, mctx *mir.Context, jobs int, elaborated bool, stats []FuncStats) error {
	if len(funcs) == 0 {
		return nil
	}
	// indices are unique per goroutine, no mutex needed
	errs := make([]error, len(funcs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(funcs)))
	for i, f := range funcs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			switch name {
			case PassElaborateBoxDerefs:
				s := mir.ElaborateBoxDerefsWithStats(mctx, f)
				stats[i].Places += s.Places
				stats[i].Temps += s.Temps
				stats[i].DebugInfo += s.DebugInfo
			case PassSimplifyCFG:
				mir.SimplifyCFG(f)
			case PassValidate:
				if err := mir.ValidateFunc(f, mctx.Types, mir.ValidateOptions{BoxesElaborated: elaborated && mctx.Lang.OwnedBox}); err != nil {
					errs[i] = fmt.Errorf("function %s: %w", f.Name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

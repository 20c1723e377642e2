package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boxelab/internal/mir"
	"boxelab/internal/mircache"
	"boxelab/internal/mirtext"
	"boxelab/internal/observ"
	"boxelab/internal/pipeline"
	"boxelab/internal/version"
)

const cacheApp = "boxelab"

var elaborateCmd = &cobra.Command{
	Use:   "elaborate FILE.toml",
	Short: "Rewrite box derefs and print the resulting MIR",
	Args:  cobra.ExactArgs(1),
	RunE:  runElaborate,
}

func init() {
	elaborateCmd.Flags().Bool("diff", false, "print a line diff of the module before and after")
	elaborateCmd.Flags().Bool("stats", false, "print per-function rewrite counters")
	elaborateCmd.Flags().Bool("no-cache", false, "bypass the on-disk result cache")
	elaborateCmd.Flags().Int("jobs", 0, "max functions processed in parallel (0=auto)")
	elaborateCmd.Flags().Bool("timings", false, "print phase timings to stderr")
	elaborateCmd.Flags().Bool("spans", false, "print local spans in the dump")
	elaborateCmd.Flags().String("passes", strings.Join(pipeline.DefaultPasses, ","), "comma-separated pass list")
}

type elaborateOptions struct {
	diff    bool
	stats   bool
	noCache bool
	jobs    int
	timings bool
	spans   bool
	passes  []string
}

func readElaborateOptions(cmd *cobra.Command) (elaborateOptions, error) {
	var opts elaborateOptions
	var err error
	if opts.diff, err = cmd.Flags().GetBool("diff"); err != nil {
		return opts, err
	}
	if opts.stats, err = cmd.Flags().GetBool("stats"); err != nil {
		return opts, err
	}
	if opts.noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
		return opts, err
	}
	if opts.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return opts, err
	}
	if opts.timings, err = cmd.Flags().GetBool("timings"); err != nil {
		return opts, err
	}
	if opts.spans, err = cmd.Flags().GetBool("spans"); err != nil {
		return opts, err
	}
	passList, err := cmd.Flags().GetString("passes")
	if err != nil {
		return opts, err
	}
	if opts.passes, err = pipeline.ParsePasses(passList); err != nil {
		return opts, err
	}
	return opts, nil
}

func runElaborate(cmd *cobra.Command, args []string) error {
	opts, err := readElaborateOptions(cmd)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	out := cmd.OutOrStdout()

	var (
		data []byte
		unit *mirtext.Unit
	)
	err = timer.Track("load", func() (string, error) {
		var loadErr error
		data, unit, loadErr = mirtext.ReadFile(args[0])
		if loadErr != nil {
			return "", loadErr
		}
		return fmt.Sprintf("%d funcs", len(unit.Module.Funcs)), nil
	})
	if err != nil {
		return err
	}

	dumpOpts := mir.DumpOptions{Spans: opts.spans}
	before := ""
	if opts.diff {
		if before, err = dumpString(unit, dumpOpts); err != nil {
			return err
		}
	}

	var cache *mircache.Cache
	// spans change the dump, so they are part of the key
	keyPasses := append(append([]string(nil), opts.passes...), fmt.Sprintf("spans=%t", opts.spans))
	key := mircache.Key(version.Version, keyPasses, data)
	if !opts.noCache {
		if cache, err = mircache.Open(cacheApp); err != nil {
			mir.Logger().Warn("cache disabled", zap.Error(err))
			cache = nil
		}
	}

	var payload mircache.Payload
	hit := false
	if cache != nil {
		if hit, err = cache.Get(key, &payload); err != nil {
			mir.Logger().Warn("cache read failed", zap.String("key", key.String()), zap.Error(err))
			hit = false
		}
	}

	if !hit {
		stats, err := pipeline.Run(cmd.Context(), unit.Module, unit.Context, pipeline.Options{
			Jobs:   opts.jobs,
			Passes: opts.passes,
			Timer:  timer,
		})
		if err != nil {
			return err
		}
		var after string
		err = timer.Track("dump", func() (string, error) {
			var dumpErr error
			after, dumpErr = dumpString(unit, dumpOpts)
			return "", dumpErr
		})
		if err != nil {
			return err
		}
		payload = mircache.Payload{Source: args[0], Passes: opts.passes, Dump: after, Stats: stats}
		if cache != nil {
			if err := cache.Put(key, &payload); err != nil {
				mir.Logger().Warn("cache write failed", zap.String("key", key.String()), zap.Error(err))
			}
		}
	} else {
		mir.Logger().Debug("cache hit", zap.String("key", key.String()), zap.String("file", args[0]))
	}

	if opts.diff {
		err = writeDiff(out, lineDiff(before, payload.Dump))
	} else {
		_, err = fmt.Fprint(out, payload.Dump)
	}
	if err != nil {
		return err
	}

	if opts.stats {
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
		if err := renderStats(out, payload.Stats); err != nil {
			return err
		}
	}
	if opts.timings {
		note := "computed"
		if hit {
			note = "cached"
		}
		if _, err := fmt.Fprintf(cmd.ErrOrStderr(), "%s(%s)\n", timer.Summary(), note); err != nil {
			return err
		}
	}
	return nil
}

func dumpString(unit *mirtext.Unit, opts mir.DumpOptions) (string, error) {
	var sb strings.Builder
	if err := mir.DumpModule(&sb, unit.Module, unit.Context.Types, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}

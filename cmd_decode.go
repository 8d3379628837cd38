package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/config"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/jmccarv/decipher/internal/metrics"
	"github.com/jmccarv/decipher/internal/report"
	"github.com/jmccarv/decipher/internal/solver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type decodeFlags struct {
	maxRuntime time.Duration
	cpuprofile string
	memprofile string
}

func (a *app) decodeCmd() *cobra.Command {
	var df decodeFlags
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Search for the key that deciphers a ciphertext",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if err := applyDecodeFlags(cmd.Flags(), &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runDecode(cmd, cfg, df)
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", "", "training corpus")
	f.StringP("decode", "d", "", "ciphertext to decipher")
	f.StringP("reference", "r", "", "known plaintext, enables accuracy reporting")
	f.IntP("iters", "e", def.Sampler.Iterations, "iterations per restart")
	f.IntP("print-every", "p", def.Sampler.CheckEvery, "iterations between convergence checks")
	f.Float64P("tolerance", "t", def.Sampler.Tolerance, "stop a restart once its window acceptance rate falls below this; 0 never stops early")
	f.IntP("restarts", "n", def.Sampler.Restarts, "independent restarts")
	f.Int("workers", def.Sampler.Workers, "restarts run at once, 0 runs them all together")
	f.Uint64("seed", def.Sampler.Seed, "random seed, 0 picks one from the clock")
	f.String("alphabet", def.Alphabet, "symbol set: full or lower")
	f.String("init-key", "", "file holding the starting key")
	f.Int("top", def.Sampler.Top, "ranked guesses to print")
	f.Bool("full", false, "print whole decoded texts instead of previews")
	f.Bool("json", false, "print the report as JSON")
	f.String("metrics-file", "", "write Prometheus metrics to this file")
	f.DurationVar(&df.maxRuntime, "max-runtime", 0, "quit after this amount of time. Ex: 30s or 1m")
	f.StringVar(&df.cpuprofile, "cpuprofile", "", "write cpu profile to 'file'")
	f.StringVar(&df.memprofile, "memprofile", "", "write memory profile to 'file'")
	return cmd
}

// applyDecodeFlags copies every flag the user set over cfg.
func applyDecodeFlags(f *pflag.FlagSet, cfg *config.Config) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetInt(name)
		}
	}
	flag := func(name string, dst *bool) {
		if err == nil && f.Changed(name) {
			*dst, err = f.GetBool(name)
		}
	}

	str("input", &cfg.Corpus)
	str("decode", &cfg.Ciphertext)
	str("reference", &cfg.Reference)
	str("init-key", &cfg.InitKey)
	str("alphabet", &cfg.Alphabet)
	str("metrics-file", &cfg.Report.MetricsFile)
	num("iters", &cfg.Sampler.Iterations)
	num("print-every", &cfg.Sampler.CheckEvery)
	num("restarts", &cfg.Sampler.Restarts)
	num("workers", &cfg.Sampler.Workers)
	num("top", &cfg.Sampler.Top)
	flag("full", &cfg.Report.Full)
	flag("json", &cfg.Report.JSON)
	if err == nil && f.Changed("tolerance") {
		cfg.Sampler.Tolerance, err = f.GetFloat64("tolerance")
	}
	if err == nil && f.Changed("seed") {
		cfg.Sampler.Seed, err = f.GetUint64("seed")
	}
	return err
}

func runDecode(cmd *cobra.Command, cfg config.Config, df decodeFlags) error {
	runID := uuid.NewString()
	log := slog.Default().With("run_id", runID)
	slog.SetDefault(log)

	if df.cpuprofile != "" {
		f, err := os.Create(df.cpuprofile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if cfg.Sampler.Seed == 0 {
		cfg.Sampler.Seed = uint64(time.Now().UnixNano())
	}

	a, err := alphabet.ByName(cfg.Alphabet)
	if err != nil {
		return err
	}
	stats, err := corpus.BuildFile(a, cfg.Corpus, cfg.Stats)
	if err != nil {
		return err
	}
	raw, err := corpus.ReadFile(cfg.Ciphertext)
	if err != nil {
		return err
	}
	text := corpus.Clean(a, raw)

	var key solver.Key
	if cfg.InitKey != "" {
		data, err := corpus.ReadFile(cfg.InitKey)
		if err != nil {
			return err
		}
		if key, err = solver.ParseKey(a, data); err != nil {
			return fmt.Errorf("%s: %w", cfg.InitKey, err)
		}
	}

	init, err := solver.NewState(text, stats, key)
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Ciphertext, err)
	}
	baseline, err := init.WithKey(solver.IdentityKey(a.Size()))
	if err != nil {
		return err
	}
	identity := solver.LogLikelihood(baseline)

	proposer, err := solver.NewProposer(stats, cfg.Proposal)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	d := &solver.Decipherer{
		Proposer: proposer,
		Options:  cfg.Sampler,
		Observer: metrics.New(reg),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if df.maxRuntime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, df.maxRuntime)
		defer cancel()
	}

	log.Info("deciphering",
		"corpus", cfg.Corpus,
		"ciphertext", cfg.Ciphertext,
		"alphabet", a.Name(),
		"symbols", len(text),
		"seed", cfg.Sampler.Seed,
		"identity", identity)

	start := time.Now()
	res, err := d.Run(ctx, init)
	if err != nil {
		return err
	}
	log.Info("search finished", "samples", res.Samples(), "elapsed", time.Since(start))

	var ref *report.Reference
	if cfg.Reference != "" {
		plain, err := corpus.ReadFile(cfg.Reference)
		if err != nil {
			return err
		}
		ref = report.NewReference(a, text, plain)
	}

	rep := report.New(runID, raw, identity, res, ref)
	out := cmd.OutOrStdout()
	if cfg.Report.JSON {
		err = report.WriteJSON(out, rep)
	} else {
		err = report.Render(out, rep, report.RenderOptions{
			Full:  cfg.Report.Full,
			Width: report.TerminalWidth(out),
		})
	}
	if err != nil {
		return err
	}

	if cfg.Report.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.Report.MetricsFile, reg); err != nil {
			return fmt.Errorf("could not write metrics: %w", err)
		}
	}

	if df.memprofile != "" {
		f, err := os.Create(df.memprofile)
		if err != nil {
			return fmt.Errorf("could not create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("could not write memory profile: %w", err)
		}
	}
	return nil
}

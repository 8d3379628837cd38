package solver

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"
)

// Result pools every restart of a solve.
type Result struct {
	Trajectories []Trajectory
	// Ranked holds the best distinct keys over all restarts, best first.
	Ranked []Sample
}

// Best is the top ranked sample.
func (r Result) Best() Sample { return r.Ranked[0] }

// Samples returns the number of states recorded over all restarts.
func (r Result) Samples() int {
	n := 0
	for _, t := range r.Trajectories {
		n += len(t.Samples)
	}
	return n
}

// Solve runs opts.Restarts independent chains from init and ranks every
// state they recorded. Each chain has its own generator derived from
// opts.Seed, so results do not depend on scheduling. The ranking is never
// empty. obs may be nil.
func Solve(ctx context.Context, init State, propose ProposalFunc, density DensityFunc, opts Options, obs Observer) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	workers := opts.Workers
	if workers == 0 || workers > opts.Restarts {
		workers = opts.Restarts
	}

	p := pool.NewWithResults[Trajectory]().WithMaxGoroutines(workers)
	for r := 0; r < opts.Restarts; r++ {
		p.Go(func() Trajectory {
			rng := NewRand(DeriveSeed(opts.Seed, uint64(r)))
			return run(ctx, NewChain(r, init, propose, density, rng), opts, obs)
		})
	}
	trajectories := p.Wait()
	sort.Slice(trajectories, func(i, j int) bool { return trajectories[i].Restart < trajectories[j].Restart })

	ss := NewSolutionSet(opts.Top)
	for _, t := range trajectories {
		ss.Add(t.Best)
		for _, s := range t.Samples {
			ss.Add(s)
		}
	}

	return Result{Trajectories: trajectories, Ranked: ss.Solutions()}, nil
}

// Decipherer bundles the statistics-derived machinery a solve needs.
type Decipherer struct {
	Proposer *Proposer
	Options  Options
	Observer Observer
}

// Run solves from init with the incremental likelihood and the mixture
// proposal.
func (d *Decipherer) Run(ctx context.Context, init State) (Result, error) {
	return Solve(ctx, init, d.Proposer.Propose, LogLikelihood, d.Options, d.Observer)
}

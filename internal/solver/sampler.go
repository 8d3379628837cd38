package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
)

// DensityFunc scores a State; higher is better and -Inf is impossible.
type DensityFunc func(s State) float64

// Options control the sampler.
type Options struct {
	// Iterations is the step budget of one restart.
	Iterations int `yaml:"iterations"`
	// CheckEvery is the length of the acceptance-rate window.
	CheckEvery int `yaml:"check_every"`
	// Tolerance stops a restart whose window acceptance rate falls below it.
	Tolerance float64 `yaml:"tolerance"`
	Restarts  int     `yaml:"restarts"`
	// Workers bounds how many restarts run at once; 0 means one per restart.
	Workers int    `yaml:"workers"`
	Seed    uint64 `yaml:"seed"`
	// Top is how many distinct keys the ranking keeps.
	Top int `yaml:"top"`
}

func DefaultOptions() Options {
	return Options{
		Iterations: 30000,
		CheckEvery: 5000,
		Tolerance:  0.02,
		Restarts:   3,
		Top:        3,
	}
}

var ErrBadOptions = errors.New("invalid sampler options")

func (o Options) Validate() error {
	switch {
	case o.Iterations < 1:
		return fmt.Errorf("%w: iterations must be positive", ErrBadOptions)
	case o.CheckEvery < 1:
		return fmt.Errorf("%w: check interval must be positive", ErrBadOptions)
	case o.Tolerance < 0 || o.Tolerance >= 1:
		return fmt.Errorf("%w: tolerance %g not in [0, 1)", ErrBadOptions, o.Tolerance)
	case o.Restarts < 1:
		return fmt.Errorf("%w: restarts must be positive", ErrBadOptions)
	case o.Workers < 0:
		return fmt.Errorf("%w: negative worker count", ErrBadOptions)
	case o.Top < 1:
		return fmt.Errorf("%w: top must be positive", ErrBadOptions)
	}
	return nil
}

// StopReason says why a restart ended.
type StopReason int

const (
	Budget StopReason = iota
	Converged
	Cancelled
)

func (r StopReason) String() string {
	switch r {
	case Budget:
		return "budget"
	case Converged:
		return "converged"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Sample is a recorded state: the state a chain was in after one decision.
type Sample struct {
	State     State
	LogLik    float64
	Restart   int
	Iteration int
}

// Trajectory is everything one restart recorded.
type Trajectory struct {
	Restart  int
	Samples  []Sample
	Accepted int
	Rejected int
	Reason   StopReason
	Best     Sample
}

// AcceptanceRate is the fraction of steps that moved the chain.
func (t Trajectory) AcceptanceRate() float64 {
	n := t.Accepted + t.Rejected
	if n == 0 {
		return 0
	}
	return float64(t.Accepted) / float64(n)
}

// Observer receives progress from running chains. Methods may be called
// from several goroutines at once.
type Observer interface {
	OnStep(restart int, accepted bool)
	OnCheck(restart, iteration int, rate, best float64)
	OnChainDone(t *Trajectory)
}

// Chain is a single Metropolis-Hastings trajectory.
type Chain struct {
	restart int
	current State
	ll      float64
	propose ProposalFunc
	density DensityFunc
	rng     *rand.Rand

	Accepted int
	Rejected int
}

// NewChain starts a chain at init and scores it once.
func NewChain(restart int, init State, propose ProposalFunc, density DensityFunc, rng *rand.Rand) *Chain {
	return &Chain{
		restart: restart,
		current: init,
		ll:      density(init),
		propose: propose,
		density: density,
		rng:     rng,
	}
}

// Step proposes a move and accepts it with probability
// min(1, exp(candidate - current)). It reports whether the move was taken.
func (c *Chain) Step() bool {
	candidate := c.propose(c.current, c.rng)
	ll := c.density(candidate)

	if c.rng.Float64() < acceptance(c.ll, ll) {
		c.current, c.ll = candidate, ll
		c.Accepted++
		return true
	}
	c.Rejected++
	return false
}

func acceptance(current, candidate float64) float64 {
	if candidate >= current {
		return 1
	}
	if math.IsNaN(candidate) {
		return 0
	}
	return math.Exp(candidate - current)
}

// MetropolisHastings runs one restart from init until the budget is spent,
// the window acceptance rate falls below the tolerance, or ctx ends.
func MetropolisHastings(ctx context.Context, init State, propose ProposalFunc, density DensityFunc, opts Options, rng *rand.Rand) (Trajectory, error) {
	if err := opts.Validate(); err != nil {
		return Trajectory{}, err
	}
	return run(ctx, NewChain(0, init, propose, density, rng), opts, nil), nil
}

func run(ctx context.Context, c *Chain, opts Options, obs Observer) Trajectory {
	t := Trajectory{
		Restart: c.restart,
		Samples: make([]Sample, 0, opts.Iterations),
		Reason:  Budget,
		Best:    Sample{State: c.current, LogLik: c.ll, Restart: c.restart},
	}

	window := 0
	for i := 1; i <= opts.Iterations; i++ {
		if ctx.Err() != nil {
			t.Reason = Cancelled
			break
		}

		accepted := c.Step()
		if accepted {
			window++
		}
		if obs != nil {
			obs.OnStep(c.restart, accepted)
		}

		s := Sample{State: c.current, LogLik: c.ll, Restart: c.restart, Iteration: i}
		t.Samples = append(t.Samples, s)
		if s.LogLik > t.Best.LogLik {
			t.Best = s
		}

		if i%opts.CheckEvery != 0 {
			continue
		}
		rate := float64(window) / float64(opts.CheckEvery)
		window = 0
		slog.Debug("acceptance window",
			"restart", c.restart, "iteration", i, "rate", rate, "best", t.Best.LogLik)
		if obs != nil {
			obs.OnCheck(c.restart, i, rate, t.Best.LogLik)
		}
		if rate < opts.Tolerance {
			t.Reason = Converged
			break
		}
	}

	t.Accepted, t.Rejected = c.Accepted, c.Rejected
	slog.Info("restart finished",
		"restart", c.restart,
		"reason", t.Reason.String(),
		"iterations", len(t.Samples),
		"acceptance", t.AcceptanceRate(),
		"best", t.Best.LogLik)
	if obs != nil {
		obs.OnChainDone(&t)
	}
	return t
}

package solver

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catSetup(t *testing.T) (*Proposer, State) {
	t.Helper()
	st := train(t, alphabet.Lower(), catCorpus())
	p, err := NewProposer(st, DefaultProposalOptions())
	require.NoError(t, err)
	return p, mustState(t, st, "the cat sat", nil)
}

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"iterations", func(o *Options) { o.Iterations = 0 }},
		{"check", func(o *Options) { o.CheckEvery = 0 }},
		{"tolerance", func(o *Options) { o.Tolerance = 1 }},
		{"restarts", func(o *Options) { o.Restarts = 0 }},
		{"workers", func(o *Options) { o.Workers = -1 }},
		{"top", func(o *Options) { o.Top = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			assert.ErrorIs(t, o.Validate(), ErrBadOptions)
		})
	}
}

func TestAcceptance(t *testing.T) {
	assert.Equal(t, 1.0, acceptance(-10, -5))
	assert.Equal(t, 1.0, acceptance(-10, -10))
	assert.InDelta(t, math.Exp(-2), acceptance(-10, -12), 1e-15)
	assert.Equal(t, 0.0, acceptance(-10, math.Inf(-1)))
	assert.Equal(t, 1.0, acceptance(math.Inf(-1), math.Inf(-1)))
}

func TestMetropolisHastings_RecordsEveryDecision(t *testing.T) {
	p, init := catSetup(t)
	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 700, 100, 0

	tr, err := MetropolisHastings(context.Background(), init, p.Propose, LogLikelihood, opts, NewRand(3))
	require.NoError(t, err)

	assert.Equal(t, Budget, tr.Reason)
	require.Len(t, tr.Samples, 700)
	assert.Equal(t, 700, tr.Accepted+tr.Rejected)
	for i, s := range tr.Samples {
		assert.Equal(t, i+1, s.Iteration)
		assert.True(t, s.State.key.Valid(27))
		assert.Equal(t, LogLikelihood(s.State), s.LogLik)
	}
}

func TestMetropolisHastings_BestIsRunningMax(t *testing.T) {
	p, init := catSetup(t)
	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 2000, 500, 0

	tr, err := MetropolisHastings(context.Background(), init, p.Propose, LogLikelihood, opts, NewRand(17))
	require.NoError(t, err)

	best := LogLikelihood(init)
	prev := best
	for _, s := range tr.Samples {
		best = math.Max(best, s.LogLik)
		assert.GreaterOrEqual(t, best, prev)
		prev = best
	}
	assert.Equal(t, best, tr.Best.LogLik)
}

func TestMetropolisHastings_ConvergesWhenStuck(t *testing.T) {
	p, init := catSetup(t)
	identity := IdentityKey(27)
	// Every move away from the identity is impossible, so nothing is accepted.
	density := func(s State) float64 {
		if s.key.Equal(identity) {
			return 0
		}
		return math.Inf(-1)
	}
	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 10000, 250, 0.5

	tr, err := MetropolisHastings(context.Background(), init, p.Propose, density, opts, NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, Converged, tr.Reason)
	assert.Len(t, tr.Samples, 250)
	assert.Zero(t, tr.Accepted)
	assert.True(t, tr.Best.State.key.Equal(identity))
}

func TestMetropolisHastings_StopsOnCancel(t *testing.T) {
	p, init := catSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 5000, 10000, 0
	flat := func(State) float64 { return 0 }

	tr, err := MetropolisHastings(ctx, init, p.Propose, flat, opts, NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, Cancelled, tr.Reason)
	assert.Empty(t, tr.Samples)
	assert.True(t, tr.Best.State.key.Equal(init.key), "best falls back to the initial state")
}

func TestMetropolisHastings_StopsMidWindow(t *testing.T) {
	p, init := catSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One call scores the initial state, then one per step.
	calls := 0
	density := func(State) float64 {
		calls++
		if calls == 51 {
			cancel()
		}
		return 0
	}

	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 5000, 10000, 0
	tr, err := MetropolisHastings(ctx, init, p.Propose, density, opts, NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, Cancelled, tr.Reason)
	assert.Len(t, tr.Samples, 50)
}

func TestSolve_CancelledBeforeStart(t *testing.T) {
	p, init := catSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Restarts, opts.Workers = 5000, 10000, 4, 1
	res, err := Solve(ctx, init, p.Propose, LogLikelihood, opts, nil)
	require.NoError(t, err)
	require.Len(t, res.Trajectories, 4)
	for _, tr := range res.Trajectories {
		assert.Equal(t, Cancelled, tr.Reason)
	}
	assert.Zero(t, res.Samples())
	require.NotEmpty(t, res.Ranked)
	assert.Equal(t, LogLikelihood(init), res.Best().LogLik)
}

func TestMetropolisHastings_BadOptions(t *testing.T) {
	p, init := catSetup(t)
	_, err := MetropolisHastings(context.Background(), init, p.Propose, LogLikelihood, Options{}, NewRand(1))
	assert.ErrorIs(t, err, ErrBadOptions)
}

func TestSolve_Deterministic(t *testing.T) {
	p, init := catSetup(t)
	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 500, 100, 0
	opts.Restarts, opts.Seed, opts.Top = 4, 1234, 5

	opts.Workers = 1
	serial, err := Solve(context.Background(), init, p.Propose, LogLikelihood, opts, nil)
	require.NoError(t, err)
	opts.Workers = 4
	parallel, err := Solve(context.Background(), init, p.Propose, LogLikelihood, opts, nil)
	require.NoError(t, err)

	require.Len(t, serial.Ranked, len(parallel.Ranked))
	for i := range serial.Ranked {
		assert.Equal(t, serial.Ranked[i].LogLik, parallel.Ranked[i].LogLik)
		assert.True(t, serial.Ranked[i].State.key.Equal(parallel.Ranked[i].State.key))
	}
	assert.Equal(t, 2000, serial.Samples())
}

func TestSolve_RankingIsSortedAndDistinct(t *testing.T) {
	p, init := catSetup(t)
	opts := DefaultOptions()
	opts.Iterations, opts.CheckEvery, opts.Tolerance = 1000, 250, 0
	opts.Top = 10

	res, err := Solve(context.Background(), init, p.Propose, LogLikelihood, opts, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Ranked)
	require.Len(t, res.Trajectories, 3)

	seen := map[string]bool{}
	for i, s := range res.Ranked {
		if i > 0 {
			assert.GreaterOrEqual(t, res.Ranked[i-1].LogLik, s.LogLik)
		}
		id := s.State.key.id()
		assert.False(t, seen[id], "duplicate key at rank %d", i)
		seen[id] = true
	}
	for _, tr := range res.Trajectories {
		assert.GreaterOrEqual(t, res.Best().LogLik, tr.Best.LogLik)
	}
}

// The corpus makes 'c', 's' and 'm' interchangeable after a space, so keys
// that permute them score exactly the same as the true key.
func TestSolve_RecoversShortSentence(t *testing.T) {
	a := alphabet.Lower()
	st := train(t, a, catCorpus())
	p, err := NewProposer(st, DefaultProposalOptions())
	require.NoError(t, err)

	plain := "a cat sat"
	enc := RandomKey(a, NewRand(2024))
	init, err := NewState(enc.Apply(a.Encode(plain)), st, nil)
	require.NoError(t, err)
	truth, err := init.WithKey(enc.Inverse())
	require.NoError(t, err)

	opts := Options{Iterations: 5000, CheckEvery: 1000, Tolerance: 0.001, Restarts: 3, Seed: 7, Top: 3}
	res, err := Solve(context.Background(), init, p.Propose, LogLikelihood, opts, nil)
	require.NoError(t, err)

	best := res.Best()
	assert.GreaterOrEqual(t, best.LogLik, LogLikelihood(truth)-1e-9)
	got := best.State.DecodedString()
	assert.LessOrEqual(t, hamming(got, plain), 2, "decoded %q", got)
	assert.Equal(t, 'a', []rune(got)[0], "decoded %q", got)
}

type countingObserver struct {
	mu     sync.Mutex
	steps  int
	checks int
	done   []StopReason
}

func (o *countingObserver) OnStep(int, bool) {
	o.mu.Lock()
	o.steps++
	o.mu.Unlock()
}

func (o *countingObserver) OnCheck(int, int, float64, float64) {
	o.mu.Lock()
	o.checks++
	o.mu.Unlock()
}

func (o *countingObserver) OnChainDone(t *Trajectory) {
	o.mu.Lock()
	o.done = append(o.done, t.Reason)
	o.mu.Unlock()
}

func TestSolve_NotifiesObserver(t *testing.T) {
	p, init := catSetup(t)
	d := &Decipherer{
		Proposer: p,
		Options:  Options{Iterations: 300, CheckEvery: 100, Restarts: 2, Top: 3},
		Observer: &countingObserver{},
	}
	_, err := d.Run(context.Background(), init)
	require.NoError(t, err)

	obs := d.Observer.(*countingObserver)
	assert.Equal(t, 600, obs.steps)
	assert.Equal(t, 6, obs.checks)
	assert.Equal(t, []StopReason{Budget, Budget}, obs.done)
}

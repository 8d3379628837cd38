package solver

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"gonum.org/v1/gonum/floats"
)

// ProposalFunc returns a candidate neighbouring s.
type ProposalFunc func(s State, rng *rand.Rand) State

// ProposalOptions are the mixture weights of the three swap pools. Whatever
// weight is left after letters and others selects the whole alphabet.
type ProposalOptions struct {
	LetterWeight float64 `yaml:"letter_weight"`
	OtherWeight  float64 `yaml:"other_weight"`
	Epsilon      float64 `yaml:"epsilon"`
}

func DefaultProposalOptions() ProposalOptions {
	return ProposalOptions{LetterWeight: 0.6, OtherWeight: 0.3, Epsilon: 1e-6}
}

var ErrBadProposal = errors.New("invalid proposal options")

func (o ProposalOptions) Validate() error {
	if o.LetterWeight < 0 || o.OtherWeight < 0 || o.LetterWeight+o.OtherWeight > 1 {
		return fmt.Errorf("%w: pool weights %g and %g", ErrBadProposal, o.LetterWeight, o.OtherWeight)
	}
	if o.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be positive", ErrBadProposal)
	}
	return nil
}

// swapPool is a set of symbols with a cumulative selection distribution.
type swapPool struct {
	symbols []int
	cdf     []float64
}

func newSwapPool(symbols []int, weight func(int) float64) swapPool {
	p := swapPool{symbols: symbols, cdf: make([]float64, len(symbols))}
	for n, i := range symbols {
		p.cdf[n] = weight(i)
	}
	floats.CumSum(p.cdf, p.cdf)
	return p
}

// weight is the selection weight of the symbol at position n.
func (p swapPool) weight(n int) float64 {
	if n == 0 {
		return p.cdf[0]
	}
	return p.cdf[n] - p.cdf[n-1]
}

func (p swapPool) search(x float64) int {
	n := sort.Search(len(p.cdf), func(i int) bool { return p.cdf[i] > x })
	if n == len(p.cdf) {
		n--
	}
	return n
}

// pair draws two distinct symbols: the first by weight, the second by
// weight among the rest. The pool must hold at least two symbols.
func (p swapPool) pair(rng *rand.Rand) (int, int) {
	total := p.cdf[len(p.cdf)-1]
	a := p.search(rng.Float64() * total)

	w := p.weight(a)
	lo := p.cdf[a] - w
	x := rng.Float64() * (total - w)
	if x >= lo {
		x += w
	}
	b := p.search(x)
	if b == a {
		// x rounded onto a's own interval.
		b++
		if b == len(p.symbols) {
			b = a - 1
		}
	}
	return p.symbols[a], p.symbols[b]
}

// Proposer draws single transpositions of the key. Symbols whose corpus
// frequency is far from the mean are drawn more often. The pool choice and
// the weights depend only on the statistics, never on the key, so the move
// from s to s' is exactly as likely as the move back.
//
// A Proposer is read-only after construction and may be shared between
// goroutines, each with its own rng.
type Proposer struct {
	pools [3]swapPool
	mix   [3]float64
}

// NewProposer precomputes the swap pools for st.
func NewProposer(st *corpus.Stats, opts ProposalOptions) (*Proposer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	a := st.Alphabet()
	freq := st.Frequencies()
	mean := floats.Sum(freq) / float64(len(freq))
	weight := func(i int) float64 { return math.Abs(freq[i]-mean) + opts.Epsilon }

	p := &Proposer{}
	p.pools[0] = newSwapPool(a.Indices(alphabet.Letter), weight)
	p.pools[1] = newSwapPool(a.Indices(alphabet.Other), weight)
	p.pools[2] = newSwapPool(IdentityKey(a.Size()), weight)
	p.mix = [3]float64{opts.LetterWeight, opts.OtherWeight, 1 - opts.LetterWeight - opts.OtherWeight}

	usable := false
	for n, pool := range p.pools {
		if p.mix[n] > 0 && len(pool.symbols) >= 2 {
			usable = true
		}
	}
	if !usable {
		return nil, fmt.Errorf("%w: no weighted pool has two symbols", ErrBadProposal)
	}
	return p, nil
}

// Pair draws the two distinct symbols whose images are swapped next.
func (p *Proposer) Pair(rng *rand.Rand) (int, int) {
	return p.pools[p.choosePool(rng)].pair(rng)
}

// choosePool picks a pool by mixture weight, drawing again when the pick has
// fewer than two symbols.
func (p *Proposer) choosePool(rng *rand.Rand) int {
	for {
		u := rng.Float64()
		n := 0
		for ; n < len(p.mix)-1; n++ {
			if u < p.mix[n] {
				break
			}
			u -= p.mix[n]
		}
		if p.mix[n] > 0 && len(p.pools[n].symbols) >= 2 {
			return n
		}
	}
}

// Propose returns s with the images of one pair of symbols exchanged.
func (p *Proposer) Propose(s State, rng *rand.Rand) State {
	i, j := p.Pair(rng)
	return s.withKey(s.key.Swap(i, j))
}

// PairProbability is the probability that one call to Pair selects the
// unordered pair {i, j}.
func (p *Proposer) PairProbability(i, j int) float64 {
	if i == j {
		return 0
	}
	usable := 0.0
	for n, pool := range p.pools {
		if len(pool.symbols) >= 2 {
			usable += p.mix[n]
		}
	}

	prob := 0.0
	for n, pool := range p.pools {
		if len(pool.symbols) < 2 || p.mix[n] == 0 {
			continue
		}
		qi, qj := pool.share(i), pool.share(j)
		if qi == 0 || qj == 0 {
			continue
		}
		prob += p.mix[n] / usable * qi * qj * (1/(1-qi) + 1/(1-qj))
	}
	return prob
}

// share is the normalised selection weight of symbol i in the pool.
func (p swapPool) share(i int) float64 {
	for n, s := range p.symbols {
		if s == i {
			return p.weight(n) / p.cdf[len(p.cdf)-1]
		}
	}
	return 0
}

// Package corpus turns training text into the statistics the decipherer
// scores candidate keys against: a per-symbol frequency table and a
// first-order transition matrix.
package corpus

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jmccarv/decipher/internal/alphabet"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// Epsilon is added to transition probabilities before taking logs.
	Epsilon = 1e-8
	// FrequencyFloor is the smallest initial-symbol probability used.
	FrequencyFloor = 1e-8
)

var (
	ErrEmptyCorpus  = errors.New("corpus has no symbols from the alphabet")
	ErrBadSmoothing = errors.New("transition pseudo-count must be positive")
	ErrBadStats     = errors.New("inconsistent statistics")
)

// Smoothing holds the pseudo-counts added to every cell before
// normalisation.
type Smoothing struct {
	Transition float64 `yaml:"transition_pseudocount"`
	Frequency  float64 `yaml:"frequency_pseudocount"`
}

// DefaultSmoothing is Laplace smoothing on both tables.
func DefaultSmoothing() Smoothing {
	return Smoothing{Transition: 1, Frequency: 1}
}

// Stats is the trained language model. It is never modified after
// construction and may be shared between goroutines.
type Stats struct {
	alpha    *alphabet.Alphabet
	freq     []float64
	trans    *mat.Dense
	logTrans *mat.Dense
	logInit  []float64
}

// Build counts symbols and adjacent pairs in text, a sequence of indices of
// a.
func Build(a *alphabet.Alphabet, text []int, sm Smoothing) (*Stats, error) {
	if len(text) == 0 {
		return nil, ErrEmptyCorpus
	}
	if sm.Transition <= 0 {
		return nil, ErrBadSmoothing
	}
	if sm.Frequency < 0 {
		return nil, fmt.Errorf("%w: negative frequency pseudo-count", ErrBadSmoothing)
	}

	k := a.Size()
	freq := make([]float64, k)
	for i := range freq {
		freq[i] = sm.Frequency
	}
	trans := mat.NewDense(k, k, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			trans.Set(i, j, sm.Transition)
		}
	}

	for n, c := range text {
		freq[c]++
		if n+1 < len(text) {
			next := text[n+1]
			trans.Set(c, next, trans.At(c, next)+1)
		}
	}

	for i := 0; i < k; i++ {
		row := trans.RawRowView(i)
		floats.Scale(1/floats.Sum(row), row)
	}

	return NewStats(a, freq, trans)
}

// BuildFile reads, cleans and counts the corpus at path.
func BuildFile(a *alphabet.Alphabet, path string, sm Smoothing) (*Stats, error) {
	text, err := CleanFile(a, path)
	if err != nil {
		return nil, err
	}
	st, err := Build(a, text, sm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// NewStats wraps precomputed tables. trans must be K×K with strictly
// positive entries and rows summing to one; freq must have length K.
func NewStats(a *alphabet.Alphabet, freq []float64, trans *mat.Dense) (*Stats, error) {
	k := a.Size()
	if len(freq) != k {
		return nil, fmt.Errorf("%w: %d frequencies for %d symbols", ErrBadStats, len(freq), k)
	}
	if r, c := trans.Dims(); r != k || c != k {
		return nil, fmt.Errorf("%w: transition matrix is %dx%d, want %dx%d", ErrBadStats, r, c, k, k)
	}
	for i := 0; i < k; i++ {
		row := trans.RawRowView(i)
		if floats.Min(row) <= 0 {
			return nil, fmt.Errorf("%w: row %d has a non-positive entry", ErrBadStats, i)
		}
		if s := floats.Sum(row); math.Abs(s-1) > 1e-9 {
			return nil, fmt.Errorf("%w: row %d sums to %g", ErrBadStats, i, s)
		}
	}

	st := &Stats{
		alpha: a,
		freq:  append([]float64(nil), freq...),
		trans: mat.DenseCopyOf(trans),
	}

	st.logTrans = mat.NewDense(k, k, nil)
	st.logTrans.Apply(func(_, _ int, v float64) float64 {
		return math.Log(v + Epsilon)
	}, st.trans)

	total := floats.Sum(st.freq)
	st.logInit = make([]float64, k)
	for i, f := range st.freq {
		p := 0.0
		if total > 0 {
			p = f / total
		}
		st.logInit[i] = math.Log(math.Max(p, FrequencyFloor))
	}
	return st, nil
}

func (s *Stats) Alphabet() *alphabet.Alphabet { return s.alpha }

// Size is the alphabet size K.
func (s *Stats) Size() int { return len(s.freq) }

// Frequency returns the (smoothed) occurrence count of symbol i.
func (s *Stats) Frequency(i int) float64 { return s.freq[i] }

// Frequencies returns a copy of the frequency table.
func (s *Stats) Frequencies() []float64 { return append([]float64(nil), s.freq...) }

// Transition is the probability that j follows i.
func (s *Stats) Transition(i, j int) float64 { return s.trans.At(i, j) }

// LogInitial is the log-probability of a text starting with symbol i.
func (s *Stats) LogInitial(i int) float64 { return s.logInit[i] }

// LogTransition is log(Transition(i, j) + Epsilon).
func (s *Stats) LogTransition(i, j int) float64 { return s.logTrans.At(i, j) }

// LogTransitionRow returns row i of the log transition matrix. The slice
// aliases internal storage and must not be modified.
func (s *Stats) LogTransitionRow(i int) []float64 { return s.logTrans.RawRowView(i) }

// Share is one symbol's part of the corpus.
type Share struct {
	Symbol rune
	Count  float64
	Pct    float64
}

// Shares lists every symbol by descending share of the frequency table.
func (s *Stats) Shares() []Share {
	total := floats.Sum(s.freq)
	shares := make([]Share, len(s.freq))
	for i, f := range s.freq {
		shares[i] = Share{Symbol: s.alpha.Symbol(i), Count: f}
		if total > 0 {
			shares[i].Pct = f / total
		}
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].Pct > shares[j].Pct })
	return shares
}

// WriteShares prints the frequency table, perLine symbols per line.
func (s *Stats) WriteShares(w io.Writer, perLine int) error {
	if perLine < 1 {
		perLine = 10
	}
	for n, sh := range s.Shares() {
		sep := "  "
		if (n+1)%perLine == 0 {
			sep = "\n"
		}
		if _, err := fmt.Fprintf(w, "%q %5.2f%s", sh.Symbol, sh.Pct*100, sep); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

package solver

import (
	"errors"
	"fmt"

	"github.com/jmccarv/decipher/internal/corpus"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyText        = errors.New("ciphertext has no symbols from the alphabet")
	ErrAlphabetTooSmall = errors.New("alphabet needs at least two symbols")
	ErrSymbolOutOfRange = errors.New("ciphertext symbol outside the alphabet")
)

// State is one point of the search: the fixed ciphertext and statistics plus
// the key currently hypothesised. States are values; nothing reachable from
// a State is modified after construction, so trajectories running in
// parallel may share the ciphertext, counts and statistics.
type State struct {
	text   []int
	stats  *corpus.Stats
	key    Key
	counts *mat.Dense
	rows   []int
}

// NewState checks its inputs and precomputes the ciphertext transition
// counts. A nil key means the identity.
func NewState(text []int, st *corpus.Stats, key Key) (State, error) {
	k := st.Size()
	if k < 2 {
		return State{}, ErrAlphabetTooSmall
	}
	if len(text) == 0 {
		return State{}, ErrEmptyText
	}
	for _, c := range text {
		if c < 0 || c >= k {
			return State{}, fmt.Errorf("%w: %d", ErrSymbolOutOfRange, c)
		}
	}
	if key == nil {
		key = IdentityKey(k)
	}
	if !key.Valid(k) {
		return State{}, ErrInvalidKey
	}

	counts := TransitionCounts(text, k)
	var rows []int
	for i := 0; i < k; i++ {
		if mat.Sum(counts.RowView(i)) > 0 {
			rows = append(rows, i)
		}
	}

	return State{
		text:   append([]int(nil), text...),
		stats:  st,
		key:    append(Key(nil), key...),
		counts: counts,
		rows:   rows,
	}, nil
}

// TransitionCounts counts adjacent pairs: entry (i, j) is the number of
// times j directly follows i in text.
func TransitionCounts(text []int, size int) *mat.Dense {
	counts := mat.NewDense(size, size, nil)
	for n := 0; n+1 < len(text); n++ {
		i, j := text[n], text[n+1]
		counts.Set(i, j, counts.At(i, j)+1)
	}
	return counts
}

// WithKey returns a State that differs from s only in its key.
func (s State) WithKey(key Key) (State, error) {
	if !key.Valid(s.stats.Size()) {
		return State{}, ErrInvalidKey
	}
	return s.withKey(append(Key(nil), key...)), nil
}

// withKey takes ownership of key without checking it.
func (s State) withKey(key Key) State {
	s.key = key
	return s
}

// Text is the ciphertext as symbol indices. Callers must not modify it.
func (s State) Text() []int { return s.text }

func (s State) Stats() *corpus.Stats { return s.stats }

// Key returns a copy of the current key.
func (s State) Key() Key { return append(Key(nil), s.key...) }

// Decode maps the ciphertext through the key.
func (s State) Decode() []int { return s.key.Apply(s.text) }

// DecodedString is Decode rendered with the statistics' alphabet.
func (s State) DecodedString() string {
	return s.stats.Alphabet().String(s.Decode())
}

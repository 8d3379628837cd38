package solver

import (
	"strings"
	"testing"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/stretchr/testify/require"
)

const english = `It was the best of times, it was the worst of times, it was the age of
wisdom, it was the age of foolishness, it was the epoch of belief, it was the
epoch of incredulity, it was the season of Light, it was the season of
Darkness, it was the spring of hope, it was the winter of despair, we had
everything before us, we had nothing before us, we were all going direct to
Heaven, we were all going direct the other way. In short, the period was so
far like the present period, that some of its noisiest authorities insisted
on its being received, for good or for evil, in the superlative degree of
comparison only.`

func train(t testing.TB, a *alphabet.Alphabet, text string) *corpus.Stats {
	t.Helper()
	st, err := corpus.Build(a, corpus.Clean(a, text), corpus.DefaultSmoothing())
	require.NoError(t, err)
	return st
}

func mustState(t testing.TB, st *corpus.Stats, text string, key Key) State {
	t.Helper()
	s, err := NewState(corpus.Clean(st.Alphabet(), text), st, key)
	require.NoError(t, err)
	return s
}

func catCorpus() string {
	return strings.Repeat("the cat sat on the mat ", 50)
}

func hamming(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for i := range ra {
		if i >= len(rb) || ra[i] != rb[i] {
			n++
		}
	}
	if len(rb) > len(ra) {
		n += len(rb) - len(ra)
	}
	return n
}

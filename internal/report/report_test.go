package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/jmccarv/decipher/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_PassesThroughUnknown(t *testing.T) {
	a := alphabet.Full()
	ia, _ := a.Index('a')
	ib, _ := a.Index('b')
	key := solver.IdentityKey(a.Size()).Swap(ia, ib)

	assert.Equal(t, "bab\n\t~a", Decode(a, key, "aba\n\t~b"))
}

func TestDecode_FoldsForLowerAlphabet(t *testing.T) {
	a := alphabet.Lower()
	assert.Equal(t, "the cat, sat", Decode(a, solver.IdentityKey(a.Size()), "The Cat, sat"))
}

func TestGroundTruth_FirstSeenWins(t *testing.T) {
	gt := GroundTruth([]int{1, 2, 1, 3}, []int{5, 6, 7})
	assert.Equal(t, map[int]int{1: 5, 2: 6}, gt)
}

func TestMappingAccuracy_Groups(t *testing.T) {
	a := alphabet.Full()
	ix := func(r rune) int { i, _ := a.Index(r); return i }

	key := solver.IdentityKey(a.Size())
	gt := map[int]int{
		ix('a'): ix('a'),
		ix('b'): ix('c'),
		ix(' '): ix(' '),
	}
	m := MappingAccuracy(a, key, gt)
	require.NotNil(t, m.Overall)
	assert.Equal(t, Score{Correct: 2, Total: 3, Rate: 2.0 / 3.0}, *m.Overall)
	assert.Equal(t, Score{Correct: 1, Total: 2, Rate: 0.5}, *m.Letters)
	assert.Equal(t, Score{Correct: 1, Total: 1, Rate: 1}, *m.Others)

	m = MappingAccuracy(a, key, map[int]int{ix('x'): ix('x')})
	assert.Nil(t, m.Others)
}

func TestCharAccuracy(t *testing.T) {
	rate, errs := CharAccuracy([]int{1, 2, 3, 4}, []int{1, 9, 3, 9})
	assert.Equal(t, 0.5, rate)
	assert.Equal(t, 2, errs)

	rate, errs = CharAccuracy(nil, nil)
	assert.Zero(t, rate)
	assert.Zero(t, errs)
}

func TestWordAccuracy(t *testing.T) {
	assert.Equal(t, 0.5, WordAccuracy("a cat sat on", "a bat sat in"))
	assert.Equal(t, 1.0, WordAccuracy("a cat", "a cat sat"))
	assert.Zero(t, WordAccuracy("", "x"))
}

func solved(t *testing.T) (solver.Result, solver.State, string) {
	t.Helper()
	a := alphabet.Lower()
	st, err := corpus.Build(a, corpus.Clean(a, strings.Repeat("the cat sat on the mat ", 20)), corpus.DefaultSmoothing())
	require.NoError(t, err)

	raw := "The Cat\nsat!"
	init, err := solver.NewState(corpus.Clean(a, raw), st, nil)
	require.NoError(t, err)
	p, err := solver.NewProposer(st, solver.DefaultProposalOptions())
	require.NoError(t, err)

	res, err := solver.Solve(context.Background(), init, p.Propose, solver.LogLikelihood,
		solver.Options{Iterations: 200, CheckEvery: 100, Restarts: 2, Top: 3, Seed: 9}, nil)
	require.NoError(t, err)
	return res, init, raw
}

func TestNew_BuildsGuesses(t *testing.T) {
	res, init, raw := solved(t)
	identity := solver.LogLikelihood(init)
	ref := NewReference(alphabet.Lower(), init.Text(), "the cat sat")

	r := New("run-1", raw, identity, res, ref)
	assert.Equal(t, "lower", r.Alphabet)
	require.Len(t, r.Restarts, 2)
	require.Len(t, r.Guesses, len(res.Ranked))

	g := r.Guesses[0]
	assert.Equal(t, 1, g.Rank)
	assert.Equal(t, res.Ranked[0].LogLik-identity, g.Delta)
	assert.Equal(t, len([]rune(raw)), len([]rune(g.Decoded)))
	assert.Contains(t, g.Decoded, "\n")
	require.NotNil(t, g.Accuracy)
	assert.NotNil(t, g.Accuracy.Mapping.Overall)
}

func TestRender_Text(t *testing.T) {
	res, init, raw := solved(t)
	r := New("run-2", raw, solver.LogLikelihood(init), res, NewReference(alphabet.Lower(), init.Text(), "the cat sat"))

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, RenderOptions{Width: 40}))
	out := buf.String()
	assert.Contains(t, out, "Run run-2 (lower alphabet)")
	assert.Contains(t, out, "Guess 1  |  logP")
	assert.Contains(t, out, "char ")
	assert.Contains(t, out, strings.Repeat("=", 40))
}

func TestRender_PreviewClipsLongText(t *testing.T) {
	r := Report{Guesses: []Guess{{Rank: 1, Decoded: strings.Repeat("x", 500)}}}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r, RenderOptions{Width: 30}))
	for _, line := range strings.Split(buf.String(), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 30)
	}

	buf.Reset()
	require.NoError(t, Render(&buf, r, RenderOptions{Width: 30, Full: true}))
	assert.Contains(t, buf.String(), strings.Repeat("x", 500))
}

func TestTerminalWidth_NonTerminal(t *testing.T) {
	assert.Equal(t, 80, TerminalWidth(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "report.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, 80, TerminalWidth(f))
}

func TestWriteJSON(t *testing.T) {
	res, init, raw := solved(t)
	r := New("run-3", raw, solver.LogLikelihood(init), res, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))

	var back Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "run-3", back.RunID)
	require.NotEmpty(t, back.Guesses)
	assert.Nil(t, back.Guesses[0].Accuracy)
}

package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogLikelihood scores s by the log-probability of its decoding under the
// trained Markov model. It sums the ciphertext transition counts against the
// log transition matrix reindexed through the key, so the cost is O(K²)
// regardless of text length.
//
// A key or text the statistics cannot cover scores -Inf.
func LogLikelihood(s State) float64 {
	p, ok := logInitial(s)
	if !ok {
		return math.Inf(-1)
	}

	k := s.stats.Size()
	row := make([]float64, k)
	for _, a := range s.rows {
		logRow := s.stats.LogTransitionRow(s.key[a])
		for b := range row {
			row[b] = logRow[s.key[b]]
		}
		p += floats.Dot(s.counts.RawRowView(a), row)
	}
	return p
}

// DirectLogLikelihood computes the same value as LogLikelihood by walking
// the text. It is linear in the text length.
func DirectLogLikelihood(s State) float64 {
	p, ok := logInitial(s)
	if !ok {
		return math.Inf(-1)
	}

	prev := s.key[s.text[0]]
	for _, c := range s.text[1:] {
		cur := s.key[c]
		p += s.stats.LogTransition(prev, cur)
		prev = cur
	}
	return p
}

// logInitial checks that the key and text are covered by the statistics and
// returns the log-probability of the first decoded symbol.
func logInitial(s State) (float64, bool) {
	if s.stats == nil || len(s.text) == 0 {
		return 0, false
	}
	k := s.stats.Size()
	if len(s.key) != k {
		return 0, false
	}
	for _, v := range s.key {
		if v < 0 || v >= k {
			return 0, false
		}
	}
	first := s.text[0]
	if first < 0 || first >= k {
		return 0, false
	}
	return s.stats.LogInitial(s.key[first]), true
}

// Package report turns ranked solver output into something a person can
// read: the raw text decoded through each guess and, when the plaintext is
// known, how close each guess came.
package report

import (
	"strings"

	"github.com/jmccarv/decipher/internal/alphabet"
	"github.com/jmccarv/decipher/internal/corpus"
	"github.com/jmccarv/decipher/internal/solver"
)

// Decode maps every alphabet symbol of raw through key and copies every
// other character unchanged.
func Decode(a *alphabet.Alphabet, key solver.Key, raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if i, ok := a.Index(r); ok {
			b.WriteRune(a.Symbol(key[i]))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Reference is the known plaintext of a ciphertext.
type Reference struct {
	// Symbols is the cleaned plaintext, cut to the ciphertext's length.
	Symbols []int
	// GroundTruth maps each cipher symbol to the plaintext symbol it first
	// lined up with.
	GroundTruth map[int]int
}

// NewReference cleans raw the same way the ciphertext was cleaned and pairs
// it with cipher position by position.
func NewReference(a *alphabet.Alphabet, cipher []int, raw string) *Reference {
	plain := corpus.Clean(a, raw)
	if len(plain) > len(cipher) {
		plain = plain[:len(cipher)]
	}
	return &Reference{Symbols: plain, GroundTruth: GroundTruth(cipher, plain)}
}

// GroundTruth pairs cipher and plain symbols, keeping the first plaintext
// seen for each cipher symbol.
func GroundTruth(cipher, plain []int) map[int]int {
	gt := make(map[int]int)
	for i := 0; i < len(cipher) && i < len(plain); i++ {
		if _, ok := gt[cipher[i]]; !ok {
			gt[cipher[i]] = plain[i]
		}
	}
	return gt
}

// Score is a correct/total count.
type Score struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Rate    float64 `json:"rate"`
}

func newScore(correct, total int) *Score {
	if total == 0 {
		return nil
	}
	return &Score{Correct: correct, Total: total, Rate: float64(correct) / float64(total)}
}

// Mapping is key correctness over the cipher symbols that occur in the text.
// Letters or Others is nil when no observed symbol falls in that group.
type Mapping struct {
	Overall *Score `json:"overall"`
	Letters *Score `json:"letters,omitempty"`
	Others  *Score `json:"others,omitempty"`
}

// MappingAccuracy checks key against the ground truth, split by group.
func MappingAccuracy(a *alphabet.Alphabet, key solver.Key, gt map[int]int) Mapping {
	var ok, total [2]int
	for c, p := range gt {
		g := a.Group(c)
		total[g]++
		if key[c] == p {
			ok[g]++
		}
	}
	return Mapping{
		Overall: newScore(ok[0]+ok[1], total[0]+total[1]),
		Letters: newScore(ok[alphabet.Letter], total[alphabet.Letter]),
		Others:  newScore(ok[alphabet.Other], total[alphabet.Other]),
	}
}

// CharAccuracy compares decoded and reference position by position. The
// rate is over the reference length.
func CharAccuracy(decoded, reference []int) (float64, int) {
	if len(reference) == 0 {
		return 0, 0
	}
	mismatches := 0
	for i := 0; i < len(decoded) && i < len(reference); i++ {
		if decoded[i] != reference[i] {
			mismatches++
		}
	}
	return 1 - float64(mismatches)/float64(len(reference)), mismatches
}

// WordAccuracy is the fraction of aligned words that match exactly, over the
// shorter of the two word lists.
func WordAccuracy(decoded, reference string) float64 {
	dw, rw := strings.Fields(decoded), strings.Fields(reference)
	n := min(len(dw), len(rw))
	if n == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < n; i++ {
		if dw[i] == rw[i] {
			correct++
		}
	}
	return float64(correct) / float64(n)
}

// Accuracy is every metric for one guess.
type Accuracy struct {
	Mapping    Mapping `json:"mapping"`
	Char       float64 `json:"char"`
	CharErrors int     `json:"char_errors"`
	Word       float64 `json:"word"`
}

// Measure scores s against ref.
func Measure(s solver.State, ref *Reference) Accuracy {
	a := s.Stats().Alphabet()
	decoded := s.Decode()
	char, errs := CharAccuracy(decoded, ref.Symbols)
	return Accuracy{
		Mapping:    MappingAccuracy(a, s.Key(), ref.GroundTruth),
		Char:       char,
		CharErrors: errs,
		Word:       WordAccuracy(a.String(decoded), a.String(ref.Symbols)),
	}
}

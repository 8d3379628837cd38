// Package alphabet defines the fixed, ordered symbol sets the decipherer works
// over and the bijection between symbols and matrix indices.
//
// Symbols are split into two groups: letters and everything else (digits,
// punctuation and space). The same grouping drives proposal pools and random
// key generation.
package alphabet

import (
	"errors"
	"fmt"
	"unicode"
)

// ErrUnknown is returned by ByName for an unrecognised alphabet name.
var ErrUnknown = errors.New("unknown alphabet")

// Group identifies which proposal pool a symbol belongs to.
type Group int

const (
	Letter Group = iota
	Other
)

func (g Group) String() string {
	switch g {
	case Letter:
		return "letter"
	case Other:
		return "other"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

const (
	upperSet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerSet = "abcdefghijklmnopqrstuvwxyz"
	digitSet = "0123456789"
	punctSet = ",.;:?!-()\"/\\@#&%$_^"
)

// Alphabet is an immutable ordered symbol set. Safe for concurrent use.
type Alphabet struct {
	name    string
	symbols []rune
	groups  []Group
	index   map[rune]int
	fold    bool
}

func newAlphabet(name string, fold bool, set string) *Alphabet {
	a := &Alphabet{
		name:  name,
		index: make(map[rune]int, len(set)),
		fold:  fold,
	}
	for _, r := range set {
		if _, ok := a.index[r]; ok {
			continue
		}
		a.index[r] = len(a.symbols)
		a.symbols = append(a.symbols, r)
		if unicode.IsLetter(r) {
			a.groups = append(a.groups, Letter)
		} else {
			a.groups = append(a.groups, Other)
		}
	}
	return a
}

var (
	full  = newAlphabet("full", false, upperSet+lowerSet+digitSet+punctSet+" ")
	lower = newAlphabet("lower", true, lowerSet+" ")
)

// Full returns the 82 symbol alphabet: both letter cases, digits,
// punctuation and space.
func Full() *Alphabet { return full }

// Lower returns the 27 symbol alphabet of lowercase letters and space. Input
// is case folded before lookup.
func Lower() *Alphabet { return lower }

// ByName returns the alphabet called name ("full" or "lower").
func ByName(name string) (*Alphabet, error) {
	switch name {
	case "", "full":
		return full, nil
	case "lower":
		return lower, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
}

func (a *Alphabet) Name() string { return a.name }

// Size is the number of symbols, K.
func (a *Alphabet) Size() int { return len(a.symbols) }

// Symbol returns the symbol at index i.
func (a *Alphabet) Symbol(i int) rune { return a.symbols[i] }

// Group returns the group of the symbol at index i.
func (a *Alphabet) Group(i int) Group { return a.groups[i] }

// Fold applies the alphabet's case folding to r.
func (a *Alphabet) Fold(r rune) rune {
	if a.fold {
		return unicode.ToLower(r)
	}
	return r
}

// Index returns the index of r after folding.
func (a *Alphabet) Index(r rune) (int, bool) {
	i, ok := a.index[a.Fold(r)]
	return i, ok
}

// Indices returns the indices of every symbol in group g, in alphabet order.
func (a *Alphabet) Indices(g Group) []int {
	var ix []int
	for i, sg := range a.groups {
		if sg == g {
			ix = append(ix, i)
		}
	}
	return ix
}

// Encode converts s to symbol indices, dropping runes not in the alphabet.
func (a *Alphabet) Encode(s string) []int {
	ix := make([]int, 0, len(s))
	for _, r := range s {
		if i, ok := a.Index(r); ok {
			ix = append(ix, i)
		}
	}
	return ix
}

// String converts symbol indices back to text.
func (a *Alphabet) String(ix []int) string {
	rs := make([]rune, len(ix))
	for n, i := range ix {
		rs[n] = a.symbols[i]
	}
	return string(rs)
}

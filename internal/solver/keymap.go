package solver

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/jmccarv/decipher/internal/alphabet"
)

var ErrInvalidKey = errors.New("key is not a permutation of the alphabet")

// Key is a permutation map over symbol indices: Key[c] is the plaintext
// symbol that ciphertext symbol c decodes to. Keys are treated as values;
// every operation returning a Key returns a fresh slice.
type Key []int

// IdentityKey maps every symbol to itself.
func IdentityKey(size int) Key {
	k := make(Key, size)
	for i := range k {
		k[i] = i
	}
	return k
}

// RandomKey shuffles letters among letters and every other symbol among the
// other symbols.
func RandomKey(a *alphabet.Alphabet, rng *rand.Rand) Key {
	k := IdentityKey(a.Size())
	for _, g := range []alphabet.Group{alphabet.Letter, alphabet.Other} {
		ix := a.Indices(g)
		images := append([]int(nil), ix...)
		rng.Shuffle(len(images), func(i, j int) { images[i], images[j] = images[j], images[i] })
		for n, i := range ix {
			k[i] = images[n]
		}
	}
	return k
}

// ParseKey reads a key written by Encode: the image of every symbol, in
// alphabet order. A trailing line break is ignored.
func ParseKey(a *alphabet.Alphabet, s string) (Key, error) {
	s = strings.TrimRight(s, "\r\n")
	rs := []rune(s)
	if len(rs) != a.Size() {
		return nil, fmt.Errorf("%w: %d symbols, want %d", ErrInvalidKey, len(rs), a.Size())
	}

	k := make(Key, len(rs))
	for i, r := range rs {
		j, ok := a.Index(r)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not in the %s alphabet", ErrInvalidKey, r, a.Name())
		}
		k[i] = j
	}
	if !k.Valid(a.Size()) {
		return nil, fmt.Errorf("%w: repeated image", ErrInvalidKey)
	}
	return k, nil
}

// Valid reports whether k is a bijection on [0, size).
func (k Key) Valid(size int) bool {
	if len(k) != size {
		return false
	}
	used := make([]bool, size)
	for _, v := range k {
		if v < 0 || v >= size || used[v] {
			return false
		}
		used[v] = true
	}
	return true
}

// Swap returns a copy of k with the images of i and j exchanged.
func (k Key) Swap(i, j int) Key {
	n := append(Key(nil), k...)
	n[i], n[j] = n[j], n[i]
	return n
}

// Inverse returns the key that undoes k.
func (k Key) Inverse() Key {
	inv := make(Key, len(k))
	for c, p := range k {
		inv[p] = c
	}
	return inv
}

// Apply maps every index of text through k.
func (k Key) Apply(text []int) []int {
	out := make([]int, len(text))
	for i, c := range text {
		out[i] = k[c]
	}
	return out
}

// Equal reports whether k and o map every symbol the same way.
func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if k[i] != o[i] {
			return false
		}
	}
	return true
}

// Encode writes the image of every symbol in alphabet order. ParseKey reads
// it back.
func (k Key) Encode(a *alphabet.Alphabet) string {
	var b strings.Builder
	for _, p := range k {
		b.WriteRune(a.Symbol(p))
	}
	return b.String()
}

// Format lists the non-identity mappings as cipher=plain pairs.
func (k Key) Format(a *alphabet.Alphabet) string {
	var b strings.Builder
	for c, p := range k {
		if c == p {
			continue
		}
		fmt.Fprintf(&b, "%c=%c ", a.Symbol(c), a.Symbol(p))
	}
	return strings.TrimSpace(b.String())
}

// id is a compact identity for deduplication.
func (k Key) id() string {
	b := make([]byte, 0, 2*len(k))
	for _, v := range k {
		b = append(b, byte(v), byte(v>>8))
	}
	return string(b)
}

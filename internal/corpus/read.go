package corpus

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jmccarv/decipher/internal/alphabet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadFile reads a text file of unknown encoding. A UTF-8 or UTF-16 byte
// order mark selects that encoding; otherwise the bytes are UTF-8 if valid
// and Latin-1 if not.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	s, err := Decode(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode converts raw bytes to a string using the rules of ReadFile.
func Decode(data []byte) (string, error) {
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(data) {
		fallback = charmap.ISO8859_1.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	return strings.ReplaceAll(string(out), "\r\n", "\n"), nil
}

// Clean collapses every run of whitespace to a single space and keeps only
// the symbols of a, returned as indices.
func Clean(a *alphabet.Alphabet, text string) []int {
	return a.Encode(strings.Join(strings.Fields(text), " "))
}

// CleanFile is ReadFile followed by Clean.
func CleanFile(a *alphabet.Alphabet, path string) ([]int, error) {
	text, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Clean(a, text), nil
}

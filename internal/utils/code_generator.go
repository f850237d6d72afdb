package utils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// CodeAlphabet is the character set of promo code suffixes
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString draws n characters uniformly and independently from alphabet
func RandomString(alphabet string, n int) (string, error) {
	return RandomStringFrom(rand.Reader, alphabet, n)
}

// RandomStringFrom is RandomString with an explicit entropy source
func RandomStringFrom(reader io.Reader, alphabet string, n int) (string, error) {
	if len(alphabet) == 0 {
		return "", fmt.Errorf("empty alphabet")
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random character: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}

	return string(out), nil
}

// Package randtext generates short human-typable random strings for
// recovery codes, reset secrets and generated passwords.
package randtext

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Alnum returns n random characters drawn uniformly from [a-zA-Z0-9].
func Alnum(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphabet)))

	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}

	return string(out), nil
}

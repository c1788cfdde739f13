package mindset

import (
	"encoding/hex"
	"os"

	"golang.org/x/crypto/sha3"

	"github.com/dreamer-coding/fossil-jellyfish/chain"
)

// HashChainFile returns the lowercase-hex SHA3-256 digest of the bytes at
// path, used as a Model's content_hash. It is informational only — a
// chain's integrity comes from each block's own fingerprint and signature,
// not from this digest.
func HashChainFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", chain.NewError(chain.ErrIOFailure, err.Error())
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

package chain

import (
	"encoding/hex"

	"github.com/dreamer-coding/fossil-jellyfish/block"
	"github.com/dreamer-coding/fossil-jellyfish/mixer"
)

// DefaultSignKey is the literal text used as the key when Sign is called
// with no key bytes.
const DefaultSignKey = "default-key"

// MaxSignKeyBytes is the maximum number of key bytes folded into a
// signature; longer keys are truncated before hex-encoding.
const MaxSignKeyBytes = 32

// signNonce is the fixed nonce Sign/Verify pass to the Mixer. Unlike a
// block's admission fingerprint (which folds in a fresh microsecond nonce
// so it is not expected to be reproducible across calls), a signature
// must be recomputable on demand, so it always mixes with nonce 0.
const signNonce uint64 = 0

// signatureInputs builds the (input, output) pair the Mixer is re-applied
// over: the hex of the block's fingerprint, and the hex (or literal
// DefaultSignKey) of the signing key.
func signatureInputs(b *block.Block, key []byte) (hashHex string, keyHex string) {
	hashHex = hex.EncodeToString(b.Hash[:])
	if len(key) == 0 {
		return hashHex, DefaultSignKey
	}
	if len(key) > MaxSignKeyBytes {
		key = key[:MaxSignKeyBytes]
	}
	return hashHex, hex.EncodeToString(key)
}

// Sign computes b.Signature by re-applying the Fingerprint Mixer over
// (hex(b.Hash), key-hex-or-DefaultSignKey) and writes the result into
// b.Signature.
func Sign(b *block.Block, key []byte) {
	if b == nil {
		return
	}
	hashHex, keyHex := signatureInputs(b, key)
	b.Signature = mixer.Fingerprint([]byte(hashHex), []byte(keyHex), signNonce)
}

// Verify recomputes the signature b should carry for key and reports
// whether it matches b.Signature.
func Verify(b *block.Block, key []byte) bool {
	if b == nil {
		return false
	}
	hashHex, keyHex := signatureInputs(b, key)
	want := mixer.Fingerprint([]byte(hashHex), []byte(keyHex), signNonce)
	return want == b.Signature
}

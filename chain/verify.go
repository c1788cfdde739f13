package chain

import (
	"encoding/binary"
	"math/bits"

	"github.com/dreamer-coding/fossil-jellyfish/block"
	"github.com/dreamer-coding/fossil-jellyfish/mixer"
)

// TrustedConfidenceFloor is the confidence threshold a block must clear,
// in addition to being immutable, to count toward TrustScore.
const TrustedConfidenceFloor = 0.9

// VerifyBlock reports whether b looks like a genuine admitted block:
// non-empty input and output, and a non-zero fingerprint.
func VerifyBlock(b *block.Block) bool {
	if b == nil {
		return false
	}
	return b.Input.Len() > 0 && b.Output.Len() > 0 && !mixer.IsZero(b.Hash)
}

// VerifyChain reports whether every block in [0, Count) verifies.
func (c *Chain) VerifyChain() bool {
	if c == nil {
		return false
	}
	for i := 0; i < c.Count; i++ {
		if !VerifyBlock(&c.Blocks[i]) {
			return false
		}
	}
	return true
}

// TrustScore is the mean confidence across valid, immutable blocks with
// confidence >= TrustedConfidenceFloor, or 0.0 if there are none.
func (c *Chain) TrustScore() float64 {
	if c == nil {
		return 0.0
	}
	var sum float64
	var n int
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if b.IsValid() && b.Immutable && b.Confidence >= TrustedConfidenceFloor {
			sum += b.Confidence
			n++
		}
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// KnowledgeCoverage is the ratio of fully-valid blocks (see
// block.Block.FullyValid) to Count, or 0.0 for an empty chain.
func (c *Chain) KnowledgeCoverage() float64 {
	if c == nil || c.Count == 0 {
		return 0.0
	}
	var n int
	for i := 0; i < c.Count; i++ {
		if c.Blocks[i].FullyValid() {
			n++
		}
	}
	return float64(n) / float64(c.Count)
}

// ChainFingerprint is a pure function of the current valid blocks'
// (hash, timestamp, confidence, usage_count) and their position: it
// starts from a fixed 32-byte pattern (0xA5 XOR byte index), then folds
// each valid block's fingerprint and timestamp bytes in with a per-byte
// left rotation and a position-derived XOR mask, and finally XORs a
// confidence/usage_count byte into the slot keyed by the block's position
// among valid blocks.
func (c *Chain) ChainFingerprint() [32]byte {
	var out [32]byte
	for i := 0; i < 32; i++ {
		out[i] = 0xA5 ^ byte(i)
	}
	if c == nil {
		return out
	}

	position := 0
	for idx := 0; idx < c.Count; idx++ {
		b := &c.Blocks[idx]
		if !b.IsValid() {
			continue
		}
		var ts [8]byte
		binary.LittleEndian.PutUint64(ts[:], b.Timestamp)
		for j := 0; j < 32; j++ {
			out[j] ^= b.Hash[j] ^ ts[j%8]
			out[j] = bits.RotateLeft8(out[j], (j%7)+1)
			out[j] ^= byte((j*31 + position*17) & 0xff)
		}
		confByte := byte(b.Confidence * 255)
		usageByte := byte(b.UsageCount)
		out[position%32] ^= confByte ^ usageByte
		position++
	}
	return out
}

package block

// FingerprintSize and SignatureSize are both 32 bytes, matching the Mixer's
// fixed output width (fingerprints and signatures share one format).
const (
	FingerprintSize = 32
	SignatureSize   = 32
	DeviceIDSize    = 16
)

// Block is a single learned (input, output) association plus the metadata
// the chain, reasoner and decay engine need to manage its lifecycle.
//
// Block is a plain value type: the chain holds MAX_MEM of these inline, by
// value, with no pointers between blocks. Copying a Block is always safe and
// always a full, independent copy.
type Block struct {
	Input  BoundedString
	Output BoundedString

	Hash [FingerprintSize]byte

	Timestamp  uint64
	DeltaMs    uint32
	DurationMs uint32

	Valid      uint8
	Confidence float64
	UsageCount uint32
	Immutable  bool

	DeviceID  [DeviceIDSize]byte
	Signature [SignatureSize]byte
}

// IsValid reports whether the block is a live entry rather than a
// tombstone (Valid == 0).
func (b *Block) IsValid() bool {
	return b.Valid != 0
}

// MarkTombstone clears the valid flag, turning this slot into a tombstone
// reclaimable by a future Learn after Cleanup.
func (b *Block) MarkTombstone() {
	b.Valid = 0
}

// IsZero reports whether b is an unused slot: never admitted, always a
// tombstone with every field at its zero value.
func (b *Block) IsZero() bool {
	return *b == Block{}
}

// ClampConfidence clamps b.Confidence into [0.0, 1.0].
func (b *Block) ClampConfidence() {
	switch {
	case b.Confidence < 0.0:
		b.Confidence = 0.0
	case b.Confidence > 1.0:
		b.Confidence = 1.0
	}
}

// SameAssociation reports whether b and the given (input, output) pair
// refer to the same learned association, using the truncated-compare rule
// every admit/reinforce/lookup path relies on.
func (b *Block) SameAssociation(input, output string) bool {
	return b.Input.EqualString(input) && b.Output.EqualString(output)
}

// FullyValid reports whether b satisfies the "fully valid" predicate used
// by knowledge coverage reporting: valid, non-empty input/output, non-zero
// fingerprint, non-zero device id, non-zero signature, non-zero timestamp.
func (b *Block) FullyValid() bool {
	var zeroDevice [DeviceIDSize]byte
	var zeroSig [SignatureSize]byte
	var zeroHash [FingerprintSize]byte
	return b.IsValid() &&
		b.Input.Len() > 0 &&
		b.Output.Len() > 0 &&
		b.Hash != zeroHash &&
		b.DeviceID != zeroDevice &&
		b.Signature != zeroSig &&
		b.Timestamp != 0
}

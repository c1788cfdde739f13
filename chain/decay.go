package chain

import "math"

// MinHalfLifeSeconds is the floor Decay clamps its half-life parameter to.
const MinHalfLifeSeconds = 1.0

// Decay applies exponential confidence decay by block age using the
// current wall clock as "now". It does not compact the chain; pair it
// with Cleanup when dead blocks (confidence below MinSurvivingConfidence)
// should actually be reclaimed.
func (c *Chain) Decay(halfLifeSeconds float64) {
	if c == nil {
		return
	}
	c.DecayAt(halfLifeSeconds, nowUnix())
}

// DecayAt is the explicit-clock variant of Decay, used directly by tests
// that need to simulate elapsed time deterministically.
//
// halfLifeSeconds is clamped below at MinHalfLifeSeconds. For each valid
// block, age = now - timestamp (skipped if age <= 0); confidence is
// multiplied by 0.5^(age/halfLife), clamped to [0,1], and the block is
// marked invalid if the result drops below MinSurvivingConfidence.
func (c *Chain) DecayAt(halfLifeSeconds float64, now uint64) {
	if c == nil {
		return
	}
	if halfLifeSeconds < MinHalfLifeSeconds {
		halfLifeSeconds = MinHalfLifeSeconds
	}
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if !b.IsValid() {
			continue
		}
		if now <= b.Timestamp {
			continue
		}
		age := float64(now - b.Timestamp)
		b.Confidence *= math.Pow(0.5, age/halfLifeSeconds)
		b.ClampConfidence()
		if b.Confidence < MinSurvivingConfidence {
			b.MarkTombstone()
		}
	}
	c.UpdatedAt = now
}

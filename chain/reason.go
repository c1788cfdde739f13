package chain

import (
	"strings"

	"github.com/dreamer-coding/fossil-jellyfish/block"
)

// ReasonExactStep is the confidence bump applied to a block on a
// successful exact-match lookup (capped by ClampConfidence).
const ReasonExactStep = 0.05

// Reason answers query against the chain: an exact match wins first; if
// none exists, a fuzzy positional match is attempted; failing both, the
// Sentinel value is returned. Reason never fabricates an output — it only
// ever returns Sentinel or a value copied from a valid block.
func (c *Chain) Reason(query string) string {
	if c == nil {
		return Sentinel
	}
	if out, ok := c.ReasonExact(query); ok {
		return out
	}
	return c.ReasonFuzzy(query)
}

// ReasonExact performs the exact-match scan: the first valid block whose
// input equals query (truncated compare) wins. On a hit, the block's
// usage_count is incremented and, if its confidence is below 1.0, bumped
// by ReasonExactStep (clamped). Reason is a writer: a successful call
// mutates chain state.
func (c *Chain) ReasonExact(query string) (string, bool) {
	if c == nil {
		return Sentinel, false
	}
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if !b.IsValid() {
			continue
		}
		if b.Input.EqualString(query) {
			b.UsageCount++
			if b.Confidence < 1.0 {
				b.Confidence += ReasonExactStep
				b.ClampConfidence()
			}
			return b.Output.String(), true
		}
	}
	return Sentinel, false
}

// ReasonVerbose performs an exact-match-only scan (no fuzzy fallback) and
// returns the matched output, its confidence, the index of the matching
// block in Blocks, and whether a match was found. It does not mutate
// state: verbose reasoning is a read-only introspection path.
func (c *Chain) ReasonVerbose(query string) (output string, confidence float64, index int, found bool) {
	if c == nil {
		return Sentinel, 0.0, -1, false
	}
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if !b.IsValid() {
			continue
		}
		if b.Input.EqualString(query) {
			return b.Output.String(), b.Confidence, i, true
		}
	}
	return Sentinel, 0.0, -1, false
}

// ReasonFuzzy finds the valid block whose input minimizes the positional
// mismatch score against query and returns its output, or Sentinel if the
// best score still exceeds floor(len(query)/2) or the chain holds no
// valid blocks. The score is purely positional (not edit distance):
// equal-length prefix positions contribute 1 per differing lowercase
// character, and any leftover characters on either side (when lengths
// differ) contribute 1 per character.
func (c *Chain) ReasonFuzzy(query string) string {
	if c == nil {
		return Sentinel
	}
	bestScore := -1
	bestOutput := Sentinel
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if !b.IsValid() {
			continue
		}
		score := positionalScore(query, b.Input.String())
		if bestScore < 0 || score < bestScore {
			bestScore = score
			bestOutput = b.Output.String()
		}
	}
	if bestScore < 0 {
		return Sentinel
	}
	threshold := len(query) / 2
	if bestScore > threshold {
		return Sentinel
	}
	return bestOutput
}

// positionalScore computes the positional mismatch score between a and b:
// lowercase-compare over the shared prefix, plus one per leftover
// character on the longer side.
func positionalScore(a, b string) int {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	minLen := len(la)
	if len(lb) < minLen {
		minLen = len(lb)
	}
	score := 0
	for i := 0; i < minLen; i++ {
		if la[i] != lb[i] {
			score++
		}
	}
	score += len(la) - minLen
	score += len(lb) - minLen
	return score
}

// BestMemory returns the valid block with the given input (exact,
// truncated compare) and the highest confidence; ties prefer an
// immutable block over a mutable one. It returns false if no valid block
// has the given input.
// BestMemory returns a pointer to the matched slot directly in Blocks.
// Callers must not retain it across any mutating chain operation (Learn,
// Cleanup, Compact, Prune, Dedupe, Trim), since those can move or zero
// the underlying slot.
func (c *Chain) BestMemory(input string) (*block.Block, bool) {
	if c == nil {
		return nil, false
	}
	bestIdx := -1
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if !b.IsValid() || !b.Input.EqualString(input) {
			continue
		}
		if bestIdx < 0 {
			bestIdx = i
			continue
		}
		current := &c.Blocks[bestIdx]
		switch {
		case b.Confidence > current.Confidence:
			bestIdx = i
		case b.Confidence == current.Confidence && b.Immutable && !current.Immutable:
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return nil, false
	}
	return &c.Blocks[bestIdx], true
}

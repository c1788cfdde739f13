package chain

import (
	"sort"

	"github.com/dreamer-coding/fossil-jellyfish/block"
)

// Cleanup performs a stable compaction keeping every immutable block plus
// any block with valid=1 and confidence >= MinSurvivingConfidence. Removed
// slots are zeroed and Count is set to the number of survivors. Immutable
// blocks are never removed by Cleanup, regardless of confidence.
func (c *Chain) Cleanup() {
	if c == nil {
		return
	}
	c.compactKeep(func(b *block.Block) bool {
		return b.Immutable || (b.IsValid() && b.Confidence >= MinSurvivingConfidence)
	})
}

// Compact performs a stable compaction keeping every valid=1 block,
// regardless of confidence. Removed slots are zeroed.
func (c *Chain) Compact() {
	if c == nil {
		return
	}
	c.compactKeep(func(b *block.Block) bool {
		return b.IsValid()
	})
}

// Prune removes blocks that are invalid or below minConfidence, preserving
// the relative order of survivors. Immutable blocks are never removed by
// Prune, regardless of confidence. It returns the number of blocks removed.
func (c *Chain) Prune(minConfidence float64) int {
	if c == nil {
		return 0
	}
	before := c.Count
	c.compactKeep(func(b *block.Block) bool {
		return b.Immutable || (b.IsValid() && b.Confidence >= minConfidence)
	})
	return before - c.Count
}

// compactKeep performs a stable, in-place compaction of the first Count
// slots, keeping only blocks for which keep returns true. Slots past the
// new Count are zeroed. It is the shared machinery behind Cleanup,
// Compact and Prune.
func (c *Chain) compactKeep(keep func(*block.Block) bool) {
	write := 0
	for read := 0; read < c.Count; read++ {
		if keep(&c.Blocks[read]) {
			if write != read {
				c.Blocks[write] = c.Blocks[read]
			}
			write++
		}
	}
	for i := write; i < c.Count; i++ {
		c.Blocks[i] = block.Block{}
	}
	c.Count = write
	c.UpdatedAt = nowUnix()
}

// Dedupe removes later blocks that share an identical (input, output)
// pair with an earlier block, in an O(n^2) scan, preserving the relative
// order of the surviving (earliest) copies. It returns the number of
// blocks removed.
func (c *Chain) Dedupe() int {
	if c == nil {
		return 0
	}
	removed := 0
	for i := 0; i < c.Count; i++ {
		bi := &c.Blocks[i]
		if !bi.IsValid() {
			continue
		}
		for j := i + 1; j < c.Count; j++ {
			bj := &c.Blocks[j]
			if bj.IsValid() && bi.SameAssociation(bj.Input.String(), bj.Output.String()) {
				bj.MarkTombstone()
				removed++
			}
		}
	}
	if removed > 0 {
		c.Compact()
	}
	return removed
}

// Trim keeps only the maxBlocks highest-confidence valid blocks, sorted
// descending by confidence (the sort is stable: blocks with equal
// confidence keep their original relative order). This is the one operation
// that does not preserve survivor order: trimming is meant as a final
// "keep the best, drop the rest" step, not an audit-preserving compaction.
// It returns the number of blocks removed.
func (c *Chain) Trim(maxBlocks int) int {
	if c == nil || maxBlocks < 0 {
		return 0
	}
	before := c.Count

	valid := make([]block.Block, 0, c.Count)
	for i := 0; i < c.Count; i++ {
		if c.Blocks[i].IsValid() {
			valid = append(valid, c.Blocks[i])
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Confidence > valid[j].Confidence
	})

	keep := maxBlocks
	if keep > len(valid) {
		keep = len(valid)
	}

	c.Blocks = [MaxMemory]block.Block{}
	copy(c.Blocks[:], valid[:keep])
	c.Count = keep
	c.UpdatedAt = nowUnix()
	return before - keep
}

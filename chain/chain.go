// Package chain implements the Chain container: a bounded, ordered
// sequence of blocks with admit/reinforce, cleanup/prune/dedupe/compact/
// trim lifecycle operations, a fuzzy/exact reasoner, exponential confidence
// decay, block signing, and chain-level verification and fingerprinting.
//
// A *Chain is owned exclusively by its caller. No method is safe for
// concurrent use without external synchronization, and Reason must be
// treated as a writer: a successful lookup mutates the matched block's
// usage count and confidence.
package chain

import (
	"time"

	"github.com/dreamer-coding/fossil-jellyfish/block"
	"github.com/dreamer-coding/fossil-jellyfish/mixer"
)

// MaxMemory is the fixed capacity of a Chain (MAX_MEM in the data model).
const MaxMemory = 256

// ReinforceStep is the confidence increment applied to a block reinforced
// by a repeated Learn call.
const ReinforceStep = 0.1

// MinSurvivingConfidence is the floor below which Cleanup and Decay treat
// a block as dead.
const MinSurvivingConfidence = 0.05

// Sentinel is returned by the reasoner when no block satisfies the query.
const Sentinel = "Unknown"

// Chain is a bounded ordered container of Blocks with chain-level
// metadata. Blocks holds MaxMemory entries by value; only the first Count
// are considered part of the chain, though slots beyond Count that are
// still marked valid=0 tombstones may be reused by Learn.
type Chain struct {
	Blocks    [MaxMemory]block.Block
	Count     int
	DeviceID  [block.DeviceIDSize]byte
	CreatedAt uint64
	UpdatedAt uint64
}

// New returns an empty chain stamped with deviceID and the current wall
// clock time.
func New(deviceID [block.DeviceIDSize]byte) *Chain {
	now := nowUnix()
	return &Chain{
		DeviceID:  deviceID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func nowUnix() uint64 {
	return uint64(time.Now().Unix())
}

// ValidBlocks returns the Count in-use slots as a slice view (not a copy)
// for read-only iteration.
func (c *Chain) ValidBlocks() []block.Block {
	if c == nil {
		return nil
	}
	return c.Blocks[:c.Count]
}

// Learn admits or reinforces the (input, output) association, silently
// dropping the observation if the chain is full even after a Cleanup
// retry. This matches the source behavior documented in spec §4.2/§9.
func (c *Chain) Learn(input, output string) {
	if c == nil {
		return
	}
	c.learnAt(input, output, nowUnix())
}

// LearnStrict behaves like Learn but surfaces the admit-after-cleanup-full
// case as a CapacityReached error instead of silently dropping it, for
// callers that want to detect the condition.
func (c *Chain) LearnStrict(input, output string) error {
	if c == nil {
		return newError(ErrInvalidArgument, "nil chain")
	}
	if !c.learnAt(input, output, nowUnix()) {
		return newError(ErrCapacityReached, "no free slot after cleanup")
	}
	return nil
}

// LearnAt is the explicit-clock variant of Learn, used directly by tests
// that need deterministic timestamps and delta_ms values. It reports
// whether the observation was admitted or reinforced (true) versus
// silently dropped for lack of capacity (false).
func (c *Chain) LearnAt(input, output string, now uint64) bool {
	if c == nil {
		return false
	}
	return c.learnAt(input, output, now)
}

func (c *Chain) learnAt(input, output string, now uint64) bool {
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if b.IsValid() && b.SameAssociation(input, output) {
			b.UsageCount++
			b.Confidence += ReinforceStep
			b.ClampConfidence()
			b.Timestamp = now
			c.UpdatedAt = now
			return true
		}
	}

	if c.admitNewSlot(input, output, now) {
		return true
	}

	c.Cleanup()
	return c.admitNewSlot(input, output, now)
}

// admitNewSlot finds the first tombstone slot (valid=0) within the
// allocated capacity, including slots beyond Count, and initializes it as
// a fresh block. It returns false only when no slot anywhere in
// [0, MaxMemory) is free.
func (c *Chain) admitNewSlot(input, output string, now uint64) bool {
	for i := 0; i < MaxMemory; i++ {
		b := &c.Blocks[i]
		if b.IsValid() {
			continue
		}
		c.initBlock(b, i, input, output, now)
		if i >= c.Count {
			c.Count = i + 1
		}
		c.UpdatedAt = now
		return true
	}
	return false
}

// initBlock admits a fresh block per spec.md §4.2 step 2: input/output set,
// valid=1, confidence=1.0, usage_count=0, device_id and signature left at
// their zero value (device_id is only ever stamped by a caller-driven
// redaction/ownership step outside this package's scope).
func (c *Chain) initBlock(b *block.Block, index int, input, output string, now uint64) {
	prevTimestamp, hasPrev := c.nearestPrevValidTimestamp(index)

	*b = block.Block{}
	b.Input.Set(input)
	b.Output.Set(output)
	b.Timestamp = now
	if hasPrev && now >= prevTimestamp {
		b.DeltaMs = uint32((now - prevTimestamp) * 1000)
	}
	b.Valid = 1
	b.Confidence = 1.0
	b.UsageCount = 0

	nonce := uint64(time.Now().UnixMicro())
	b.Hash = mixer.Fingerprint([]byte(b.Input.String()), []byte(b.Output.String()), nonce)
}

// nearestPrevValidTimestamp finds the timestamp of the nearest valid block
// preceding index, scanning backward through in-use slots.
func (c *Chain) nearestPrevValidTimestamp(index int) (uint64, bool) {
	limit := index
	if limit > c.Count {
		limit = c.Count
	}
	for i := limit - 1; i >= 0; i-- {
		if c.Blocks[i].IsValid() {
			return c.Blocks[i].Timestamp, true
		}
	}
	return 0, false
}

// DetectConflict reports whether a valid block exists with the given
// input but a different output than the one provided.
func (c *Chain) DetectConflict(input, output string) bool {
	if c == nil {
		return false
	}
	for i := 0; i < c.Count; i++ {
		b := &c.Blocks[i]
		if !b.IsValid() {
			continue
		}
		if b.Input.EqualString(input) && !b.Output.EqualString(output) {
			return true
		}
	}
	return false
}

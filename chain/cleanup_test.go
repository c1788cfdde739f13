package chain

import "testing"

func TestCleanupRemovesLowConfidenceAndTombstones(t *testing.T) {
	c := New(mustDeviceID(t, 10))
	c.LearnAt("keep", "1", 1000)
	c.LearnAt("drop-low-confidence", "2", 1000)
	c.LearnAt("drop-tombstone", "3", 1000)

	c.Blocks[1].Confidence = 0.01
	c.Blocks[2].MarkTombstone()

	c.Cleanup()

	if c.Count != 1 {
		t.Fatalf("Count = %d, want 1 after Cleanup", c.Count)
	}
	if !c.Blocks[0].Input.EqualString("keep") {
		t.Fatalf("Cleanup did not preserve the surviving block's identity")
	}
}

func TestCleanupNeverRemovesImmutableBlocks(t *testing.T) {
	c := New(mustDeviceID(t, 16))
	c.LearnAt("keep-mortal", "1", 1000)
	c.LearnAt("keep-immutable", "2", 1000)
	c.Blocks[0].Confidence = 0.9
	c.Blocks[1].Immutable = true
	c.Blocks[1].Confidence = 0.0 // decayed well below MinSurvivingConfidence

	c.Cleanup()

	if c.Count != 2 {
		t.Fatalf("Count = %d, want 2 — Cleanup must never remove an immutable block", c.Count)
	}
	if !c.Blocks[1].Input.EqualString("keep-immutable") || !c.Blocks[1].IsValid() {
		t.Fatalf("immutable low-confidence block did not survive Cleanup")
	}
}

func TestPruneNeverRemovesImmutableBlocks(t *testing.T) {
	c := New(mustDeviceID(t, 17))
	c.LearnAt("keep-mortal", "1", 1000)
	c.LearnAt("keep-immutable", "2", 1000)
	c.Blocks[0].Confidence = 0.9
	c.Blocks[1].Immutable = true
	c.Blocks[1].Confidence = 0.0

	removed := c.Prune(0.5)

	if removed != 0 {
		t.Fatalf("Prune removed = %d, want 0 — immutable block must survive regardless of minConfidence", removed)
	}
	if c.Count != 2 {
		t.Fatalf("Count = %d, want 2", c.Count)
	}
}

func TestCompactKeepsAllValidRegardlessOfConfidence(t *testing.T) {
	c := New(mustDeviceID(t, 11))
	c.LearnAt("a", "1", 1000)
	c.LearnAt("b", "2", 1000)
	c.Blocks[1].Confidence = 0.0 // still valid=1, just low confidence

	c.Compact()

	if c.Count != 2 {
		t.Fatalf("Count = %d, want 2 — Compact must not drop low-confidence valid blocks", c.Count)
	}
}

func TestPruneReturnsRemovedCount(t *testing.T) {
	c := New(mustDeviceID(t, 12))
	c.LearnAt("a", "1", 1000)
	c.LearnAt("b", "2", 1000)
	c.LearnAt("c", "3", 1000)
	c.Blocks[0].Confidence = 0.2
	c.Blocks[1].Confidence = 0.8

	removed := c.Prune(0.5)

	if removed != 1 {
		t.Fatalf("Prune removed = %d, want 1", removed)
	}
	if c.Count != 2 {
		t.Fatalf("Count = %d, want 2 after pruning one block", c.Count)
	}
}

func TestDedupeKeepsEarliestCopy(t *testing.T) {
	c := New(mustDeviceID(t, 13))
	c.LearnAt("q", "a", 1000)
	// Force a second admission of the identical association by bypassing
	// reinforcement: append a duplicate directly.
	c.Blocks[1] = c.Blocks[0]
	c.Count = 2
	c.Blocks[1].Timestamp = 2000

	removed := c.Dedupe()

	if removed != 1 {
		t.Fatalf("Dedupe removed = %d, want 1", removed)
	}
	if c.Count != 1 {
		t.Fatalf("Count = %d, want 1 after dedupe", c.Count)
	}
	if c.Blocks[0].Timestamp != 1000 {
		t.Fatalf("Dedupe must keep the earliest copy, got timestamp %d", c.Blocks[0].Timestamp)
	}
}

func TestTrimKeepsHighestConfidenceAndReorders(t *testing.T) {
	c := New(mustDeviceID(t, 14))
	c.LearnAt("low", "1", 1000)
	c.LearnAt("mid", "2", 1000)
	c.LearnAt("high", "3", 1000)
	c.Blocks[0].Confidence = 0.1
	c.Blocks[1].Confidence = 0.5
	c.Blocks[2].Confidence = 0.9

	removed := c.Trim(2)

	if removed != 1 {
		t.Fatalf("Trim removed = %d, want 1", removed)
	}
	if c.Count != 2 {
		t.Fatalf("Count = %d, want 2", c.Count)
	}
	if !c.Blocks[0].Input.EqualString("high") || !c.Blocks[1].Input.EqualString("mid") {
		t.Fatalf("Trim must keep the highest-confidence blocks, sorted descending")
	}
}

func TestTrimNoOpWhenUnderLimit(t *testing.T) {
	c := New(mustDeviceID(t, 15))
	c.LearnAt("a", "1", 1000)

	removed := c.Trim(10)

	if removed != 0 {
		t.Fatalf("Trim removed = %d, want 0 when already under the limit", removed)
	}
	if c.Count != 1 {
		t.Fatalf("Count = %d, want 1", c.Count)
	}
}

package chain

import (
	"testing"

	"github.com/dreamer-coding/fossil-jellyfish/block"
)

func mustDeviceID(t *testing.T, seed byte) [block.DeviceIDSize]byte {
	t.Helper()
	var id [block.DeviceIDSize]byte
	for i := range id {
		id[i] = seed + byte(i)
	}
	return id
}

func TestLearnAdmitsNewBlock(t *testing.T) {
	c := New(mustDeviceID(t, 1))
	ok := c.LearnAt("hello", "world", 1000)
	if !ok {
		t.Fatalf("LearnAt returned false on first admit")
	}
	if c.Count != 1 {
		t.Fatalf("Count = %d, want 1", c.Count)
	}
	b := c.Blocks[0]
	if !b.Input.EqualString("hello") || !b.Output.EqualString("world") {
		t.Fatalf("block does not hold the learned association")
	}
	if b.Confidence != 1.0 {
		t.Fatalf("Confidence = %v, want 1.0 on admit", b.Confidence)
	}
	if b.UsageCount != 0 {
		t.Fatalf("UsageCount = %d, want 0 on admit", b.UsageCount)
	}
	if block.FingerprintSize != 32 || b.Hash == [32]byte{} {
		t.Fatalf("admitted block has a zero fingerprint")
	}
}

func TestLearnReinforcesExistingAssociation(t *testing.T) {
	c := New(mustDeviceID(t, 2))
	c.LearnAt("q", "a", 1000)
	c.LearnAt("q", "a", 1010)

	if c.Count != 1 {
		t.Fatalf("Count = %d, want 1 after reinforcing the same association", c.Count)
	}
	b := c.Blocks[0]
	if b.UsageCount != 1 {
		t.Fatalf("UsageCount = %d, want 1 after one reinforcement", b.UsageCount)
	}
	if b.Confidence != 1.0 {
		// confidence was 1.0, clamp keeps it at 1.0 after +ReinforceStep
		t.Fatalf("Confidence = %v, want clamped to 1.0", b.Confidence)
	}
	if b.Timestamp != 1010 {
		t.Fatalf("Timestamp = %d, want updated to 1010 on reinforce", b.Timestamp)
	}
}

func TestLearnDropsWhenFullAfterCleanup(t *testing.T) {
	c := New(mustDeviceID(t, 3))
	for i := 0; i < MaxMemory; i++ {
		if !c.LearnAt(string(rune('a'+i%26))+string(rune(i)), "x", 1000) {
			t.Fatalf("unexpected drop while filling chain at i=%d", i)
		}
	}
	if c.Count != MaxMemory {
		t.Fatalf("Count = %d, want %d", c.Count, MaxMemory)
	}

	ok := c.LearnAt("overflow", "y", 1001)
	if ok {
		t.Fatalf("Learn should silently drop once the chain is full of high-confidence blocks")
	}

	err := c.LearnStrict("overflow2", "y")
	if err == nil {
		t.Fatalf("LearnStrict should report an error when the chain stays full")
	}
	if e, ok := err.(*Error); !ok || e.Code != ErrCapacityReached {
		t.Fatalf("LearnStrict error = %#v, want ErrCapacityReached", err)
	}
}

func TestLearnReclaimsTombstonesViaCleanup(t *testing.T) {
	c := New(mustDeviceID(t, 4))
	for i := 0; i < MaxMemory; i++ {
		c.LearnAt(string(rune('a'+i%26))+string(rune(i)), "x", 1000)
	}
	// Kill confidence on one block so Cleanup reclaims its slot.
	c.Blocks[0].Confidence = 0.0

	ok := c.LearnAt("fresh", "value", 2000)
	if !ok {
		t.Fatalf("Learn should admit after Cleanup frees a slot")
	}
	if c.Count != MaxMemory {
		t.Fatalf("Count = %d, want still %d after reclaiming a tombstone", c.Count, MaxMemory)
	}
}

func TestDetectConflict(t *testing.T) {
	c := New(mustDeviceID(t, 5))
	c.LearnAt("weather", "sunny", 1000)

	if c.DetectConflict("weather", "sunny") {
		t.Fatalf("identical output must not be reported as a conflict")
	}
	if !c.DetectConflict("weather", "rainy") {
		t.Fatalf("differing output for the same input must be reported as a conflict")
	}
	if c.DetectConflict("unknown-input", "anything") {
		t.Fatalf("an input with no existing block cannot conflict")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := New(mustDeviceID(t, 6))
	c.LearnAt("a", "b", 1000)

	clone := c.Clone()
	if !c.Equal(clone) {
		t.Fatalf("freshly cloned chain must be Equal to the original")
	}

	clone.Blocks[0].Confidence = 0.0
	if c.Blocks[0].Confidence == 0.0 {
		t.Fatalf("mutating the clone must not affect the original")
	}
	if c.Equal(clone) {
		t.Fatalf("chains must stop being Equal once they diverge")
	}
}

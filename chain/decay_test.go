package chain

import "testing"

func TestDecayAtHalvesConfidenceAfterOneHalfLife(t *testing.T) {
	c := New(mustDeviceID(t, 20))
	c.LearnAt("a", "1", 1000)
	c.Blocks[0].Confidence = 0.8

	c.DecayAt(100.0, 1100) // exactly one half-life later

	got := c.Blocks[0].Confidence
	want := 0.4
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Confidence = %v, want %v after one half-life", got, want)
	}
}

func TestDecayAtTombstonesBelowFloor(t *testing.T) {
	c := New(mustDeviceID(t, 21))
	c.LearnAt("a", "1", 1000)
	c.Blocks[0].Confidence = 0.06

	// Many half-lives later: confidence collapses toward zero.
	c.DecayAt(10.0, 1000+10*20)

	if c.Blocks[0].IsValid() {
		t.Fatalf("block should be tombstoned once decayed confidence drops below the survival floor")
	}
}

func TestDecayAtIgnoresFutureTimestamps(t *testing.T) {
	c := New(mustDeviceID(t, 22))
	c.LearnAt("a", "1", 2000)
	c.Blocks[0].Confidence = 0.9

	c.DecayAt(50.0, 1000) // now before the block's own timestamp

	if c.Blocks[0].Confidence != 0.9 {
		t.Fatalf("Confidence changed for a block whose timestamp is in the future relative to now")
	}
}

func TestDecayAtClampsHalfLifeFloor(t *testing.T) {
	c := New(mustDeviceID(t, 23))
	c.LearnAt("a", "1", 1000)
	c.Blocks[0].Confidence = 1.0

	// A half-life below MinHalfLifeSeconds must clamp up rather than
	// collapse confidence to zero instantly: one second later, with the
	// half-life clamped to one second, confidence is exactly halved.
	c.DecayAt(0.0, 1001)

	if c.Blocks[0].Confidence != 0.5 {
		t.Fatalf("Confidence = %v, want 0.5 after one clamped half-life", c.Blocks[0].Confidence)
	}
}

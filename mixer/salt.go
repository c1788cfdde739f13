// Package mixer implements the Fingerprint Mixer: a deterministic,
// non-cryptographic byte mixing function used to produce block and
// signature fingerprints for the memory chain. It is an audit witness,
// not a cryptographic commitment — see Fingerprint's doc comment.
package mixer

import (
	"os"
	"runtime"
	"sync"
)

// windowsSaltVars and posixSaltVars are the fixed, ordered environment
// variable lists the device salt is derived from. The order matters: it
// is part of what makes the salt reproducible on a given machine.
var (
	windowsSaltVars = []string{"USERNAME", "USERPROFILE", "COMPUTERNAME"}
	posixSaltVars   = []string{"USER", "HOME", "SHELL", "HOSTNAME"}
)

var (
	saltOnce  sync.Once
	saltValue uint64
)

// Salt returns the process-wide device salt, computing it on first call
// from a fixed ordered list of environment variables and never mutating
// it thereafter. Concurrent callers all observe the same value.
func Salt() uint64 {
	saltOnce.Do(func() {
		saltValue = deriveSalt(saltVars())
	})
	return saltValue
}

// ResetSaltForTest clears the cached salt so the next call to Salt
// re-derives it from the current environment. It exists only for tests
// that need a deterministic salt and must not be called from production
// code: the salt is documented as immutable for the life of the process.
func ResetSaltForTest() {
	saltOnce = sync.Once{}
	saltValue = 0
}

func saltVars() []string {
	if runtime.GOOS == "windows" {
		return windowsSaltVars
	}
	return posixSaltVars
}

// deriveSalt concatenates the named environment variables (in order,
// missing ones contributing nothing) and reduces the result with FNV-1a
// 64-bit.
func deriveSalt(names []string) uint64 {
	h := uint64(fnvOffset64)
	for _, name := range names {
		v := os.Getenv(name)
		for i := 0; i < len(v); i++ {
			h ^= uint64(v[i])
			h *= fnvPrime64
		}
		// A separator byte between variables so "AB","C" and "A","BC"
		// never collide.
		h ^= 0x1f
		h *= fnvPrime64
	}
	return h
}

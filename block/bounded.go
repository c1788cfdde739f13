// Package block defines the Block type: a single learned (input, output)
// association plus the metadata the chain and reasoner need to manage it.
package block

// Capacity is the fixed byte capacity shared by every bounded text field in
// a Block (IN_CAP and OUT_CAP from the data model — both 256 bytes here).
// There is a single source of truth for this size, per the "encapsulate
// bounded strings" design note: nothing else in this module hard-codes a
// field width.
const Capacity = 256

// BoundedString is a fixed-capacity, NUL-terminated text field. It never
// grows past Capacity-1 content bytes; longer input is silently truncated
// on construction.
type BoundedString struct {
	data [Capacity]byte
	n    int
}

// NewBoundedString truncates s to Capacity-1 bytes and NUL-terminates it.
func NewBoundedString(s string) BoundedString {
	var bs BoundedString
	bs.Set(s)
	return bs
}

// Set overwrites the field's content, truncating to Capacity-1 bytes.
func (b *BoundedString) Set(s string) {
	n := len(s)
	if n > Capacity-1 {
		n = Capacity - 1
	}
	b.data = [Capacity]byte{}
	copy(b.data[:n], s[:n])
	b.n = n
}

// String returns the field's content (excluding the NUL terminator and
// any zero padding).
func (b BoundedString) String() string {
	return string(b.data[:b.n])
}

// Len reports the number of content bytes in use.
func (b BoundedString) Len() int {
	return b.n
}

// Equal performs a truncated comparison against the field's current
// capacity, matching whatever is actually stored on both sides.
func (b BoundedString) Equal(other BoundedString) bool {
	return b.n == other.n && b.data == other.data
}

// EqualString compares the field's content against an arbitrary string,
// truncating s to Capacity-1 bytes first so the comparison matches what
// would have been stored had s been admitted.
func (b BoundedString) EqualString(s string) bool {
	return b.Equal(NewBoundedString(s))
}

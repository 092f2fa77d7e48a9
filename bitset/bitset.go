// Package bitset provides a flat, allocation-friendly bit vector used for
// visited marks during token-graph traversal.
package bitset

// BitSet is a fixed-capacity bit vector. The zero value is unusable; create
// one with New.
type BitSet []uint64

// New returns a BitSet able to hold length bits, all unset.
func New(length uint64) BitSet {
	words := (length + 63) / 64
	return make(BitSet, words)
}

// Set marks the bit at index.
func (b BitSet) Set(index uint64) {
	b[index/64] |= uint64(1) << (index % 64)
}

// Unset clears the bit at index.
func (b BitSet) Unset(index uint64) {
	b[index/64] &^= uint64(1) << (index % 64)
}

// IsSet reports whether the bit at index is marked.
func (b BitSet) IsSet(index uint64) bool {
	return b[index/64]&(uint64(1)<<(index%64)) != 0
}

// Clear unsets every bit, keeping the capacity.
func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

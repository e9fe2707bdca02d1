package function

// Fingerprint is a coarse, cheap-to-compare summary of a function used
// to prune the matcher's pairwise comparison space (spec.md §4.5). It
// deliberately carries no instruction content — two functions sharing
// a Fingerprint are candidates for comparison, not a guaranteed match.
type Fingerprint struct {
	BlockCount       int
	InstructionCount int
}

// NewFingerprint builds a Fingerprint from a function's block and
// instruction counts.
func NewFingerprint(blockCount, instructionCount int) Fingerprint {
	return Fingerprint{BlockCount: blockCount, InstructionCount: instructionCount}
}

// Hash mixes the two fingerprint components with a golden-ratio
// XOR-shift combiner, the same scheme
// original_source/src/core/analyzer.h's fingerprint_hash uses:
//
//	hash1 ^ (hash2 + 0x9e3779b9 + (hash1 << 6) + (hash1 >> 2))
//
// with the 64-bit golden-ratio constant 0x9e3779b97f4a7c15 in place of
// the 32-bit 0x9e3779b9.
//
// internal/matcher buckets candidates by this value; a bucket's members
// still have to compare equal as Fingerprints, since collisions are
// expected and are not themselves proof of a match.
func (fp Fingerprint) Hash() uint64 {
	h1 := uint64(fp.BlockCount)
	h2 := uint64(fp.InstructionCount)
	return h1 ^ (h2 + 0x9e3779b97f4a7c15 + (h1 << 6) + (h1 >> 2))
}

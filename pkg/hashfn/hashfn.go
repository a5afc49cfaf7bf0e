// Package hashfn implements the hashing layer: a byte-string hash producing a
// fixed-width bit vector, and the composite tuple hash driven by a choice
// vector.
package hashfn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"

	"malhf/pkg/bits"
	"malhf/pkg/chvec"
	"malhf/pkg/config"
)

// ErrMalformedTuple is returned when a tuple or pattern does not split into
// exactly the relation's attribute count.
var ErrMalformedTuple = errors.New("hashfn: tuple does not have the expected number of attributes")

// Algorithm selects the byte-string hash primitive used as hash_any.
type Algorithm int

const (
	// XXHash folds cespare/xxhash's 64-bit digest down to config.MaxBits bits.
	XXHash Algorithm = iota
	// Murmur3 folds spaolacci/murmur3's 64-bit digest down to config.MaxBits bits.
	Murmur3
)

// String renders an Algorithm as its CLI/config name.
func (a Algorithm) String() string {
	switch a {
	case XXHash:
		return "xxhash"
	case Murmur3:
		return "murmur3"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses the CLI/config name of a hash algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "", "xxhash":
		return XXHash, nil
	case "murmur3":
		return Murmur3, nil
	default:
		return 0, fmt.Errorf("hashfn: unknown algorithm %q", s)
	}
}

// fold collapses a 64-bit digest into config.MaxBits bits by XOR-folding the
// high and low halves, keeping the result uniform rather than just masking.
func fold(h uint64) bits.Bits {
	return bits.Bits(uint32(h) ^ uint32(h>>32))
}

// HashAny is the hash_any collaborator contract: a pure, deterministic,
// uniform hash of a byte string down to a config.MaxBits-wide bit vector.
func HashAny(algo Algorithm, data []byte) bits.Bits {
	switch algo {
	case Murmur3:
		return fold(murmur3.Sum64(data))
	default:
		return fold(xxhash.Sum64(data))
	}
}

// SplitAttrs splits a comma-delimited tuple or pattern into exactly nattrs
// attribute components, returning ErrMalformedTuple if the count doesn't
// match.
func SplitAttrs(tuple string, nattrs uint32) ([]string, error) {
	parts := strings.Split(tuple, ",")
	if uint32(len(parts)) != nattrs {
		return nil, fmt.Errorf("%w: got %d attributes, want %d", ErrMalformedTuple, len(parts), nattrs)
	}
	return parts, nil
}

// TupleHash computes the composite hash of a tuple's already-split attribute
// values according to the choice vector: for each composite-bit position j,
// let (a,b) = cv[j]; bit j of the result is bit b of hash_any(attrs[a]).
func TupleHash(algo Algorithm, cv chvec.ChoiceVector, attrs [][]byte) bits.Bits {
	attrHashes := make([]bits.Bits, len(attrs))
	for i, a := range attrs {
		attrHashes[i] = HashAny(algo, a)
	}
	var h bits.Bits
	for j := 0; j < config.MaxChVec; j++ {
		item := cv[j]
		if bits.BitIsSet(attrHashes[item.Attr], int(item.Bit)) {
			h = bits.SetBit(h, j)
		}
	}
	return h
}

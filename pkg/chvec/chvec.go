// Package chvec implements the choice vector: the fixed recipe mapping each
// composite-hash bit position to an (attribute, per-attribute-hash bit) pair.
package chvec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"malhf/pkg/config"
)

// ErrBadChoiceVector is returned when a choice-vector string is malformed or
// references an out-of-range attribute/bit index.
var ErrBadChoiceVector = errors.New("chvec: malformed choice vector")

// Item is one entry of a ChoiceVector: bit j of the composite hash is drawn
// from bit Bit of the hash of attribute Attr.
type Item struct {
	Attr uint32
	Bit  uint32
}

// ChoiceVector is an ordered sequence of exactly config.MaxChVec items.
// It is immutable for the lifetime of a relation.
type ChoiceVector [config.MaxChVec]Item

// Parse converts a string of the form "attr:bit,attr:bit,..." with exactly
// config.MaxChVec entries into a ChoiceVector, validating that every
// attribute index lies in [0,nattrs) and every bit index lies in
// [0,config.MaxBits).
func Parse(nattrs uint32, s string) (ChoiceVector, error) {
	var cv ChoiceVector
	if nattrs == 0 {
		return cv, fmt.Errorf("%w: nattrs must be >= 1", ErrBadChoiceVector)
	}
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != config.MaxChVec {
		return cv, fmt.Errorf("%w: expected %d items, got %d", ErrBadChoiceVector, config.MaxChVec, len(parts))
	}
	for i, part := range parts {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return cv, fmt.Errorf("%w: item %d (%q) is not attr:bit", ErrBadChoiceVector, i, part)
		}
		attr, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return cv, fmt.Errorf("%w: item %d attr %q: %v", ErrBadChoiceVector, i, fields[0], err)
		}
		bit, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return cv, fmt.Errorf("%w: item %d bit %q: %v", ErrBadChoiceVector, i, fields[1], err)
		}
		if uint32(attr) >= nattrs {
			return cv, fmt.Errorf("%w: item %d attr %d out of range [0,%d)", ErrBadChoiceVector, i, attr, nattrs)
		}
		if uint32(bit) >= config.MaxBits {
			return cv, fmt.Errorf("%w: item %d bit %d out of range [0,%d)", ErrBadChoiceVector, i, bit, config.MaxBits)
		}
		cv[i] = Item{Attr: uint32(attr), Bit: uint32(bit)}
	}
	return cv, nil
}

// String renders cv back into "attr:bit,attr:bit,..." form.
func (cv ChoiceVector) String() string {
	var sb strings.Builder
	for i, item := range cv {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d:%d", item.Attr, item.Bit)
	}
	return sb.String()
}

// Default builds the alternating a0,b0,a1,b1,... choice vector over nattrs
// attributes, cycling bit 0..MaxBits/nattrs across each attribute's hash.
// This is the vector used throughout spec scenarios and tests.
func Default(nattrs uint32) ChoiceVector {
	var cv ChoiceVector
	for j := 0; j < config.MaxChVec; j++ {
		cv[j] = Item{
			Attr: uint32(j) % nattrs,
			Bit:  uint32(j) / nattrs,
		}
	}
	return cv
}

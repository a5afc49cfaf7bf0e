// Package bits implements operations on the fixed-width bit vector used
// throughout malhf to represent composite hash values and bucket addresses.
package bits

import (
	"fmt"

	"malhf/pkg/config"
)

// Bits is a fixed config.MaxBits-wide bit vector. Bit 0 is the least
// significant bit.
type Bits uint32

// checkRange panics if i is not a valid bit index; out-of-range indices
// are a programmer error, not a runtime condition to recover from.
func checkRange(i int) {
	if i < 0 || i >= config.MaxBits {
		panic(fmt.Sprintf("bits: index %d out of range [0,%d)", i, config.MaxBits))
	}
}

// SetBit returns v with bit i set.
func SetBit(v Bits, i int) Bits {
	checkRange(i)
	return v | (1 << uint(i))
}

// ClearBit returns v with bit i cleared.
func ClearBit(v Bits, i int) Bits {
	checkRange(i)
	return v &^ (1 << uint(i))
}

// BitIsSet reports whether bit i of v is set.
func BitIsSet(v Bits, i int) bool {
	checkRange(i)
	return v&(1<<uint(i)) != 0
}

// GetLower returns the low k bits of v, i.e. v mod 2^k.
func GetLower(v Bits, k int) Bits {
	if k <= 0 {
		return 0
	}
	if k >= config.MaxBits {
		return v
	}
	return v & ((1 << uint(k)) - 1)
}

// String renders v as a config.MaxBits-character '0'/'1' string, most
// significant bit first, for debug/stats output.
func String(v Bits) string {
	buf := make([]byte, config.MaxBits)
	for i := 0; i < config.MaxBits; i++ {
		if BitIsSet(v, config.MaxBits-1-i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}

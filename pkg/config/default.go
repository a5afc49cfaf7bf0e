// Global malhf config.
package config

import "github.com/ncw/directio"

// Name of the database.
const DBName = "malhf"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// MaxBits is the width of the composite hash / bucket address space.
const MaxBits = 32

// MaxChVec is the number of items in a choice vector; one per composite bit.
const MaxChVec = MaxBits

// PageSize is the size in bytes of a single primary or overflow page,
// aligned to the block size directio requires for unbuffered reads/writes.
const PageSize = directio.BlockSize

// File suffixes for the three files backing a relation.
const (
	InfoSuffix   = ".info"
	DataSuffix   = ".data"
	OvflowSuffix = ".ovflow"
)

// Name of log file.
const LogFileName = "malhf.log"

// SplitThreshold returns the number of inserts between automatic splits:
// floor(1024 / (10*nattrs)). Returns 0 when nattrs is large enough that the
// formula underflows to zero; callers must treat 0 as "never auto-split"
// rather than compute a modulus against it.
func SplitThreshold(nattrs uint32) uint32 {
	if nattrs == 0 {
		return 0
	}
	return 1024 / (10 * nattrs)
}

// GetPrompt returns prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}

package utils

import (
	"fmt"
	"math/rand"
	"strings"
)

// GenerateRandomTuples generates n random tuples over nattrs attributes:
// the first attribute is a unique "k<random>" token, so every tuple is
// distinguishable, and attribute a of tuple i is "v<i>-<a>".
func GenerateRandomTuples(nattrs uint32, n int) []string {
	seen := make(map[int64]bool, n)
	tuples := make([]string, n)
	for i := 0; i < n; i++ {
		var key int64
		for {
			key = rand.Int63()
			if !seen[key] {
				seen[key] = true
				break
			}
		}
		attrs := make([]string, nattrs)
		attrs[0] = fmt.Sprintf("k%d", key)
		for a := uint32(1); a < nattrs; a++ {
			attrs[a] = fmt.Sprintf("v%d-%d", i, a)
		}
		tuples[i] = strings.Join(attrs, ",")
	}
	return tuples
}

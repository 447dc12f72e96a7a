package coordclient

import (
	"fmt"
	"strconv"
	"strings"
)

// minSequentialDigits is the zero-padding width of sequential node
// suffixes: 10 digits, wider only once n reaches 10^10.
const minSequentialDigits = 10

// PadSequentialID renders n as a zero-padded decimal string at least
// minSequentialDigits wide. The padding makes lexicographic and numeric
// ordering agree for any n < 10^10, which is what lets backends (and a real
// ZooKeeper-equivalent service) use plain string comparison to sort
// sequential children in position order.
func PadSequentialID(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) >= minSequentialDigits {
		return s
	}
	return strings.Repeat("0", minSequentialDigits-len(s)) + s
}

// ParseSequentialID parses the zero-padded suffix produced by
// PadSequentialID back into an integer.
func ParseSequentialID(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("coordclient: invalid sequential id %q: %w", s, err)
	}
	return n, nil
}

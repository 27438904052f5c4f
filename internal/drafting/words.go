package drafting

import (
	"math"
	"strings"
)

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReductionPercentage reports how much shorter reduced is than original,
// rounded to the nearest whole percent. Zero when the original is empty.
func ReductionPercentage(original, reduced int) int {
	if original <= 0 {
		return 0
	}
	return int(math.Round(float64(original-reduced) / float64(original) * 100))
}

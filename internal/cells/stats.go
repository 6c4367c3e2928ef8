package cells

import (
	"fmt"
	"strconv"

	"grider/internal/grid"
)

// Stats aggregates the numeric values of a selection.
type Stats struct {
	Count int
	Sum   float64
	Avg   float64
	Min   float64
	Max   float64
}

// Aggregate ignores anything that does not parse as a number.
func Aggregate(values []string) Stats {
	var st Stats
	for _, v := range values {
		n, ok := grid.ParseNumber(v)
		if !ok {
			continue
		}
		if st.Count == 0 || n < st.Min {
			st.Min = n
		}
		if st.Count == 0 || n > st.Max {
			st.Max = n
		}
		st.Sum += n
		st.Count++
	}
	if st.Count > 0 {
		st.Avg = st.Sum / float64(st.Count)
	}
	return st
}

func (st Stats) String() string {
	if st.Count == 0 {
		return "Count: 0"
	}
	return fmt.Sprintf("Count: %d  Sum: %s  Avg: %.2f  Min: %s  Max: %s",
		st.Count, num(st.Sum), st.Avg, num(st.Min), num(st.Max))
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

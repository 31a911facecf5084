package scheduler

import (
	"sort"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
)

// timeRange is a half-open range of minutes from midnight.
type timeRange struct {
	start int
	end   int
}

func (r timeRange) length() int {
	return r.end - r.start
}

func rangeOf(b models.TimeBlock) timeRange {
	return timeRange{start: b.StartMin, end: b.EndMin}
}

// mergeRanges returns the sorted union of the given ranges.
func mergeRanges(ranges []timeRange) []timeRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]timeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].end < sorted[j].end
	})

	merged := []timeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// findFreeRanges returns the gaps in the day not covered by occupied,
// in chronological order.
func findFreeRanges(occupied []timeRange) []timeRange {
	var free []timeRange
	current := 0
	for _, r := range mergeRanges(occupied) {
		if current < r.start {
			free = append(free, timeRange{start: current, end: r.start})
		}
		if r.end > current {
			current = r.end
		}
	}
	if current < constants.MinutesPerDay {
		free = append(free, timeRange{start: current, end: constants.MinutesPerDay})
	}
	return free
}

// subtractRanges removes every occupied range from r.
func subtractRanges(r timeRange, occupied []timeRange) []timeRange {
	pieces := []timeRange{r}
	for _, occ := range mergeRanges(occupied) {
		var next []timeRange
		for _, p := range pieces {
			if occ.end <= p.start || occ.start >= p.end {
				next = append(next, p)
				continue
			}
			if p.start < occ.start {
				next = append(next, timeRange{start: p.start, end: occ.start})
			}
			if occ.end < p.end {
				next = append(next, timeRange{start: occ.end, end: p.end})
			}
		}
		pieces = next
	}
	return pieces
}

func totalLength(ranges []timeRange) int {
	total := 0
	for _, r := range mergeRanges(ranges) {
		total += r.length()
	}
	return total
}

package scheduler

import (
	"math"
	"sort"
	"strconv"

	"github.com/julianstephens/rhythm/internal/constants"
	"github.com/julianstephens/rhythm/internal/models"
)

var typeRank = map[models.BlockType]int{
	models.BlockSleep:         0,
	models.BlockCalendarEvent: 1,
	models.BlockWorkout:       2,
	models.BlockMealPrep:      3,
	models.BlockMealEating:    4,
	models.BlockBuffer:        5,
	models.BlockFree:          6,
}

func sortBlocks(blocks []models.TimeBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.StartMin != b.StartMin {
			return a.StartMin < b.StartMin
		}
		if a.EndMin != b.EndMin {
			return a.EndMin < b.EndMin
		}
		if typeRank[a.Type] != typeRank[b.Type] {
			return typeRank[a.Type] < typeRank[b.Type]
		}
		return a.ID < b.ID
	})
}

// Refresh rebuilds the derived parts of a timeline after its placed blocks
// change: free blocks are regenerated for every gap of at least
// minFreeBlockMin minutes, blocks are re-sorted and totals and the
// completion rate are recomputed.
func Refresh(day *models.DailyTimeline, minFreeBlockMin int) {
	placed := day.PlacedBlocks()

	occupied := make([]timeRange, 0, len(placed))
	for _, b := range placed {
		occupied = append(occupied, rangeOf(b))
	}

	blocks := placed
	for _, gap := range findFreeRanges(occupied) {
		if gap.length() < minFreeBlockMin {
			continue
		}
		blocks = append(blocks, models.TimeBlock{
			ID:                models.BlockID(day.Date, string(models.BlockFree), strconv.Itoa(gap.start)),
			Type:              models.BlockFree,
			Title:             "Free",
			StartMin:          gap.start,
			EndMin:            gap.end,
			Status:            models.BlockStatusScheduled,
			GeneratedStartMin: gap.start,
		})
	}
	sortBlocks(blocks)

	day.Blocks = blocks
	day.TotalScheduledMinutes = totalLength(occupied)
	day.TotalFreeMinutes = constants.MinutesPerDay - day.TotalScheduledMinutes
	day.CompletionRate = CompletionRate(blocks)
}

// CompletionRate is the rounded percentage of trackable blocks that are
// completed, or 0 when the day has none.
func CompletionRate(blocks []models.TimeBlock) int {
	trackable, completed := 0, 0
	for _, b := range blocks {
		if !b.Trackable() {
			continue
		}
		trackable++
		if b.Status == models.BlockStatusCompleted {
			completed++
		}
	}
	if trackable == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(trackable)))
}

// OccupiedMinutes is the size of the union of all non-free blocks.
func OccupiedMinutes(blocks []models.TimeBlock) int {
	ranges := make([]timeRange, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != models.BlockFree {
			ranges = append(ranges, rangeOf(b))
		}
	}
	return totalLength(ranges)
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/academy-program-api/internal/models"
)

func slot(year, week int, classType models.ClassType, status models.SlotStatus) models.ClassSlot {
	return models.ClassSlot{
		AcademicYear: year,
		WeekNumber:   week,
		ClassType:    classType,
		Status:       status,
	}
}

func completedWeek(year, week int) []models.ClassSlot {
	return []models.ClassSlot{
		slot(year, week, models.ClassTypeMain, models.SlotStatusCompleted),
		slot(year, week, models.ClassTypeShort, models.SlotStatusCompleted),
	}
}

func TestCurrentActiveWeekEmptyGrid(t *testing.T) {
	active := CurrentActiveWeek(nil, 2, 52)
	assert.Equal(t, models.WeekPointer{Year: 1, Week: 1}, active)
}

func TestCurrentActiveWeekPartialWeekBlocks(t *testing.T) {
	slots := completedWeek(1, 1)
	slots = append(slots,
		slot(1, 2, models.ClassTypeMain, models.SlotStatusCompleted),
		slot(1, 2, models.ClassTypeShort, models.SlotStatusScheduled),
	)
	active := CurrentActiveWeek(slots, 2, 52)
	assert.Equal(t, models.WeekPointer{Year: 1, Week: 2}, active)
}

func TestCurrentActiveWeekCrossesYearBoundary(t *testing.T) {
	var slots []models.ClassSlot
	for week := 1; week <= 52; week++ {
		slots = append(slots, completedWeek(1, week)...)
	}
	active := CurrentActiveWeek(slots, 2, 52)
	assert.Equal(t, models.WeekPointer{Year: 2, Week: 1}, active)
}

func TestCurrentActiveWeekGapWinsOverLaterCompletion(t *testing.T) {
	// Week 3 is done but week 2 is not; the pointer stays on week 2.
	slots := completedWeek(1, 1)
	slots = append(slots, completedWeek(1, 3)...)
	active := CurrentActiveWeek(slots, 1, 52)
	assert.Equal(t, models.WeekPointer{Year: 1, Week: 2}, active)
}

func TestCurrentActiveWeekFullyCompletedParksOnFinalWeek(t *testing.T) {
	var slots []models.ClassSlot
	for year := 1; year <= 1; year++ {
		for week := 1; week <= 24; week++ {
			slots = append(slots, completedWeek(year, week)...)
		}
	}
	active := CurrentActiveWeek(slots, 1, 24)
	assert.Equal(t, models.WeekPointer{Year: 1, Week: 24}, active)
}

func TestProgressStatsEmptyGrid(t *testing.T) {
	perYear, overall := ProgressStats(nil, 2, 52)
	assert.Len(t, perYear, 2)
	assert.Equal(t, models.YearProgress{Year: 1, Completed: 0, Total: 104, Pct: 0}, perYear[0])
	assert.Equal(t, models.YearProgress{Year: 2, Completed: 0, Total: 104, Pct: 0}, perYear[1])
	assert.Equal(t, 208, overall.Total)
	assert.Equal(t, 0, overall.Pct)
}

func TestProgressStatsCountsPerYear(t *testing.T) {
	var slots []models.ClassSlot
	for week := 1; week <= 26; week++ {
		slots = append(slots, completedWeek(1, week)...)
	}
	slots = append(slots, slot(2, 1, models.ClassTypeMain, models.SlotStatusCompleted))

	perYear, overall := ProgressStats(slots, 2, 52)
	assert.Equal(t, 52, perYear[0].Completed)
	assert.Equal(t, 50, perYear[0].Pct)
	assert.Equal(t, 1, perYear[1].Completed)
	assert.Equal(t, 1, perYear[1].Pct)
	assert.Equal(t, 53, overall.Completed)
	assert.Equal(t, 25, overall.Pct)
}

func TestProgressStatsScheduledSlotsDoNotCount(t *testing.T) {
	slots := []models.ClassSlot{
		slot(1, 1, models.ClassTypeMain, models.SlotStatusScheduled),
		slot(1, 1, models.ClassTypeShort, models.SlotStatusScheduled),
	}
	_, overall := ProgressStats(slots, 1, 24)
	assert.Equal(t, 0, overall.Completed)
}

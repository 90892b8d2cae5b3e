package service

import (
	"math"

	"github.com/noah-isme/academy-program-api/internal/models"
)

// slotsPerWeek is the grid width: one MAIN and one SHORT class.
const slotsPerWeek = 2

// CurrentActiveWeek returns the earliest (year, week) whose slots are
// not all completed, scanning year-major. A week with no materialized
// slots counts as not completed. When every week of the program is
// done the pointer parks on the final week.
func CurrentActiveWeek(slots []models.ClassSlot, years, weeksPerYear int) models.WeekPointer {
	if years < 1 {
		years = 1
	}
	if weeksPerYear < 1 {
		weeksPerYear = 1
	}

	type cell struct{ year, week int }
	done := make(map[cell]int, len(slots))
	materialized := make(map[cell]int, len(slots))
	for _, slot := range slots {
		key := cell{slot.AcademicYear, slot.WeekNumber}
		materialized[key]++
		if slot.Status == models.SlotStatusCompleted {
			done[key]++
		}
	}

	for year := 1; year <= years; year++ {
		for week := 1; week <= weeksPerYear; week++ {
			key := cell{year, week}
			if materialized[key] == 0 || done[key] < materialized[key] {
				return models.WeekPointer{Year: year, Week: week}
			}
		}
	}
	return models.WeekPointer{Year: years, Week: weeksPerYear}
}

// ProgressStats derives per-year and overall completion from the slot
// grid. Totals always reflect the full program shape, not just the
// slots materialized so far, so percentages stay meaningful before the
// schedule is generated.
func ProgressStats(slots []models.ClassSlot, years, weeksPerYear int) ([]models.YearProgress, models.YearProgress) {
	if years < 1 {
		years = 1
	}
	if weeksPerYear < 1 {
		weeksPerYear = 1
	}

	completedByYear := make(map[int]int, years)
	for _, slot := range slots {
		if slot.Status == models.SlotStatusCompleted {
			completedByYear[slot.AcademicYear]++
		}
	}

	perYearTotal := weeksPerYear * slotsPerWeek
	perYear := make([]models.YearProgress, 0, years)
	overall := models.YearProgress{Total: years * perYearTotal}
	for year := 1; year <= years; year++ {
		completed := completedByYear[year]
		if completed > perYearTotal {
			completed = perYearTotal
		}
		perYear = append(perYear, models.YearProgress{
			Year:      year,
			Completed: completed,
			Total:     perYearTotal,
			Pct:       percentage(completed, perYearTotal),
		})
		overall.Completed += completed
	}
	overall.Pct = percentage(overall.Completed, overall.Total)
	return perYear, overall
}

func percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

package lifecycle

import (
	"math"
	"time"

	"scrumboard/internal/models"
)

// Burndown builds one point per calendar day of [start, finish]. The ideal
// line falls linearly from total; the actual line stays at total up to
// today and is unknown afterwards.
func Burndown(start, finish time.Time, total float64, today time.Time) []models.BurndownPoint {
	days := DaysInclusive(start, finish)
	if days <= 0 {
		return []models.BurndownPoint{}
	}
	today = Day(today)
	points := make([]models.BurndownPoint, 0, days)
	day := Day(start)
	for i := 0; i < days; i++ {
		ideal := math.Max(0, round1(total-total/float64(days)*float64(i)))
		p := models.BurndownPoint{Date: day.Format(DateLayout), Ideal: ideal}
		if !day.After(today) {
			actual := total
			p.Actual = &actual
		}
		points = append(points, p)
		day = day.AddDate(0, 0, 1)
	}
	return points
}

// StoryPoints sums the estimates of the stories in sprintID.
func StoryPoints(sprintID int64, stories []models.Story) float64 {
	var total float64
	for _, s := range stories {
		if s.SprintID != nil && *s.SprintID == sprintID {
			total += s.Points()
		}
	}
	return total
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

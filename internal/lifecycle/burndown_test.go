package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrumboard/internal/lifecycle"
	"scrumboard/internal/models"
)

func TestBurndown(t *testing.T) {
	series := lifecycle.Burndown(date(t, "2024-06-03"), date(t, "2024-06-07"), 10, date(t, "2024-06-05"))
	require.Len(t, series, 5)

	wantIdeal := []float64{10, 8, 6, 4, 2}
	for i, p := range series {
		assert.Equal(t, wantIdeal[i], p.Ideal, p.Date)
	}
	assert.Equal(t, "2024-06-03", series[0].Date)
	assert.Equal(t, "2024-06-07", series[4].Date)

	for _, p := range series[:3] {
		require.NotNil(t, p.Actual, p.Date)
		assert.Equal(t, 10.0, *p.Actual)
	}
	for _, p := range series[3:] {
		assert.Nil(t, p.Actual, p.Date)
	}
}

func TestBurndownRounding(t *testing.T) {
	series := lifecycle.Burndown(date(t, "2024-06-03"), date(t, "2024-06-05"), 10, date(t, "2024-06-01"))
	require.Len(t, series, 3)
	assert.Equal(t, []float64{10, 6.7, 3.3}, []float64{series[0].Ideal, series[1].Ideal, series[2].Ideal})
	assert.Nil(t, series[0].Actual)

	assert.Empty(t, lifecycle.Burndown(date(t, "2024-06-05"), date(t, "2024-06-03"), 10, date(t, "2024-06-01")))
}

func TestStoryPoints(t *testing.T) {
	stories := []models.Story{
		{SprintID: id(1), TimeRequired: points(5)},
		{SprintID: id(1)},
		{SprintID: id(2), TimeRequired: points(3)},
		{TimeRequired: points(8)},
	}
	assert.Equal(t, 5.0, lifecycle.StoryPoints(1, stories))
}

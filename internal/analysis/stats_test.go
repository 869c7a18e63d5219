package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fpi/server/internal/models"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestStd(t *testing.T) {
	assert.Equal(t, 0.0, Std([]float64{1}))
	// Sample std of 2,4,4,4,5,5,7,9 is ~2.138
	assert.InDelta(t, 2.138, Std([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 0.001)
}

func TestDescribe(t *testing.T) {
	summary := Describe([]float64{1, 2, 3, 4})

	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 2.5, summary.Mean)
	assert.Equal(t, 2.5, summary.Median)
	assert.Equal(t, 1.0, summary.Min)
	assert.Equal(t, 4.0, summary.Max)

	assert.Equal(t, Summary{}, Describe(nil))
}

func TestDescribeTransactions(t *testing.T) {
	transactions := []models.Transaction{
		{Price: 100000, BuildingArea: 50, MainRooms: 2, LandArea: 0},
		{Price: 200000, BuildingArea: 80, MainRooms: 3, LandArea: 100},
	}

	summaries := DescribeTransactions(transactions)

	require.Contains(t, summaries, "price")
	require.Contains(t, summaries, "building_area")
	require.Contains(t, summaries, "main_rooms")
	require.Contains(t, summaries, "land_area")
	assert.Equal(t, 150000.0, summaries["price"].Mean)
	assert.Equal(t, 2, summaries["building_area"].Count)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.0, Correlation(x, []float64{2, 4, 6, 8}), 1e-9)
	assert.InDelta(t, -1.0, Correlation(x, []float64{8, 6, 4, 2}), 1e-9)

	// No variance
	assert.Equal(t, 0.0, Correlation(x, []float64{5, 5, 5, 5}))

	// Mismatched lengths
	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
}

func TestCorrelationMatrix(t *testing.T) {
	transactions := []models.Transaction{
		{Price: 100000, BuildingArea: 50, MainRooms: 2, LandArea: 10},
		{Price: 200000, BuildingArea: 100, MainRooms: 4, LandArea: 20},
		{Price: 300000, BuildingArea: 150, MainRooms: 6, LandArea: 30},
	}

	matrix := CorrelationMatrix(transactions)

	assert.Equal(t, 1.0, matrix["price"]["price"])
	assert.InDelta(t, 1.0, matrix["price"]["building_area"], 1e-9)
	assert.Equal(t, matrix["price"]["building_area"], matrix["building_area"]["price"])
}

package analysis

import (
	"math"
	"sort"

	"fpi/server/internal/models"
)

// Summary holds the descriptive statistics of one numeric column.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Mean returns the arithmetic mean, 0 for an empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two central values for
// even-sized inputs. 0 for an empty input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Std returns the sample standard deviation, 0 for fewer than two values.
func Std(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

// Describe computes the summary of one column.
func Describe(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		return s
	}

	s.Mean = Mean(values)
	s.Std = Std(values)
	s.Median = Median(values)
	s.Min = values[0]
	s.Max = values[0]
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

// Numeric columns exposed by the descriptive endpoints.
var numericColumns = []string{"price", "building_area", "main_rooms", "land_area"}

func numericColumn(transactions []models.Transaction, column string) []float64 {
	values := make([]float64, len(transactions))
	for i, t := range transactions {
		switch column {
		case "price":
			values[i] = t.Price
		case "building_area":
			values[i] = t.BuildingArea
		case "main_rooms":
			values[i] = float64(t.MainRooms)
		case "land_area":
			values[i] = t.LandArea
		}
	}
	return values
}

// DescribeTransactions summarizes every numeric column of a transaction
// set.
func DescribeTransactions(transactions []models.Transaction) map[string]Summary {
	summaries := make(map[string]Summary, len(numericColumns))
	for _, column := range numericColumns {
		summaries[column] = Describe(numericColumn(transactions, column))
	}
	return summaries
}

// Correlation returns the Pearson correlation of two equal-length
// series, 0 when either has no variance.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	meanX, meanY := Mean(x), Mean(y)
	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// CorrelationMatrix returns the pairwise Pearson correlations of the
// numeric columns.
func CorrelationMatrix(transactions []models.Transaction) map[string]map[string]float64 {
	columns := make(map[string][]float64, len(numericColumns))
	for _, column := range numericColumns {
		columns[column] = numericColumn(transactions, column)
	}

	matrix := make(map[string]map[string]float64, len(numericColumns))
	for _, a := range numericColumns {
		matrix[a] = make(map[string]float64, len(numericColumns))
		for _, b := range numericColumns {
			if a == b {
				matrix[a][b] = 1
				continue
			}
			matrix[a][b] = Correlation(columns[a], columns[b])
		}
	}
	return matrix
}

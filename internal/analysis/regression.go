package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"fpi/server/internal/models"
)

// Model kinds.
const (
	KindOLS   = "ols"
	KindRidge = "ridge"
)

// Training constants, shared with the historical analysis runs so
// results stay comparable.
const (
	DefaultTestSize = 0.2
	DefaultAlpha    = 10.0
	randomSeed      = 42
	minTrainingRows = 20
)

var ErrNotEnoughData = errors.New("not enough transactions to fit a model")

// Model is a fitted price regression. The target is log(price); numeric
// features are used as-is and property type and department are one-hot
// encoded with the first level dropped. Safe for concurrent reads once
// trained.
type Model struct {
	Kind  string
	Alpha float64
	R2    float64
	RMSE  float64
	N     int

	coef       []float64 // bias first, then features
	typeLevels []int
	deptLevels []int
}

// Train fits a model of the given kind on the transaction set. Quality
// metrics are computed on a held-out split with a fixed seed so repeated
// trainings of the same data report the same numbers.
func Train(transactions []models.Transaction, kind string, alpha float64) (*Model, error) {
	switch kind {
	case KindOLS:
		alpha = 0
	case KindRidge:
		if alpha <= 0 {
			alpha = DefaultAlpha
		}
	default:
		return nil, fmt.Errorf("unknown model kind: %q", kind)
	}

	if len(transactions) < minTrainingRows {
		return nil, ErrNotEnoughData
	}

	m := &Model{
		Kind:       kind,
		Alpha:      alpha,
		N:          len(transactions),
		typeLevels: collectLevels(transactions, func(t models.Transaction) int { return int(t.PropertyType) }),
		deptLevels: collectLevels(transactions, func(t models.Transaction) int { return t.DepartmentCode }),
	}

	n := len(transactions)
	x := make([][]float64, n)
	y := make([]float64, n)
	for i, t := range transactions {
		x[i] = m.features(t.BuildingArea, float64(t.MainRooms), t.LandArea, int(t.PropertyType), t.DepartmentCode)
		y[i] = math.Log(t.Price)
	}

	perm := rand.New(rand.NewSource(randomSeed)).Perm(n)
	testSize := int(float64(n) * DefaultTestSize)
	testIdx := perm[:testSize]
	trainIdx := perm[testSize:]

	coef, err := fit(index(x, trainIdx), indexF(y, trainIdx), alpha)
	if err != nil {
		return nil, err
	}
	m.coef = coef

	evalIdx := testIdx
	if len(evalIdx) == 0 {
		evalIdx = trainIdx
	}
	m.R2, m.RMSE = m.evaluate(index(x, evalIdx), indexF(y, evalIdx))

	return m, nil
}

// Predict estimates a sale price in euros for the requested features.
func (m *Model) Predict(req models.PredictionRequest) float64 {
	features := m.features(
		req.BuildingArea,
		float64(req.MainRooms),
		req.LandArea,
		req.PropertyTypeCode,
		req.DepartmentCode,
	)

	var logPrice float64
	for i, f := range features {
		logPrice += m.coef[i] * f
	}
	return math.Round(math.Exp(logPrice)*100) / 100
}

// features builds the design row: bias, numerics, then one-hot levels
// with the first dropped. Levels unseen at training time encode as all
// zeroes, matching the first level.
func (m *Model) features(buildingArea, mainRooms, landArea float64, propertyType, department int) []float64 {
	row := []float64{1, buildingArea, mainRooms, landArea}
	row = append(row, oneHot(m.typeLevels, propertyType)...)
	row = append(row, oneHot(m.deptLevels, department)...)
	return row
}

func (m *Model) evaluate(x [][]float64, y []float64) (r2, rmse float64) {
	if len(x) == 0 {
		return 0, 0
	}

	meanY := Mean(y)
	var ssRes, ssTot float64
	for i := range x {
		var pred float64
		for j, f := range x[i] {
			pred += m.coef[j] * f
		}
		d := y[i] - pred
		ssRes += d * d
		t := y[i] - meanY
		ssTot += t * t
	}

	rmse = math.Sqrt(ssRes / float64(len(x)))
	if ssTot == 0 {
		return 0, rmse
	}
	return 1 - ssRes/ssTot, rmse
}

// fit solves the normal equations (X'X + alpha*I) beta = X'y. The bias
// term is never regularized.
func fit(x [][]float64, y []float64, alpha float64) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrNotEnoughData
	}
	p := len(x[0])
	if len(x) <= p {
		return nil, ErrNotEnoughData
	}

	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([]float64, p)

	for _, row := range x {
		for i := 0; i < p; i++ {
			for j := 0; j < p; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}
	for k, row := range x {
		for i := 0; i < p; i++ {
			xty[i] += row[i] * y[k]
		}
	}

	if alpha > 0 {
		for i := 1; i < p; i++ {
			xtx[i][i] += alpha
		}
	}

	return solve(xtx, xty)
}

// solve performs Gaussian elimination with partial pivoting.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New("design matrix is singular, features are collinear")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < n; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for col := row + 1; col < n; col++ {
			sum -= a[row][col] * x[col]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}

func collectLevels(transactions []models.Transaction, value func(models.Transaction) int) []int {
	seen := make(map[int]struct{})
	for _, t := range transactions {
		seen[value(t)] = struct{}{}
	}
	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

// oneHot encodes a level against the sorted training levels, dropping
// the first level to avoid collinearity with the bias.
func oneHot(levels []int, value int) []float64 {
	if len(levels) < 2 {
		return nil
	}
	encoded := make([]float64, len(levels)-1)
	for i, level := range levels[1:] {
		if level == value {
			encoded[i] = 1
		}
	}
	return encoded
}

func index(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func indexF(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}

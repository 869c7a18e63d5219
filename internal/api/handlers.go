package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fpi/server/internal/analysis"
	"fpi/server/internal/database"
	"fpi/server/internal/geo"
	"fpi/server/internal/models"
)

type Handler struct {
	db        *database.Database
	logger    *logrus.Logger
	directory *geo.Directory
	model     *analysis.Model
	modelMu   sync.RWMutex
}

type DateRange struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type TrainRequest struct {
	Kind  string  `json:"kind"`
	Alpha float64 `json:"alpha"`
	Limit int     `json:"limit"`
}

func NewHandler(db *database.Database, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	cacheDir := filepath.Join(os.TempDir(), "fpi", "commune_cache")

	return &Handler{
		db:        db,
		logger:    logger,
		directory: geo.NewDirectory(logger, cacheDir),
	}
}

// query builds the store query from shared request parameters. Parse
// problems are reported as validation errors, not silently zeroed.
func (h *Handler) query(c *gin.Context) (database.TransactionQuery, bool) {
	var dateRange DateRange
	if err := c.ShouldBindQuery(&dateRange); err != nil {
		h.logger.WithError(err).Error("Failed to parse date range")
	}

	q := database.TransactionQuery{
		StartDate: dateRange.StartDate,
		EndDate:   dateRange.EndDate,
	}

	for param, target := range map[string]*int{
		"department": &q.Department,
		"commune":    &q.Commune,
		"limit":      &q.Limit,
	} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param + " parameter"})
			return q, false
		}
		*target = value
	}

	if raw := c.Query("propertyType"); raw != "" {
		propertyType, err := models.ParsePropertyType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid propertyType parameter"})
			return q, false
		}
		q.PropertyType = int(propertyType)
	}

	return q, true
}

func (h *Handler) GetTransactions(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}

	transactions, err := h.db.GetTransactions(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transactions"})
		return
	}

	c.JSON(http.StatusOK, transactions)
}

func (h *Handler) GetMarketStats(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}

	stats, err := h.db.GetMarketStats(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get market stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get market stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetStatsSummary returns per-column descriptive statistics and the
// correlation matrix for the matching transactions.
func (h *Handler) GetStatsSummary(c *gin.Context) {
	q, ok := h.query(c)
	if !ok {
		return
	}

	transactions, err := h.db.GetTransactions(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get transactions for summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"describe":    analysis.DescribeTransactions(transactions),
		"correlation": analysis.CorrelationMatrix(transactions),
	})
}

func (h *Handler) GetDepartmentStats(c *gin.Context) {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 1 || code > 976 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid department code"})
		return
	}

	stats, err := h.db.GetDepartmentStats(code)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get department stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get department stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetDepartmentCounts(c *gin.Context) {
	counts, err := h.db.GetDepartmentCounts()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get department counts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get department counts"})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// Predict estimates a sale price from the submitted features.
func (h *Handler) Predict(c *gin.Context) {
	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.modelMu.RLock()
	model := h.model
	h.modelMu.RUnlock()

	if model == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no model trained yet"})
		return
	}

	c.JSON(http.StatusOK, models.PredictionResponse{
		EstimatedPrice: model.Predict(req),
		ModelKind:      model.Kind,
		R2:             model.R2,
		RMSE:           model.RMSE,
		TrainedOn:      model.N,
	})
}

// TrainModel refits the price model from the store and swaps it in.
func (h *Handler) TrainModel(c *gin.Context) {
	req := TrainRequest{Kind: analysis.KindRidge}
	// An empty body means "retrain with defaults"
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Kind == "" {
		req.Kind = analysis.KindRidge
	}

	model, err := h.trainFromStore(req.Kind, req.Alpha, req.Limit)
	if err == analysis.ErrNotEnoughData {
		c.JSON(http.StatusConflict, gin.H{"error": "not enough transactions to train"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to train model")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to train model"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"kind":       model.Kind,
		"r2":         model.R2,
		"rmse":       model.RMSE,
		"trained_on": model.N,
	})
}

// TrainInitialModel fits the model at startup. Missing data is not an
// error: the predict endpoint reports the model as unavailable instead.
func (h *Handler) TrainInitialModel() {
	model, err := h.trainFromStore(analysis.KindRidge, 0, 0)
	if err == analysis.ErrNotEnoughData {
		h.logger.Warn("Not enough transactions to train the initial model")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to train initial model")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"kind":       model.Kind,
		"r2":         model.R2,
		"rmse":       model.RMSE,
		"trained_on": model.N,
	}).Info("Trained price model")
}

func (h *Handler) trainFromStore(kind string, alpha float64, limit int) (*analysis.Model, error) {
	transactions, err := h.db.GetTrainingTransactions(limit)
	if err != nil {
		return nil, err
	}

	model, err := analysis.Train(transactions, kind, alpha)
	if err != nil {
		return nil, err
	}

	h.modelMu.Lock()
	h.model = model
	h.modelMu.Unlock()

	return model, nil
}

// UpdateLocations resolves loaded locations against the commune
// directory in the background.
func (h *Handler) UpdateLocations(c *gin.Context) {
	go func() {
		if err := h.db.UpdateMissingLocationDetails(h.directory); err != nil {
			h.logger.WithError(err).Error("Failed to update location details")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "location refresh started"})
}

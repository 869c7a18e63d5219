package api

import (
	"github.com/gin-gonic/gin"

	"fpi/server/internal/database"
)

// SetupRoutes wires the serving-layer endpoints and returns the handler
// so the caller can trigger the initial model training.
func SetupRoutes(router *gin.Engine, db *database.Database) *Handler {
	handler := NewHandler(db, nil)

	api := router.Group("/api")
	{
		api.GET("/transactions", handler.GetTransactions)
		api.GET("/stats", handler.GetMarketStats)
		api.GET("/stats/summary", handler.GetStatsSummary)
		api.GET("/departments", handler.GetDepartmentCounts)
		api.GET("/departments/:code/stats", handler.GetDepartmentStats)
		api.POST("/predict", handler.Predict)
		api.POST("/model/train", handler.TrainModel)
		api.POST("/update-locations", handler.UpdateLocations)
	}

	SetupRegionRoutes(router, db)

	return handler
}

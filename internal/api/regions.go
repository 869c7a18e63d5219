package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fpi/server/internal/database"
	"fpi/server/internal/models"
)

type RegionHandler struct {
	db *database.Database
}

func NewRegionHandler(db *database.Database) *RegionHandler {
	return &RegionHandler{db: db}
}

// SetupRegionRoutes adds region configuration routes to the router.
func SetupRegionRoutes(router *gin.Engine, db *database.Database) {
	handler := NewRegionHandler(db)

	router.GET("/api/regions", handler.ListRegions)
	router.POST("/api/regions", handler.CreateRegion)
	router.GET("/api/regions/:name", handler.GetRegion)
	router.PUT("/api/regions/:name", handler.UpdateRegion)
	router.DELETE("/api/regions/:name", handler.DeleteRegion)
}

// ListRegions returns all configured regions.
func (h *RegionHandler) ListRegions(c *gin.Context) {
	regions, err := h.db.GetRegions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, regions)
}

// GetRegion returns a specific region.
func (h *RegionHandler) GetRegion(c *gin.Context) {
	name := c.Param("name")
	region, err := h.db.GetRegionByName(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if region == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}
	c.JSON(http.StatusOK, region)
}

// CreateRegion creates a new region. Updating an existing region goes
// through PUT; a duplicate name here is a conflict.
func (h *RegionHandler) CreateRegion(c *gin.Context) {
	var region models.Region
	if err := c.ShouldBindJSON(&region); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if strings.TrimSpace(region.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Region name is required"})
		return
	}

	existing, err := h.db.GetRegionByName(region.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Region already exists"})
		return
	}

	if err := h.db.UpdateRegion(region); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, region)
}

// UpdateRegion updates an existing region.
func (h *RegionHandler) UpdateRegion(c *gin.Context) {
	name := c.Param("name")
	var region models.Region
	if err := c.ShouldBindJSON(&region); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if region.Name != name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Region name in URL does not match body"})
		return
	}

	existing, err := h.db.GetRegionByName(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}

	if err := h.db.UpdateRegion(region); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, region)
}

// DeleteRegion removes a region.
func (h *RegionHandler) DeleteRegion(c *gin.Context) {
	name := c.Param("name")
	if err := h.db.DeleteRegion(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

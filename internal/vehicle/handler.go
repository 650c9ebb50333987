package vehicle

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 车辆目录 HTTP 接入层（纯 CRUD，无业务不变量）。
type Handler struct {
	repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/cars", h.list)
	rg.GET("/cars/:id", h.get)
	rg.POST("/cars", h.create)
	rg.PUT("/cars/:id", h.update)
	rg.DELETE("/cars/:id", h.remove)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"errorCode":    "VEHICLE_NOT_FOUND",
		"errorMessage": "vehicle not found",
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_ID",
			"errorMessage": "vehicle id must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

// GET /cars?available=true&page=1&page_size=20
func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	onlyAvailable := c.Query("available") == "true"

	vehicles, total, err := h.repo.List(c.Request.Context(), onlyAvailable, (page-1)*size, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cars": vehicles, "total": total})
}

// GET /cars/:id
func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusOK, v)
}

// POST /cars
func (h *Handler) create(c *gin.Context) {
	var in struct {
		Brand     string  `json:"brand" binding:"required"`
		Model     string  `json:"model" binding:"required"`
		Year      int     `json:"year" binding:"required"`
		Color     string  `json:"color"`
		DailyRate float64 `json:"dailyRate" binding:"required,gte=0"`
		ImageURL  string  `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "malformed request body",
		})
		return
	}
	v := &Vehicle{
		Brand:     in.Brand,
		Model:     in.Model,
		Year:      in.Year,
		Color:     in.Color,
		DailyRate: in.DailyRate,
		Available: true,
		ImageURL:  in.ImageURL,
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusCreated, v)
}

// PUT /cars/:id 目录直改，不触碰租约。
func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	existing, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}

	var in struct {
		Brand     string  `json:"brand" binding:"required"`
		Model     string  `json:"model" binding:"required"`
		Year      int     `json:"year" binding:"required"`
		Color     string  `json:"color"`
		DailyRate float64 `json:"dailyRate" binding:"required,gte=0"`
		Available *bool   `json:"available"`
		ImageURL  string  `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "malformed request body",
		})
		return
	}

	existing.Brand = in.Brand
	existing.Model = in.Model
	existing.Year = in.Year
	existing.Color = in.Color
	existing.DailyRate = in.DailyRate
	existing.ImageURL = in.ImageURL
	if in.Available != nil {
		existing.Available = *in.Available
	}
	if err := h.repo.Save(c.Request.Context(), existing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusOK, existing)
}

// DELETE /cars/:id
func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

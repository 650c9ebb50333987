package renter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler 租客目录 HTTP 接入层。
// 注册/登录/会话由外部身份系统负责，这里只有档案读写。
type Handler struct {
	repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/users", h.list)
	rg.GET("/users/:id", h.get)
	rg.POST("/users", h.create)
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"errorCode":    "RENTER_NOT_FOUND",
		"errorMessage": "renter not found",
	})
}

// GET /users?page=1&page_size=20
func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	renters, total, err := h.repo.List(c.Request.Context(), (page-1)*size, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": renters, "total": total})
}

// GET /users/:id
func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_ID",
			"errorMessage": "renter id must be a positive integer",
		})
		return
	}
	u, err := h.repo.FindByID(c.Request.Context(), uint(id))
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
	c.JSON(http.StatusOK, u)
}

// POST /users
func (h *Handler) create(c *gin.Context) {
	var in struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "malformed request body",
		})
		return
	}
	u := &Renter{Name: in.Name, Email: in.Email, Phone: in.Phone}
	if err := h.repo.Create(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode":    "PERSISTENCE_FAILURE",
			"errorMessage": "storage operation failed",
		})
		return
	}
	c.JSON(http.StatusCreated, u)
}

package rental

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler 租约 HTTP 接入层：只做参数绑定和错误码映射，业务全部在 Service。
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/rentals", h.list)
	rg.GET("/rentals/availability", h.availability)
	rg.GET("/rentals/:id", h.get)
	rg.POST("/rentals", h.create)
	rg.PUT("/rentals/:id", h.update)
	rg.PATCH("/rentals/:id", h.patch)
	rg.DELETE("/rentals/:id", h.remove)
}

// statusFor 领域错误码到 HTTP 状态码的映射。
func statusFor(code string) int {
	switch code {
	case ErrInvalidDateFormat.Code, ErrInvalidDateRange.Code, ErrPriceOutOfRange.Code:
		return http.StatusBadRequest
	case ErrVehicleNotFound.Code, ErrRenterNotFound.Code, ErrRentalNotFound.Code:
		return http.StatusNotFound
	case ErrVehicleUnavailable.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError 只回传稳定的 code + message，存储层细节不出网。
func writeError(c *gin.Context, err error) {
	var de *Error
	if errors.As(err, &de) {
		c.JSON(statusFor(de.Code), gin.H{"errorCode": de.Code, "errorMessage": de.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"errorCode":    ErrPersistence.Code,
		"errorMessage": ErrPersistence.Message,
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_ID",
			"errorMessage": "rental id must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

// GET /rentals
func (h *Handler) list(c *gin.Context) {
	rentals, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rentals)
}

// GET /rentals/:id
func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// POST /rentals
func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "malformed request body",
		})
		return
	}
	r, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// PUT /rentals/:id
func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "malformed request body",
		})
		return
	}
	r, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// PATCH /rentals/:id
// 可修改字段是静态枚举的，未知字段直接拒绝而不是静默丢弃。
func (h *Handler) patch(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in PatchInput
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "unknown or malformed field in request body",
		})
		return
	}
	r, err := h.svc.Patch(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DELETE /rentals/:id
func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.svc.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": r.ID})
}

// GET /rentals/availability?vehicleId=&start=&end=&excludeId=
func (h *Handler) availability(c *gin.Context) {
	vehicleID, err := strconv.ParseUint(c.Query("vehicleId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errorCode":    "INVALID_REQUEST",
			"errorMessage": "vehicleId must be a positive integer",
		})
		return
	}
	var excludeID uint64
	if raw := c.Query("excludeId"); raw != "" {
		if excludeID, err = strconv.ParseUint(raw, 10, 32); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"errorCode":    "INVALID_REQUEST",
				"errorMessage": "excludeId must be a positive integer",
			})
			return
		}
	}
	available, err := h.svc.CheckAvailability(c.Request.Context(),
		uint(vehicleID), c.Query("start"), c.Query("end"), uint(excludeID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

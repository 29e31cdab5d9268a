package reconcile

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authorsync/internal/events"
	"authorsync/pkg/models"
)

type Handler struct {
	Service *Service
	Hub     *events.Hub
}

func NewHandler(service *Service, hub *events.Hub) *Handler {
	return &Handler{Service: service, Hub: hub}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/author", h.sync)
}

func (h *Handler) sync(c *gin.Context) {
	var payload models.SyncPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "InvalidRequest", "message": "invalid json body"})
		return
	}

	result, err := h.Service.Sync(c.Request.Context(), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if h.Hub != nil {
		ev := events.TermEvent{
			Type:        eventType(result.Action),
			TermID:      result.TermID,
			SKU:         payload.SKU,
			ChangedCore: result.Changed.Core,
			ChangedMeta: result.Changed.Meta,
			At:          time.Now().UTC(),
		}
		go h.Hub.BroadcastJSON(ev)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrMissingSKU):
		c.JSON(http.StatusBadRequest, gin.H{"code": "MissingKey", "message": "sku is required"})
	case errors.Is(err, ErrMissingName):
		c.JSON(http.StatusBadRequest, gin.H{"code": "MissingRequiredField", "message": "name is required to create a term"})
	default:
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusConflict, gin.H{"code": "ConflictError", "message": conflict.Error()})
			return
		}
		var store *StoreError
		if errors.As(err, &store) {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "StoreError", "message": store.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "InternalError", "message": err.Error()})
	}
}

func eventType(action string) string {
	switch action {
	case models.ActionCreated:
		return events.TermCreated
	case models.ActionTrashed:
		return events.TermTrashed
	default:
		return events.TermUpdated
	}
}

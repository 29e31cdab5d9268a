package taxonomy

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Handler exposes read-only access to the term store.
type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)            // GET /authors
	rg.GET("/:slug", h.getBySlug) // GET /authors/:slug
}

func (h *Handler) list(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 20)
	offset := parseInt(c.Query("offset"), 0)

	items, total, err := h.Repo.ListTerms(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) getBySlug(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	term, err := h.Repo.FindBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if term == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	meta, err := h.Repo.MetaForTerm(c.Request.Context(), term.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "meta failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"term": term,
		"meta": meta,
	})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

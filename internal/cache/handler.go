package cache

import (
	"context"
	"net/http"

	"github.com/fabriqd/fabriq/common"
	"github.com/gin-gonic/gin"
)

// ResultReader is the slice of ResultCache the API layer needs.
type ResultReader interface {
	Get(ctx context.Context, kind, id string, dest any) (bool, error)
	Invalidate(ctx context.Context, kind, id string) error
}

var _ ResultReader = (*ResultCache)(nil)

// ResultsHandler serves cached worker results so repeated status polls skip
// the database. A miss is a 404; the caller falls back to the job endpoint.
type ResultsHandler struct {
	cache ResultReader
}

func NewResultsHandler(c ResultReader) *ResultsHandler {
	return &ResultsHandler{cache: c}
}

var resultKinds = map[string]bool{
	"design": true,
	"render": true,
}

func (h *ResultsHandler) Get(c *gin.Context) {
	kind := c.Param("kind")
	if !resultKinds[kind] {
		c.Error(common.Errf(http.StatusBadRequest, "unknown result kind %q", kind))
		return
	}

	var result map[string]any
	found, err := h.cache.Get(c.Request.Context(), kind, c.Param("id"), &result)
	if err != nil {
		c.Error(common.Errf(http.StatusInternalServerError, "result cache unavailable"))
		return
	}
	if !found {
		c.Error(common.Errf(http.StatusNotFound, "no cached result for %s %s", kind, c.Param("id")))
		return
	}

	c.JSON(http.StatusOK, result)
}

// Invalidate drops a cached entry after a record is mutated outside the
// worker flow, forcing the next poll back to the database.
func (h *ResultsHandler) Invalidate(c *gin.Context) {
	kind := c.Param("kind")
	if !resultKinds[kind] {
		c.Error(common.Errf(http.StatusBadRequest, "unknown result kind %q", kind))
		return
	}

	if err := h.cache.Invalidate(c.Request.Context(), kind, c.Param("id")); err != nil {
		c.Error(common.Errf(http.StatusInternalServerError, "result cache unavailable"))
		return
	}

	c.Status(http.StatusNoContent)
}

package drafts

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"curricore/pkg/domain"
)

// ListReferences serves a cached reference list.
func (h *Handler) ListReferences(c *gin.Context) {
	resource := c.Param("resource")
	items, err := h.refs.Items(c.Request.Context(), resource)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": resource, "items": items})
}

// RefetchReferences drops the cached list and loads it again.
func (h *Handler) RefetchReferences(c *gin.Context) {
	resource := c.Param("resource")
	items, err := h.refs.Refetch(c.Request.Context(), resource)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": resource, "items": items})
}

// DeleteReference deletes a reference record, hiding it from the cached list
// at once and restoring the list if the backend refuses.
func (h *Handler) DeleteReference(c *gin.Context) {
	resource := c.Param("resource")
	id, err := parseID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !id.IsPersisted() {
		respondError(c, fmt.Errorf("%w: reference %s was never saved", domain.ErrInvalidID, id.Text()))
		return
	}
	if err := h.refs.DeleteOptimistic(c.Request.Context(), resource, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": resource, "deleted": id})
}

package works

import (
	"net/http"

	"artmarket/internal/api/apierr"
	"artmarket/internal/app/inventory"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCatalogues(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	items, err := h.inventory.Catalogues(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load catalogues")
		return
	}

	out := make([]CatalogueDTO, 0, len(items))
	for _, cat := range items {
		out = append(out, toCatalogueDTO(cat))
	}
	c.JSON(http.StatusOK, gin.H{"catalogues": out})
}

func (h *Handler) CreateCatalogue(c *gin.Context) {
	var req CatalogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	cat, err := h.inventory.CreateCatalogue(c.Request.Context(), userID, inventory.CatalogueInput{Title: req.Title, Description: req.Description})
	if err != nil {
		apierr.Respond(c, err, "Failed to create catalogue")
		return
	}
	c.JSON(http.StatusCreated, toCatalogueDTO(*cat))
}

func (h *Handler) UpdateCatalogue(c *gin.Context) {
	var req CatalogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	cat, err := h.inventory.UpdateCatalogue(c.Request.Context(), userID, c.Param("id"), inventory.CatalogueInput{Title: req.Title, Description: req.Description})
	if err != nil {
		apierr.Respond(c, err, "Failed to update catalogue")
		return
	}
	c.JSON(http.StatusOK, toCatalogueDTO(*cat))
}

func (h *Handler) DeleteCatalogue(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	if err := h.inventory.DeleteCatalogue(c.Request.Context(), userID, c.Param("id")); err != nil {
		apierr.Respond(c, err, "Failed to delete catalogue")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /catalogues/:id/artworks, in catalogue order
func (h *Handler) CatalogueArtworks(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	cat, items, err := h.inventory.CatalogueArtworks(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load catalogue")
		return
	}
	sys, ok := h.systemID(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, CatalogueWithArtworksDTO{
		CatalogueDTO: toCatalogueDTO(*cat),
		Artworks:     toArtworkDTOs(items, sys),
	})
}

func (h *Handler) ReorderCatalogue(c *gin.Context) {
	var req ReorderArtworksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	if err := h.inventory.ReorderCatalogue(c.Request.Context(), userID, c.Param("id"), req.ArtworkIDs); err != nil {
		apierr.Respond(c, err, "Failed to reorder catalogue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PUT /catalogues/:id/artworks/:artworkId
func (h *Handler) AddToCatalogue(c *gin.Context) {
	h.setMembership(c, true)
}

// DELETE /catalogues/:id/artworks/:artworkId
func (h *Handler) RemoveFromCatalogue(c *gin.Context) {
	h.setMembership(c, false)
}

func (h *Handler) setMembership(c *gin.Context, member bool) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	a, err := h.inventory.SetMembership(c.Request.Context(), userID, c.Param("id"), c.Param("artworkId"), member)
	if err != nil {
		apierr.Respond(c, err, "Failed to update catalogue membership")
		return
	}
	h.respondArtwork(c, http.StatusOK, userID, a)
}

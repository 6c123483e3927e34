package works

import (
	"net/http"

	"artmarket/internal/api/apierr"
	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/works"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	inventory *inventory.Service
}

func NewHandler(svc *inventory.Service) *Handler {
	return &Handler{inventory: svc}
}

func (h *Handler) systemID(c *gin.Context, userID uint) (string, bool) {
	id, err := h.inventory.SystemCatalogueID(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load catalogues")
		return "", false
	}
	return id, true
}

// ------------------------------
// GET /artworks?status=&tag=
// ------------------------------
func (h *Handler) ListArtworks(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	filter := inventory.ArtworkFilter{
		Status: works.Status(c.Query("status")),
		Tag:    c.Query("tag"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	items, err := h.inventory.Artworks(c.Request.Context(), userID, filter)
	if err != nil {
		apierr.Respond(c, err, "Failed to load artworks")
		return
	}
	sys, ok := h.systemID(c, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"artworks": toArtworkDTOs(items, sys)})
}

func (h *Handler) GetArtwork(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	a, err := h.inventory.Artwork(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		apierr.Respond(c, err, "Failed to load artwork")
		return
	}
	h.respondArtwork(c, http.StatusOK, userID, a)
}

func (h *Handler) CreateArtwork(c *gin.Context) {
	var req ArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	a, err := h.inventory.CreateArtwork(c.Request.Context(), userID, req.toInput())
	if err != nil {
		apierr.Respond(c, err, "Failed to create artwork")
		return
	}
	h.respondArtwork(c, http.StatusCreated, userID, a)
}

func (h *Handler) UpdateArtwork(c *gin.Context) {
	var req ArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	a, err := h.inventory.UpdateArtwork(c.Request.Context(), userID, c.Param("id"), req.toInput())
	if err != nil {
		apierr.Respond(c, err, "Failed to update artwork")
		return
	}
	h.respondArtwork(c, http.StatusOK, userID, a)
}

func (h *Handler) DeleteArtwork(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	if err := h.inventory.DeleteArtwork(c.Request.Context(), userID, c.Param("id")); err != nil {
		apierr.Respond(c, err, "Failed to delete artwork")
		return
	}
	c.Status(http.StatusNoContent)
}

// ------------------------------
// PUT /artworks/:id/editions  {identifier, sold, version}
// ------------------------------
func (h *Handler) SetEditionSale(c *gin.Context) {
	var req EditionSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}

	a, err := h.inventory.SetEditionSale(c.Request.Context(), userID, c.Param("id"), req.Identifier, *req.Sold, req.Version)
	if err != nil {
		apierr.Respond(c, err, "Failed to update edition")
		return
	}
	h.respondArtwork(c, http.StatusOK, userID, a)
}

func (h *Handler) ListSales(c *gin.Context) {
	userID, ok := apierr.UserID(c)
	if !ok {
		return
	}
	sales, err := h.inventory.Sales(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, err, "Failed to load sales")
		return
	}
	if sales == nil {
		sales = []works.EditionSale{}
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}

func (h *Handler) respondArtwork(c *gin.Context, status int, userID uint, a *works.Artwork) {
	sys, ok := h.systemID(c, userID)
	if !ok {
		return
	}
	c.JSON(status, toArtworkDTO(*a, sys))
}

package works

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/users"
	"artmarket/internal/infra/events"
	"artmarket/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	artist *gin.Engine
	other  *gin.Engine
}

func mount(h *Handler, userID uint) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	r.GET("/artworks", h.ListArtworks)
	r.POST("/artworks", h.CreateArtwork)
	r.GET("/artworks/:id", h.GetArtwork)
	r.PUT("/artworks/:id", h.UpdateArtwork)
	r.DELETE("/artworks/:id", h.DeleteArtwork)
	r.PUT("/artworks/:id/editions", h.SetEditionSale)
	r.GET("/sales", h.ListSales)
	r.GET("/catalogues", h.ListCatalogues)
	r.POST("/catalogues", h.CreateCatalogue)
	r.DELETE("/catalogues/:id", h.DeleteCatalogue)
	r.GET("/catalogues/:id/artworks", h.CatalogueArtworks)
	r.PUT("/catalogues/:id/order", h.ReorderCatalogue)
	r.PUT("/catalogues/:id/artworks/:artworkId", h.AddToCatalogue)
	r.DELETE("/catalogues/:id/artworks/:artworkId", h.RemoveFromCatalogue)
	return r
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memstore.New()
	st.PutUser(users.User{ID: 7, Name: "Ada", Lastname: "Vale", Role: users.RoleArtist})
	st.PutUser(users.User{ID: 8, Name: "Other", Role: users.RoleArtist})
	h := NewHandler(inventory.NewService(st, &events.Recorder{}, 3))
	return &server{artist: mount(h, 7), other: mount(h, 8)}
}

func send(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

const published = `{
	"title": "Blue Hour",
	"status": "available",
	"medium": "Oil on linen",
	"dimensions": {"width": 60, "height": 80, "unit": "cm"},
	"pricing": {"mode": "fixed", "amount": "1200", "currency": "EUR"}
}`

func TestCreateAndFetchArtwork(t *testing.T) {
	s := newServer(t)

	w := send(s.artist, http.MethodPost, "/artworks", published)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := decode[ArtworkDTO](t, w)
	assert.Equal(t, "blue-hour", a.Slug)
	assert.True(t, a.InAvailableCatalogue)
	assert.Empty(t, a.CatalogueIDs)
	assert.Equal(t, 1, a.Version)

	assert.Equal(t, http.StatusOK, send(s.artist, http.MethodGet, "/artworks/"+a.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, send(s.other, http.MethodGet, "/artworks/"+a.ID, "").Code)

	list := decode[struct {
		Artworks []ArtworkDTO `json:"artworks"`
	}](t, send(s.artist, http.MethodGet, "/artworks?status=available", ""))
	assert.Len(t, list.Artworks, 1)
	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodGet, "/artworks?status=lost", "").Code)
}

func TestArtworkErrors(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodPost, "/artworks", `{"title":"X","images":[{"is_primary":true}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodPost, "/artworks", `{"title":"X","status":"available"}`).Code)

	a := decode[ArtworkDTO](t, send(s.artist, http.MethodPost, "/artworks", published))
	w := send(s.artist, http.MethodPut, "/artworks/"+a.ID, `{"title":"Later","version":5}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = send(s.artist, http.MethodPut, "/artworks/"+a.ID, `{"title":"Later","version":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[ArtworkDTO](t, w).Version)

	sys := decode[struct {
		Catalogues []CatalogueDTO `json:"catalogues"`
	}](t, send(s.other, http.MethodGet, "/catalogues", ""))
	require.Len(t, sys.Catalogues, 1)
	w = send(s.artist, http.MethodPut, "/artworks/"+a.ID, `{"catalogue_ids":["`+sys.Catalogues[0].ID+`"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, http.StatusNoContent, send(s.artist, http.MethodDelete, "/artworks/"+a.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, send(s.artist, http.MethodDelete, "/artworks/"+a.ID, "").Code)
}

func TestEditionToggle(t *testing.T) {
	s := newServer(t)
	body := `{
		"title": "Tide",
		"status": "available",
		"medium": "Etching",
		"dimensions": {"width": 20, "height": 30, "unit": "cm"},
		"edition": {"is_edition": true, "numeric_size": 2, "ap_size": 0}
	}`
	a := decode[ArtworkDTO](t, send(s.artist, http.MethodPost, "/artworks", body))
	assert.Equal(t, []string{"1/2", "2/2"}, a.Edition.Available)

	w := send(s.artist, http.MethodPut, "/artworks/"+a.ID+"/editions", `{"identifier":"1/2","sold":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[ArtworkDTO](t, w)
	assert.Equal(t, []string{"1/2"}, got.Edition.Sold)
	assert.Equal(t, "available", got.Status)

	w = send(s.artist, http.MethodPut, "/artworks/"+a.ID+"/editions", `{"identifier":"2/2","sold":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[ArtworkDTO](t, w)
	assert.Equal(t, "sold", got.Status)
	assert.True(t, got.InAvailableCatalogue)

	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodPut, "/artworks/"+a.ID+"/editions", `{"identifier":"9/2","sold":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodPut, "/artworks/"+a.ID+"/editions", `{"identifier":"1/2"}`).Code)
	assert.Equal(t, http.StatusConflict, send(s.artist, http.MethodPut, "/artworks/"+a.ID+"/editions", `{"identifier":"1/2","sold":false,"version":1}`).Code)

	sales := decode[struct {
		Sales []json.RawMessage `json:"sales"`
	}](t, send(s.artist, http.MethodGet, "/sales", ""))
	assert.Empty(t, sales.Sales)
}

func TestCatalogueMembership(t *testing.T) {
	s := newServer(t)
	a := decode[ArtworkDTO](t, send(s.artist, http.MethodPost, "/artworks", published))
	b := decode[ArtworkDTO](t, send(s.artist, http.MethodPost, "/artworks", published))
	assert.Equal(t, "blue-hour-2", b.Slug)

	w := send(s.artist, http.MethodPost, "/catalogues", `{"title":"Night Studies"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	cat := decode[CatalogueDTO](t, w)
	assert.Equal(t, "night-studies", cat.Slug)
	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodPost, "/catalogues", `{}`).Code)

	for _, id := range []string{a.ID, b.ID} {
		w = send(s.artist, http.MethodPut, "/catalogues/"+cat.ID+"/artworks/"+id, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{cat.ID}, decode[ArtworkDTO](t, w).CatalogueIDs)
	}

	order := `{"artwork_ids":["` + b.ID + `","` + a.ID + `"]}`
	require.Equal(t, http.StatusOK, send(s.artist, http.MethodPut, "/catalogues/"+cat.ID+"/order", order).Code)
	members := decode[CatalogueWithArtworksDTO](t, send(s.artist, http.MethodGet, "/catalogues/"+cat.ID+"/artworks", ""))
	require.Len(t, members.Artworks, 2)
	assert.Equal(t, b.ID, members.Artworks[0].ID)

	w = send(s.artist, http.MethodDelete, "/catalogues/"+cat.ID+"/artworks/"+a.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[ArtworkDTO](t, w).CatalogueIDs)

	list := decode[struct {
		Catalogues []CatalogueDTO `json:"catalogues"`
	}](t, send(s.artist, http.MethodGet, "/catalogues", ""))
	require.Len(t, list.Catalogues, 2)
	sys := list.Catalogues[0]
	assert.True(t, sys.IsSystem)
	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodPut, "/catalogues/"+sys.ID+"/artworks/"+a.ID, "").Code)
	assert.Equal(t, http.StatusBadRequest, send(s.artist, http.MethodDelete, "/catalogues/"+sys.ID, "").Code)

	assert.Equal(t, http.StatusNoContent, send(s.artist, http.MethodDelete, "/catalogues/"+cat.ID, "").Code)
}

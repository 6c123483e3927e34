package collectors

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"
	"artmarket/internal/infra/events"
	"artmarket/internal/infra/payments"
	"artmarket/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	artistID    uint = 7
	collectorID uint = 20
)

type fakeCheckout struct {
	got payments.CheckoutRequest
	err error
}

func (f *fakeCheckout) CreateCheckout(req payments.CheckoutRequest) (string, error) {
	f.got = req
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.example/cs_test", nil
}

type env struct {
	store    *memstore.Store
	svc      *inventory.Service
	events   *events.Recorder
	checkout *fakeCheckout
	router   *gin.Engine
}

// asUser stands in for the auth middleware.
func asUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Set("email", "buyer@example.com")
		c.Next()
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	slug := "ada-vale"
	st.PutUser(users.User{ID: artistID, Name: "Ada", Lastname: "Vale", Role: users.RoleArtist, SiteSlug: &slug})
	st.PutUser(users.User{ID: collectorID, Name: "Cole", Role: users.RoleCollector})

	rec := &events.Recorder{}
	svc := inventory.NewService(st, rec, 3)
	co := &fakeCheckout{}
	h := NewHandler(st, svc, co, rec)

	r := gin.New()
	r.GET("/artists/:slug/available", h.AvailableWork)
	r.GET("/artists/:slug/catalogues/:catalogue", h.PublicCatalogue)
	r.GET("/public/artworks/:id", h.PublicArtwork)
	r.POST("/public/artworks/:id/inquiries", h.CreateInquiry)

	collector := r.Group("/", asUser(collectorID))
	collector.GET("/favorites", h.ListFavorites)
	collector.PUT("/favorites/:artworkId", h.AddFavorite)
	collector.DELETE("/favorites/:artworkId", h.RemoveFavorite)
	collector.POST("/artworks/:id/checkout", h.Checkout)

	artist := r.Group("/artist", asUser(artistID))
	artist.GET("/inquiries", h.ListInquiries)
	artist.PUT("/inquiries/:id", h.UpdateInquiry)
	artist.POST("/artworks/:id/checkout", h.Checkout)

	return &env{store: st, svc: svc, events: rec, checkout: co, router: r}
}

func ptr[T any](v T) *T { return &v }

func (e *env) artwork(t *testing.T, status works.Status, edition *inventory.EditionInput) *works.Artwork {
	t.Helper()
	a, err := e.svc.CreateArtwork(context.Background(), artistID, inventory.ArtworkInput{
		Title:      ptr("Blue Hour"),
		Status:     ptr(status),
		Medium:     ptr("Oil on linen"),
		Dimensions: &works.Dimensions{Width: 60, Height: 80, Unit: works.UnitCM},
		Pricing: &works.Pricing{
			Mode:     works.PricingFixed,
			Amount:   decimal.NewNullDecimal(decimal.NewFromInt(1200)),
			Currency: "EUR",
		},
		Edition: edition,
		Images:  []inventory.ImageInput{{OriginalPath: "originals/blue-hour.jpg", IsPrimary: true}},
	})
	require.NoError(t, err)
	return a
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestAvailableWork(t *testing.T) {
	e := newEnv(t)
	e.artwork(t, works.StatusAvailable, nil)
	e.artwork(t, works.StatusDraft, nil)

	w := e.do(http.MethodGet, "/artists/ada-vale/available", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "originals/blue-hour.jpg")

	var body struct {
		Artist   string             `json:"artist"`
		Artworks []PublicArtworkDTO `json:"artworks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Ada Vale", body.Artist)
	require.Len(t, body.Artworks, 1)
	assert.Equal(t, "available", body.Artworks[0].Status)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/artists/nobody/available", nil).Code)
}

func TestPublicArtworkHidesDrafts(t *testing.T) {
	e := newEnv(t)
	draft := e.artwork(t, works.StatusDraft, nil)
	ed := e.artwork(t, works.StatusAvailable, &inventory.EditionInput{IsEdition: true, NumericSize: 2, APSize: 1})

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/public/artworks/"+draft.ID, nil).Code)

	w := e.do(http.MethodGet, "/public/artworks/"+ed.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dto PublicArtworkDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	assert.Equal(t, []string{"1/2", "2/2", "AP 1/1"}, dto.Edition.Available)
	require.Len(t, dto.Images, 1)
	assert.Empty(t, dto.Images[0].WatermarkPath)
}

func TestPublicCatalogue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, err := e.svc.CreateCatalogue(ctx, artistID, inventory.CatalogueInput{Title: ptr("Night Studies")})
	require.NoError(t, err)

	pub := e.artwork(t, works.StatusAvailable, nil)
	draft := e.artwork(t, works.StatusDraft, nil)
	for _, id := range []string{pub.ID, draft.ID} {
		_, err := e.svc.SetMembership(ctx, artistID, c.ID, id, true)
		require.NoError(t, err)
	}

	w := e.do(http.MethodGet, "/artists/ada-vale/catalogues/"+c.Slug, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dto PublicCatalogueDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	assert.Equal(t, "Night Studies", dto.Title)
	require.Len(t, dto.Artworks, 1)
	assert.Equal(t, pub.ID, dto.Artworks[0].ID)
}

func TestFavorites(t *testing.T) {
	e := newEnv(t)
	a := e.artwork(t, works.StatusAvailable, nil)
	draft := e.artwork(t, works.StatusDraft, nil)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/favorites/"+draft.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPut, "/favorites/"+a.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPut, "/favorites/"+a.ID, nil).Code)

	w := e.do(http.MethodGet, "/favorites", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Artworks []PublicArtworkDTO `json:"artworks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Artworks, 1)

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/favorites/"+a.ID, nil).Code)
	w = e.do(http.MethodGet, "/favorites", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Artworks)
}

func TestInquiries(t *testing.T) {
	e := newEnv(t)
	a := e.artwork(t, works.StatusAvailable, nil)

	bad := e.do(http.MethodPost, "/public/artworks/"+a.ID+"/inquiries", gin.H{"name": "Cole", "email": "nope", "message": "Hi"})
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	w := e.do(http.MethodPost, "/public/artworks/"+a.ID+"/inquiries", gin.H{
		"name":    "Cole",
		"email":   "cole@example.com",
		"message": "Is it still available?",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "open", created.Status)
	assert.Contains(t, e.events.Types(), events.InquiryCreated)

	list := e.do(http.MethodGet, "/artist/inquiries?status=open", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), "Is it still available?")
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/artist/inquiries?status=lost", nil).Code)

	upd := e.do(http.MethodPut, "/artist/inquiries/"+created.ID, gin.H{"status": "answered"})
	require.Equal(t, http.StatusOK, upd.Code)
	assert.Contains(t, upd.Body.String(), `"status":"answered"`)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/artist/inquiries/"+created.ID, gin.H{"status": "lost"}).Code)

	list = e.do(http.MethodGet, "/artist/inquiries?status=open", nil)
	assert.JSONEq(t, `{"inquiries":[]}`, list.Body.String())
}

func TestCheckout(t *testing.T) {
	e := newEnv(t)
	a := e.artwork(t, works.StatusAvailable, &inventory.EditionInput{IsEdition: true, NumericSize: 2})

	w := e.do(http.MethodPost, "/artworks/"+a.ID+"/checkout", gin.H{"edition": "2/2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url":"https://checkout.example/cs_test"}`, w.Body.String())
	assert.Equal(t, "2/2", e.checkout.got.Edition)
	assert.Equal(t, collectorID, e.checkout.got.BuyerUserID)
	assert.Equal(t, "buyer@example.com", e.checkout.got.BuyerEmail)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/artworks/"+a.ID+"/checkout", gin.H{"edition": "3/2"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/artist/artworks/"+a.ID+"/checkout", gin.H{"edition": "1/2"}).Code)

	e.checkout.err = payments.ErrNotConfigured
	assert.Equal(t, http.StatusServiceUnavailable, e.do(http.MethodPost, "/artworks/"+a.ID+"/checkout", gin.H{"edition": "1/2"}).Code)
}

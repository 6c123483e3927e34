package compositor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"artmarket/internal/domain/derivatives"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerate(t *testing.T) {
	var got regenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/regenerate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"watermark_path":"wm/a.jpg","visualization_path":""}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	res, err := c.Regenerate(context.Background(), "art-1", derivatives.Request{Watermark: true})
	require.NoError(t, err)

	assert.Equal(t, regenerateRequest{ArtworkID: "art-1", ForceWatermark: true}, got)
	assert.Equal(t, "wm/a.jpg", res.WatermarkPath)
	assert.True(t, res.Covers(derivatives.Request{Watermark: true}))
	assert.False(t, res.Covers(derivatives.Request{Visualization: true}))
}

func TestRegenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "source image missing", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Regenerate(context.Background(), "art-1", derivatives.Request{Visualization: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "source image missing")
}

func TestRegenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).Regenerate(context.Background(), "art-1", derivatives.Request{Watermark: true})
	assert.Error(t, err)
}

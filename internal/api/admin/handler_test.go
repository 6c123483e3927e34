package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"artmarket/internal/app/inventory"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/infra/events"
	"artmarket/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memstore.Store, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memstore.New()
	h := NewHandler(st, inventory.NewService(st, &events.Recorder{}, 3))

	r := gin.New()
	r.GET("/admin/dashboard", h.AdminDashboard)
	r.GET("/admin/tasks", h.ListTasks)
	r.POST("/admin/tasks/:id/requeue", h.RequeueTask)
	r.POST("/admin/reconcile", h.Reconcile)
	return st, r
}

func call(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func failedTask(t *testing.T, st *memstore.Store) derivatives.Task {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.EnqueueRegeneration(ctx, "a1", "", derivatives.Request{Watermark: true}, 1))
	claimed, err := st.ClaimDue(ctx, time.Now().Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, st.Fail(ctx, claimed[0], "compositor returned 500"))
	return claimed[0]
}

func stats(t *testing.T, r *gin.Engine) AdminStats {
	t.Helper()
	w := call(r, http.MethodGet, "/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Regeneration AdminStats `json:"regeneration"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Regeneration
}

func TestRequeueFailedTask(t *testing.T) {
	st, r := setup(t)
	task := failedTask(t, st)

	assert.Equal(t, AdminStats{Failed: 1}, stats(t, r))

	w := call(r, http.MethodGet, "/admin/tasks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "compositor returned 500")

	assert.Equal(t, http.StatusAccepted, call(r, http.MethodPost, "/admin/tasks/"+task.ID+"/requeue").Code)
	assert.Equal(t, AdminStats{Pending: 1}, stats(t, r))
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/admin/tasks/"+task.ID+"/requeue").Code)

	tasks := st.Tasks()
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].Watermark)
	assert.Zero(t, tasks[0].Attempts)
}

func TestListTasksValidation(t *testing.T) {
	_, r := setup(t)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/admin/tasks?status=lost").Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/admin/tasks?limit=0").Code)

	w := call(r, http.MethodGet, "/admin/tasks?status=pending&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())
}

func TestReconcile(t *testing.T) {
	_, r := setup(t)

	w := call(r, http.MethodPost, "/admin/reconcile")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"repaired":0}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/admin/reconcile?artist_id=x").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/admin/reconcile?artist_id=7").Code)
}

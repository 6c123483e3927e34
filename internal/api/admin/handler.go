// Package admin exposes operator endpoints: regeneration queue health,
// requeueing failed tasks and catalogue reconciliation.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"artmarket/internal/api/apierr"
	"artmarket/internal/domain/derivatives"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const defaultTaskLimit = 50

type Store interface {
	TaskCounts(ctx context.Context) (map[derivatives.TaskStatus]int64, error)
	TasksByStatus(ctx context.Context, status derivatives.TaskStatus, limit int) ([]derivatives.Task, error)
	RequeueFailed(ctx context.Context, id string) error
}

type Reconciler interface {
	Reconcile(ctx context.Context, ownerID uint) (int, error)
	ReconcileAll(ctx context.Context) (int, error)
}

type Handler struct {
	store      Store
	reconciler Reconciler
}

func NewHandler(store Store, reconciler Reconciler) *Handler {
	return &Handler{store: store, reconciler: reconciler}
}

type AdminStats struct {
	Pending int64 `json:"pending"`
	Running int64 `json:"running"`
	Done    int64 `json:"done"`
	Failed  int64 `json:"failed"`
}

func (h *Handler) AdminDashboard(c *gin.Context) {
	counts, err := h.store.TaskCounts(c.Request.Context())
	if err != nil {
		apierr.Respond(c, err, "Failed to load queue stats")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"regeneration": AdminStats{
			Pending: counts[derivatives.TaskPending],
			Running: counts[derivatives.TaskRunning],
			Done:    counts[derivatives.TaskDone],
			Failed:  counts[derivatives.TaskFailed],
		},
	})
}

// ListTasks defaults to failed tasks, newest first.
func (h *Handler) ListTasks(c *gin.Context) {
	status := derivatives.TaskStatus(c.DefaultQuery("status", string(derivatives.TaskFailed)))
	switch status {
	case derivatives.TaskPending, derivatives.TaskRunning, derivatives.TaskDone, derivatives.TaskFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	limit := defaultTaskLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	tasks, err := h.store.TasksByStatus(c.Request.Context(), status, limit)
	if err != nil {
		apierr.Respond(c, err, "Failed to load tasks")
		return
	}
	if tasks == nil {
		tasks = []derivatives.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *Handler) RequeueTask(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.RequeueFailed(c.Request.Context(), id); err != nil {
		apierr.Respond(c, err, "Failed to requeue task")
		return
	}
	log.WithFields(log.Fields{"task_id": id, "admin_id": c.GetUint("user_id")}).Info("regeneration task requeued")
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// Reconcile repairs system catalogue membership for one artist, or for
// every artist when no artist_id is given.
func (h *Handler) Reconcile(c *gin.Context) {
	raw := c.Query("artist_id")
	if raw == "" {
		n, err := h.reconciler.ReconcileAll(c.Request.Context())
		if err != nil {
			apierr.Respond(c, err, "Failed to reconcile catalogues")
			return
		}
		c.JSON(http.StatusOK, gin.H{"repaired": n})
		return
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid artist_id"})
		return
	}
	n, err := h.reconciler.Reconcile(c.Request.Context(), uint(id))
	if err != nil {
		apierr.Respond(c, err, "Failed to reconcile catalogues")
		return
	}
	c.JSON(http.StatusOK, gin.H{"repaired": n})
}

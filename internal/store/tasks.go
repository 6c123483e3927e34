package store

import (
	"context"
	"time"

	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/works"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnqueueRegeneration upserts the artwork's pending task. The partial unique
// index on (artwork_id) WHERE status = 'pending' makes concurrent requests
// merge instead of racing.
func (s *Store) EnqueueRegeneration(ctx context.Context, artworkID, imageID string, req derivatives.Request, maxAttempts int) error {
	db := s.conn(ctx)
	now := time.Now()

	t := derivatives.Task{
		ID:            uuid.NewString(),
		ArtworkID:     artworkID,
		ImageID:       imageID,
		Watermark:     req.Watermark,
		Visualization: req.Visualization,
		Status:        derivatives.TaskPending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "artwork_id"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Eq{Column: clause.Column{Name: "status"}, Value: derivatives.TaskPending}}},
		DoUpdates: clause.Assignments(map[string]any{
			"watermark":       gorm.Expr("regeneration_tasks.watermark OR excluded.watermark"),
			"visualization":   gorm.Expr("regeneration_tasks.visualization OR excluded.visualization"),
			"next_attempt_at": gorm.Expr("LEAST(regeneration_tasks.next_attempt_at, excluded.next_attempt_at)"),
			"image_id":        gorm.Expr("COALESCE(NULLIF(excluded.image_id, ''), regeneration_tasks.image_id)"),
			"updated_at":      now,
		}),
	}).Create(&t).Error
	if err != nil {
		return errors.Wrap(err, "upsert regeneration task")
	}

	if imageID == "" {
		return nil
	}
	return markImage(db, imageID, req, works.DerivativePending)
}

func markImage(db *gorm.DB, imageID string, req derivatives.Request, status works.DerivativeStatus) error {
	updates := map[string]any{"updated_at": time.Now()}
	if req.Watermark {
		updates["watermark_status"] = status
	}
	if req.Visualization {
		updates["visualization_status"] = status
	}
	err := db.Model(&works.ArtworkImage{}).Where("id = ?", imageID).Updates(updates).Error
	return errors.Wrap(err, "mark image derivatives")
}

// ClaimDue moves up to limit due tasks to running. Rows locked by another
// worker are skipped, as are artworks that already have a running task.
func (s *Store) ClaimDue(ctx context.Context, now time.Time, limit int) ([]derivatives.Task, error) {
	var claimed []derivatives.Task
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		err := db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", derivatives.TaskPending, now).
			Where("NOT EXISTS (SELECT 1 FROM regeneration_tasks r WHERE r.artwork_id = regeneration_tasks.artwork_id AND r.status = ?)", derivatives.TaskRunning).
			Order("next_attempt_at ASC").
			Limit(limit).
			Find(&claimed).Error
		if err != nil || len(claimed) == 0 {
			return err
		}

		ids := make([]string, 0, len(claimed))
		for i := range claimed {
			ids = append(ids, claimed[i].ID)
			claimed[i].Status = derivatives.TaskRunning
			claimed[i].Attempts++
		}
		return db.Model(&derivatives.Task{}).Where("id IN ?", ids).Updates(map[string]any{
			"status":     derivatives.TaskRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": now,
		}).Error
	})
	return claimed, errors.Wrap(err, "claim tasks")
}

// Complete stores the compositor's paths on the primary image and closes the
// task. A derivative that a newer pending task will rebuild stays pending.
// Nothing is written when the primary image changed while the task ran.
func (s *Store) Complete(ctx context.Context, task derivatives.Task, res derivatives.Result) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		if err := setTaskStatus(db, task.ID, derivatives.TaskDone, ""); err != nil {
			return err
		}

		img, err := primaryImage(db, task.ArtworkID)
		if err != nil || img == nil || !task.Targets(img.ID) {
			return err
		}
		queued, err := pendingRequest(db, task.ArtworkID)
		if err != nil {
			return err
		}

		updates := map[string]any{"updated_at": time.Now()}
		if task.Watermark {
			updates["watermark_path"] = res.WatermarkPath
			if !queued.Watermark {
				updates["watermark_status"] = works.DerivativeReady
			}
		}
		if task.Visualization {
			updates["visualization_path"] = res.VisualizationPath
			if !queued.Visualization {
				updates["visualization_status"] = works.DerivativeReady
			}
		}
		return db.Model(&works.ArtworkImage{}).Where("id = ?", img.ID).Updates(updates).Error
	})
}

// Retry puts a failed task back in the queue at the given time. If a newer
// pending task exists for the artwork the two are merged.
func (s *Store) Retry(ctx context.Context, task derivatives.Task, reason string, at time.Time) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		return retry(s.conn(ctx), task, reason, at)
	})
}

func retry(db *gorm.DB, task derivatives.Task, reason string, at time.Time) error {
	var pending derivatives.Task
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("artwork_id = ? AND status = ?", task.ArtworkID, derivatives.TaskPending).
		First(&pending).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Model(&derivatives.Task{}).Where("id = ?", task.ID).Updates(map[string]any{
			"status":          derivatives.TaskPending,
			"next_attempt_at": at,
			"last_error":      reason,
			"updated_at":      time.Now(),
		}).Error
	case err != nil:
		return errors.Wrap(err, "load pending task")
	}

	err = db.Model(&pending).Updates(map[string]any{
		"watermark":     pending.Watermark || task.Watermark,
		"visualization": pending.Visualization || task.Visualization,
		"last_error":    reason,
		"updated_at":    time.Now(),
	}).Error
	if err != nil {
		return errors.Wrap(err, "merge into pending task")
	}
	return db.Delete(&derivatives.Task{}, "id = ?", task.ID).Error
}

// Fail closes a task that ran out of attempts and marks its derivatives failed.
func (s *Store) Fail(ctx context.Context, task derivatives.Task, reason string) error {
	return s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		if err := setTaskStatus(db, task.ID, derivatives.TaskFailed, reason); err != nil {
			return err
		}

		img, err := primaryImage(db, task.ArtworkID)
		if err != nil || img == nil || !task.Targets(img.ID) {
			return err
		}
		queued, err := pendingRequest(db, task.ArtworkID)
		if err != nil {
			return err
		}
		failed := derivatives.Request{
			Watermark:     task.Watermark && !queued.Watermark,
			Visualization: task.Visualization && !queued.Visualization,
		}
		if failed.Empty() {
			return nil
		}
		return markImage(db, img.ID, failed, works.DerivativeFailed)
	})
}

// RequeueStale returns running tasks not touched since before to the queue.
// Their attempt stays counted.
func (s *Store) RequeueStale(ctx context.Context, before time.Time) (int, error) {
	n := 0
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var stale []derivatives.Task
		err := db.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND updated_at < ?", derivatives.TaskRunning, before).
			Find(&stale).Error
		if err != nil {
			return err
		}
		for _, t := range stale {
			if err := retry(db, t, "worker lost the task", time.Now()); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, errors.Wrap(err, "requeue stale tasks")
}

func (s *Store) QueueDepth(ctx context.Context) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&derivatives.Task{}).Where("status = ?", derivatives.TaskPending).Count(&n).Error
	return n, errors.Wrap(err, "count pending tasks")
}

func setTaskStatus(db *gorm.DB, id string, status derivatives.TaskStatus, reason string) error {
	err := db.Model(&derivatives.Task{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"last_error": reason,
		"updated_at": time.Now(),
	}).Error
	return errors.Wrapf(err, "set task %s", status)
}

func primaryImage(db *gorm.DB, artworkID string) (*works.ArtworkImage, error) {
	var img works.ArtworkImage
	err := db.Where("artwork_id = ? AND is_primary", artworkID).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load primary image")
	}
	return &img, nil
}

func pendingRequest(db *gorm.DB, artworkID string) (derivatives.Request, error) {
	var t derivatives.Task
	err := db.Where("artwork_id = ? AND status = ?", artworkID, derivatives.TaskPending).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return derivatives.Request{}, nil
	}
	if err != nil {
		return derivatives.Request{}, errors.Wrap(err, "load pending task")
	}
	return t.Request(), nil
}

// TasksByStatus lists tasks most recently touched first.
func (s *Store) TasksByStatus(ctx context.Context, status derivatives.TaskStatus, limit int) ([]derivatives.Task, error) {
	var items []derivatives.Task
	err := s.conn(ctx).Where("status = ?", status).Order("updated_at DESC").Limit(limit).Find(&items).Error
	return items, errors.Wrap(err, "list regeneration tasks")
}

func (s *Store) TaskCounts(ctx context.Context) (map[derivatives.TaskStatus]int64, error) {
	var rows []struct {
		Status derivatives.TaskStatus
		N      int64
	}
	err := s.conn(ctx).Model(&derivatives.Task{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count regeneration tasks")
	}
	out := make(map[derivatives.TaskStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// RequeueFailed drops a failed task and enqueues its request again with a
// fresh attempt budget.
func (s *Store) RequeueFailed(ctx context.Context, id string) error {
	if !validID(id) {
		return works.ErrNotFound
	}
	return s.WithinTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var t derivatives.Task
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND status = ?", id, derivatives.TaskFailed).
			First(&t).Error
		if err != nil {
			return notFound(err)
		}
		if err := db.Delete(&derivatives.Task{}, "id = ?", t.ID).Error; err != nil {
			return errors.Wrap(err, "delete failed task")
		}

		img, err := primaryImage(db, t.ArtworkID)
		if err != nil {
			return err
		}
		imageID := ""
		if img != nil {
			imageID = img.ID
		}
		return s.EnqueueRegeneration(ctx, t.ArtworkID, imageID, t.Request(), t.MaxAttempts)
	})
}

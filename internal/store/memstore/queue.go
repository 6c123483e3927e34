package memstore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"artmarket/internal/domain/collectors"
	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/users"
	"artmarket/internal/domain/works"

	"github.com/google/uuid"
)

func (s *Store) EnqueueRegeneration(_ context.Context, artworkID, imageID string, req derivatives.Request, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()

	if t, ok := s.pendingTask(artworkID); ok {
		t.Watermark = t.Watermark || req.Watermark
		t.Visualization = t.Visualization || req.Visualization
		if imageID != "" {
			t.ImageID = imageID
		}
		if now.Before(t.NextAttemptAt) {
			t.NextAttemptAt = now
		}
		t.UpdatedAt = now
		s.st.tasks[t.ID] = t
	} else {
		t := derivatives.Task{
			ID:            uuid.NewString(),
			ArtworkID:     artworkID,
			ImageID:       imageID,
			Watermark:     req.Watermark,
			Visualization: req.Visualization,
			Status:        derivatives.TaskPending,
			MaxAttempts:   maxAttempts,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		s.st.tasks[t.ID] = t
	}

	if imageID != "" {
		s.markImage(imageID, req, works.DerivativePending)
	}
	return nil
}

func (s *Store) pendingTask(artworkID string) (derivatives.Task, bool) {
	for _, t := range s.st.tasks {
		if t.ArtworkID == artworkID && t.Status == derivatives.TaskPending {
			return t, true
		}
	}
	return derivatives.Task{}, false
}

func (s *Store) markImage(imageID string, req derivatives.Request, status works.DerivativeStatus) {
	img, ok := s.st.images[imageID]
	if !ok {
		return
	}
	if req.Watermark {
		img.WatermarkStatus = status
	}
	if req.Visualization {
		img.VisualizationStatus = status
	}
	s.st.images[imageID] = img
}

func (s *Store) primaryImage(artworkID string) (works.ArtworkImage, bool) {
	for _, img := range s.st.images {
		if img.ArtworkID == artworkID && img.IsPrimary {
			return img, true
		}
	}
	return works.ArtworkImage{}, false
}

func (s *Store) ClaimDue(_ context.Context, now time.Time, limit int) ([]derivatives.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	running := map[string]bool{}
	for _, t := range s.st.tasks {
		if t.Status == derivatives.TaskRunning {
			running[t.ArtworkID] = true
		}
	}

	var due []derivatives.Task
	for _, t := range s.st.tasks {
		if t.Status == derivatives.TaskPending && !t.NextAttemptAt.After(now) && !running[t.ArtworkID] {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	for i := range due {
		due[i].Status = derivatives.TaskRunning
		due[i].Attempts++
		due[i].UpdatedAt = now
		s.st.tasks[due[i].ID] = due[i]
	}
	return due, nil
}

func (s *Store) Complete(_ context.Context, task derivatives.Task, res derivatives.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(task.ID, derivatives.TaskDone, "")

	img, ok := s.primaryImage(task.ArtworkID)
	if !ok || !task.Targets(img.ID) {
		return nil
	}
	queued, _ := s.pendingTask(task.ArtworkID)
	if task.Watermark {
		p := res.WatermarkPath
		img.WatermarkPath = &p
		if !queued.Watermark {
			img.WatermarkStatus = works.DerivativeReady
		}
	}
	if task.Visualization {
		p := res.VisualizationPath
		img.VisualizationPath = &p
		if !queued.Visualization {
			img.VisualizationStatus = works.DerivativeReady
		}
	}
	s.st.images[img.ID] = img
	return nil
}

func (s *Store) Retry(_ context.Context, task derivatives.Task, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retry(task, reason, at)
	return nil
}

func (s *Store) retry(task derivatives.Task, reason string, at time.Time) {
	if pending, ok := s.pendingTask(task.ArtworkID); ok {
		pending.Watermark = pending.Watermark || task.Watermark
		pending.Visualization = pending.Visualization || task.Visualization
		pending.LastError = reason
		s.st.tasks[pending.ID] = pending
		delete(s.st.tasks, task.ID)
		return
	}
	t, ok := s.st.tasks[task.ID]
	if !ok {
		return
	}
	t.Status = derivatives.TaskPending
	t.NextAttemptAt = at
	t.LastError = reason
	t.UpdatedAt = time.Now()
	s.st.tasks[t.ID] = t
}

func (s *Store) Fail(_ context.Context, task derivatives.Task, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStatus(task.ID, derivatives.TaskFailed, reason)

	img, ok := s.primaryImage(task.ArtworkID)
	if !ok || !task.Targets(img.ID) {
		return nil
	}
	queued, _ := s.pendingTask(task.ArtworkID)
	s.markImage(img.ID, derivatives.Request{
		Watermark:     task.Watermark && !queued.Watermark,
		Visualization: task.Visualization && !queued.Visualization,
	}, works.DerivativeFailed)
	return nil
}

func (s *Store) RequeueStale(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.st.tasks {
		if t.Status == derivatives.TaskRunning && t.UpdatedAt.Before(before) {
			s.retry(t, "worker lost the task", time.Now())
			n++
		}
	}
	return n, nil
}

func (s *Store) QueueDepth(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.st.tasks {
		if t.Status == derivatives.TaskPending {
			n++
		}
	}
	return n, nil
}

func (s *Store) TasksByStatus(_ context.Context, status derivatives.TaskStatus, limit int) ([]derivatives.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []derivatives.Task
	for _, t := range s.st.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) TaskCounts(_ context.Context) (map[derivatives.TaskStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[derivatives.TaskStatus]int64{}
	for _, t := range s.st.tasks {
		out[t.Status]++
	}
	return out, nil
}

func (s *Store) RequeueFailed(ctx context.Context, id string) error {
	s.mu.Lock()
	t, ok := s.st.tasks[id]
	if !ok || t.Status != derivatives.TaskFailed {
		s.mu.Unlock()
		return works.ErrNotFound
	}
	delete(s.st.tasks, id)
	img, _ := s.primaryImage(t.ArtworkID)
	s.mu.Unlock()

	return s.EnqueueRegeneration(ctx, t.ArtworkID, img.ID, t.Request(), t.MaxAttempts)
}

func (s *Store) setStatus(id string, status derivatives.TaskStatus, reason string) {
	t, ok := s.st.tasks[id]
	if !ok {
		return
	}
	t.Status = status
	t.LastError = reason
	t.UpdatedAt = time.Now()
	s.st.tasks[id] = t
}

func (s *Store) ArtistBySiteSlug(_ context.Context, slug string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.st.users {
		if u.SiteSlug != nil && *u.SiteSlug == slug {
			return &u, nil
		}
	}
	return nil, works.ErrNotFound
}

func (s *Store) AvailableWork(ctx context.Context, artistID uint) ([]works.Artwork, error) {
	sys, err := s.SystemCatalogue(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return s.CatalogueArtworks(ctx, sys.ID)
}

func (s *Store) PublicCatalogue(_ context.Context, artistID uint, slug string) (*works.Catalogue, []works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.st.catalogues {
		if c.UserID == artistID && c.Slug == slug {
			return &c, s.members(c.ID, true), nil
		}
	}
	return nil, nil, works.ErrNotFound
}

func (s *Store) AddFavorite(_ context.Context, userID uint, artworkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := favoriteKey{userID: userID, artworkID: artworkID}
	if _, ok := s.st.favorites[k]; !ok {
		s.st.favorites[k] = collectors.Favorite{UserID: userID, ArtworkID: artworkID, CreatedAt: time.Now()}
	}
	return nil
}

func (s *Store) RemoveFavorite(_ context.Context, userID uint, artworkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.favorites, favoriteKey{userID: userID, artworkID: artworkID})
	return nil
}

func (s *Store) Favorites(_ context.Context, userID uint) ([]works.Artwork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []works.Artwork
	for k := range s.st.favorites {
		if k.userID != userID {
			continue
		}
		if a, ok := s.st.artworks[k.artworkID]; ok && a.Status.Public() {
			out = append(out, s.assemble(a))
		}
	}
	sortArtworks(out)
	return out, nil
}

func (s *Store) CreateInquiry(_ context.Context, q *collectors.Inquiry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Status == "" {
		q.Status = collectors.InquiryOpen
	}
	now := time.Now()
	q.CreatedAt, q.UpdatedAt = now, now
	s.st.inquiries[q.ID] = *q
	return nil
}

func (s *Store) ArtistInquiries(_ context.Context, artistID uint, status collectors.InquiryStatus) ([]collectors.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []collectors.Inquiry
	for _, q := range s.st.inquiries {
		if q.ArtistID == artistID && (status == "" || q.Status == status) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SetInquiryStatus(_ context.Context, artistID uint, id string, status collectors.InquiryStatus) (*collectors.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.st.inquiries[id]
	if !ok || q.ArtistID != artistID {
		return nil, works.ErrNotFound
	}
	q.Status = status
	q.UpdatedAt = time.Now()
	s.st.inquiries[id] = q
	return &q, nil
}

func uintString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

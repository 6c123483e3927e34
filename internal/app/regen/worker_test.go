package regen

import (
	"context"
	"sync"
	"testing"
	"time"

	"artmarket/internal/domain/derivatives"
	"artmarket/internal/domain/works"
	"artmarket/internal/store/memstore"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeCompositor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeCompositor) Regenerate(_ context.Context, artworkID string, req derivatives.Request) (derivatives.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return derivatives.Result{}, f.err
	}
	var res derivatives.Result
	if req.Watermark {
		res.WatermarkPath = "watermarked/" + artworkID + ".jpg"
	}
	if req.Visualization {
		res.VisualizationPath = "rooms/" + artworkID + ".jpg"
	}
	return res, nil
}

func seed(t *testing.T, st *memstore.Store, maxAttempts int) (artworkID, imageID string) {
	t.Helper()
	ctx := context.Background()
	a := &works.Artwork{ID: "art-1", UserID: 1, Title: "Field", Slug: "field", Status: works.StatusDraft, Version: 1}
	require.NoError(t, st.CreateArtwork(ctx, a))
	img := works.ArtworkImage{ID: "img-1", OriginalPath: "originals/field.jpg", IsPrimary: true}
	require.NoError(t, st.ReplaceImages(ctx, a.ID, []works.ArtworkImage{img}))
	require.NoError(t, st.EnqueueRegeneration(ctx, a.ID, img.ID, derivatives.Request{Watermark: true, Visualization: true}, maxAttempts))
	return a.ID, img.ID
}

func primary(t *testing.T, st *memstore.Store, artworkID string) works.ArtworkImage {
	t.Helper()
	a, err := st.LockArtwork(context.Background(), artworkID)
	require.NoError(t, err)
	img := a.PrimaryImage()
	require.NotNil(t, img)
	return *img
}

func TestTickCompletesTask(t *testing.T) {
	st := memstore.New()
	artworkID, _ := seed(t, st, 3)
	comp := &fakeCompositor{}
	w := NewWorker(st, comp, Config{}, prometheus.NewRegistry())

	n, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	img := primary(t, st, artworkID)
	assert.Equal(t, works.DerivativeReady, img.WatermarkStatus)
	assert.Equal(t, works.DerivativeReady, img.VisualizationStatus)
	require.NotNil(t, img.WatermarkPath)
	assert.Equal(t, "watermarked/art-1.jpg", *img.WatermarkPath)

	tasks := st.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, derivatives.TaskDone, tasks[0].Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.tasks.WithLabelValues("done")))
	assert.Equal(t, 0.0, testutil.ToFloat64(w.metrics.queue))

	n, err = w.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTickRetriesThenFails(t *testing.T) {
	st := memstore.New()
	artworkID, _ := seed(t, st, 2)
	comp := &fakeCompositor{err: errors.New("compositor unavailable")}
	w := NewWorker(st, comp, Config{BackoffInitial: time.Minute, BackoffMax: time.Hour}, nil)

	clock := time.Now()
	w.now = func() time.Time { return clock }

	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	tasks := st.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, derivatives.TaskPending, tasks[0].Status)
	assert.Equal(t, 1, tasks[0].Attempts)
	assert.Equal(t, "compositor unavailable", tasks[0].LastError)
	assert.Equal(t, clock.Add(time.Minute), tasks[0].NextAttemptAt)
	assert.Equal(t, works.DerivativePending, primary(t, st, artworkID).WatermarkStatus)

	// not due yet
	n, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	clock = clock.Add(2 * time.Minute)
	n, err = w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks = st.Tasks()
	assert.Equal(t, derivatives.TaskFailed, tasks[0].Status)
	assert.Equal(t, 2, tasks[0].Attempts)

	img := primary(t, st, artworkID)
	assert.Equal(t, works.DerivativeFailed, img.WatermarkStatus)
	assert.Equal(t, works.DerivativeFailed, img.VisualizationStatus)
	assert.Equal(t, 2, comp.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.tasks.WithLabelValues("failed")))
}

func TestIncompleteResponseIsAFailure(t *testing.T) {
	st := memstore.New()
	artworkID, _ := seed(t, st, 1)
	w := NewWorker(st, compositorFunc(func(context.Context, string, derivatives.Request) (derivatives.Result, error) {
		return derivatives.Result{WatermarkPath: "wm.jpg"}, nil
	}), Config{}, nil)

	_, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, derivatives.TaskFailed, st.Tasks()[0].Status)
	assert.Equal(t, works.DerivativeFailed, primary(t, st, artworkID).VisualizationStatus)
}

func TestNewRequestWhileRunningStaysPending(t *testing.T) {
	st := memstore.New()
	artworkID, imageID := seed(t, st, 3)

	w := NewWorker(st, compositorFunc(func(ctx context.Context, id string, req derivatives.Request) (derivatives.Result, error) {
		// the artist changes the dimensions mid-render
		assert.NoError(t, st.EnqueueRegeneration(ctx, id, imageID, derivatives.Request{Visualization: true}, 3))
		return derivatives.Result{WatermarkPath: "wm.jpg", VisualizationPath: "room.jpg"}, nil
	}), Config{}, nil)

	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	img := primary(t, st, artworkID)
	assert.Equal(t, works.DerivativeReady, img.WatermarkStatus)
	assert.Equal(t, works.DerivativePending, img.VisualizationStatus)

	tasks := st.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, derivatives.TaskDone, tasks[0].Status)
	assert.Equal(t, derivatives.TaskPending, tasks[1].Status)
}

func TestPrimaryImageSwappedWhileRunning(t *testing.T) {
	st := memstore.New()
	artworkID, _ := seed(t, st, 3)

	w := NewWorker(st, compositorFunc(func(ctx context.Context, id string, req derivatives.Request) (derivatives.Result, error) {
		// the artist uploads a new primary image mid-render
		img := works.ArtworkImage{ID: "img-2", OriginalPath: "originals/field-v2.jpg", IsPrimary: true}
		assert.NoError(t, st.ReplaceImages(ctx, id, []works.ArtworkImage{img}))
		assert.NoError(t, st.EnqueueRegeneration(ctx, id, img.ID, derivatives.Request{Watermark: true, Visualization: true}, 3))
		return derivatives.Result{WatermarkPath: "wm-old.jpg", VisualizationPath: "room-old.jpg"}, nil
	}), Config{}, nil)

	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	img := primary(t, st, artworkID)
	assert.Equal(t, "img-2", img.ID)
	assert.Nil(t, img.WatermarkPath)
	assert.Nil(t, img.VisualizationPath)
	assert.Equal(t, works.DerivativePending, img.WatermarkStatus)

	tasks := st.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, derivatives.TaskDone, tasks[0].Status)
	assert.Equal(t, derivatives.TaskPending, tasks[1].Status)
	assert.Equal(t, "img-2", tasks[1].ImageID)
}

func TestTickRequeuesStaleTask(t *testing.T) {
	st := memstore.New()
	artworkID, _ := seed(t, st, 3)

	// a worker claimed the task and died
	claimed, err := st.ClaimDue(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	comp := &fakeCompositor{}
	w := NewWorker(st, comp, Config{StaleAfter: 5 * time.Minute}, nil)

	// still inside the stale window: nothing is claimed
	n, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, derivatives.TaskRunning, st.Tasks()[0].Status)

	clock := time.Now().Add(10 * time.Minute)
	w.now = func() time.Time { return clock }

	n, err = w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks := st.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, derivatives.TaskDone, tasks[0].Status)
	assert.Equal(t, 2, tasks[0].Attempts)
	assert.Equal(t, 1, comp.calls)
	assert.Equal(t, works.DerivativeReady, primary(t, st, artworkID).WatermarkStatus)
}

func TestStaleTaskMergesIntoPending(t *testing.T) {
	st := memstore.New()
	artworkID, imageID := seed(t, st, 3)
	ctx := context.Background()

	_, err := st.ClaimDue(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.NoError(t, st.EnqueueRegeneration(ctx, artworkID, imageID, derivatives.Request{Visualization: true}, 3))

	requeued, err := st.RequeueStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, requeued)

	tasks := st.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, derivatives.TaskPending, tasks[0].Status)
	assert.True(t, tasks[0].Watermark)
	assert.True(t, tasks[0].Visualization)
	assert.Equal(t, "worker lost the task", tasks[0].LastError)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := memstore.New()
	seed(t, st, 3)
	w := NewWorker(st, &fakeCompositor{}, Config{PollInterval: 10 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return st.Tasks()[0].Status == derivatives.TaskDone
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type compositorFunc func(ctx context.Context, artworkID string, req derivatives.Request) (derivatives.Result, error)

func (f compositorFunc) Regenerate(ctx context.Context, artworkID string, req derivatives.Request) (derivatives.Result, error) {
	return f(ctx, artworkID, req)
}

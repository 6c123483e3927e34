package derivatives

import (
	"testing"
	"time"

	"artmarket/internal/domain/works"

	"github.com/stretchr/testify/assert"
)

func ready() Snapshot {
	return Snapshot{
		ArtistDisplayName: "Ana Lima",
		PrimaryImageID:    "img-1",
		PrimaryImagePath:  "uploads/a.jpg",
		HasWatermark:      true,
		HasVisualization:  true,
		Width:             40,
		Height:            60,
		Unit:              works.UnitCM,
	}
}

func TestNeedsWatermark(t *testing.T) {
	base := ready()
	assert.False(t, NeedsWatermark(base, base))

	missing := base
	missing.HasWatermark = false
	assert.True(t, NeedsWatermark(base, missing))

	renamed := base
	renamed.ArtistDisplayName = "Ana L."
	assert.True(t, NeedsWatermark(base, renamed))

	swapped := base
	swapped.PrimaryImageID = "img-2"
	assert.True(t, NeedsWatermark(base, swapped))

	resized := base
	resized.Width = 80
	assert.False(t, NeedsWatermark(base, resized))

	assert.False(t, NeedsWatermark(base, Snapshot{}), "no primary image, nothing to watermark")
}

func TestNeedsVisualization(t *testing.T) {
	base := ready()
	assert.False(t, NeedsVisualization(base, base))

	for name, mutate := range map[string]func(*Snapshot){
		"missing": func(s *Snapshot) { s.HasVisualization = false },
		"width":   func(s *Snapshot) { s.Width = 41 },
		"height":  func(s *Snapshot) { s.Height = 61 },
		"unit":    func(s *Snapshot) { s.Unit = works.UnitIN },
		"primary": func(s *Snapshot) { s.PrimaryImagePath = "uploads/b.jpg" },
	} {
		next := base
		mutate(&next)
		assert.True(t, NeedsVisualization(base, next), name)
	}

	renamed := base
	renamed.ArtistDisplayName = "Someone"
	assert.False(t, NeedsVisualization(base, renamed))
}

func TestSnapshotOf(t *testing.T) {
	wm := "derived/wm.jpg"
	a := &works.Artwork{
		Dimensions: works.Dimensions{Width: 10, Height: 20, Unit: works.UnitCM},
		Images: []works.ArtworkImage{
			{ID: "x", OriginalPath: "x.jpg"},
			{ID: "y", OriginalPath: "y.jpg", IsPrimary: true, WatermarkPath: &wm},
		},
	}
	s := SnapshotOf(a, "Ana")
	assert.Equal(t, "y", s.PrimaryImageID)
	assert.True(t, s.HasWatermark)
	assert.False(t, s.HasVisualization)
	assert.Equal(t, Request{Watermark: false, Visualization: true}, Plan(s, s))
}

func TestRequestMerge(t *testing.T) {
	assert.True(t, Request{}.Empty())
	assert.Equal(t, Request{Watermark: true, Visualization: true},
		Request{Watermark: true}.Merge(Request{Visualization: true}))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, Backoff(10*time.Second, time.Minute, 1))
	assert.Equal(t, 20*time.Second, Backoff(10*time.Second, time.Minute, 2))
	assert.Equal(t, 40*time.Second, Backoff(10*time.Second, time.Minute, 3))
	assert.Equal(t, time.Minute, Backoff(10*time.Second, time.Minute, 9))
	assert.Equal(t, 10*time.Second, Backoff(10*time.Second, time.Minute, 0))
}

func TestTaskExhausted(t *testing.T) {
	assert.False(t, Task{Attempts: 2, MaxAttempts: 3}.Exhausted())
	assert.True(t, Task{Attempts: 3, MaxAttempts: 3}.Exhausted())
	assert.True(t, Task{Attempts: DefaultMaxAttempts}.Exhausted())
}

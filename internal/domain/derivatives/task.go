package derivatives

import (
	"math"
	"time"
)

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

const DefaultMaxAttempts = 5

// Task is a durable regeneration request. At most one pending task exists
// per artwork; later requests are merged into it.
type Task struct {
	ID        string `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ArtworkID string `gorm:"type:uuid;not null;index" json:"artwork_id"`
	// ImageID is the primary image the task renders from. Results are only
	// written back while that image is still primary.
	ImageID string `gorm:"type:text;not null;default:''" json:"image_id,omitempty"`

	Watermark     bool `gorm:"not null;default:false" json:"watermark"`
	Visualization bool `gorm:"not null;default:false" json:"visualization"`

	Status        TaskStatus `gorm:"type:text;not null;default:'pending';index:idx_regen_tasks_due,priority:1" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts   int        `gorm:"not null;default:5" json:"max_attempts"`
	NextAttemptAt time.Time  `gorm:"not null;index:idx_regen_tasks_due,priority:2" json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Task) TableName() string {
	return "regeneration_tasks"
}

// Targets reports whether the task's results belong on image imageID.
func (t Task) Targets(imageID string) bool {
	return t.ImageID == "" || t.ImageID == imageID
}

func (t Task) Request() Request {
	return Request{Watermark: t.Watermark, Visualization: t.Visualization}
}

// Exhausted reports whether the attempt just recorded was the last one allowed.
func (t Task) Exhausted() bool {
	limit := t.MaxAttempts
	if limit <= 0 {
		limit = DefaultMaxAttempts
	}
	return t.Attempts >= limit
}

// Backoff is initial * 2^(attempt-1), capped at limit.
func Backoff(initial, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(initial) * math.Pow(2, float64(attempt-1))
	if d > float64(limit) {
		return limit
	}
	return time.Duration(d)
}

// Result carries the paths written by the compositor. A path is empty when
// that derivative was not requested.
type Result struct {
	WatermarkPath     string `json:"watermark_path"`
	VisualizationPath string `json:"visualization_path"`
}

// Covers reports whether res holds a path for every derivative in req.
func (res Result) Covers(req Request) bool {
	if req.Watermark && res.WatermarkPath == "" {
		return false
	}
	if req.Visualization && res.VisualizationPath == "" {
		return false
	}
	return true
}

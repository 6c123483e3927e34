// Package events publishes domain events after a write has committed.
// Delivery is best effort: a failed publish is logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	ArtworkSaved   = "artwork.saved"
	ArtworkDeleted = "artwork.deleted"
	EditionSold    = "edition.sold"
	EditionUnsold  = "edition.unsold"
	// EditionOversold is a paid checkout for work that was already sold.
	// The payment needs a refund.
	EditionOversold = "edition.oversold"
	ArtistRenamed   = "artist.renamed"
	InquiryCreated  = "inquiry.created"
)

type Event struct {
	Type      string    `json:"type"`
	OwnerID   uint      `json:"owner_id"`
	ArtworkID string    `json:"artwork_id,omitempty"`
	Edition   string    `json:"edition,omitempty"`
	Status    string    `json:"status,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	At        time.Time `json:"at"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, e Event)
}

// LogDispatcher is used when no broker is configured.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, e Event) {
	log.WithFields(log.Fields{
		"event":      e.Type,
		"owner_id":   e.OwnerID,
		"artwork_id": e.ArtworkID,
		"edition":    e.Edition,
		"session_id": e.SessionID,
	}).Info("domain event")
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSDispatcher publishes each event as JSON on prefix + event type,
// e.g. "artmarket.edition.sold".
type NATSDispatcher struct {
	conn   *nats.Conn
	pub    publisher
	prefix string
}

func NewNATSDispatcher(url, prefix string) (*NATSDispatcher, error) {
	conn, err := nats.Connect(url, nats.Name("artmarket"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NATSDispatcher{conn: conn, pub: conn, prefix: prefix}, nil
}

func (d *NATSDispatcher) Dispatch(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		log.WithError(err).WithField("event", e.Type).Error("encode event")
		return
	}
	if err := d.pub.Publish(d.prefix+e.Type, data); err != nil {
		log.WithError(err).WithField("event", e.Type).Warn("publish event")
	}
}

func (d *NATSDispatcher) Close() {
	if d.conn != nil {
		d.conn.Drain()
	}
}

// Recorder keeps dispatched events in memory; tests use it to assert on them.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Dispatch(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
}

func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}

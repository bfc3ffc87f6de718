// Package events delivers request lifecycle events to the audit log and
// notification collaborators.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"fixit/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, evs ...models.Event) error
}

// Multi fans out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evs ...models.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evs...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct{ log zerolog.Logger }

func NewLogPublisher(l zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: l.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evs ...models.Event) error {
	for _, ev := range evs {
		e := p.log.Info().
			Str("event_id", ev.ID).
			Str("action", string(ev.Action)).
			Str("request_id", ev.RequestID).
			Str("actor", ev.Actor).
			Time("at", ev.Timestamp)
		if ev.From != "" {
			e = e.Str("from", ev.From)
		}
		if ev.To != "" {
			e = e.Str("to", ev.To)
		}
		if len(ev.Meta) > 0 {
			e = e.Interface("meta", ev.Meta)
		}
		e.Msg("request event")
	}
	return nil
}

// Recorder keeps events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Publish(_ context.Context, evs ...models.Event) error {
	r.mu.Lock()
	r.events = append(r.events, evs...)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Actions returns the recorded actions in order, optionally only those for requestID.
func (r *Recorder) Actions(requestID string) []models.EventAction {
	var out []models.EventAction
	for _, ev := range r.Events() {
		if requestID == "" || ev.RequestID == requestID {
			out = append(out, ev.Action)
		}
	}
	return out
}
